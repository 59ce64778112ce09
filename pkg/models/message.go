package models

// Role identifies the author of a chat message. The stored vocabulary is
// {user, assistant}; translation to the model service's {user, model}
// vocabulary happens at the export boundary, never in storage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry in a user's conversation. Messages are created
// once (by the user or by the model reply) and never mutated; the only
// destructive operation is a full clear of the sequence.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
