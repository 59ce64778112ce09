package models

// User is the persisted per-user record: a stable identifier plus the
// ordered conversation. Chats is append-only except for an explicit clear.
type User struct {
	ID    string        `json:"id"`
	Name  string        `json:"name,omitempty"`
	Email string        `json:"email,omitempty"`
	Chats []ChatMessage `json:"chats"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
	// Updated timestamp (ns) - last time the conversation changed
	UpdatedTS int64 `json:"updated_ts,omitempty"`
}
