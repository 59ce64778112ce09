// Package llm wraps the hosted generative model behind a narrow
// request/response contract. The orchestrator never sees SDK types; it
// speaks the exported {user, model} role vocabulary and plain text.
package llm

import "context"

// Exported role vocabulary of the model service. Stored history uses
// {user, assistant}; callers translate before crossing this boundary.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one prior conversation entry in the model's vocabulary.
type Turn struct {
	Role string
	Text string
}

// Service produces a reply to a new user message given the prior-turn
// history. A single synchronous call: no retries, no streaming.
type Service interface {
	Reply(ctx context.Context, history []Turn, message string) (string, error)
}
