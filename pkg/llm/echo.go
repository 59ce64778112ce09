package llm

import (
	"context"
	"fmt"
)

// Echo is a local development backend used when no API key is configured.
// It answers with a canned reflection of the input so the full turn path
// can be exercised without credentials.
type Echo struct{}

func NewEcho() *Echo { return &Echo{} }

func (e *Echo) Reply(ctx context.Context, history []Turn, message string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return fmt.Sprintf("(demo) you said: %s [history: %d turns]", message, len(history)), nil
}
