// Package chat implements the turn orchestration over the conversation
// store and the external model service: load history, export it in the
// model's role vocabulary, relay the new message, persist the paired
// result once, return the full sequence.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatrelay/pkg/llm"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/store"
	"chatrelay/pkg/telemetry"
)

var (
	// ErrNotAuthenticated means the asserted identity resolves to no
	// stored user record.
	ErrNotAuthenticated = errors.New("user not registered or token malfunctioned")
	// ErrPermissionMismatch means the resolved record's id does not equal
	// the asserted caller id.
	ErrPermissionMismatch = errors.New("permissions didn't match")
	// ErrModelService wraps any failure from the external model call.
	ErrModelService = errors.New("model service failure")
)

// Orchestrator runs chat turns against the store and the model service.
// Turns for the same user are serialized through a keyed mutex so two
// concurrent turns cannot overwrite each other's save; reads take no lock.
type Orchestrator struct {
	svc   llm.Service
	locks keyedLocks
}

func New(svc llm.Service) *Orchestrator {
	return &Orchestrator{svc: svc}
}

// SubmitTurn appends the user's message and the model's reply to the
// stored conversation and returns the full updated sequence.
//
// The user record is written exactly once, after both messages are
// appended in memory: on model failure nothing is persisted and the stored
// history is unchanged. Empty message text is relayed as-is; filtering
// input is the caller's concern.
func (o *Orchestrator) SubmitTurn(ctx context.Context, userID, text string) ([]models.ChatMessage, error) {
	unlock := o.locks.lock(userID)
	defer unlock()

	u, err := resolve(userID)
	if err != nil {
		return nil, err
	}

	// Export strictly the prior turns; the new message travels separately.
	history := ExportHistory(u.Chats)

	u.Chats = append(u.Chats, models.ChatMessage{Role: models.RoleUser, Content: text})

	reply, err := o.svc.Reply(ctx, history, text)
	if err != nil {
		telemetry.ModelFailures.Inc()
		logger.Error("turn_model_failed", "user", userID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrModelService, err)
	}

	u.Chats = append(u.Chats, models.ChatMessage{Role: ImportRole(llm.RoleModel), Content: reply})
	u.UpdatedTS = time.Now().UTC().UnixNano()
	if err := store.SaveUser(u); err != nil {
		return nil, err
	}
	telemetry.TurnsTotal.Inc()
	logger.Info("turn_completed", "user", userID, "chats", len(u.Chats))
	return u.Chats, nil
}

// History returns the stored conversation in insertion order.
func (o *Orchestrator) History(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	u, err := resolve(userID)
	if err != nil {
		return nil, err
	}
	return u.Chats, nil
}

// Clear replaces the stored conversation with an empty sequence.
// Irreversible; there is no archival copy.
func (o *Orchestrator) Clear(ctx context.Context, userID string) error {
	unlock := o.locks.lock(userID)
	defer unlock()

	u, err := resolve(userID)
	if err != nil {
		return err
	}
	u.Chats = []models.ChatMessage{}
	u.UpdatedTS = time.Now().UTC().UnixNano()
	if err := store.SaveUser(u); err != nil {
		return err
	}
	telemetry.HistoryClears.WithLabelValues("api").Inc()
	logger.Info("history_cleared", "user", userID)
	return nil
}

// resolve loads the user and re-checks that the stored id matches the
// asserted one. The equality check is redundant with the keyed lookup but
// kept as an explicit spoofing guard.
func resolve(userID string) (models.User, error) {
	u, err := store.GetUser(userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return u, ErrNotAuthenticated
		}
		return u, err
	}
	if u.ID != userID {
		return u, ErrPermissionMismatch
	}
	return u, nil
}
