package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
)

var (
	db     *pebble.DB
	dbPath string
)

// ErrNotFound is returned when no record exists for the requested user.
var ErrNotFound = errors.New("user not found")

const userPrefix = "user:"

func userKey(id string) []byte { return []byte(userPrefix + id) }

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// SaveUser persists the full user record, conversation included, in a
// single synced write. The turn orchestrator relies on this being the only
// write of a turn: a failed turn leaves the stored record untouched.
func SaveUser(u models.User) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if u.ID == "" {
		return fmt.Errorf("user id required")
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := db.Set(userKey(u.ID), data, pebble.Sync); err != nil {
		opsFailed.WithLabelValues("save_user").Inc()
		logger.Error("save_user_failed", "user", u.ID, "error", err)
		return err
	}
	ops.WithLabelValues("save_user").Inc()
	logger.Debug("user_saved", "user", u.ID, "chats", len(u.Chats))
	return nil
}

// GetUser loads a user record by identifier. Returns ErrNotFound when no
// record exists.
func GetUser(id string) (models.User, error) {
	var u models.User
	if db == nil {
		return u, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get(userKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return u, ErrNotFound
		}
		opsFailed.WithLabelValues("get_user").Inc()
		return u, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &u); err != nil {
		return u, fmt.Errorf("invalid stored user %s: %w", id, err)
	}
	ops.WithLabelValues("get_user").Inc()
	return u, nil
}

// DeleteUser removes a user record entirely. Conversations are cleared via
// SaveUser with an empty Chats slice; full deletion exists for the auth
// collaborator's account-removal flow.
func DeleteUser(id string) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if err := db.Delete(userKey(id), pebble.Sync); err != nil {
		opsFailed.WithLabelValues("delete_user").Inc()
		return err
	}
	ops.WithLabelValues("delete_user").Inc()
	return nil
}

// ListUsers returns all stored user records in key order. Used by the
// retention sweeper; the request path never scans.
func ListUsers() ([]models.User, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(userPrefix),
		UpperBound: []byte(userPrefix + "\xff"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.User
	for iter.First(); iter.Valid(); iter.Next() {
		if !strings.HasPrefix(string(iter.Key()), userPrefix) {
			continue
		}
		var u models.User
		if err := json.Unmarshal(iter.Value(), &u); err != nil {
			logger.Warn("skip_invalid_user_record", "key", string(iter.Key()), "error", err)
			continue
		}
		out = append(out, u)
	}
	ops.WithLabelValues("list_users").Inc()
	return out, nil
}
