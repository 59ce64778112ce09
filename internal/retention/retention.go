// Package retention clears conversations that have been idle longer than
// the configured period, on a cron schedule. Disabled by default; a sweep
// only touches users whose conversation is non-empty.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"chatrelay/pkg/config"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/store"
	"chatrelay/pkg/telemetry"
)

const defaultCron = "0 3 * * *"

// Start starts the retention scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg config.RetentionConfig) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = defaultCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cfg.Cron)
	}
	period, err := time.ParseDuration(cfg.Period)
	if err != nil || period <= 0 {
		return nil, fmt.Errorf("invalid retention period: %q", cfg.Period)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "period", cfg.Period)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cfg, cronExpr, period)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured cron
// expression and sleeps until that time.
func runScheduler(ctx context.Context, cfg config.RetentionConfig, cronExpr string, period time.Duration) {
	for {
		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
				continue
			case <-ctx.Done():
				logger.Info("retention_scheduler_stopping")
				return
			}
		}
		select {
		case <-time.After(time.Until(next)):
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
		if err := RunOnce(ctx, period, cfg.DryRun); err != nil {
			logger.Error("retention_run_error", "error", err)
		}
	}
}

// RunOnce performs a single sweep: every user whose conversation is
// non-empty and whose last update is older than period gets an empty
// conversation persisted. Exported so tests and admin triggers can invoke
// a sweep on demand.
func RunOnce(ctx context.Context, period time.Duration, dryRun bool) error {
	cutoff := time.Now().UTC().Add(-period).UnixNano()
	users, err := store.ListUsers()
	if err != nil {
		return err
	}
	var swept int
	for _, u := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if len(u.Chats) == 0 || u.UpdatedTS >= cutoff {
			continue
		}
		if dryRun {
			logger.Info("retention_would_clear", "user", u.ID, "chats", len(u.Chats))
			continue
		}
		u.Chats = []models.ChatMessage{}
		u.UpdatedTS = time.Now().UTC().UnixNano()
		if err := store.SaveUser(u); err != nil {
			logger.Error("retention_clear_failed", "user", u.ID, "error", err)
			continue
		}
		telemetry.HistoryClears.WithLabelValues("retention").Inc()
		swept++
	}
	logger.Info("retention_run_done", "swept", swept, "users", len(users), "dry_run", dryRun)
	return nil
}
