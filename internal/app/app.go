// Package app wires configuration, storage, the model client and the HTTP
// surface into one runnable server.
package app

import (
	"context"
	"fmt"
	"time"

	"chatrelay/internal/retention"
	"chatrelay/pkg/banner"
	"chatrelay/pkg/chat"
	"chatrelay/pkg/config"
	"chatrelay/pkg/llm"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	svc llm.Service
	orc *chat.Orchestrator

	httpSrv   *httpServer
	retCancel context.CancelFunc
}

// New initializes resources that do not require a running context: runtime
// keys, the store, the model client and the orchestrator. Call Run to
// start the HTTP server and block until shutdown.
func New(ctx context.Context, eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	// runtime signing keys
	runtimeCfg := &config.RuntimeConfig{SigningKeys: map[string]struct{}{}}
	for _, k := range eff.Config.Security.SigningKeys {
		runtimeCfg.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	svc, err := newModelService(ctx, eff.Config.LLM)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		svc:       svc,
		orc:       chat.New(svc),
	}
	return a, nil
}

// newModelService constructs the single long-lived model client. Without
// an API key the echo backend is used so local development works end to
// end; production deployments must configure one.
func newModelService(ctx context.Context, cfg config.LLMConfig) (llm.Service, error) {
	switch cfg.Provider {
	case "", "googleai":
		if cfg.APIKey == "" {
			logger.Warn("no_model_api_key", "fallback", "echo")
			return llm.NewEcho(), nil
		}
		return llm.NewGoogleAI(ctx, cfg.APIKey, cfg.Model, cfg.Timeout.Duration())
	case "echo":
		return llm.NewEcho(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}

// Run starts the retention scheduler and the HTTP server, and blocks until
// ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	cancel, err := retention.Start(ctx, a.eff.Config.Retention)
	if err != nil {
		return err
	}
	a.retCancel = cancel

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server and closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	if a.retCancel != nil {
		a.retCancel()
	}
	if a.httpSrv != nil {
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := a.httpSrv.srv.Shutdown(sctx); err != nil {
			logger.Warn("http_shutdown_error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		return err
	}
	logger.Info("shutdown_complete")
	return nil
}

func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "none" && a.commit != "" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "unknown" && a.buildDate != "" {
		verStr += " @ " + a.buildDate
	}
	model := a.eff.Config.LLM.Model
	if model == "" {
		model = llm.DefaultModel
	}
	banner.Print(a.eff, model, verStr)
}
