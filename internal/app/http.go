package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"chatrelay/pkg/api"
	"chatrelay/pkg/auth"
	"chatrelay/pkg/store"
	"chatrelay/pkg/telemetry"
)

type httpServer struct {
	srv *http.Server
}

// setupHTTPHandlers sets up all HTTP handlers on the provided mux.
func (a *App) setupHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", healthzHandler)
	mux.HandleFunc("/readyz", a.readyzHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	mux.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))

	// browser client assets; the API itself lives under /api/v1
	webDir := a.eff.Config.Server.WebDir
	if webDir == "" {
		webDir = "./web"
	}
	mux.Handle("/app/", http.StripPrefix("/app/", http.FileServer(http.Dir(webDir))))

	mux.Handle("/", api.NewRouter(a.orc, a.eff.Config.Limits.MaxBody.Int64()))
}

// healthzHandler handles the /healthz liveness probe. Unauthenticated so
// deployment systems can reach it.
func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// readyzHandler reports readiness: the store must be open.
func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !store.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","version":"` + ver + `"}`))
}

// startHTTP builds the handler, starts the HTTP server in a goroutine and
// returns a channel that will contain any server error.
func (a *App) startHTTP(_ context.Context) <-chan error {
	mux := http.NewServeMux()
	a.setupHTTPHandlers(mux)

	secCfg := auth.SecConfig{
		AllowedOrigins: append([]string{}, a.eff.Config.Security.CORS.AllowedOrigins...),
		RPS:            a.eff.Config.Security.RateLimit.RPS,
		Burst:          a.eff.Config.Security.RateLimit.Burst,
	}

	wrapped := auth.Middleware(secCfg)(mux)
	wrapped = telemetry.Middleware(wrapped)

	a.httpSrv = &httpServer{srv: &http.Server{
		Addr:              a.eff.Addr,
		Handler:           wrapped,
		ReadHeaderTimeout: 10 * time.Second,
	}}

	errCh := make(chan error, 1)
	go func() {
		cert := a.eff.Config.Server.TLS.CertFile
		key := a.eff.Config.Server.TLS.KeyFile
		if cert != "" && key != "" {
			errCh <- a.httpSrv.srv.ListenAndServeTLS(cert, key)
		} else {
			errCh <- a.httpSrv.srv.ListenAndServe()
		}
	}()
	return errCh
}
