package auth

import (
	"net/http"
	"strings"

	"chatrelay/pkg/config"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/utils"
)

// SecConfig drives CORS, rate limiting and session verification.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
}

// Middleware verifies the signed session and injects the caller identity
// into the request context. Requests without credentials pass through with
// an empty identity; handlers decide whether that is fatal (the chat
// endpoints answer 401). Requests with an invalid signature are rejected
// here, before any handler runs.
func Middleware(cfg SecConfig) func(http.Handler) http.Handler {
	limiters := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Centralized safe request logging (redacts sensitive headers)
			logger.LogRequest(r)

			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type,X-User-ID,X-User-Signature")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				// Cache preflight response for 10 minutes to reduce preflight traffic.
				w.Header().Set("Access-Control-Max-Age", "600")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			userID, sig := credentials(r)
			if sig != "" {
				keys := config.GetSigningKeys()
				if len(keys) == 0 {
					logger.Error("no_signing_keys_configured")
					utils.JSONError(w, http.StatusInternalServerError, "server misconfigured: no signing secrets available")
					return
				}
				if userID == "" || !verifySignature(keys, userID, sig) {
					logger.Warn("invalid_session_signature", "user", userID, "path", r.URL.Path, "remote", r.RemoteAddr)
					utils.JSONError(w, http.StatusUnauthorized, "invalid session signature")
					return
				}
				logger.Debug("session_verified", "user", userID)
				r = r.WithContext(WithIdentity(r.Context(), userID))
			}

			// Rate limit per verified user, falling back to remote IP for
			// anonymous callers.
			limKey := userID
			if limKey == "" || sig == "" {
				limKey = clientIP(r)
			}
			if !limiters.Allow(limKey) {
				logger.Warn("rate_limited", "key", limKey, "path", r.URL.Path)
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// credentials extracts the session user id and signature from the cookie,
// falling back to explicit headers for non-browser SDK callers.
func credentials(r *http.Request) (userID, sig string) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		if id, s, ok := splitSessionToken(c.Value); ok {
			return id, s
		}
	}
	return strings.TrimSpace(r.Header.Get("X-User-ID")), strings.TrimSpace(r.Header.Get("X-User-Signature"))
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return false
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
