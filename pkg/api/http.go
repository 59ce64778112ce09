package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatrelay/pkg/api/handlers"
	"chatrelay/pkg/chat"
)

// Prefix is the common path prefix of the chat API.
const Prefix = "/api/v1"

// NewRouter builds the chat API router. maxBody caps request body sizes in
// bytes; zero disables the cap.
func NewRouter(orc *chat.Orchestrator, maxBody int64) *mux.Router {
	r := mux.NewRouter()
	sub := r.PathPrefix(Prefix).Subrouter()
	if maxBody > 0 {
		sub.Use(bodyLimit(maxBody))
	}
	handlers.RegisterChats(sub, orc)
	return r
}

func bodyLimit(n int64) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
