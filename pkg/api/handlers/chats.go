package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"chatrelay/pkg/auth"
	"chatrelay/pkg/chat"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/utils"
)

// Chats serves the conversation endpoints. All three resolve the caller
// identity injected by the auth middleware and answer with flat JSON
// bodies; failure detail stays in the server log.
type Chats struct {
	orc *chat.Orchestrator
}

// RegisterChats registers HTTP handlers for the chat endpoints.
func RegisterChats(r *mux.Router, orc *chat.Orchestrator) {
	h := &Chats{orc: orc}
	r.HandleFunc("/chats/new", h.submitTurn).Methods(http.MethodPost)
	r.HandleFunc("/chats/all", h.listChats).Methods(http.MethodGet)
	r.HandleFunc("/chats", h.clearChats).Methods(http.MethodDelete)
}

type chatsResponse struct {
	Message string               `json:"message,omitempty"`
	Chats   []models.ChatMessage `json:"chats"`
}

func (h *Chats) submitTurn(w http.ResponseWriter, r *http.Request) {
	userID := auth.IdentityFromContext(r.Context())
	if userID == "" {
		utils.JSONError(w, http.StatusUnauthorized, chat.ErrNotAuthenticated.Error())
		return
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	// Empty message text is relayed as-is; the UI trims input before
	// calling and the orchestrator contract deliberately does not reject
	// it server-side.
	chats, err := h.orc.SubmitTurn(r.Context(), userID, payload.Message)
	if err != nil {
		writeChatError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, chatsResponse{Chats: chats})
}

func (h *Chats) listChats(w http.ResponseWriter, r *http.Request) {
	userID := auth.IdentityFromContext(r.Context())
	if userID == "" {
		utils.JSONError(w, http.StatusUnauthorized, chat.ErrNotAuthenticated.Error())
		return
	}
	chats, err := h.orc.History(r.Context(), userID)
	if err != nil {
		writeChatError(w, r, err)
		return
	}
	if chats == nil {
		chats = []models.ChatMessage{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, chatsResponse{Message: "OK", Chats: chats})
}

func (h *Chats) clearChats(w http.ResponseWriter, r *http.Request) {
	userID := auth.IdentityFromContext(r.Context())
	if userID == "" {
		utils.JSONError(w, http.StatusUnauthorized, chat.ErrNotAuthenticated.Error())
		return
	}
	if err := h.orc.Clear(r.Context(), userID); err != nil {
		writeChatError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"message": "OK"})
}

// writeChatError maps orchestrator errors onto the flat status+message
// wire contract. Anything that is not an auth failure collapses into a
// generic 500; subtypes are logged, never exposed.
func writeChatError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrNotAuthenticated), errors.Is(err, chat.ErrPermissionMismatch):
		utils.JSONError(w, http.StatusUnauthorized, err.Error())
	default:
		logger.Error("chat_request_failed", "path", r.URL.Path, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "something went wrong")
	}
}
