package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/services/session"
	"github.com/benvon/todo-assistant/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// LoginService resolves a username to a user and a session token
type LoginService interface {
	LoginByUsername(ctx context.Context, username string) (*session.Login, error)
}

// AuthHandler handles login and the current-user lookup
type AuthHandler struct {
	sessions LoginService
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions LoginService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, logger: log}
}

// RegisterPublicRoutes registers routes that need no session.
// The router should already have the /api/v1/auth prefix.
func (h *AuthHandler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
}

// RegisterRoutes registers routes behind the auth middleware
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods(http.MethodGet)
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required,notblank,max=100"`
}

// Login finds or creates the user and issues a session token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validation.FirstError(err))
		return
	}

	login, err := h.sessions.LoginByUsername(r.Context(), validation.SanitizeText(req.Username))
	if err != nil {
		if errors.Is(err, session.ErrEmptyUsername) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "username is required")
			return
		}
		h.logger.Error("login_failed",
			zap.String("username", logger.SanitizeUsername(req.Username)),
			zap.String("error", logger.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to log in")
		return
	}

	respondJSON(w, http.StatusOK, login)
}

// GetMe returns the user behind the session token
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, user)
}
