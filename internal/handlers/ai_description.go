package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DescriptionStore stores descriptions produced by an external workflow
type DescriptionStore interface {
	SetDescription(ctx context.Context, id int64, description string) (*models.Todo, error)
}

// AIDescriptionHandler receives generated descriptions from the workflow
// engine. Its responses keep the callback's own shape rather than the API
// envelope.
type AIDescriptionHandler struct {
	todos  DescriptionStore
	apiKey string
	logger *zap.Logger
}

// NewAIDescriptionHandler creates the handler. An empty apiKey disables the key check.
func NewAIDescriptionHandler(todos DescriptionStore, apiKey string, log *zap.Logger) *AIDescriptionHandler {
	return &AIDescriptionHandler{todos: todos, apiKey: apiKey, logger: log}
}

// RegisterRoutes registers the callback and its liveness probe
func (h *AIDescriptionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/ai-description", h.UpdateDescription).Methods(http.MethodPost)
	r.HandleFunc("/api/ai-description", h.Status).Methods(http.MethodGet)
}

// AIDescriptionRequest is the callback body
type AIDescriptionRequest struct {
	TodoID      int64  `json:"todoId"`
	Description string `json:"description"`
	APIKey      string `json:"apiKey,omitempty"`
}

type aiDescriptionError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// UpdateDescription stores the trimmed description on the todo
func (h *AIDescriptionHandler) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	var req AIDescriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.TodoID == 0 || strings.TrimSpace(req.Description) == "" {
		writeJSON(w, http.StatusBadRequest, aiDescriptionError{
			Error: "Missing required fields: todoId and description are required",
		})
		return
	}

	if h.apiKey != "" && subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(h.apiKey)) != 1 {
		writeJSON(w, http.StatusUnauthorized, aiDescriptionError{Error: "Invalid API key"})
		return
	}

	updated, err := h.todos.SetDescription(r.Context(), req.TodoID, req.Description)
	if err != nil {
		if database.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, aiDescriptionError{Error: "Todo not found"})
			return
		}
		h.logger.Error("ai_description_update_failed",
			zap.Int64("todo_id", req.TodoID),
			zap.String("error", logger.SanitizeError(err)))
		writeJSON(w, http.StatusInternalServerError, aiDescriptionError{
			Error:   "Failed to update todo in database",
			Details: logger.SanitizeError(err),
		})
		return
	}

	h.logger.Info("ai_description_stored", zap.Int64("todo_id", req.TodoID))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Todo description updated successfully",
		"todo":      updated,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status is the liveness probe
func (h *AIDescriptionHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "AI Description API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
