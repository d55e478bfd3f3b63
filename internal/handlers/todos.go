package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/services/todo"
	"github.com/benvon/todo-assistant/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TodoService is the todo repository as seen by the HTTP layer
type TodoService interface {
	List(ctx context.Context, userID int64) ([]*models.Todo, error)
	Get(ctx context.Context, id int64) (*models.Todo, error)
	Create(ctx context.Context, userID int64, in todo.CreateInput) (*models.Todo, error)
	Edit(ctx context.Context, id int64, in todo.EditInput) (*models.Todo, error)
	Toggle(ctx context.Context, id int64) (*models.Todo, error)
	SetCompleted(ctx context.Context, id int64, completed bool) (*models.Todo, error)
	Delete(ctx context.Context, id int64) error
}

// TodoHandler handles todo-related requests
type TodoHandler struct {
	todos  TodoService
	logger *zap.Logger
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(todos TodoService, log *zap.Logger) *TodoHandler {
	return &TodoHandler{todos: todos, logger: log}
}

// RegisterRoutes registers todo routes on the given router
// The router should already have the /todos prefix
func (h *TodoHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTodos).Methods(http.MethodGet)
	r.HandleFunc("", h.CreateTodo).Methods(http.MethodPost)
	r.HandleFunc("/{id:[0-9]+}", h.GetTodo).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}", h.UpdateTodo).Methods(http.MethodPut)
	r.HandleFunc("/{id:[0-9]+}", h.DeleteTodo).Methods(http.MethodDelete)
	r.HandleFunc("/{id:[0-9]+}/toggle", h.ToggleTodo).Methods(http.MethodPost)
}

// CreateTodoRequest is the body of POST /todos
type CreateTodoRequest struct {
	Text        string  `json:"text" validate:"required,notblank,max=500"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=10000"`
	Priority    bool    `json:"priority"`
}

// UpdateTodoRequest replaces a todo's editable fields. Omitted optional
// fields reset to their defaults. Completed is applied only when present.
type UpdateTodoRequest struct {
	Text        string  `json:"text" validate:"required,notblank,max=500"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=10000"`
	Priority    bool    `json:"priority"`
	Completed   *bool   `json:"completed,omitempty"`
}

// ListTodos lists every todo of the user, newest first
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	todos, err := h.todos.List(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve todos")
		return
	}
	respondJSON(w, http.StatusOK, todos)
}

// CreateTodo creates a todo for the user
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validation.FirstError(err))
		return
	}

	created, err := h.todos.Create(r.Context(), user.ID, todo.CreateInput{
		Title:       validation.SanitizeText(req.Text),
		Description: validation.SanitizeOptional(req.Description),
		Priority:    req.Priority,
	})
	if err != nil {
		h.writeServiceError(w, err, "Failed to create todo")
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// GetTodo returns one todo
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	found, err := h.todos.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to retrieve todo")
		return
	}
	respondJSON(w, http.StatusOK, found)
}

// UpdateTodo replaces title, description and priority
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validation.FirstError(err))
		return
	}

	updated, err := h.todos.Edit(r.Context(), id, todo.EditInput{
		Title:       validation.SanitizeText(req.Text),
		Description: validation.SanitizeOptional(req.Description),
		Priority:    req.Priority,
	})
	if err != nil {
		h.writeServiceError(w, err, "Failed to update todo")
		return
	}

	if req.Completed != nil && *req.Completed != updated.Completed {
		updated, err = h.todos.SetCompleted(r.Context(), id, *req.Completed)
		if err != nil {
			h.writeServiceError(w, err, "Failed to update todo")
			return
		}
	}

	respondJSON(w, http.StatusOK, updated)
}

// ToggleTodo flips the completed flag
func (h *TodoHandler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	toggled, err := h.todos.Toggle(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to toggle todo")
		return
	}
	respondJSON(w, http.StatusOK, toggled)
}

// DeleteTodo removes a todo
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.todos.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Failed to delete todo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TodoHandler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case database.IsNotFound(err):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Todo not found")
	case errors.Is(err, todo.ErrEmptyTitle):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "text is required")
	default:
		h.logger.Debug("todo_request_failed", zap.String("error", logger.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", fallback)
	}
}
