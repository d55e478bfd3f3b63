package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/request"
	"github.com/benvon/todo-assistant/internal/services/conversation"
	"github.com/benvon/todo-assistant/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ChatFlow is the conversational suggestion flow as seen by the HTTP layer
type ChatFlow interface {
	Transcript(ctx context.Context, sessionID string) (*models.Transcript, error)
	Clear(ctx context.Context, sessionID string) (*models.Transcript, error)
	Send(ctx context.Context, sessionID, text string) (*conversation.Reply, error)
	QuickReply(ctx context.Context, sessionID string, userID int64, text string) (*conversation.Reply, error)
}

// ChatHandler drives the chat panel
type ChatHandler struct {
	flow   ChatFlow
	logger *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(flow ChatFlow, log *zap.Logger) *ChatHandler {
	return &ChatHandler{flow: flow, logger: log}
}

// RegisterRoutes registers chat routes
// The router should already have the /chat prefix
func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetTranscript).Methods(http.MethodGet)
	r.HandleFunc("", h.ClearTranscript).Methods(http.MethodDelete)
	r.HandleFunc("/messages", h.SendMessage).Methods(http.MethodPost)
	r.HandleFunc("/actions", h.QuickReply).Methods(http.MethodPost)
}

// ChatMessageRequest is the body of POST /chat/messages
type ChatMessageRequest struct {
	Text string `json:"text" validate:"required,notblank,max=2000"`
}

// ChatActionRequest is the body of POST /chat/actions
type ChatActionRequest struct {
	Action string `json:"action" validate:"required,chat_action"`
}

// ChatReplyResponse is returned by the message and action endpoints
type ChatReplyResponse struct {
	Transcript *models.Transcript    `json:"transcript"`
	Action     string                `json:"action,omitempty"`
	Created    []*models.Todo        `json:"created_todos,omitempty"`
	Prefill    *models.SuggestedTodo `json:"prefill,omitempty"`
	ClosePanel bool                  `json:"close_panel"`
}

func newChatReply(reply *conversation.Reply) ChatReplyResponse {
	return ChatReplyResponse{
		Transcript: reply.Transcript,
		Action:     string(reply.Action),
		Created:    reply.Created,
		Prefill:    reply.Prefill,
		ClosePanel: reply.ClosePanel,
	}
}

// GetTranscript returns the stored conversation
func (h *ChatHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.session(w, r)
	if !ok {
		return
	}
	t, err := h.flow.Transcript(r.Context(), sid)
	if err != nil {
		h.writeFlowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// ClearTranscript resets the conversation to the welcome message
func (h *ChatHandler) ClearTranscript(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.session(w, r)
	if !ok {
		return
	}
	t, err := h.flow.Clear(r.Context(), sid)
	if err != nil {
		h.writeFlowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// SendMessage asks for a suggestion for free text
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.session(w, r)
	if !ok {
		return
	}

	var req ChatMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validation.FirstError(err))
		return
	}

	reply, err := h.flow.Send(r.Context(), sid, validation.SanitizeText(req.Text))
	if err != nil {
		h.writeFlowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newChatReply(reply))
}

// QuickReply handles a quick-reply button press
func (h *ChatHandler) QuickReply(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.session(w, r)
	if !ok {
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ChatActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validation.FirstError(err))
		return
	}

	reply, err := h.flow.QuickReply(r.Context(), sid, user.ID, validation.SanitizeText(req.Action))
	if err != nil {
		h.writeFlowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newChatReply(reply))
}

func (h *ChatHandler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid := request.SessionIDFromContext(r)
	if sid == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return "", false
	}
	return sid, true
}

func (h *ChatHandler) writeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversation.ErrReplyPending):
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, conversation.ErrEmptyMessage):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		h.logger.Error("chat_request_failed", zap.String("error", logger.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update conversation")
	}
}
