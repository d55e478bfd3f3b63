package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/services/messaging"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// MessageHandler processes one inbound WhatsApp message
type MessageHandler interface {
	Handle(ctx context.Context, msg messaging.InboundMessage) error
}

// WhatsAppHandler is the messaging webhook
type WhatsAppHandler struct {
	assistant   MessageHandler
	verifyToken string
	logger      *zap.Logger
}

// NewWhatsAppHandler creates the webhook handler
func NewWhatsAppHandler(assistant MessageHandler, verifyToken string, log *zap.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{assistant: assistant, verifyToken: verifyToken, logger: log}
}

// RegisterRoutes registers the verification and delivery endpoints.
// The router should already have the /api/whatsapp prefix.
func (h *WhatsAppHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Verify).Methods(http.MethodGet)
	r.HandleFunc("", h.Receive).Methods(http.MethodPost)
}

// WebhookContact is sender profile data sent alongside messages
type WebhookContact struct {
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
	WaID string `json:"wa_id"`
}

// WebhookPayload is the POST body
type WebhookPayload struct {
	Messages []messaging.InboundMessage `json:"messages"`
	Contacts []WebhookContact           `json:"contacts,omitempty"`
}

// Verify answers the subscription handshake by echoing hub.challenge
func (h *WhatsAppHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken {
		h.logger.Info("whatsapp_webhook_verified")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// Receive processes every message of the payload in order
func (h *WhatsAppHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var payload WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Error("whatsapp_payload_invalid", zap.String("error", logger.SanitizeError(err)))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	if len(payload.Messages) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no_messages"})
		return
	}

	for _, msg := range payload.Messages {
		if err := h.assistant.Handle(r.Context(), msg); err != nil {
			h.logger.Error("whatsapp_message_failed",
				zap.String("from", logger.MaskPhone(msg.From)),
				zap.String("error", logger.SanitizeError(err)))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
