// Package messaging handles the WhatsApp side of the assistant: command
// parsing for inbound messages and delivery of replies.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/todo-assistant/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Sender delivers a text reply to a phone number
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

// LogSender only logs outgoing replies
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a sender that writes replies to the log
func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{logger: log}
}

// Send implements Sender
func (s *LogSender) Send(_ context.Context, to, text string) error {
	s.logger.Info("whatsapp_reply",
		zap.String("to", logger.MaskPhone(to)),
		zap.String("text", logger.SanitizeMessage(text)))
	return nil
}

// DefaultGraphBaseURL is the WhatsApp Cloud API host
const DefaultGraphBaseURL = "https://graph.facebook.com"

// CloudConfig configures CloudSender
type CloudConfig struct {
	AccessToken   string
	PhoneNumberID string
	APIVersion    string
	BaseURL       string
	Timeout       time.Duration
}

// CloudSender posts replies to the WhatsApp Cloud API
type CloudSender struct {
	client   *http.Client
	endpoint string
	logger   *zap.Logger
}

// NewCloudSender creates a Cloud API sender authenticated with a static
// bearer token.
func NewCloudSender(cfg CloudConfig, log *zap.Logger) (*CloudSender, error) {
	if cfg.AccessToken == "" || cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp access token and phone number id are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGraphBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v17.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})
	client := oauth2.NewClient(context.Background(), ts)
	client.Timeout = cfg.Timeout

	return &CloudSender{
		client:   client,
		endpoint: fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(cfg.BaseURL, "/"), cfg.APIVersion, cfg.PhoneNumberID),
		logger:   log,
	}, nil
}

type cloudText struct {
	Body string `json:"body"`
}

type cloudMessage struct {
	MessagingProduct string    `json:"messaging_product"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Text             cloudText `json:"text"`
}

// Send implements Sender
func (s *CloudSender) Send(ctx context.Context, to, text string) error {
	body, err := json.Marshal(cloudMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             cloudText{Body: text},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp API returned status %d: %s", resp.StatusCode, logger.SanitizeString(string(preview), logger.MaxErrorMessageLength))
	}

	s.logger.Debug("whatsapp_message_sent", zap.String("to", logger.MaskPhone(to)))
	return nil
}
