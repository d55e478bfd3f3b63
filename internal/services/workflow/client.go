// Package workflow posts newly created todos to an external workflow
// webhook that generates descriptions for them.
package workflow

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"go.uber.org/zap"
)

// ErrWorkflowFailed is the caller-facing error for any failed call
var ErrWorkflowFailed = errors.New("failed to generate AI description")

const (
	defaultTimeout  = 10 * time.Second
	userAgent       = "todo-assistant-webhook/1"
	timestampHeader = "X-Todo-Timestamp"
	signatureHeader = "X-Todo-Signature"
	maxAckBytes     = 1 << 20
)

// Payload is the POST body sent for each todo
type Payload struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    bool      `json:"priority"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ack is the acknowledgement returned by the workflow. todoId is echoed
// back loosely typed, so it is kept as raw JSON.
type Ack struct {
	Success              bool            `json:"success"`
	Message              string          `json:"message"`
	TodoID               json.RawMessage `json:"todoId,omitempty"`
	GeneratedDescription string          `json:"generatedDescription"`
	Timestamp            string          `json:"timestamp"`
}

// Client calls the workflow webhook
type Client struct {
	url        string
	secret     string
	httpClient *http.Client
	now        func() time.Time
	logger     *zap.Logger
}

// NewClient creates a workflow client. An empty url disables it.
func NewClient(url, secret string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
		logger:     log,
	}
}

// Enabled reports whether a webhook URL is configured
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// PayloadFor builds the webhook body for a todo
func PayloadFor(todo *models.Todo) Payload {
	return Payload{
		ID:          todo.ID,
		Title:       todo.Text,
		Description: todo.DescriptionText(),
		Priority:    todo.Priority,
		Completed:   todo.Completed,
		CreatedAt:   todo.CreatedAt,
	}
}

// GenerateDescription posts the todo and decodes the acknowledgement. Any
// transport failure or non-2xx status is reported as ErrWorkflowFailed with
// the cause attached.
func (c *Client) GenerateDescription(ctx context.Context, todo *models.Todo) (*Ack, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: webhook URL not configured", ErrWorkflowFailed)
	}

	body, err := json.Marshal(PayloadFor(todo))
	if err != nil {
		return nil, fmt.Errorf("%w: marshal payload: %v", ErrWorkflowFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrWorkflowFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if c.secret != "" {
		ts := strconv.FormatInt(c.now().Unix(), 10)
		req.Header.Set(timestampHeader, ts)
		req.Header.Set(signatureHeader, Sign(c.secret, ts, body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("workflow_webhook_unreachable",
			zap.Int64("todo_id", todo.ID),
			zap.String("error", logger.SanitizeError(err)))
		return nil, fmt.Errorf("%w: %v", ErrWorkflowFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("workflow_webhook_rejected",
			zap.Int64("todo_id", todo.ID),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: HTTP error! status: %d", ErrWorkflowFailed, resp.StatusCode)
	}

	ack := &Ack{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAckBytes)).Decode(ack); err != nil {
		return nil, fmt.Errorf("%w: decode acknowledgement: %v", ErrWorkflowFailed, err)
	}

	c.logger.Info("workflow_webhook_acknowledged",
		zap.Int64("todo_id", todo.ID),
		zap.Bool("success", ack.Success),
		zap.Bool("has_description", ack.GeneratedDescription != ""))

	return ack, nil
}

// Sign computes the signature header value over "<ts>.<body>"
func Sign(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
