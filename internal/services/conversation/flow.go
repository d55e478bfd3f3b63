// Package conversation implements the chat assistant: it keeps the
// per-session transcript, turns free text into rendered suggestions, and
// materializes confirmed suggestions as todos.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/services/session"
	"github.com/benvon/todo-assistant/internal/services/todo"
	"go.uber.org/zap"
)

var (
	// ErrReplyPending is returned when a session already has a reply in flight
	ErrReplyPending = errors.New("a reply is already in progress for this conversation")
	// ErrEmptyMessage is returned for blank chat input
	ErrEmptyMessage = errors.New("message text is required")
)

// Enhancer turns free text into a suggestion
type Enhancer interface {
	Enhance(ctx context.Context, input string) models.Enhancement
}

// TodoCreator persists materialized suggestions
type TodoCreator interface {
	Create(ctx context.Context, userID int64, in todo.CreateInput) (*models.Todo, error)
}

// Action is the classified intent of a quick reply
type Action string

const (
	ActionConfirmCreate Action = "confirm_create"
	ActionUseSuggestion Action = "use_suggestion"
	ActionModify        Action = "modify"
	ActionSimplify      Action = "simplify"
	ActionStartOver     Action = "start_over"
	ActionFollowUp      Action = "follow_up"
)

// Classify maps quick-reply text to an action. Only the confirmation
// buttons persist todos; other text mentioning "create" is a follow-up.
func Classify(text string) Action {
	lowered := strings.ToLower(strings.TrimSpace(text))
	switch {
	case isConfirmation(lowered):
		return ActionConfirmCreate
	case strings.Contains(lowered, "use this"):
		return ActionUseSuggestion
	case strings.Contains(lowered, "modify"):
		return ActionModify
	case strings.Contains(lowered, "simpler"):
		return ActionSimplify
	case strings.Contains(lowered, "start over"):
		return ActionStartOver
	default:
		return ActionFollowUp
	}
}

func isConfirmation(lowered string) bool {
	for _, label := range confirmQuickReplies {
		if lowered == strings.ToLower(label) {
			return true
		}
	}
	return false
}

// Reply is the outcome of a chat operation
type Reply struct {
	Transcript *models.Transcript
	Action     Action
	// Created lists todos persisted by a confirmation
	Created []*models.Todo
	// Prefill is the suggestion to load into the todo form
	Prefill *SuggestedTodo
	// ClosePanel tells the client to close the chat view
	ClosePanel bool
}

// Flow is the conversational suggestion state machine
type Flow struct {
	states   session.StateStore
	enhancer Enhancer
	todos    TodoCreator
	guard    *inflight
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Flow
type Option func(*Flow)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

// NewFlow creates a conversation flow
func NewFlow(states session.StateStore, enhancer Enhancer, todos TodoCreator, log *zap.Logger, opts ...Option) *Flow {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Flow{
		states:   states,
		enhancer: enhancer,
		todos:    todos,
		guard:    newInflight(),
		now:      time.Now,
		logger:   log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Transcript returns the stored conversation, or the welcome state when
// nothing is stored yet.
func (f *Flow) Transcript(ctx context.Context, sessionID string) (*models.Transcript, error) {
	t, err := f.states.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if t == nil || len(t.Messages) == 0 {
		return f.welcome(), nil
	}
	return t, nil
}

// Clear drops the stored conversation. The next load starts from the
// welcome state.
func (f *Flow) Clear(ctx context.Context, sessionID string) (*models.Transcript, error) {
	if err := f.states.Clear(ctx, sessionID); err != nil {
		f.logger.Error("failed_to_clear_conversation",
			zap.String("error", logger.SanitizeError(err)))
		return nil, fmt.Errorf("failed to clear conversation: %w", err)
	}
	return f.welcome(), nil
}

// Send appends a user message and the rendered suggestion reply
func (f *Flow) Send(ctx context.Context, sessionID, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !f.guard.acquire(sessionID) {
		return nil, ErrReplyPending
	}
	defer f.guard.release(sessionID)

	t, err := f.Transcript(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	f.append(t, text, false, nil, nil)

	enhancement := f.enhancer.Enhance(ctx, text)
	f.append(t, RenderSuggestions(enhancement), true, SuggestionQuickReplies(), enhancement.Todos())

	f.logger.Debug("chat_suggestion_rendered",
		zap.String("source", string(enhancement.Source)),
		zap.Int("suggestions", len(enhancement.Todos())),
		zap.String("input_preview", logger.SanitizeMessage(text)))

	if err := f.save(ctx, sessionID, t); err != nil {
		return nil, err
	}
	return &Reply{Transcript: t}, nil
}

// QuickReply handles a button press on the last bot message
func (f *Flow) QuickReply(ctx context.Context, sessionID string, userID int64, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !f.guard.acquire(sessionID) {
		return nil, ErrReplyPending
	}
	defer f.guard.release(sessionID)

	t, err := f.Transcript(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	suggestions := t.LastSuggestions()
	f.append(t, text, false, nil, nil)

	reply := &Reply{Transcript: t, Action: Classify(text)}

	switch reply.Action {
	case ActionConfirmCreate:
		created, err := f.materialize(ctx, userID, suggestions)
		reply.Created = created
		if err != nil {
			f.append(t, actionErrText, true, nil, nil)
			break
		}
		reply.Transcript = f.welcome()
		reply.ClosePanel = true
	case ActionUseSuggestion:
		if len(suggestions) > 0 {
			first := suggestions[0]
			reply.Prefill = &first
			reply.ClosePanel = true
			f.append(t, prefilledText, true, nil, nil)
		}
	case ActionModify:
		f.append(t, modifyText, true, modifyQuickReplies, nil)
	case ActionSimplify:
		f.append(t, simplerText, true, simplerQuickReplies, simplerSuggestion())
	case ActionStartOver:
		f.append(t, startOverText, true, nil, nil)
	default:
		f.append(t, followUpText, true, nil, nil)
	}

	if err := f.save(ctx, sessionID, reply.Transcript); err != nil {
		return nil, err
	}
	return reply, nil
}

func (f *Flow) materialize(ctx context.Context, userID int64, suggestions []SuggestedTodo) ([]*models.Todo, error) {
	inputs := Materialize(suggestions)
	created := make([]*models.Todo, 0, len(inputs))
	for _, in := range inputs {
		item, err := f.todos.Create(ctx, userID, in)
		if err != nil {
			f.logger.Error("chat_confirm_create_failed",
				zap.Int64("user_id", userID),
				zap.Int("created_before_failure", len(created)),
				zap.String("error", logger.SanitizeError(err)))
			return created, err
		}
		created = append(created, item)
	}
	f.logger.Info("chat_suggestions_confirmed",
		zap.Int64("user_id", userID),
		zap.Int("todos_created", len(created)))
	return created, nil
}

func (f *Flow) welcome() *models.Transcript {
	t := &models.Transcript{}
	f.append(t, WelcomeText, true, nil, nil)
	return t
}

func (f *Flow) append(t *models.Transcript, text string, isBot bool, replies []string, todos []SuggestedTodo) {
	now := f.now().UTC()
	t.Messages = append(t.Messages, models.ChatMessage{
		ID:           newMessageID(now),
		Text:         text,
		IsBot:        isBot,
		Timestamp:    now,
		QuickReplies: replies,
		Todos:        todos,
	})
	t.UpdatedAt = now
}

func (f *Flow) save(ctx context.Context, sessionID string, t *models.Transcript) error {
	if err := f.states.Save(ctx, sessionID, t); err != nil {
		f.logger.Error("failed_to_save_conversation",
			zap.String("error", logger.SanitizeError(err)))
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newMessageID returns "<unix-ms>-<9 base36 chars>"
func newMessageID(now time.Time) string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + string(suffix)
}
