// Package todo implements the user-scoped todo operations on top of the
// persistence gateway.
package todo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"go.uber.org/zap"
)

// ErrEmptyTitle is returned when a todo title is blank after trimming
var ErrEmptyTitle = errors.New("todo title is required")

// ActiveListLimit is how many active todos the messaging list command shows
const ActiveListLimit = 10

// Enricher receives todos created without a description. Implementations
// must not block the caller and never report a result back.
type Enricher interface {
	Enrich(todo *models.Todo)
}

// Service is the todo repository used by handlers, the chat flow and the
// messaging webhook.
type Service struct {
	store    database.TodoStore
	enricher Enricher
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithEnricher sets the enrichment hook run after description-less creates
func WithEnricher(e Enricher) Option {
	return func(s *Service) { s.enricher = e }
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a todo service
func NewService(store database.TodoStore, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput holds the fields accepted when creating a todo
type CreateInput struct {
	Title       string
	Description *string
	Priority    bool
}

// EditInput holds the full replacement for an existing todo
type EditInput struct {
	Title       string
	Description *string
	Priority    bool
}

// List returns every todo of the user, newest first
func (s *Service) List(ctx context.Context, userID int64) ([]*models.Todo, error) {
	todos, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed_to_list_todos",
			zap.Int64("user_id", userID),
			zap.String("error", logger.SanitizeError(err)))
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}

// ListActive returns up to limit incomplete todos of the user, newest first
func (s *Service) ListActive(ctx context.Context, userID int64, limit int) ([]*models.Todo, error) {
	todos, err := s.store.ListActiveByUser(ctx, userID, limit)
	if err != nil {
		s.logger.Error("failed_to_list_active_todos",
			zap.Int64("user_id", userID),
			zap.String("error", logger.SanitizeError(err)))
		return nil, fmt.Errorf("failed to list active todos: %w", err)
	}
	return todos, nil
}

// Get returns a single todo by id
func (s *Service) Get(ctx context.Context, id int64) (*models.Todo, error) {
	todo, err := s.store.GetByID(ctx, id)
	if err != nil {
		if !database.IsNotFound(err) {
			s.logger.Error("failed_to_get_todo",
				zap.Int64("todo_id", id),
				zap.String("error", logger.SanitizeError(err)))
		}
		return nil, err
	}
	return todo, nil
}

// Create inserts a todo for the user. The title is trimmed and required, an
// empty description is stored as NULL. When no description was given the
// configured Enricher is notified.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (*models.Todo, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	now := s.stamp(time.Time{})
	todo := &models.Todo{
		Text:        title,
		Description: models.OptionalText(in.Description),
		Priority:    in.Priority,
		Completed:   false,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, todo); err != nil {
		s.logger.Error("failed_to_create_todo",
			zap.Int64("user_id", userID),
			zap.String("error", logger.SanitizeError(err)))
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	s.logger.Debug("todo_created",
		zap.Int64("todo_id", todo.ID),
		zap.Int64("user_id", userID),
		zap.Bool("priority", todo.Priority))

	if todo.Description == nil && s.enricher != nil {
		s.enricher.Enrich(todo)
	}

	return todo, nil
}

// Edit replaces title, description and priority. Fields are not merged:
// a nil description clears it and priority takes the given value.
func (s *Service) Edit(ctx context.Context, id int64, in EditInput) (*models.Todo, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	current.Text = title
	current.Description = models.OptionalText(in.Description)
	current.Priority = in.Priority
	current.UpdatedAt = s.stamp(current.UpdatedAt)

	if err := s.store.Update(ctx, current); err != nil {
		return nil, s.wrapWrite("failed_to_update_todo", id, err)
	}
	return current, nil
}

// Toggle flips the completed flag
func (s *Service) Toggle(ctx context.Context, id int64) (*models.Todo, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.setCompleted(ctx, current, !current.Completed)
}

// SetCompleted writes an explicit completed value
func (s *Service) SetCompleted(ctx context.Context, id int64, completed bool) (*models.Todo, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.setCompleted(ctx, current, completed)
}

func (s *Service) setCompleted(ctx context.Context, current *models.Todo, completed bool) (*models.Todo, error) {
	updated, err := s.store.SetCompleted(ctx, current.ID, completed, s.stamp(current.UpdatedAt))
	if err != nil {
		return nil, s.wrapWrite("failed_to_set_todo_completed", current.ID, err)
	}
	return updated, nil
}

// SetDescription stores a trimmed description produced by an external
// generator. A blank description clears the column.
func (s *Service) SetDescription(ctx context.Context, id int64, description string) (*models.Todo, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateDescription(ctx, id, models.OptionalText(&description), s.stamp(current.UpdatedAt))
	if err != nil {
		return nil, s.wrapWrite("failed_to_update_todo_description", id, err)
	}
	return updated, nil
}

// Delete removes a todo
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return s.wrapWrite("failed_to_delete_todo", id, err)
	}
	return nil
}

func (s *Service) wrapWrite(event string, id int64, err error) error {
	if database.IsNotFound(err) {
		return err
	}
	s.logger.Error(event,
		zap.Int64("todo_id", id),
		zap.String("error", logger.SanitizeError(err)))
	return fmt.Errorf("%s: %w", strings.ReplaceAll(event, "_", " "), err)
}

// stamp returns the current time at database resolution, strictly after prev
func (s *Service) stamp(prev time.Time) time.Time {
	now := s.now().UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}
