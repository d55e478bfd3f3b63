// Package enrichment runs the detached "describe this todo" task that follows
// a create without a description. Callers hand a todo over and never see the
// outcome; failures are logged and dropped.
package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/services/workflow"
	"go.uber.org/zap"
)

// DescriptionGenerator asks an external system to describe a todo
type DescriptionGenerator interface {
	GenerateDescription(ctx context.Context, todo *models.Todo) (*workflow.Ack, error)
}

// DescriptionWriter stores a generated description
type DescriptionWriter interface {
	SetDescription(ctx context.Context, id int64, description string) (*models.Todo, error)
}

// Runner performs one enrichment: call the generator and, when it answers
// with a description inline, store it.
type Runner struct {
	generator DescriptionGenerator
	writer    DescriptionWriter
	logger    *zap.Logger
}

// NewRunner creates a runner. writer may be nil when the workflow posts its
// result back through the ai-description endpoint instead.
func NewRunner(generator DescriptionGenerator, writer DescriptionWriter, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{generator: generator, writer: writer, logger: log}
}

// Run enriches a single todo
func (r *Runner) Run(ctx context.Context, todo *models.Todo) error {
	ack, err := r.generator.GenerateDescription(ctx, todo)
	if err != nil {
		r.logger.Warn("todo_enrichment_failed",
			zap.Int64("todo_id", todo.ID),
			zap.String("error", logger.SanitizeError(err)))
		return err
	}

	generated := strings.TrimSpace(ack.GeneratedDescription)
	if generated == "" || r.writer == nil {
		r.logger.Info("todo_enrichment_acknowledged",
			zap.Int64("todo_id", todo.ID),
			zap.Bool("success", ack.Success))
		return nil
	}

	if _, err := r.writer.SetDescription(ctx, todo.ID, generated); err != nil {
		r.logger.Warn("todo_enrichment_store_failed",
			zap.Int64("todo_id", todo.ID),
			zap.String("error", logger.SanitizeError(err)))
		return fmt.Errorf("failed to store generated description: %w", err)
	}

	r.logger.Info("todo_enrichment_completed",
		zap.Int64("todo_id", todo.ID),
		zap.Int("description_length", len(generated)))
	return nil
}
