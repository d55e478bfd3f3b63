package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/queue"
	"github.com/benvon/todo-assistant/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TodoLoader loads the todo a job refers to
type TodoLoader interface {
	Get(ctx context.Context, id int64) (*models.Todo, error)
}

// TodoEnricher runs one enrichment for a loaded todo
type TodoEnricher interface {
	Run(ctx context.Context, todo *models.Todo) error
}

// DescriptionWorker consumes generate_description jobs
type DescriptionWorker struct {
	todos    TodoLoader
	enricher TodoEnricher
	logger   *zap.Logger
}

// NewDescriptionWorker creates a worker
func NewDescriptionWorker(todos TodoLoader, enricher TodoEnricher, log *zap.Logger) *DescriptionWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &DescriptionWorker{todos: todos, enricher: enricher, logger: log}
}

// ProcessJob handles one message. It acks on success and on jobs that no
// longer have anything to do; every failure is nacked without requeue so the
// job ends up in the DLQ.
func (w *DescriptionWorker) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	ctx, span := telemetry.StartSpan(ctx, "enrichment.process_job",
		attribute.String("job.id", job.ID.String()),
		attribute.Int64("todo.id", job.TodoID))
	defer span.End()

	if job.Type != queue.JobTypeGenerateDescription {
		w.reject(msg, job)
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	todo, err := w.todos.Get(ctx, job.TodoID)
	if err != nil {
		if database.IsNotFound(err) {
			w.logger.Info("enrichment_job_todo_gone",
				zap.String("job_id", job.ID.String()),
				zap.Int64("todo_id", job.TodoID))
			return w.ack(msg)
		}
		w.reject(msg, job)
		return fmt.Errorf("failed to load todo: %w", err)
	}

	if todo.HasDescription() {
		w.logger.Debug("enrichment_job_skipped",
			zap.String("job_id", job.ID.String()),
			zap.Int64("todo_id", todo.ID))
		return w.ack(msg)
	}

	if err := w.enricher.Run(ctx, todo); err != nil {
		w.reject(msg, job)
		return fmt.Errorf("enrichment failed: %w", err)
	}

	return w.ack(msg)
}

// Run consumes from q until ctx is cancelled or the delivery channel closes
func (w *DescriptionWorker) Run(ctx context.Context, q queue.JobQueue, prefetch int) error {
	msgChan, errChan, err := q.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			w.logger.Error("queue_error", zap.String("error", logger.SanitizeError(err)))
		case msg, ok := <-msgChan:
			if !ok {
				return errors.New("message channel closed")
			}
			if err := w.ProcessJob(ctx, msg); err != nil {
				w.logger.Error("failed_to_process_job",
					zap.String("error", logger.SanitizeError(err)),
					zap.String("job_id", msg.GetJob().ID.String()),
					zap.String("job_type", string(msg.GetJob().Type)))
			}
		}
	}
}

func (w *DescriptionWorker) ack(msg queue.MessageInterface) error {
	if err := msg.Ack(); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

func (w *DescriptionWorker) reject(msg queue.MessageInterface, job *queue.Job) {
	if err := msg.Nack(false); err != nil {
		w.logger.Warn("failed_to_nack_job",
			zap.String("job_id", job.ID.String()),
			zap.String("error", logger.SanitizeError(err)))
	}
}
