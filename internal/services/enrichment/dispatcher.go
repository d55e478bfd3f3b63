package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/queue"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single detached task
const DefaultTimeout = 30 * time.Second

// detached tracks background tasks so shutdown can wait for them
type detached struct {
	wg      sync.WaitGroup
	timeout time.Duration
	logger  *zap.Logger
}

func (d *detached) init(timeout time.Duration, log *zap.Logger) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	d.timeout = timeout
	d.logger = log
}

// spawn runs fn on its own goroutine with a fresh context; the request that
// triggered it may already be gone.
func (d *detached) spawn(todoID int64, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				d.logger.Error("todo_enrichment_panic",
					zap.Int64("todo_id", todoID),
					zap.String("panic", fmt.Sprint(rec)))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			d.logger.Debug("todo_enrichment_task_error",
				zap.Int64("todo_id", todoID),
				zap.String("error", logger.SanitizeError(err)))
		}
	}()
}

// Wait blocks until every task started so far has finished
func (d *detached) Wait() {
	d.wg.Wait()
}

// DetachedDispatcher runs enrichment in-process on a goroutine per todo
type DetachedDispatcher struct {
	detached
	runner *Runner
}

// NewDetachedDispatcher creates an in-process dispatcher
func NewDetachedDispatcher(runner *Runner, timeout time.Duration, log *zap.Logger) *DetachedDispatcher {
	d := &DetachedDispatcher{runner: runner}
	d.init(timeout, log)
	return d
}

// Enrich implements todo.Enricher
func (d *DetachedDispatcher) Enrich(todo *models.Todo) {
	snapshot := *todo
	d.logger.Debug("todo_enrichment_dispatched",
		zap.Int64("todo_id", snapshot.ID),
		zap.String("mode", "inline"))
	d.spawn(snapshot.ID, func(ctx context.Context) error {
		return d.runner.Run(ctx, &snapshot)
	})
}

// QueueDispatcher publishes an enrichment job for cmd/worker to pick up
type QueueDispatcher struct {
	detached
	queue queue.JobQueue
}

// NewQueueDispatcher creates a dispatcher backed by a job queue
func NewQueueDispatcher(q queue.JobQueue, timeout time.Duration, log *zap.Logger) *QueueDispatcher {
	d := &QueueDispatcher{queue: q}
	d.init(timeout, log)
	return d
}

// Enrich implements todo.Enricher
func (d *QueueDispatcher) Enrich(todo *models.Todo) {
	job := queue.NewJob(queue.JobTypeGenerateDescription, todo.UserID, todo.ID)
	d.spawn(todo.ID, func(ctx context.Context) error {
		if err := d.queue.Enqueue(ctx, job); err != nil {
			d.logger.Warn("todo_enrichment_enqueue_failed",
				zap.Int64("todo_id", job.TodoID),
				zap.String("job_id", job.ID.String()),
				zap.String("error", logger.SanitizeError(err)))
			return err
		}
		d.logger.Debug("todo_enrichment_dispatched",
			zap.Int64("todo_id", job.TodoID),
			zap.String("job_id", job.ID.String()),
			zap.String("mode", "queue"))
		return nil
	})
}

// Dispatcher is a todo.Enricher whose background work can be awaited
type Dispatcher interface {
	Enrich(todo *models.Todo)
	Wait()
}

// NewDispatcher picks how enrichment runs. Without a webhook URL nothing is
// dispatched and the result is nil. Otherwise jobs go to q when it is set,
// or run in-process through runner.
func NewDispatcher(webhookEnabled bool, q queue.JobQueue, runner *Runner, timeout time.Duration, log *zap.Logger) Dispatcher {
	switch {
	case !webhookEnabled:
		return nil
	case q != nil:
		return NewQueueDispatcher(q, timeout, log)
	default:
		return NewDetachedDispatcher(runner, timeout, log)
	}
}
