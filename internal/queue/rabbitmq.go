package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultQueueName is the default queue name
	DefaultQueueName = "todo_enrichment_jobs"
	// DefaultDLQName is the default dead letter queue name
	DefaultDLQName = "todo_enrichment_jobs_dlq"
	// DefaultExchangeName is the default exchange name
	DefaultExchangeName = "todo_jobs"

	jobsRoutingKey = "jobs"
	dlqRoutingKey  = "dlq"
)

// ErrQueueClosed is returned by HealthCheck when the connection is gone
var ErrQueueClosed = errors.New("queue connection is closed")

// RabbitMQQueue implements JobQueue using RabbitMQ
type RabbitMQQueue struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	queueName    string
	dlqName      string
	exchangeName string
}

var (
	_ JobQueue  = (*RabbitMQQueue)(nil)
	_ DLQPurger = (*RabbitMQQueue)(nil)
)

// NewRabbitMQQueue connects to RabbitMQ and declares the exchange, the job
// queue and its dead letter queue.
func NewRabbitMQQueue(amqpURL string) (*RabbitMQQueue, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	queue := &RabbitMQQueue{
		conn:         conn,
		channel:      ch,
		queueName:    DefaultQueueName,
		dlqName:      DefaultDLQName,
		exchangeName: DefaultExchangeName,
	}

	if err := queue.setup(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return queue, nil
}

// binding is one durable queue bound to the jobs exchange
type binding struct {
	queue      string
	routingKey string
	args       amqp.Table
}

// topology lists the DLQ before the job queue that dead-letters into it
func (q *RabbitMQQueue) topology() []binding {
	return []binding{
		{queue: q.dlqName, routingKey: dlqRoutingKey},
		{
			queue:      q.queueName,
			routingKey: jobsRoutingKey,
			// Rejected jobs are never requeued; they land in the DLQ instead.
			args: amqp.Table{
				"x-dead-letter-exchange":    q.exchangeName,
				"x-dead-letter-routing-key": dlqRoutingKey,
			},
		},
	}
}

// setup declares the direct exchange and every queue in the topology
func (q *RabbitMQQueue) setup() error {
	const durable, autoDelete, internal, exclusive, noWait = true, false, false, false, false

	if err := q.channel.ExchangeDeclare(q.exchangeName, amqp.ExchangeDirect, durable, autoDelete, internal, noWait, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", q.exchangeName, err)
	}

	for _, b := range q.topology() {
		if _, err := q.channel.QueueDeclare(b.queue, durable, autoDelete, exclusive, noWait, b.args); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", b.queue, err)
		}
		if err := q.channel.QueueBind(b.queue, b.routingKey, q.exchangeName, noWait, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", b.queue, err)
		}
	}
	return nil
}

// Enqueue publishes a persistent job message on the jobs routing key
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	publishing, err := newPublishing(job)
	if err != nil {
		return err
	}

	const mandatory, immediate = false, false
	if err := q.channel.PublishWithContext(ctx, q.exchangeName, jobsRoutingKey, mandatory, immediate, publishing); err != nil {
		return fmt.Errorf("failed to publish job %s: %w", job.ID, err)
	}
	return nil
}

func newPublishing(job *Job) (amqp.Publishing, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal job: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Timestamp:    job.CreatedAt,
		Type:         string(job.Type),
	}, nil
}

// decodeJob parses a delivery body and rejects jobs this service cannot run
func decodeJob(body []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.Type != JobTypeGenerateDescription {
		return nil, fmt.Errorf("unknown job type %q", job.Type)
	}
	if job.TodoID <= 0 {
		return nil, fmt.Errorf("job %s has no todo id", job.ID)
	}
	return &job, nil
}

// Consume starts an async consumer on its own channel, so publishes are
// never blocked by QoS.
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	consumeCh, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	const autoAck, exclusive, noLocal, noWait = false, false, false, false
	deliveries, err := consumeCh.Consume(q.queueName, "", autoAck, exclusive, noLocal, noWait, nil)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan *Message, prefetchCount)
	errChan := make(chan error, 1)
	go pump(ctx, consumeCh, deliveries, msgChan, errChan)

	return msgChan, errChan, nil
}

// pump forwards decoded deliveries until ctx ends or the broker closes the
// delivery stream. Undecodable bodies go straight to the DLQ.
func pump(ctx context.Context, ch *amqp.Channel, deliveries <-chan amqp.Delivery, out chan<- *Message, errs chan<- error) {
	defer close(out)
	defer close(errs)
	defer func() { _ = ch.Close() }()

	report := func(err error) {
		select {
		case errs <- err:
		default:
		}
	}

	for {
		var d amqp.Delivery
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				report(errors.New("delivery channel closed"))
				return
			}
			d = delivery
		}

		job, err := decodeJob(d.Body)
		if err != nil {
			_ = d.Nack(false, false)
			report(err)
			continue
		}

		select {
		case out <- &Message{Job: job, DeliveryTag: d.DeliveryTag, Channel: ch}:
		case <-ctx.Done():
			// Hand the job back to the broker for the next consumer
			_ = d.Nack(false, true)
			return
		}
	}
}

// PurgeOlderThan drops dead-lettered jobs published more than retention
// ago. The DLQ is FIFO, so it stops at the first message that is still
// young enough to keep.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	purged := 0
	for {
		if err := ctx.Err(); err != nil {
			return purged, err
		}

		msg, ok, err := q.channel.Get(q.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to read DLQ: %w", err)
		}
		if !ok {
			return purged, nil
		}

		if !msg.Timestamp.IsZero() && msg.Timestamp.After(cutoff) {
			_ = msg.Nack(false, true)
			return purged, nil
		}
		if err := msg.Ack(false); err != nil {
			return purged, fmt.Errorf("failed to ack DLQ message: %w", err)
		}
		purged++
	}
}

// HealthCheck verifies the connection and publishing channel are open
func (q *RabbitMQQueue) HealthCheck(_ context.Context) error {
	if q.conn == nil || q.conn.IsClosed() {
		return ErrQueueClosed
	}
	if q.channel == nil || q.channel.IsClosed() {
		return fmt.Errorf("publishing channel: %w", ErrQueueClosed)
	}
	return nil
}

// Close closes the queue connection
func (q *RabbitMQQueue) Close() error {
	var err error
	if q.channel != nil {
		err = q.channel.Close()
	}
	if q.conn != nil {
		if closeErr := q.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
