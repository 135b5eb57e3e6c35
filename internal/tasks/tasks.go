// Package tasks defines the asynq task types shared by the API, which
// enqueues them, and the worker, which handles them.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-apotek/internal/db"
	"github.com/noah-isme/backend-apotek/internal/events"
)

// Task types.
const (
	TypeCacheInvalidate = "cache:invalidate"
	TypeOrderCreated    = "order:created"
)

// QueueDefault is the asynq queue used for every task.
const QueueDefault = "default"

// CacheInvalidatePayload names the caches to drop.
type CacheInvalidatePayload struct {
	Names []string `json:"names"`
}

// EventPayload carries a persisted domain event to the worker.
type EventPayload struct {
	EventID     string          `json:"eventId"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// NewCacheInvalidateTask builds a cache:invalidate task for the named caches.
func NewCacheInvalidateTask(names ...string) (*asynq.Task, error) {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("tasks: no cache names")
	}
	data, err := json.Marshal(CacheInvalidatePayload{Names: cleaned})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCacheInvalidate, data, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// typeForTopic maps an event topic to the task type handling it.
func typeForTopic(topic string) (string, bool) {
	switch topic {
	case events.TopicOrderCreated:
		return TypeOrderCreated, true
	default:
		return "", false
	}
}

// NewEventTask builds the task for a persisted event. The event id doubles as
// the asynq task id so a re-emitted event is only enqueued once.
func NewEventTask(ev db.DomainEvent) (*asynq.Task, []asynq.Option, error) {
	typ, ok := typeForTopic(ev.Topic)
	if !ok {
		return nil, nil, fmt.Errorf("tasks: no task for topic %q", ev.Topic)
	}
	payload := EventPayload{
		EventID:     db.UUIDString(ev.ID),
		Topic:       ev.Topic,
		AggregateID: db.UUIDString(ev.AggregateID),
		Payload:     json.RawMessage(ev.Payload),
	}
	if ev.OccurredAt.Valid {
		payload.OccurredAt = ev.OccurredAt.Time
	}
	if len(payload.Payload) == 0 {
		payload.Payload = json.RawMessage("{}")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{asynq.MaxRetry(10)}
	if payload.EventID != "" {
		opts = append(opts, asynq.TaskID(payload.EventID))
	}
	return asynq.NewTask(typ, data), opts, nil
}

// Enqueuer is the subset of *asynq.Client used to publish tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client publishes tasks on behalf of the API services.
type Client struct {
	Enqueuer Enqueuer
	Queue    string
}

func (c *Client) queue() string {
	if c.Queue == "" {
		return QueueDefault
	}
	return c.Queue
}

// EnqueueCacheInvalidation asks the worker to drop the named caches.
func (c *Client) EnqueueCacheInvalidation(ctx context.Context, names ...string) error {
	if c == nil || c.Enqueuer == nil {
		return errors.New("tasks: client not configured")
	}
	task, err := NewCacheInvalidateTask(names...)
	if err != nil {
		return err
	}
	if _, err := c.Enqueuer.EnqueueContext(ctx, task, asynq.Queue(c.queue())); err != nil {
		return fmt.Errorf("tasks: enqueue %s: %w", task.Type(), err)
	}
	return nil
}

// Schedule enqueues the task handling a persisted domain event. Topics with no
// handler are ignored.
func (c *Client) Schedule(ctx context.Context, ev db.DomainEvent) error {
	if c == nil || c.Enqueuer == nil {
		return errors.New("tasks: client not configured")
	}
	if _, ok := typeForTopic(ev.Topic); !ok {
		return nil
	}
	task, opts, err := NewEventTask(ev)
	if err != nil {
		return err
	}
	opts = append(opts, asynq.Queue(c.queue()))
	if _, err := c.Enqueuer.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("tasks: enqueue %s: %w", task.Type(), err)
	}
	return nil
}
