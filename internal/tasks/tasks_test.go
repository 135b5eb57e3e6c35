package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/cache"
	"github.com/noah-isme/backend-apotek/internal/db"
	"github.com/noah-isme/backend-apotek/internal/tasks"
)

type captureEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (c *captureEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.tasks = append(c.tasks, task)
	c.opts = append(c.opts, opts)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func TestEnqueueCacheInvalidation(t *testing.T) {
	enq := &captureEnqueuer{}
	client := &tasks.Client{Enqueuer: enq}

	require.NoError(t, client.EnqueueCacheInvalidation(context.Background(), cache.NameDelivery, " ", cache.NameQuote))
	require.Len(t, enq.tasks, 1)
	require.Equal(t, tasks.TypeCacheInvalidate, enq.tasks[0].Type())

	var p tasks.CacheInvalidatePayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &p))
	require.Equal(t, []string{cache.NameDelivery, cache.NameQuote}, p.Names)

	require.Error(t, client.EnqueueCacheInvalidation(context.Background()))
}

func TestScheduleEvent(t *testing.T) {
	enq := &captureEnqueuer{}
	client := &tasks.Client{Enqueuer: enq}
	ev := db.DomainEvent{
		ID:          pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Topic:       "order.created",
		AggregateID: pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Payload:     []byte(`{"grandTotal":"250"}`),
		OccurredAt:  pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}

	require.NoError(t, client.Schedule(context.Background(), ev))
	require.Len(t, enq.tasks, 1)
	require.Equal(t, tasks.TypeOrderCreated, enq.tasks[0].Type())

	var p tasks.EventPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &p))
	require.Equal(t, db.UUIDString(ev.AggregateID), p.AggregateID)
	require.JSONEq(t, `{"grandTotal":"250"}`, string(p.Payload))

	ev.Topic = "something.else"
	require.NoError(t, client.Schedule(context.Background(), ev))
	require.Len(t, enq.tasks, 1)

	enq.err = asynq.ErrTaskIDConflict
	ev.Topic = "order.created"
	require.NoError(t, client.Schedule(context.Background(), ev))

	enq.err = errors.New("redis down")
	require.Error(t, client.Schedule(context.Background(), ev))
}

func TestHandleCacheInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	require.NoError(t, mr.Set(cache.KeyQuote("a"), "{}"))
	require.NoError(t, mr.Set(cache.KeyQuote("b"), "{}"))
	require.NoError(t, mr.Set(cache.KeyProduct("p1"), "{}"))
	require.NoError(t, mr.Set(cache.KeyActiveDeliveryRules, "[]"))

	h := &tasks.Handlers{Redis: rdb, Logger: zerolog.Nop()}
	task, err := tasks.NewCacheInvalidateTask(cache.NameQuote, cache.NameDelivery, "unknown")
	require.NoError(t, err)
	require.NoError(t, h.HandleCacheInvalidate(context.Background(), task))

	require.False(t, mr.Exists(cache.KeyQuote("a")))
	require.False(t, mr.Exists(cache.KeyQuote("b")))
	require.False(t, mr.Exists(cache.KeyActiveDeliveryRules))
	require.True(t, mr.Exists(cache.KeyProduct("p1")))

	bad := asynq.NewTask(tasks.TypeCacheInvalidate, []byte("not-json"))
	err = h.HandleCacheInvalidate(context.Background(), bad)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleOrderCreated(t *testing.T) {
	h := &tasks.Handlers{Logger: zerolog.Nop()}
	ev := db.DomainEvent{
		ID:          pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Topic:       "order.created",
		AggregateID: pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Payload:     []byte(`{"grandTotal":"250","tier":"ENTREPRENEUR","items":2}`),
	}
	task, _, err := tasks.NewEventTask(ev)
	require.NoError(t, err)
	require.NoError(t, h.HandleOrderCreated(context.Background(), task))

	require.ErrorIs(t, h.HandleOrderCreated(context.Background(), asynq.NewTask(tasks.TypeOrderCreated, []byte("{"))), asynq.SkipRetry)
}
