package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/cache"
	"github.com/noah-isme/backend-apotek/internal/obs"
)

// Handlers processes tasks in the worker.
type Handlers struct {
	Redis  *redis.Client
	Logger zerolog.Logger
}

// Mux registers every task type.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCacheInvalidate, h.HandleCacheInvalidate)
	mux.HandleFunc(TypeOrderCreated, h.HandleOrderCreated)
	return mux
}

// HandleCacheInvalidate drops every key of the named caches.
func (h *Handlers) HandleCacheInvalidate(ctx context.Context, t *asynq.Task) (err error) {
	defer func() { obs.ObserveTask(t.Type(), err) }()

	var p CacheInvalidatePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	for _, name := range p.Names {
		prefix := cache.PrefixFor(name)
		if prefix == "" {
			h.Logger.Warn().Str("cache", name).Msg("unknown cache name")
			continue
		}
		removed, err := cache.DeletePrefix(ctx, h.Redis, prefix)
		if err != nil {
			return fmt.Errorf("invalidate %s: %w", name, err)
		}
		h.Logger.Debug().Str("cache", name).Int("removed", removed).Msg("cache invalidated")
	}
	return nil
}

// HandleOrderCreated records the order notification.
func (h *Handlers) HandleOrderCreated(ctx context.Context, t *asynq.Task) (err error) {
	defer func() { obs.ObserveTask(t.Type(), err) }()

	var p EventPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	var order struct {
		GrandTotal string `json:"grandTotal"`
		Tier       string `json:"tier"`
		Items      int    `json:"items"`
	}
	_ = json.Unmarshal(p.Payload, &order)
	h.Logger.Info().
		Str("event_id", p.EventID).
		Str("order_id", p.AggregateID).
		Str("tier", order.Tier).
		Str("grand_total", order.GrandTotal).
		Int("items", order.Items).
		Time("occurred_at", p.OccurredAt).
		Msg("order created")
	return nil
}
