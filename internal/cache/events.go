package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"seatwise/internal/logger"
	"seatwise/internal/metrics"
	"seatwise/internal/models"
)

// ErrMiss is returned by KV.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// KV is the key-value surface the event cache needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

const (
	eventKeyPrefix = "event:"
	EventListKey   = "events:list"
	DefaultTTL     = time.Hour

	redeleteTimeout = 2 * time.Second
)

func EventKey(id string) string {
	return eventKeyPrefix + id
}

// EventCache caches event reads and only ever deletes on writes.
// Every failure is logged and reported as a miss; nothing is propagated.
type EventCache struct {
	kv       KV
	ttl      time.Duration
	redelete time.Duration
	metrics  *metrics.Metrics
}

// NewEventCache wraps kv. A nil kv disables caching.
func NewEventCache(kv KV, ttl time.Duration, m *metrics.Metrics) *EventCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &EventCache{kv: kv, ttl: ttl, metrics: m}
}

// WithRedelete makes Invalidate delete the keys a second time after d. A
// reader that loaded from the store before the commit and wrote its snapshot
// after the first delete is evicted then, instead of living for the full TTL.
// Zero disables the second delete.
func (c *EventCache) WithRedelete(d time.Duration) *EventCache {
	c.redelete = d
	return c
}

func (c *EventCache) GetEvent(ctx context.Context, id string) (*models.Event, bool) {
	var event models.Event
	if !c.get(ctx, EventKey(id), &event) {
		return nil, false
	}
	return &event, true
}

func (c *EventCache) SetEvent(ctx context.Context, event *models.Event) {
	c.set(ctx, EventKey(event.ID), event)
}

func (c *EventCache) GetEventList(ctx context.Context) ([]models.Event, bool) {
	var events []models.Event
	if !c.get(ctx, EventListKey, &events) {
		return nil, false
	}
	return events, true
}

func (c *EventCache) SetEventList(ctx context.Context, events []models.Event) {
	c.set(ctx, EventListKey, events)
}

// Invalidate drops the per-event entry and the aggregate list.
func (c *EventCache) Invalidate(ctx context.Context, eventID string) {
	if c.kv == nil {
		return
	}
	c.metrics.CacheInvalidated()
	c.del(ctx, eventID)

	if c.redelete > 0 {
		reqCtx := context.WithoutCancel(ctx)
		time.AfterFunc(c.redelete, func() {
			ctx, cancel := context.WithTimeout(reqCtx, redeleteTimeout)
			defer cancel()
			c.del(ctx, eventID)
		})
	}
}

func (c *EventCache) del(ctx context.Context, eventID string) {
	if err := c.kv.Del(ctx, EventKey(eventID), EventListKey); err != nil {
		c.metrics.CacheError("del")
		logger.WithContext(ctx).Warn("Failed to invalidate event cache",
			"error", err, "event_id", eventID)
	}
}

func (c *EventCache) get(ctx context.Context, key string, dst any) bool {
	if c.kv == nil {
		return false
	}

	data, err := c.kv.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		c.metrics.CacheLookup("miss")
		return false
	}
	if err != nil {
		c.metrics.CacheLookup("error")
		logger.WithContext(ctx).Warn("Cache read failed, falling back to store", "error", err, "key", key)
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.metrics.CacheLookup("error")
		logger.WithContext(ctx).Warn("Dropping undecodable cache entry", "error", err, "key", key)
		_ = c.kv.Del(ctx, key)
		return false
	}

	c.metrics.CacheLookup("hit")
	return true
}

func (c *EventCache) set(ctx context.Context, key string, value any) {
	if c.kv == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to encode cache entry", "error", err, "key", key)
		return
	}
	if err := c.kv.Set(ctx, key, data, c.ttl); err != nil {
		c.metrics.CacheError("set")
		logger.WithContext(ctx).Warn("Failed to populate cache", "error", err, "key", key)
	}
}
