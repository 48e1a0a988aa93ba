package service

import (
	"context"
	"time"

	"seatwise/internal/cache"
	"seatwise/internal/logger"
	"seatwise/internal/models"
	"seatwise/internal/repository"
)

const sideEffectTimeout = 5 * time.Second

// Effects are applied once the unit of work has committed.
type Effects struct {
	// Invalidate lists events whose cache entries must be dropped
	Invalidate []string
	Subject    string
	Message    any
	Reindex    *models.Event
	Unindex    string
}

// Coordinator runs a unit of work in one serializable transaction and then
// applies its effects. Effects never run for a unit that rolled back, and
// their failures never fail the unit.
type Coordinator struct {
	store     repository.Store
	cache     *cache.EventCache
	publisher Publisher
	index     EventIndex
}

func NewCoordinator(store repository.Store, c *cache.EventCache, publisher Publisher, index EventIndex) *Coordinator {
	return &Coordinator{store: store, cache: c, publisher: publisher, index: index}
}

// Run executes fn atomically. fn may be invoked more than once when the
// store replays the transaction, so it must not have side effects outside tx.
func (c *Coordinator) Run(ctx context.Context, fn func(tx repository.Tx) (Effects, error)) error {
	var effects Effects
	err := c.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		effects, err = fn(tx)
		return err
	})
	if err != nil {
		return err
	}

	c.apply(ctx, effects)
	return nil
}

func (c *Coordinator) apply(ctx context.Context, e Effects) {
	// The commit already happened; a canceled request must not skip invalidation.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	for _, id := range e.Invalidate {
		c.cache.Invalidate(ctx, id)
	}

	if c.publisher != nil && e.Subject != "" {
		if err := c.publisher.Publish(ctx, e.Subject, e.Message); err != nil {
			logger.WithContext(ctx).Error("Failed to publish change event",
				"error", err, "subject", e.Subject)
		}
	}

	if c.index == nil {
		return
	}
	if e.Reindex != nil {
		if err := c.index.IndexEvent(ctx, e.Reindex); err != nil {
			logger.WithContext(ctx).Warn("Failed to index event", "error", err, "event_id", e.Reindex.ID)
		}
	}
	if e.Unindex != "" {
		if err := c.index.DeleteEvent(ctx, e.Unindex); err != nil {
			logger.WithContext(ctx).Warn("Failed to remove event from index", "error", err, "event_id", e.Unindex)
		}
	}
}
