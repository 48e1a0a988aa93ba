package service

import (
	"context"
	"fmt"
	"time"

	"seatwise/internal/cache"
	apperrors "seatwise/internal/errors"
	"seatwise/internal/metrics"
	"seatwise/internal/models"
	"seatwise/internal/repository"

	"github.com/google/uuid"
)

// Publisher delivers change notifications after commit.
type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
}

// EventIndex is the full-text index over events.
type EventIndex interface {
	IndexEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

type Deps struct {
	Store repository.Store
	// Cache may be built over a nil KV to disable caching
	Cache *cache.EventCache
	// Publisher and Index are optional
	Publisher Publisher
	Index     EventIndex
	Metrics   *metrics.Metrics

	Now   func() time.Time
	NewID func() string
}

type Services struct {
	Events       *EventService
	Reservations *ReservationService
	Coordinator  *Coordinator
}

func NewServices(d Deps) *Services {
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Cache == nil {
		d.Cache = cache.NewEventCache(nil, 0, d.Metrics)
	}

	coordinator := NewCoordinator(d.Store, d.Cache, d.Publisher, d.Index)
	ledger := Ledger{}

	return &Services{
		Events:       NewEventService(d, coordinator, ledger),
		Reservations: NewReservationService(d, coordinator, ledger),
		Coordinator:  coordinator,
	}
}

// wrapErr annotates infrastructure errors; business errors pass through unchanged.
func wrapErr(err error, op string) error {
	if apperrors.IsBusiness(err) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
