package repository

import (
	"context"

	"seatwise/internal/models"
)

// Store is the durable store behind the reservation core.
// Lookups return nil, nil when the row does not exist.
type Store interface {
	// WithinTx runs fn as one serializable unit of work. An error from fn
	// rolls back every write made through tx.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	SearchEvents(ctx context.Context, query string) ([]models.Event, error)

	ListReservationsByUser(ctx context.Context, userID string) ([]models.ReservationWithEvent, error)
	ListReservationsByEvent(ctx context.Context, eventID string) ([]models.ReservationWithUser, error)

	// CapacityDrift returns every event whose availableSpots disagrees with
	// its confirmed reservation count, and every overbooked event.
	CapacityDrift(ctx context.Context) ([]models.CapacityDrift, error)

	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// Tx is the write surface available inside WithinTx.
type Tx interface {
	// GetEventForUpdate reads the event and locks its row until the unit ends.
	GetEventForUpdate(ctx context.Context, id string) (*models.Event, error)
	// DecrementSpots subtracts one spot and returns the new count.
	DecrementSpots(ctx context.Context, eventID string) (int, error)
	// IncrementSpots adds one spot, never above maxCapacity minus the
	// confirmed reservations still held.
	IncrementSpots(ctx context.Context, eventID string) (int, error)
	// ResizeCapacity sets maxCapacity and recomputes availableSpots as
	// newMax minus the confirmed reservations, clamped at zero.
	ResizeCapacity(ctx context.Context, eventID string, newMax int) (models.Capacity, error)

	InsertEvent(ctx context.Context, event *models.Event) error
	UpdateEventFields(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id string) (bool, error)

	FindConfirmed(ctx context.Context, eventID, userID string) (*models.Reservation, error)
	InsertReservation(ctx context.Context, r *models.Reservation) error
	GetReservationForUpdate(ctx context.Context, id string) (*models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, r *models.Reservation) error
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
