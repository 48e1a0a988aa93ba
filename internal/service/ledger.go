package service

import (
	"context"

	apperrors "seatwise/internal/errors"
	"seatwise/internal/models"
	"seatwise/internal/repository"
)

// Ledger owns availableSpots. Every method must run inside a unit of work;
// changes are relative updates so concurrent units serialize on the event row.
type Ledger struct{}

// TryDecrement takes one spot or fails with ErrCapacityExhausted.
func (Ledger) TryDecrement(ctx context.Context, tx repository.Tx, eventID string) (int, error) {
	event, err := tx.GetEventForUpdate(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if event == nil {
		return 0, apperrors.ErrEventNotFound
	}
	if event.AvailableSpots <= 0 {
		return 0, apperrors.ErrCapacityExhausted
	}
	return tx.DecrementSpots(ctx, eventID)
}

// Increment gives one spot back. Call it after the reservation left CONFIRMED;
// the result never exceeds maxCapacity minus the remaining confirmed count.
func (Ledger) Increment(ctx context.Context, tx repository.Tx, eventID string) (int, error) {
	return tx.IncrementSpots(ctx, eventID)
}

// Resize sets availableSpots to newMax minus the confirmed count, clamped at
// zero. While the counter is consistent this equals shifting it by the
// capacity delta. Shrinking below the confirmed count cancels nothing, and
// growing back only frees the seats above that count.
func (Ledger) Resize(ctx context.Context, tx repository.Tx, eventID string, newMax int) (models.Capacity, error) {
	if newMax <= 0 {
		return models.Capacity{}, apperrors.Invalid("maxCapacity", "must be greater than 0")
	}
	return tx.ResizeCapacity(ctx, eventID, newMax)
}
