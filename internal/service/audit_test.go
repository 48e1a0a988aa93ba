package service

import (
	"context"
	"testing"
	"time"

	"seatwise/internal/models"
	"seatwise/internal/repository"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	auditor := NewAuditor(h.store, h.metrics)

	healthy := h.event(t, 3, 24*time.Hour)
	broken := h.event(t, 5, 24*time.Hour)
	_, err := h.svc.Reservations.Reserve(ctx, h.alice, healthy.ID)
	require.NoError(t, err)
	_, err = h.svc.Reservations.Reserve(ctx, h.alice, broken.ID)
	require.NoError(t, err)

	drift, err := auditor.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.LedgerDrift))

	h.dropSpots(t, broken.ID, 2)

	drift, err = auditor.Run(ctx)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, broken.ID, drift[0].EventID)
	assert.Equal(t, 1, drift[0].Confirmed)
	assert.Equal(t, 4, drift[0].Expected())
	assert.False(t, drift[0].Overbooked())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.LedgerDrift))

	// Reported, never repaired
	assert.Equal(t, 2, h.spots(t, broken.ID))
}

func TestAuditorReportsOverbooking(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	auditor := NewAuditor(h.store, h.metrics)
	event := h.event(t, 2, 24*time.Hour)

	// Two confirmed rows with no ledger decrement, on a two-seat event.
	require.NoError(t, h.store.WithinTx(ctx, func(tx repository.Tx) error {
		for _, p := range []models.Principal{h.alice, h.bob} {
			err := tx.InsertReservation(ctx, &models.Reservation{
				ID: uuid.NewString(), EventID: event.ID, UserID: p.UserID,
				Status: models.StatusConfirmed, ReservationDate: h.clock.Now(),
			})
			if err != nil {
				return err
			}
		}
		_, err := tx.ResizeCapacity(ctx, event.ID, 2)
		return err
	}))

	drift, err := auditor.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift, "two confirmed on two seats with zero left is consistent")

	carol := h.user(t, "Carol", models.RoleUser)
	require.NoError(t, h.store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.InsertReservation(ctx, &models.Reservation{
			ID: uuid.NewString(), EventID: event.ID, UserID: carol.UserID,
			Status: models.StatusConfirmed, ReservationDate: h.clock.Now(),
		})
	}))

	// 3 confirmed on 2 seats: expected and available both read 0
	drift, err = auditor.Run(ctx)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, 0, drift[0].AvailableSpots)
	assert.Equal(t, 0, drift[0].Expected())
	assert.True(t, drift[0].Overbooked())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.LedgerDrift))
}
