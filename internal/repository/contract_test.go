package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "seatwise/internal/errors"
	"seatwise/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every Store must share.
// newStore must return an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("rollback discards every write", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s, 2)

		boom := errors.New("boom")
		err := s.WithinTx(context.Background(), func(tx Tx) error {
			_, err := tx.DecrementSpots(context.Background(), f.event.ID)
			require.NoError(t, err)
			require.NoError(t, tx.InsertReservation(context.Background(), f.reservation(f.user.ID)))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		event, err := s.GetEvent(context.Background(), f.event.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, event.AvailableSpots)

		list, err := s.ListReservationsByEvent(context.Background(), f.event.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("increment clamps at max capacity", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s, 2)

		err := s.WithinTx(context.Background(), func(tx Tx) error {
			spots, err := tx.IncrementSpots(context.Background(), f.event.ID)
			assert.Equal(t, 2, spots)
			return err
		})
		require.NoError(t, err)
	})

	t.Run("resize keeps confirmed seats taken", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s, 10)
		ctx := context.Background()

		require.NoError(t, s.WithinTx(ctx, func(tx Tx) error {
			return f.take(ctx, tx, f.user.ID, f.admin.ID)
		}))

		err := s.WithinTx(ctx, func(tx Tx) error {
			c, err := tx.ResizeCapacity(ctx, f.event.ID, 3)
			if err != nil {
				return err
			}
			assert.Equal(t, models.Capacity{Max: 3, Available: 1}, c)

			c, err = tx.ResizeCapacity(ctx, f.event.ID, 1)
			if err != nil {
				return err
			}
			assert.Equal(t, models.Capacity{Max: 1, Available: 0}, c)

			c, err = tx.ResizeCapacity(ctx, f.event.ID, 10)
			assert.Equal(t, models.Capacity{Max: 10, Available: 8}, c)
			return err
		})
		require.NoError(t, err)
	})

	t.Run("increment after shrink stays below held seats", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s, 2)
		ctx := context.Background()
		held := f.reservation(f.user.ID)

		require.NoError(t, s.WithinTx(ctx, func(tx Tx) error {
			if err := f.take(ctx, tx, f.admin.ID); err != nil {
				return err
			}
			if _, err := tx.DecrementSpots(ctx, f.event.ID); err != nil {
				return err
			}
			if err := tx.InsertReservation(ctx, held); err != nil {
				return err
			}
			_, err := tx.ResizeCapacity(ctx, f.event.ID, 1)
			return err
		}))

		require.NoError(t, s.WithinTx(ctx, func(tx Tx) error {
			now := time.Now().UTC()
			held.Status = models.StatusCanceled
			held.CanceledAt = &now
			held.CanceledBy = &f.user.ID
			if err := tx.UpdateReservationStatus(ctx, held); err != nil {
				return err
			}
			spots, err := tx.IncrementSpots(ctx, f.event.ID)
			assert.Equal(t, 0, spots)
			return err
		}))

		drift, err := s.CapacityDrift(ctx)
		require.NoError(t, err)
		assert.Empty(t, drift)
	})

	t.Run("drift flags overbooked events", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s, 1)
		ctx := context.Background()

		require.NoError(t, s.WithinTx(ctx, func(tx Tx) error {
			if err := f.take(ctx, tx, f.user.ID); err != nil {
				return err
			}
			return tx.InsertReservation(ctx, f.reservation(f.admin.ID))
		}))

		drift, err := s.CapacityDrift(ctx)
		require.NoError(t, err)
		require.Len(t, drift, 1)
		assert.Equal(t, 2, drift[0].Confirmed)
		assert.Equal(t, 0, drift[0].AvailableSpots)
		assert.True(t, drift[0].Overbooked())
	})

	t.Run("one confirmed reservation per user and event", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s, 5)

		require.NoError(t, s.WithinTx(context.Background(), func(tx Tx) error {
			return tx.InsertReservation(context.Background(), f.reservation(f.user.ID))
		}))

		err := s.WithinTx(context.Background(), func(tx Tx) error {
			return tx.InsertReservation(context.Background(), f.reservation(f.user.ID))
		})
		assert.ErrorIs(t, err, apperrors.ErrAlreadyReserved)
	})

	t.Run("canceled rows do not block a new confirmed row", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s, 5)
		first := f.reservation(f.user.ID)

		require.NoError(t, s.WithinTx(context.Background(), func(tx Tx) error {
			if err := tx.InsertReservation(context.Background(), first); err != nil {
				return err
			}
			now := time.Now().UTC()
			first.Status = models.StatusCanceled
			first.CanceledAt = &now
			first.CanceledBy = &f.user.ID
			return tx.UpdateReservationStatus(context.Background(), first)
		}))

		require.NoError(t, s.WithinTx(context.Background(), func(tx Tx) error {
			found, err := tx.FindConfirmed(context.Background(), f.event.ID, f.user.ID)
			assert.Nil(t, found)
			if err != nil {
				return err
			}
			return tx.InsertReservation(context.Background(), f.reservation(f.user.ID))
		}))

		list, err := s.ListReservationsByUser(context.Background(), f.user.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2)
		assert.Equal(t, f.event.Name, list[0].Event.Name)
	})

	t.Run("reservation for unknown user", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s, 5)

		err := s.WithinTx(context.Background(), func(tx Tx) error {
			return tx.InsertReservation(context.Background(), f.reservation("ghost"))
		})
		assert.ErrorIs(t, err, apperrors.ErrUnknownUser)
	})

	t.Run("delete cascades to reservations", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s, 5)
		r := f.reservation(f.user.ID)

		require.NoError(t, s.WithinTx(context.Background(), func(tx Tx) error {
			return tx.InsertReservation(context.Background(), r)
		}))

		require.NoError(t, s.WithinTx(context.Background(), func(tx Tx) error {
			deleted, err := tx.DeleteEvent(context.Background(), f.event.ID)
			assert.True(t, deleted)
			return err
		}))

		event, err := s.GetEvent(context.Background(), f.event.ID)
		require.NoError(t, err)
		assert.Nil(t, event)

		list, err := s.ListReservationsByUser(context.Background(), f.user.ID)
		require.NoError(t, err)
		assert.Empty(t, list)

		require.NoError(t, s.WithinTx(context.Background(), func(tx Tx) error {
			deleted, err := tx.DeleteEvent(context.Background(), f.event.ID)
			assert.False(t, deleted)
			return err
		}))
	})

	t.Run("missing rows read as nil", func(t *testing.T) {
		s := newStore(t)

		event, err := s.GetEvent(context.Background(), uuid.NewString())
		assert.NoError(t, err)
		assert.Nil(t, event)

		user, err := s.GetUser(context.Background(), uuid.NewString())
		assert.NoError(t, err)
		assert.Nil(t, user)

		require.NoError(t, s.WithinTx(context.Background(), func(tx Tx) error {
			r, err := tx.GetReservationForUpdate(context.Background(), uuid.NewString())
			assert.Nil(t, r)
			return err
		}))
	})

	t.Run("venue and search round trip", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s, 5)

		online := f.newEvent("Go Meetup Online", models.Venue{Kind: models.VenueVirtual, Value: "https://meet.example.com/go"})
		require.NoError(t, s.WithinTx(context.Background(), func(tx Tx) error {
			return tx.InsertEvent(context.Background(), online)
		}))

		got, err := s.GetEvent(context.Background(), online.ID)
		require.NoError(t, err)
		assert.Equal(t, online.Venue, got.Venue)
		assert.Equal(t, f.admin.ID, got.CreatedBy)

		found, err := s.SearchEvents(context.Background(), "meetup")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, online.ID, found[0].ID)

		all, err := s.ListEvents(context.Background())
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("no drift on a consistent ledger", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s, 5)

		require.NoError(t, s.WithinTx(context.Background(), func(tx Tx) error {
			if _, err := tx.DecrementSpots(context.Background(), f.event.ID); err != nil {
				return err
			}
			return tx.InsertReservation(context.Background(), f.reservation(f.user.ID))
		}))

		drift, err := s.CapacityDrift(context.Background())
		require.NoError(t, err)
		assert.Empty(t, drift)
	})
}

type fixture struct {
	user  *models.User
	admin *models.User
	event *models.Event
}

func seed(t *testing.T, s Store, capacity int) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		user:  &models.User{ID: uuid.NewString(), Name: "Ann", Email: uuid.NewString() + "@example.com", Role: models.RoleUser},
		admin: &models.User{ID: uuid.NewString(), Name: "Root", Email: uuid.NewString() + "@example.com", Role: models.RoleAdmin},
	}
	require.NoError(t, s.CreateUser(ctx, f.user))
	require.NoError(t, s.CreateUser(ctx, f.admin))

	f.event = f.newEvent("Concert", models.Venue{Kind: models.VenuePhysical, Value: "Main Hall"})
	f.event.MaxCapacity = capacity
	f.event.AvailableSpots = capacity
	require.NoError(t, s.WithinTx(ctx, func(tx Tx) error {
		return tx.InsertEvent(ctx, f.event)
	}))
	return f
}

func (f *fixture) newEvent(name string, venue models.Venue) *models.Event {
	return &models.Event{
		ID:             uuid.NewString(),
		Name:           name,
		EventDate:      time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second),
		MaxCapacity:    5,
		AvailableSpots: 5,
		Venue:          venue,
		CreatedBy:      f.admin.ID,
	}
}

// take books one seat per user the way a reserve unit does.
func (f *fixture) take(ctx context.Context, tx Tx, userIDs ...string) error {
	for _, id := range userIDs {
		if _, err := tx.DecrementSpots(ctx, f.event.ID); err != nil {
			return err
		}
		if err := tx.InsertReservation(ctx, f.reservation(id)); err != nil {
			return err
		}
	}
	return nil
}

func (f *fixture) reservation(userID string) *models.Reservation {
	return &models.Reservation{
		ID:              uuid.NewString(),
		EventID:         f.event.ID,
		UserID:          userID,
		Status:          models.StatusConfirmed,
		ReservationDate: time.Now().UTC().Truncate(time.Microsecond),
	}
}
