package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"seatwise/internal/database"
	apperrors "seatwise/internal/errors"
	"seatwise/internal/metrics"
	"seatwise/internal/models"
	"seatwise/internal/repository"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDSNEnv = "SEATWISE_TEST_DATABASE_DSN"

type pgHarness struct {
	store *repository.PostgresStore
	svc   *Services
	admin models.Principal
}

func newPostgresHarness(t *testing.T) *pgHarness {
	t.Helper()

	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set, skipping Postgres integration test", testDSNEnv)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, dsn, database.Config{MaxOpenConns: 50, TxMaxRetries: 10})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(ctx))

	_, err = db.ExecContext(ctx, `TRUNCATE reservations, events, users CASCADE`)
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	db.OnRetry(m.TxRetried)

	h := &pgHarness{store: repository.NewPostgresStore(db)}
	h.svc = NewServices(Deps{Store: h.store, Metrics: m})
	h.admin = h.user(t, models.RoleAdmin)
	return h
}

func (h *pgHarness) user(t *testing.T, role models.Role) models.Principal {
	t.Helper()
	u := &models.User{ID: uuid.NewString(), Name: "pg", Email: uuid.NewString() + "@example.com", Role: role}
	require.NoError(t, h.store.CreateUser(context.Background(), u))
	return models.Principal{UserID: u.ID, Role: role}
}

// reserveConcurrently fires one Reserve per reserver at the same instant.
func (h *pgHarness) reserveConcurrently(t *testing.T, capacity, reservers int) (*models.Event, int, int) {
	t.Helper()
	ctx := context.Background()

	event, err := h.svc.Events.Create(ctx, h.admin, models.CreateEventInput{
		Name:        fmt.Sprintf("Rush %d/%d", reservers, capacity),
		EventDate:   time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		MaxCapacity: capacity,
		Location:    "Arena",
	})
	require.NoError(t, err)

	principals := make([]models.Principal, reservers)
	for i := range principals {
		principals[i] = h.user(t, models.RoleUser)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		start     = make(chan struct{})
		confirmed int
		exhausted int
	)
	for _, p := range principals {
		wg.Add(1)
		go func(p models.Principal) {
			defer wg.Done()
			<-start
			_, err := h.svc.Reservations.Reserve(ctx, p, event.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				confirmed++
			case assert.ErrorIs(t, err, apperrors.ErrCapacityExhausted):
				exhausted++
			}
		}(p)
	}
	close(start)
	wg.Wait()

	return event, confirmed, exhausted
}

func (h *pgHarness) assertLedger(t *testing.T, eventID string, wantConfirmed int) {
	t.Helper()
	ctx := context.Background()

	event, err := h.store.GetEvent(ctx, eventID)
	require.NoError(t, err)
	require.NotNil(t, event)

	list, err := h.store.ListReservationsByEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Len(t, list, wantConfirmed)
	assert.GreaterOrEqual(t, event.AvailableSpots, 0)
	assert.Equal(t, event.MaxCapacity-wantConfirmed, event.AvailableSpots)

	drift, err := h.store.CapacityDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestPostgresConcurrentReserversNeverOverbook(t *testing.T) {
	h := newPostgresHarness(t)

	event, confirmed, exhausted := h.reserveConcurrently(t, 10, 40)

	assert.Equal(t, 10, confirmed)
	assert.Equal(t, 30, exhausted)
	h.assertLedger(t, event.ID, 10)
}

func TestPostgresContentionWithFreeSeatsAllSucceed(t *testing.T) {
	h := newPostgresHarness(t)

	event, confirmed, exhausted := h.reserveConcurrently(t, 100, 25)

	assert.Equal(t, 25, confirmed)
	assert.Zero(t, exhausted)
	h.assertLedger(t, event.ID, 25)
}
