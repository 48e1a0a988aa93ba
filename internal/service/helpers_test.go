package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"seatwise/internal/cache"
	"seatwise/internal/metrics"
	"seatwise/internal/models"
	"seatwise/internal/repository"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

type published struct {
	subject string
	data    any
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{subject: subject, data: data})
	return p.err
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.subject
	}
	return out
}

func (p *recordingPublisher) last() published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.msgs[len(p.msgs)-1]
}

type fakeIndex struct {
	mu      sync.Mutex
	docs    map[string]models.Event
	hits    []string
	failing bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: make(map[string]models.Event)}
}

func (f *fakeIndex) IndexEvent(_ context.Context, e *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[e.ID] = *e
	return nil
}

func (f *fakeIndex) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Search(context.Context, string, int) ([]string, error) {
	if f.failing {
		return nil, errors.New("index unavailable")
	}
	return f.hits, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store   *repository.MemoryStore
	kv      *cache.MemoryKV
	pub     *recordingPublisher
	index   *fakeIndex
	metrics *metrics.Metrics
	clock   *clock
	svc     *Services

	admin models.Principal
	alice models.Principal
	bob   models.Principal
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:   repository.NewMemoryStore(),
		kv:      cache.NewMemoryKV(),
		pub:     &recordingPublisher{},
		index:   newFakeIndex(),
		metrics: metrics.New(prometheus.NewRegistry()),
		clock:   &clock{now: baseTime},
	}
	h.svc = NewServices(Deps{
		Store:     h.store,
		Cache:     cache.NewEventCache(h.kv, time.Hour, h.metrics),
		Publisher: h.pub,
		Index:     h.index,
		Metrics:   h.metrics,
		Now:       h.clock.Now,
	})

	h.admin = h.user(t, "Root", models.RoleAdmin)
	h.alice = h.user(t, "Alice", models.RoleUser)
	h.bob = h.user(t, "Bob", models.RoleUser)
	return h
}

func (h *harness) user(t *testing.T, name string, role models.Role) models.Principal {
	t.Helper()
	u := &models.User{ID: uuid.NewString(), Name: name, Email: uuid.NewString() + "@example.com", Role: role}
	require.NoError(t, h.store.CreateUser(context.Background(), u))
	return models.Principal{UserID: u.ID, Role: role}
}

// event creates an event starting `in` after the harness clock.
func (h *harness) event(t *testing.T, capacity int, in time.Duration) *models.Event {
	t.Helper()
	event, err := h.svc.Events.Create(context.Background(), h.admin, models.CreateEventInput{
		Name:        fmt.Sprintf("Event %d", capacity),
		EventDate:   h.clock.Now().Add(in).Format(time.RFC3339),
		MaxCapacity: capacity,
		Location:    "Main Hall",
	})
	require.NoError(t, err)
	return event
}

func (h *harness) spots(t *testing.T, eventID string) int {
	t.Helper()
	event, err := h.store.GetEvent(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, event)
	return event.AvailableSpots
}

// dropSpots takes n spots straight through the store, with no reservation
// and no invalidation, leaving the ledger out of step.
func (h *harness) dropSpots(t *testing.T, eventID string, n int) {
	t.Helper()
	require.NoError(t, h.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		for i := 0; i < n; i++ {
			if _, err := tx.DecrementSpots(context.Background(), eventID); err != nil {
				return err
			}
		}
		return nil
	}))
}

// assertLedger checks the committed-state invariants for one event.
func (h *harness) assertLedger(t *testing.T, eventID string) {
	t.Helper()
	ctx := context.Background()

	event, err := h.store.GetEvent(ctx, eventID)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.GreaterOrEqual(t, event.AvailableSpots, 0)
	assert.LessOrEqual(t, event.AvailableSpots, event.MaxCapacity)

	list, err := h.store.ListReservationsByEvent(ctx, eventID)
	require.NoError(t, err)

	confirmed := 0
	perUser := make(map[string]int)
	for _, r := range list {
		if r.IsConfirmed() {
			confirmed++
			perUser[r.UserID]++
		}
	}
	for user, n := range perUser {
		assert.LessOrEqual(t, n, 1, "user %s holds %d confirmed reservations", user, n)
	}
	assert.Equal(t, max(event.MaxCapacity-confirmed, 0), event.AvailableSpots)
}

func (h *harness) reservations(t *testing.T, eventID string) []models.ReservationWithUser {
	t.Helper()
	list, err := h.store.ListReservationsByEvent(context.Background(), eventID)
	require.NoError(t, err)
	return list
}
