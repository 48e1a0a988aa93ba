package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "seatwise/internal/errors"
	"seatwise/internal/models"
)

type memoryState struct {
	users        map[string]models.User
	events       map[string]models.Event
	reservations map[string]models.Reservation
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		users:        make(map[string]models.User, len(s.users)),
		events:       make(map[string]models.Event, len(s.events)),
		reservations: make(map[string]models.Reservation, len(s.reservations)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	return c
}

func (s *memoryState) confirmedFor(eventID string) int {
	n := 0
	for _, r := range s.reservations {
		if r.EventID == eventID && r.IsConfirmed() {
			n++
		}
	}
	return n
}

// MemoryStore implements Store in process memory.
// Units of work run one at a time against a private copy of the state
// that replaces the shared state only when fn succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memoryState
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{
			users:        make(map[string]models.User),
			events:       make(map[string]models.Event),
			reservations: make(map[string]models.Reservation),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memTx{state: work, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.state.events[id]
	if !ok {
		return nil, nil
	}
	return &event, nil
}

func (s *MemoryStore) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.filterEvents(func(models.Event) bool { return true }), nil
}

func (s *MemoryStore) SearchEvents(ctx context.Context, query string) ([]models.Event, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	return s.filterEvents(func(e models.Event) bool {
		return strings.Contains(strings.ToLower(e.Name), q) ||
			strings.Contains(strings.ToLower(e.Description), q)
	}), nil
}

func (s *MemoryStore) filterEvents(keep func(models.Event) bool) []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := []models.Event{}
	for _, e := range s.state.events {
		if keep(e) {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].EventDate.Equal(events[j].EventDate) {
			return events[i].EventDate.Before(events[j].EventDate)
		}
		return events[i].ID < events[j].ID
	})
	return events
}

func (s *MemoryStore) ListReservationsByUser(ctx context.Context, userID string) ([]models.ReservationWithEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.ReservationWithEvent{}
	for _, r := range s.state.reservations {
		if r.UserID != userID {
			continue
		}
		event := s.state.events[r.EventID]
		result = append(result, models.ReservationWithEvent{
			Reservation: r,
			Event:       models.NewEventSummary(&event),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].ReservationDate, result[j].ReservationDate
		if !a.Equal(b) {
			return a.After(b)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *MemoryStore) ListReservationsByEvent(ctx context.Context, eventID string) ([]models.ReservationWithUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.ReservationWithUser{}
	for _, r := range s.state.reservations {
		if r.EventID != eventID {
			continue
		}
		u := s.state.users[r.UserID]
		result = append(result, models.ReservationWithUser{
			Reservation: r,
			User:        models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email},
		})
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].ReservationDate, result[j].ReservationDate
		if !a.Equal(b) {
			return a.Before(b)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *MemoryStore) CapacityDrift(ctx context.Context) ([]models.CapacityDrift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	confirmed := make(map[string]int)
	for _, r := range s.state.reservations {
		if r.IsConfirmed() {
			confirmed[r.EventID]++
		}
	}

	drift := []models.CapacityDrift{}
	for _, e := range s.state.events {
		d := models.CapacityDrift{
			EventID:        e.ID,
			MaxCapacity:    e.MaxCapacity,
			AvailableSpots: e.AvailableSpots,
			Confirmed:      confirmed[e.ID],
		}
		if d.AvailableSpots != d.Expected() || d.Overbooked() {
			drift = append(drift, d)
		}
	}
	sort.Slice(drift, func(i, j int) bool { return drift[i].EventID < drift[j].EventID })
	return drift, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.state.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.state.users {
		if u.ID == user.ID || strings.EqualFold(u.Email, user.Email) {
			return apperrors.Invalid("email", "user already exists")
		}
	}
	user.CreatedAt = s.now()
	s.state.users[user.ID] = *user
	return nil
}

type memTx struct {
	state *memoryState
	now   func() time.Time
}

func (t *memTx) GetEventForUpdate(ctx context.Context, id string) (*models.Event, error) {
	e, ok := t.state.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (t *memTx) DecrementSpots(ctx context.Context, eventID string) (int, error) {
	e, ok := t.state.events[eventID]
	if !ok {
		return 0, apperrors.ErrEventNotFound
	}
	if e.AvailableSpots-1 < 0 {
		return 0, apperrors.ErrCapacityExhausted
	}
	e.AvailableSpots--
	e.UpdatedAt = t.now()
	t.state.events[eventID] = e
	return e.AvailableSpots, nil
}

func (t *memTx) IncrementSpots(ctx context.Context, eventID string) (int, error) {
	e, ok := t.state.events[eventID]
	if !ok {
		return 0, apperrors.ErrEventNotFound
	}
	e.AvailableSpots = min(e.AvailableSpots+1, max(e.MaxCapacity-t.state.confirmedFor(eventID), 0))
	e.UpdatedAt = t.now()
	t.state.events[eventID] = e
	return e.AvailableSpots, nil
}

func (t *memTx) ResizeCapacity(ctx context.Context, eventID string, newMax int) (models.Capacity, error) {
	e, ok := t.state.events[eventID]
	if !ok {
		return models.Capacity{}, apperrors.ErrEventNotFound
	}
	e.AvailableSpots = max(newMax-t.state.confirmedFor(eventID), 0)
	e.MaxCapacity = newMax
	e.UpdatedAt = t.now()
	t.state.events[eventID] = e
	return e.Capacity(), nil
}

func (t *memTx) InsertEvent(ctx context.Context, event *models.Event) error {
	if event.CreatedBy != "" {
		if _, ok := t.state.users[event.CreatedBy]; !ok {
			return apperrors.ErrUnknownUser
		}
	}
	now := t.now()
	event.CreatedAt, event.UpdatedAt = now, now
	t.state.events[event.ID] = *event
	return nil
}

func (t *memTx) UpdateEventFields(ctx context.Context, event *models.Event) error {
	e, ok := t.state.events[event.ID]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	e.Name = event.Name
	e.Description = event.Description
	e.EventDate = event.EventDate
	e.Venue = event.Venue
	e.UpdatedAt = t.now()
	event.UpdatedAt = e.UpdatedAt
	t.state.events[event.ID] = e
	return nil
}

func (t *memTx) DeleteEvent(ctx context.Context, id string) (bool, error) {
	if _, ok := t.state.events[id]; !ok {
		return false, nil
	}
	delete(t.state.events, id)
	for rid, r := range t.state.reservations {
		if r.EventID == id {
			delete(t.state.reservations, rid)
		}
	}
	return true, nil
}

func (t *memTx) FindConfirmed(ctx context.Context, eventID, userID string) (*models.Reservation, error) {
	for _, r := range t.state.reservations {
		if r.EventID == eventID && r.UserID == userID && r.IsConfirmed() {
			return &r, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertReservation(ctx context.Context, r *models.Reservation) error {
	if _, ok := t.state.users[r.UserID]; !ok {
		return apperrors.ErrUnknownUser
	}
	if _, ok := t.state.events[r.EventID]; !ok {
		return apperrors.ErrEventNotFound
	}
	if r.IsConfirmed() {
		if existing, _ := t.FindConfirmed(ctx, r.EventID, r.UserID); existing != nil {
			return apperrors.ErrAlreadyReserved
		}
	}
	t.state.reservations[r.ID] = detach(*r)
	return nil
}

func (t *memTx) GetReservationForUpdate(ctx context.Context, id string) (*models.Reservation, error) {
	r, ok := t.state.reservations[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (t *memTx) UpdateReservationStatus(ctx context.Context, r *models.Reservation) error {
	current, ok := t.state.reservations[r.ID]
	if !ok {
		return apperrors.ErrReservationNotFound
	}
	if r.IsConfirmed() && !current.IsConfirmed() {
		if existing, _ := t.FindConfirmed(ctx, r.EventID, r.UserID); existing != nil {
			return apperrors.ErrAlreadyReserved
		}
	}
	current.Status = r.Status
	current.CanceledAt = r.CanceledAt
	current.CanceledBy = r.CanceledBy
	t.state.reservations[r.ID] = detach(current)
	return nil
}

// detach copies pointer fields so callers cannot mutate stored rows.
func detach(r models.Reservation) models.Reservation {
	if r.CanceledAt != nil {
		at := *r.CanceledAt
		r.CanceledAt = &at
	}
	if r.CanceledBy != nil {
		by := *r.CanceledBy
		r.CanceledBy = &by
	}
	return r
}
