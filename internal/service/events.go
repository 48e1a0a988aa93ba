package service

import (
	"context"
	"fmt"
	"time"

	"seatwise/internal/cache"
	apperrors "seatwise/internal/errors"
	"seatwise/internal/logger"
	"seatwise/internal/models"
	"seatwise/internal/repository"
)

const defaultSearchLimit = 20

type EventService struct {
	store       repository.Store
	cache       *cache.EventCache
	index       EventIndex
	coordinator *Coordinator
	ledger      Ledger
	now         func() time.Time
	newID       func() string
}

func NewEventService(d Deps, coordinator *Coordinator, ledger Ledger) *EventService {
	return &EventService{
		store:       d.Store,
		cache:       d.Cache,
		index:       d.Index,
		coordinator: coordinator,
		ledger:      ledger,
		now:         d.Now,
		newID:       d.NewID,
	}
}

// Create adds an event with every spot available. ADMIN only.
func (s *EventService) Create(ctx context.Context, p models.Principal, in models.CreateEventInput) (*models.Event, error) {
	if err := p.Require(models.RoleAdmin); err != nil {
		return nil, err
	}

	fields, err := in.Validate()
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		ID:             s.newID(),
		Name:           fields.Name,
		Description:    fields.Description,
		EventDate:      fields.EventDate,
		MaxCapacity:    fields.MaxCapacity,
		AvailableSpots: fields.MaxCapacity,
		Venue:          fields.Venue,
		CreatedBy:      p.UserID,
	}

	err = s.coordinator.Run(ctx, func(tx repository.Tx) (Effects, error) {
		if err := tx.InsertEvent(ctx, event); err != nil {
			return Effects{}, err
		}
		return Effects{
			Invalidate: []string{event.ID},
			Subject:    models.SubjectEventCreated,
			Message:    models.EventChangedEvent{EventID: event.ID, Action: "created", Timestamp: s.now()},
			Reindex:    event,
		}, nil
	})
	if err != nil {
		return nil, wrapErr(err, "create event")
	}

	logger.WithContext(ctx).Info("Event created", "event_id", event.ID, "max_capacity", event.MaxCapacity)
	return event, nil
}

// Update applies a partial update. A capacity change goes through the ledger's
// resize rule. ADMIN only.
func (s *EventService) Update(ctx context.Context, p models.Principal, id string, in models.UpdateEventInput) (*models.Event, error) {
	if err := p.Require(models.RoleAdmin); err != nil {
		return nil, err
	}

	patch, err := in.Validate()
	if err != nil {
		return nil, err
	}

	// Reject a bad venue combination before opening a transaction
	current, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if current == nil {
		return nil, apperrors.ErrEventNotFound
	}
	if patch.Empty() {
		return current, nil
	}
	if _, err := patch.ApplyVenue(current.Venue); err != nil {
		return nil, err
	}

	var updated *models.Event
	err = s.coordinator.Run(ctx, func(tx repository.Tx) (Effects, error) {
		event, err := s.update(ctx, tx, id, patch)
		if err != nil {
			return Effects{}, err
		}
		updated = event
		return Effects{
			Invalidate: []string{id},
			Subject:    models.SubjectEventUpdated,
			Message:    models.EventChangedEvent{EventID: id, Action: "updated", Timestamp: s.now()},
			Reindex:    event,
		}, nil
	})
	if err != nil {
		return nil, wrapErr(err, "update event")
	}

	logger.WithContext(ctx).Info("Event updated",
		"event_id", id, "max_capacity", updated.MaxCapacity, "available_spots", updated.AvailableSpots)
	return updated, nil
}

func (s *EventService) update(ctx context.Context, tx repository.Tx, id string, patch models.EventPatch) (*models.Event, error) {
	event, err := tx.GetEventForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}

	venue, err := patch.ApplyVenue(event.Venue)
	if err != nil {
		return nil, err
	}
	event.Venue = venue
	if patch.Name != nil {
		event.Name = *patch.Name
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.EventDate != nil {
		event.EventDate = *patch.EventDate
	}

	if err := tx.UpdateEventFields(ctx, event); err != nil {
		return nil, err
	}

	if patch.MaxCapacity != nil && *patch.MaxCapacity != event.MaxCapacity {
		capacity, err := s.ledger.Resize(ctx, tx, id, *patch.MaxCapacity)
		if err != nil {
			return nil, err
		}
		event.MaxCapacity = capacity.Max
		event.AvailableSpots = capacity.Available
	}
	return event, nil
}

// Delete removes the event and, by cascade, its reservations. ADMIN only.
func (s *EventService) Delete(ctx context.Context, p models.Principal, id string) error {
	if err := p.Require(models.RoleAdmin); err != nil {
		return err
	}

	err := s.coordinator.Run(ctx, func(tx repository.Tx) (Effects, error) {
		deleted, err := tx.DeleteEvent(ctx, id)
		if err != nil {
			return Effects{}, err
		}
		if !deleted {
			return Effects{}, apperrors.ErrEventNotFound
		}
		return Effects{
			Invalidate: []string{id},
			Subject:    models.SubjectEventDeleted,
			Message:    models.EventChangedEvent{EventID: id, Action: "deleted", Timestamp: s.now()},
			Unindex:    id,
		}, nil
	})
	if err != nil {
		return wrapErr(err, "delete event")
	}

	logger.WithContext(ctx).Info("Event deleted", "event_id", id)
	return nil
}

// Get reads through the cache.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	if event, ok := s.cache.GetEvent(ctx, id); ok {
		return event, nil
	}

	event, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}

	s.cache.SetEvent(ctx, event)
	return event, nil
}

// List returns every event ordered by date, reading through the cache.
func (s *EventService) List(ctx context.Context) ([]models.Event, error) {
	if events, ok := s.cache.GetEventList(ctx); ok {
		return events, nil
	}

	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	s.cache.SetEventList(ctx, events)
	return events, nil
}

// Search uses the full-text index when configured and falls back to a store
// lookup when it is absent or failing. Hits are resolved against the store.
func (s *EventService) Search(ctx context.Context, query string) ([]models.Event, error) {
	if s.index != nil {
		ids, err := s.index.Search(ctx, query, defaultSearchLimit)
		if err == nil {
			return s.resolve(ctx, ids)
		}
		logger.WithContext(ctx).Warn("Search index unavailable, falling back to store", "error", err)
	}

	events, err := s.store.SearchEvents(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}
	return events, nil
}

func (s *EventService) resolve(ctx context.Context, ids []string) ([]models.Event, error) {
	events := make([]models.Event, 0, len(ids))
	for _, id := range ids {
		event, err := s.Get(ctx, id)
		if apperrors.IsNotFound(err) {
			// Index lags behind a delete
			continue
		}
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, nil
}

// Reindex pushes every stored event into the search index.
func (s *EventService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, fmt.Errorf("search index is not configured")
	}

	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list events: %w", err)
	}
	for i := range events {
		if err := s.index.IndexEvent(ctx, &events[i]); err != nil {
			return i, fmt.Errorf("failed to index event %s: %w", events[i].ID, err)
		}
	}
	return len(events), nil
}
