package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"seatwise/internal/consumers"
	"seatwise/internal/models"
)

// EventReader loads the committed state of an event. A missing event is nil, nil.
type EventReader interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

type EventIndex interface {
	IndexEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// SearchSyncHandler keeps the search index in line with committed event
// changes. It reads the store instead of trusting the message, so replays and
// out-of-order deliveries converge on the current state.
type SearchSyncHandler struct {
	store EventReader
	index EventIndex
}

func NewSearchSyncHandler(store EventReader, index EventIndex) *SearchSyncHandler {
	return &SearchSyncHandler{store: store, index: index}
}

// Subjects the handler consumes
func (h *SearchSyncHandler) Subjects() []string {
	return []string{models.SubjectEventCreated, models.SubjectEventUpdated, models.SubjectEventDeleted}
}

func (h *SearchSyncHandler) Handle(ctx context.Context, subject string, data []byte) error {
	eventID, err := consumers.DecodeEventID(data)
	if err != nil {
		slog.Error("Dropping malformed change event", "subject", subject, "error", err)
		return nil
	}

	event, err := h.store.GetEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to load event %s: %w", eventID, err)
	}

	if event == nil {
		if err := h.index.DeleteEvent(ctx, eventID); err != nil {
			return fmt.Errorf("failed to remove event %s from index: %w", eventID, err)
		}
		slog.Info("Removed event from search index", "event_id", eventID)
		return nil
	}

	if err := h.index.IndexEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to index event %s: %w", eventID, err)
	}
	slog.Info("Synced event to search index", "event_id", eventID, "subject", subject)
	return nil
}
