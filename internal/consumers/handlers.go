package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"seatwise/internal/cache"
)

// changeMessage holds the fields every change event shares
type changeMessage struct {
	EventID string `json:"event_id"`
}

// DecodeEventID extracts the event id from any change event payload.
func DecodeEventID(data []byte) (string, error) {
	var msg changeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", fmt.Errorf("failed to unmarshal change event: %w", err)
	}
	if msg.EventID == "" {
		return "", fmt.Errorf("change event has no event_id")
	}
	return msg.EventID, nil
}

// Handlers evict cache entries again for every committed change. The API
// already invalidates after commit; this covers an invalidation lost to a
// cache outage.
type Handlers struct {
	cache *cache.EventCache
}

func NewHandlers(c *cache.EventCache) *Handlers {
	return &Handlers{cache: c}
}

// HandleChange is safe to replay.
func (h *Handlers) HandleChange(ctx context.Context, subject string, data []byte) error {
	eventID, err := DecodeEventID(data)
	if err != nil {
		// Redelivery cannot fix a bad payload
		slog.Error("Dropping malformed change event", "subject", subject, "error", err)
		return nil
	}

	h.cache.Invalidate(ctx, eventID)
	slog.Debug("Evicted event from cache", "subject", subject, "event_id", eventID)
	return nil
}
