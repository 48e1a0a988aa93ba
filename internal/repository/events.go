package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	apperrors "seatwise/internal/errors"
	"seatwise/internal/models"
)

const eventColumns = `id, name, description, event_date, max_capacity, available_spots,
		location, online_link, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		event      models.Event
		location   sql.NullString
		onlineLink sql.NullString
		createdBy  sql.NullString
	)

	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.Description,
		&event.EventDate,
		&event.MaxCapacity,
		&event.AvailableSpots,
		&location,
		&onlineLink,
		&createdBy,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// The schema guarantees exactly one side is set
	if location.String != "" {
		event.Venue = models.Venue{Kind: models.VenuePhysical, Value: location.String}
	} else {
		event.Venue = models.Venue{Kind: models.VenueVirtual, Value: onlineLink.String}
	}
	event.CreatedBy = createdBy.String
	event.EventDate = event.EventDate.UTC()
	return &event, nil
}

func venueColumns(v models.Venue) (location, onlineLink sql.NullString) {
	location = sql.NullString{String: v.Location(), Valid: v.Location() != ""}
	onlineLink = sql.NullString{String: v.OnlineLink(), Valid: v.OnlineLink() != ""}
	return
}

func getEvent(ctx context.Context, q querier, id string, forUpdate bool) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	event, err := scanEvent(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return event, nil
}

func listEvents(ctx context.Context, q querier, query string, args ...any) ([]models.Event, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return getEvent(ctx, s.db, id, false)
}

func (s *PostgresStore) ListEvents(ctx context.Context) ([]models.Event, error) {
	return listEvents(ctx, s.db, `SELECT `+eventColumns+` FROM events ORDER BY event_date ASC, id ASC`)
}

// SearchEvents is a case-insensitive name and description match.
func (s *PostgresStore) SearchEvents(ctx context.Context, query string) ([]models.Event, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	return listEvents(ctx, s.db,
		`SELECT `+eventColumns+` FROM events
		WHERE name ILIKE $1 OR description ILIKE $1
		ORDER BY event_date ASC, id ASC`, pattern)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *PostgresStore) CapacityDrift(ctx context.Context) ([]models.CapacityDrift, error) {
	query := `
		SELECT e.id, e.max_capacity, e.available_spots, c.confirmed
		FROM events e
		CROSS JOIN LATERAL (
			SELECT COUNT(*)::int AS confirmed
			FROM reservations r
			WHERE r.event_id = e.id AND r.status = 'CONFIRMED'
		) c
		WHERE e.available_spots <> GREATEST(e.max_capacity - c.confirmed, 0)
		   OR c.confirmed > e.max_capacity
		ORDER BY e.id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to compute capacity drift: %w", err)
	}
	defer rows.Close()

	drift := []models.CapacityDrift{}
	for rows.Next() {
		var d models.CapacityDrift
		if err := rows.Scan(&d.EventID, &d.MaxCapacity, &d.AvailableSpots, &d.Confirmed); err != nil {
			return nil, fmt.Errorf("failed to scan capacity drift: %w", err)
		}
		drift = append(drift, d)
	}
	return drift, rows.Err()
}

// confirmedCount counts the CONFIRMED reservations of the events row aliased e.
const confirmedCount = `SELECT COUNT(*) FROM reservations r WHERE r.event_id = e.id AND r.status = 'CONFIRMED'`

func (t *pgTx) GetEventForUpdate(ctx context.Context, id string) (*models.Event, error) {
	return getEvent(ctx, t.q, id, true)
}

func (t *pgTx) DecrementSpots(ctx context.Context, eventID string) (int, error) {
	return t.adjustSpots(ctx, `
		UPDATE events SET available_spots = available_spots - 1, updated_at = NOW()
		WHERE id = $1
		RETURNING available_spots`, eventID)
}

func (t *pgTx) IncrementSpots(ctx context.Context, eventID string) (int, error) {
	return t.adjustSpots(ctx, `
		UPDATE events e
		SET available_spots = LEAST(e.available_spots + 1, GREATEST(e.max_capacity - (`+confirmedCount+`), 0)),
		    updated_at = NOW()
		WHERE e.id = $1
		RETURNING e.available_spots`, eventID)
}

func (t *pgTx) adjustSpots(ctx context.Context, query, eventID string) (int, error) {
	var spots int
	err := t.q.QueryRowContext(ctx, query, eventID).Scan(&spots)
	if err == sql.ErrNoRows {
		return 0, apperrors.ErrEventNotFound
	}
	if err != nil {
		return 0, mapError(err)
	}
	return spots, nil
}

func (t *pgTx) ResizeCapacity(ctx context.Context, eventID string, newMax int) (models.Capacity, error) {
	var c models.Capacity
	err := t.q.QueryRowContext(ctx, `
		UPDATE events e
		SET available_spots = GREATEST($2::int - (`+confirmedCount+`), 0),
		    max_capacity = $2::int,
		    updated_at = NOW()
		WHERE e.id = $1
		RETURNING e.max_capacity, e.available_spots`, eventID, newMax).Scan(&c.Max, &c.Available)
	if err == sql.ErrNoRows {
		return c, apperrors.ErrEventNotFound
	}
	if err != nil {
		return c, mapError(err)
	}
	return c, nil
}

func (t *pgTx) InsertEvent(ctx context.Context, event *models.Event) error {
	location, onlineLink := venueColumns(event.Venue)
	createdBy := sql.NullString{String: event.CreatedBy, Valid: event.CreatedBy != ""}

	err := t.q.QueryRowContext(ctx, `
		INSERT INTO events (id, name, description, event_date, max_capacity, available_spots,
			location, online_link, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		event.ID,
		event.Name,
		event.Description,
		event.EventDate,
		event.MaxCapacity,
		event.AvailableSpots,
		location,
		onlineLink,
		createdBy,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// UpdateEventFields writes descriptive fields and the venue. Capacity goes through ResizeCapacity.
func (t *pgTx) UpdateEventFields(ctx context.Context, event *models.Event) error {
	location, onlineLink := venueColumns(event.Venue)

	err := t.q.QueryRowContext(ctx, `
		UPDATE events
		SET name = $2, description = $3, event_date = $4, location = $5, online_link = $6, updated_at = $7
		WHERE id = $1
		RETURNING updated_at`,
		event.ID,
		event.Name,
		event.Description,
		event.EventDate,
		location,
		onlineLink,
		time.Now().UTC(),
	).Scan(&event.UpdatedAt)
	if err == sql.ErrNoRows {
		return apperrors.ErrEventNotFound
	}
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (t *pgTx) DeleteEvent(ctx context.Context, id string) (bool, error) {
	res, err := t.q.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
