package database

import (
	"context"
	"fmt"
	"log/slog"
)

// Constraint names the repository maps back to domain errors.
const (
	ConfirmedReservationIndex = "reservations_one_confirmed_idx"
	SpotsRangeConstraint      = "events_spots_range"
)

func (db *DB) RunMigrations(ctx context.Context) error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createEventsTable,
		createReservationsTable,
		createConfirmedReservationIndex,
		createReservationsUserIndex,
		createEventsDateIndex,
	}

	for i, migration := range migrations {
		slog.Debug("Running migration", "step", i+1)
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully", "count", len(migrations))
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    email VARCHAR(255) UNIQUE NOT NULL,
    role VARCHAR(10) NOT NULL DEFAULT 'USER',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (role IN ('USER', 'ADMIN'))
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    event_date TIMESTAMPTZ NOT NULL,
    max_capacity INTEGER NOT NULL,
    available_spots INTEGER NOT NULL,
    location VARCHAR(500),
    online_link VARCHAR(500),
    created_by TEXT REFERENCES users(id) ON DELETE SET NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT events_capacity_positive CHECK (max_capacity > 0),
    CONSTRAINT ` + SpotsRangeConstraint + ` CHECK (available_spots BETWEEN 0 AND max_capacity),
    CONSTRAINT events_single_venue CHECK ((COALESCE(location, '') <> '') <> (COALESCE(online_link, '') <> ''))
);`

const createReservationsTable = `
CREATE TABLE IF NOT EXISTS reservations (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL REFERENCES users(id),
    status VARCHAR(10) NOT NULL DEFAULT 'CONFIRMED',
    reservation_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    canceled_at TIMESTAMPTZ,
    canceled_by TEXT,

    CHECK (status IN ('CONFIRMED', 'CANCELED'))
);`

const createConfirmedReservationIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS ` + ConfirmedReservationIndex + `
ON reservations (event_id, user_id) WHERE status = 'CONFIRMED';`

const createReservationsUserIndex = `
CREATE INDEX IF NOT EXISTS reservations_user_idx
ON reservations (user_id, reservation_date DESC);`

const createEventsDateIndex = `
CREATE INDEX IF NOT EXISTS events_event_date_idx
ON events (event_date);`
