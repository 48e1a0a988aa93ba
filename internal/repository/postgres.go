package repository

import (
	"context"
	"database/sql"
	"errors"

	"seatwise/internal/database"
	apperrors "seatwise/internal/errors"

	"github.com/lib/pq"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements Store on lib/pq.
type PostgresStore struct {
	db *database.DB
}

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.Serializable(ctx, func(tx *sql.Tx) error {
		return fn(&pgTx{q: tx})
	})
}

type pgTx struct {
	q querier
}

// mapError turns constraint violations into domain errors.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case codeUniqueViolation:
		switch pqErr.Constraint {
		case database.ConfirmedReservationIndex:
			return apperrors.ErrAlreadyReserved
		case "users_email_key", "users_pkey":
			return apperrors.Invalid("email", "user already exists")
		}
	case codeForeignKeyViolation:
		switch pqErr.Constraint {
		case "reservations_user_id_fkey", "events_created_by_fkey":
			return apperrors.ErrUnknownUser
		case "reservations_event_id_fkey":
			return apperrors.ErrEventNotFound
		}
	case codeCheckViolation:
		if pqErr.Constraint == database.SpotsRangeConstraint {
			return apperrors.ErrCapacityExhausted
		}
	}
	return err
}
