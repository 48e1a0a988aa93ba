package repository

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "seatwise/internal/errors"
	"seatwise/internal/models"
)

const reservationColumns = `r.id, r.event_id, r.user_id, r.status, r.reservation_date, r.canceled_at, r.canceled_by`

func reservationFields(r *models.Reservation, canceledBy *sql.NullString) []any {
	return []any{
		&r.ID,
		&r.EventID,
		&r.UserID,
		&r.Status,
		&r.ReservationDate,
		&r.CanceledAt,
		canceledBy,
	}
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var (
		r          models.Reservation
		canceledBy sql.NullString
	)
	if err := row.Scan(reservationFields(&r, &canceledBy)...); err != nil {
		return nil, err
	}
	if canceledBy.Valid {
		r.CanceledBy = &canceledBy.String
	}
	return &r, nil
}

func (t *pgTx) FindConfirmed(ctx context.Context, eventID, userID string) (*models.Reservation, error) {
	r, err := scanReservation(t.q.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations r
		WHERE r.event_id = $1 AND r.user_id = $2 AND r.status = 'CONFIRMED'`, eventID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find confirmed reservation: %w", err)
	}
	return r, nil
}

func (t *pgTx) InsertReservation(ctx context.Context, r *models.Reservation) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO reservations (id, event_id, user_id, status, reservation_date)
		VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.EventID, r.UserID, r.Status, r.ReservationDate)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (t *pgTx) GetReservationForUpdate(ctx context.Context, id string) (*models.Reservation, error) {
	r, err := scanReservation(t.q.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations r
		WHERE r.id = $1
		FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation %s: %w", id, err)
	}
	return r, nil
}

func (t *pgTx) UpdateReservationStatus(ctx context.Context, r *models.Reservation) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE reservations SET status = $2, canceled_at = $3, canceled_by = $4
		WHERE id = $1`,
		r.ID, r.Status, r.CanceledAt, r.CanceledBy)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrReservationNotFound
	}
	return nil
}

// ListReservationsByUser returns the user's reservations, newest first.
func (s *PostgresStore) ListReservationsByUser(ctx context.Context, userID string) ([]models.ReservationWithEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reservationColumns+`, e.id, e.name, e.event_date, e.location, e.online_link
		FROM reservations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1
		ORDER BY r.reservation_date DESC, r.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations for user %s: %w", userID, err)
	}
	defer rows.Close()

	result := []models.ReservationWithEvent{}
	for rows.Next() {
		var (
			item       models.ReservationWithEvent
			canceledBy sql.NullString
			location   sql.NullString
			onlineLink sql.NullString
		)
		dest := append(reservationFields(&item.Reservation, &canceledBy),
			&item.Event.ID, &item.Event.Name, &item.Event.EventDate, &location, &onlineLink)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		if canceledBy.Valid {
			item.CanceledBy = &canceledBy.String
		}
		item.Event.Location = location.String
		item.Event.OnlineLink = onlineLink.String
		result = append(result, item)
	}
	return result, rows.Err()
}

// ListReservationsByEvent returns the event's reservations in booking order.
func (s *PostgresStore) ListReservationsByEvent(ctx context.Context, eventID string) ([]models.ReservationWithUser, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reservationColumns+`, u.id, u.name, u.email
		FROM reservations r
		JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1
		ORDER BY r.reservation_date ASC, r.id ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations for event %s: %w", eventID, err)
	}
	defer rows.Close()

	result := []models.ReservationWithUser{}
	for rows.Next() {
		var (
			item       models.ReservationWithUser
			canceledBy sql.NullString
		)
		dest := append(reservationFields(&item.Reservation, &canceledBy),
			&item.User.ID, &item.User.Name, &item.User.Email)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		if canceledBy.Valid {
			item.CanceledBy = &canceledBy.String
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
