package service

import (
	"context"
	"fmt"
	"time"

	apperrors "seatwise/internal/errors"
	"seatwise/internal/logger"
	"seatwise/internal/metrics"
	"seatwise/internal/models"
	"seatwise/internal/repository"
)

// ReservationService drives the reservation lifecycle:
// no reservation -> CONFIRMED -> CANCELED. A canceled reservation is final;
// reserving again creates a new row.
type ReservationService struct {
	store       repository.Store
	coordinator *Coordinator
	ledger      Ledger
	metrics     *metrics.Metrics
	now         func() time.Time
	newID       func() string
}

func NewReservationService(d Deps, coordinator *Coordinator, ledger Ledger) *ReservationService {
	return &ReservationService{
		store:       d.Store,
		coordinator: coordinator,
		ledger:      ledger,
		metrics:     d.Metrics,
		now:         d.Now,
		newID:       d.NewID,
	}
}

// Reserve takes a spot on the event for the principal, who must be a USER.
func (s *ReservationService) Reserve(ctx context.Context, p models.Principal, eventID string) (*models.Reservation, error) {
	if err := p.Require(models.RoleUser); err != nil {
		s.metrics.ReservationOutcome(apperrors.Code(err))
		return nil, err
	}

	var (
		reservation *models.Reservation
		spots       int
	)
	err := s.coordinator.Run(ctx, func(tx repository.Tx) (Effects, error) {
		var err error
		reservation, spots, err = s.reserve(ctx, tx, eventID, p.UserID)
		if err != nil {
			return Effects{}, err
		}
		return Effects{
			Invalidate: []string{eventID},
			Subject:    models.SubjectReservationConfirmed,
			Message: models.ReservationConfirmedEvent{
				ReservationID:  reservation.ID,
				EventID:        eventID,
				UserID:         p.UserID,
				AvailableSpots: spots,
				Timestamp:      reservation.ReservationDate,
			},
		}, nil
	})
	if err != nil {
		s.metrics.ReservationOutcome(apperrors.Code(err))
		return nil, wrapErr(err, "reserve")
	}

	s.metrics.ReservationOutcome("confirmed")
	logger.WithContext(ctx).Info("Reservation confirmed",
		"reservation_id", reservation.ID, "event_id", eventID, "available_spots", spots)
	return reservation, nil
}

// reserve validates the transition in order: event exists, event is in the
// future, no confirmed reservation for the pair, a spot is left.
func (s *ReservationService) reserve(ctx context.Context, tx repository.Tx, eventID, userID string) (*models.Reservation, int, error) {
	event, err := tx.GetEventForUpdate(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	if event == nil {
		return nil, 0, apperrors.ErrEventNotFound
	}

	now := s.now()
	if event.HasOccurred(now) {
		return nil, 0, apperrors.ErrEventAlreadyOccurred
	}

	existing, err := tx.FindConfirmed(ctx, eventID, userID)
	if err != nil {
		return nil, 0, err
	}
	if existing != nil {
		return nil, 0, apperrors.ErrAlreadyReserved
	}

	spots, err := s.ledger.TryDecrement(ctx, tx, eventID)
	if err != nil {
		return nil, 0, err
	}

	reservation := &models.Reservation{
		ID:              s.newID(),
		EventID:         eventID,
		UserID:          userID,
		Status:          models.StatusConfirmed,
		ReservationDate: now,
	}
	if err := tx.InsertReservation(ctx, reservation); err != nil {
		return nil, 0, err
	}
	return reservation, spots, nil
}

// Cancel releases the reservation's spot. Only the owner or an ADMIN may cancel.
func (s *ReservationService) Cancel(ctx context.Context, p models.Principal, reservationID string) (*models.Reservation, error) {
	if p.UserID == "" || !p.Role.Valid() {
		s.metrics.CancellationOutcome(apperrors.Code(apperrors.ErrNotAuthorized))
		return nil, apperrors.ErrNotAuthorized
	}

	var (
		reservation *models.Reservation
		spots       int
	)
	err := s.coordinator.Run(ctx, func(tx repository.Tx) (Effects, error) {
		var err error
		reservation, spots, err = s.cancel(ctx, tx, reservationID, p)
		if err != nil {
			return Effects{}, err
		}
		return Effects{
			Invalidate: []string{reservation.EventID},
			Subject:    models.SubjectReservationCanceled,
			Message: models.ReservationCanceledEvent{
				ReservationID:  reservation.ID,
				EventID:        reservation.EventID,
				UserID:         reservation.UserID,
				CanceledBy:     p.UserID,
				AvailableSpots: spots,
				Timestamp:      *reservation.CanceledAt,
			},
		}, nil
	})
	if err != nil {
		s.metrics.CancellationOutcome(apperrors.Code(err))
		return nil, wrapErr(err, "cancel")
	}

	s.metrics.CancellationOutcome("canceled")
	logger.WithContext(ctx).Info("Reservation canceled",
		"reservation_id", reservation.ID, "event_id", reservation.EventID,
		"canceled_by", p.UserID, "available_spots", spots)
	return reservation, nil
}

func (s *ReservationService) cancel(ctx context.Context, tx repository.Tx, reservationID string, p models.Principal) (*models.Reservation, int, error) {
	reservation, err := tx.GetReservationForUpdate(ctx, reservationID)
	if err != nil {
		return nil, 0, err
	}
	if reservation == nil {
		return nil, 0, apperrors.ErrReservationNotFound
	}
	if reservation.UserID != p.UserID && !p.IsAdmin() {
		return nil, 0, apperrors.ErrNotAuthorized
	}
	if !reservation.IsConfirmed() {
		return nil, 0, apperrors.ErrAlreadyCanceled
	}

	now := s.now()
	canceledBy := p.UserID
	reservation.Status = models.StatusCanceled
	reservation.CanceledAt = &now
	reservation.CanceledBy = &canceledBy

	if err := tx.UpdateReservationStatus(ctx, reservation); err != nil {
		return nil, 0, err
	}

	spots, err := s.ledger.Increment(ctx, tx, reservation.EventID)
	if err != nil {
		return nil, 0, err
	}
	return reservation, spots, nil
}

// ListForUser returns the principal's reservations, newest first.
func (s *ReservationService) ListForUser(ctx context.Context, p models.Principal) ([]models.ReservationWithEvent, error) {
	if p.UserID == "" {
		return nil, apperrors.ErrNotAuthorized
	}

	list, err := s.store.ListReservationsByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return list, nil
}

// ListForEvent returns every reservation of the event with its holder. ADMIN only.
func (s *ReservationService) ListForEvent(ctx context.Context, p models.Principal, eventID string) ([]models.ReservationWithUser, error) {
	if err := p.Require(models.RoleAdmin); err != nil {
		return nil, err
	}

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}

	list, err := s.store.ListReservationsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return list, nil
}
