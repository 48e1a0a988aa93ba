package models

import "time"

// NATS subjects for committed changes
const (
	SubjectReservationConfirmed = "reservation.confirmed"
	SubjectReservationCanceled  = "reservation.canceled"
	SubjectEventCreated         = "event.created"
	SubjectEventUpdated         = "event.updated"
	SubjectEventDeleted         = "event.deleted"
)

// ChangeSubjects lists every subject the consumers subscribe to.
var ChangeSubjects = []string{
	SubjectReservationConfirmed,
	SubjectReservationCanceled,
	SubjectEventCreated,
	SubjectEventUpdated,
	SubjectEventDeleted,
}

// ReservationConfirmedEvent is published after a reserve commit
type ReservationConfirmedEvent struct {
	ReservationID  string    `json:"reservation_id"`
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id"`
	AvailableSpots int       `json:"available_spots"`
	Timestamp      time.Time `json:"timestamp"`
}

// ReservationCanceledEvent is published after a cancel commit
type ReservationCanceledEvent struct {
	ReservationID  string    `json:"reservation_id"`
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id"`
	CanceledBy     string    `json:"canceled_by"`
	AvailableSpots int       `json:"available_spots"`
	Timestamp      time.Time `json:"timestamp"`
}

// EventChangedEvent is published after an event is created, updated or deleted
type EventChangedEvent struct {
	EventID   string    `json:"event_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}
