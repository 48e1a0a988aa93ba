package models

import (
	"time"

	apperrors "seatwise/internal/errors"
)

// Role of an authenticated principal
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is the identity the transport layer hands to every core operation.
// The core trusts it as-is.
type Principal struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Require fails with ErrNotAuthorized unless the principal has the given role.
func (p Principal) Require(role Role) error {
	if p.UserID == "" || p.Role != role {
		return apperrors.ErrNotAuthorized
	}
	return nil
}

// User represents a user in the system
type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type VenueKind string

const (
	VenuePhysical VenueKind = "PHYSICAL"
	VenueVirtual  VenueKind = "VIRTUAL"
)

// Venue is either a physical location or an online link, never both.
type Venue struct {
	Kind  VenueKind `json:"kind"`
	Value string    `json:"value"`
}

// NewVenue builds a venue from the two mutually exclusive inputs.
func NewVenue(location, onlineLink string) (Venue, error) {
	switch {
	case location != "" && onlineLink != "":
		return Venue{}, apperrors.Invalid("location", "location and onlineLink are mutually exclusive")
	case location != "":
		return Venue{Kind: VenuePhysical, Value: location}, nil
	case onlineLink != "":
		return Venue{Kind: VenueVirtual, Value: onlineLink}, nil
	default:
		return Venue{}, apperrors.Invalid("location", "exactly one of location or onlineLink is required")
	}
}

func (v Venue) Location() string {
	if v.Kind == VenuePhysical {
		return v.Value
	}
	return ""
}

func (v Venue) OnlineLink() string {
	if v.Kind == VenueVirtual {
		return v.Value
	}
	return ""
}

// Capacity is the ledger view of an event.
type Capacity struct {
	Max       int `json:"maxCapacity"`
	Available int `json:"availableSpots"`
}

// Event represents an event in the system
type Event struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description" db:"description"`
	EventDate      time.Time `json:"eventDate" db:"event_date"`
	MaxCapacity    int       `json:"maxCapacity" db:"max_capacity"`
	AvailableSpots int       `json:"availableSpots" db:"available_spots"`
	Venue          Venue     `json:"venue"`
	CreatedBy      string    `json:"createdBy" db:"created_by"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// HasOccurred reports whether the event date is not after now.
func (e *Event) HasOccurred(now time.Time) bool {
	return !e.EventDate.After(now)
}

func (e *Event) Capacity() Capacity {
	return Capacity{Max: e.MaxCapacity, Available: e.AvailableSpots}
}

type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCanceled  ReservationStatus = "CANCELED"
)

// Reservation represents a seat hold of one user for one event
type Reservation struct {
	ID              string            `json:"id" db:"id"`
	EventID         string            `json:"eventId" db:"event_id"`
	UserID          string            `json:"userId" db:"user_id"`
	Status          ReservationStatus `json:"status" db:"status"`
	ReservationDate time.Time         `json:"reservationDate" db:"reservation_date"`
	CanceledAt      *time.Time        `json:"canceledAt,omitempty" db:"canceled_at"`
	CanceledBy      *string           `json:"canceledBy,omitempty" db:"canceled_by"`
}

func (r *Reservation) IsConfirmed() bool {
	return r.Status == StatusConfirmed
}

// EventSummary is embedded into a user's reservation list.
type EventSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	EventDate  time.Time `json:"eventDate"`
	Location   string    `json:"location,omitempty"`
	OnlineLink string    `json:"onlineLink,omitempty"`
}

// UserSummary is embedded into an event's reservation list.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ReservationWithEvent struct {
	Reservation
	Event EventSummary `json:"event"`
}

type ReservationWithUser struct {
	Reservation
	User UserSummary `json:"user"`
}

// CapacityDrift describes an event whose ledger disagrees with its reservations,
// or that holds more confirmed reservations than seats.
type CapacityDrift struct {
	EventID        string `json:"eventId"`
	MaxCapacity    int    `json:"maxCapacity"`
	AvailableSpots int    `json:"availableSpots"`
	Confirmed      int    `json:"confirmed"`
}

// Expected returns the availableSpots value implied by the confirmed count.
// A capacity shrink below the confirmed count leaves zero spots, not a negative number.
func (d CapacityDrift) Expected() int {
	if d.Confirmed >= d.MaxCapacity {
		return 0
	}
	return d.MaxCapacity - d.Confirmed
}

// Overbooked reports more confirmed reservations than maxCapacity. A shrink
// below the confirmed count leaves an event in this state on purpose; any
// other cause is a ledger fault.
func (d CapacityDrift) Overbooked() bool {
	return d.Confirmed > d.MaxCapacity
}
