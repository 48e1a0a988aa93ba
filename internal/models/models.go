package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	apperrors "seatwise/internal/errors"

	"github.com/go-playground/validator/v10"
)

const MaxEventCapacity = 100_000

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json field names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateEventInput - payload for creating an event
type CreateEventInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	EventDate   string `json:"eventDate" validate:"required"`
	MaxCapacity int    `json:"maxCapacity" validate:"required,gt=0,lte=100000"`
	Location    string `json:"location" validate:"max=500"`
	OnlineLink  string `json:"onlineLink" validate:"omitempty,url,max=500"`
}

// EventFields are validated creation fields
type EventFields struct {
	Name        string
	Description string
	EventDate   time.Time
	MaxCapacity int
	Venue       Venue
}

// Validate checks the input and returns the parsed fields.
// Every problem is reported, not only the first one.
func (in CreateEventInput) Validate() (EventFields, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	in.OnlineLink = strings.TrimSpace(in.OnlineLink)

	verr := apperrors.NewValidationError()
	collect(verr, validate.Struct(in))

	var date time.Time
	if in.EventDate != "" {
		parsed, err := parseEventDate(in.EventDate)
		if err != nil {
			verr.Add("eventDate", err.Error())
		}
		date = parsed
	}

	venue, err := NewVenue(in.Location, in.OnlineLink)
	if err != nil {
		merge(verr, err)
	}

	if err := verr.OrNil(); err != nil {
		return EventFields{}, err
	}

	return EventFields{
		Name:        in.Name,
		Description: in.Description,
		EventDate:   date,
		MaxCapacity: in.MaxCapacity,
		Venue:       venue,
	}, nil
}

// UpdateEventInput - partial update, nil fields are left untouched
type UpdateEventInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	EventDate   *string `json:"eventDate"`
	MaxCapacity *int    `json:"maxCapacity"`
	Location    *string `json:"location"`
	OnlineLink  *string `json:"onlineLink"`
}

// EventPatch is a validated partial update
type EventPatch struct {
	Name        *string
	Description *string
	EventDate   *time.Time
	MaxCapacity *int
	Location    *string
	OnlineLink  *string
}

func (in UpdateEventInput) Validate() (EventPatch, error) {
	verr := apperrors.NewValidationError()
	var patch EventPatch

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		collectVar(verr, "name", validate.Var(name, "required,max=200"))
		patch.Name = &name
	}
	if in.Description != nil {
		collectVar(verr, "description", validate.Var(*in.Description, "max=2000"))
		patch.Description = in.Description
	}
	if in.EventDate != nil {
		date, err := parseEventDate(*in.EventDate)
		if err != nil {
			verr.Add("eventDate", err.Error())
		}
		patch.EventDate = &date
	}
	if in.MaxCapacity != nil {
		collectVar(verr, "maxCapacity", validate.Var(*in.MaxCapacity, "gt=0,lte=100000"))
		patch.MaxCapacity = in.MaxCapacity
	}
	if in.Location != nil {
		loc := strings.TrimSpace(*in.Location)
		collectVar(verr, "location", validate.Var(loc, "max=500"))
		patch.Location = &loc
	}
	if in.OnlineLink != nil {
		link := strings.TrimSpace(*in.OnlineLink)
		collectVar(verr, "onlineLink", validate.Var(link, "omitempty,url,max=500"))
		patch.OnlineLink = &link
	}

	if err := verr.OrNil(); err != nil {
		return EventPatch{}, err
	}
	return patch, nil
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.EventDate == nil &&
		p.MaxCapacity == nil && p.Location == nil && p.OnlineLink == nil
}

// ApplyVenue merges the venue fields of the patch into the current venue.
// Setting only one side to a non-empty value switches the venue kind.
func (p EventPatch) ApplyVenue(current Venue) (Venue, error) {
	if p.Location == nil && p.OnlineLink == nil {
		return current, nil
	}

	location, link := current.Location(), current.OnlineLink()
	switch {
	case p.Location != nil && p.OnlineLink == nil && *p.Location != "":
		location, link = *p.Location, ""
	case p.OnlineLink != nil && p.Location == nil && *p.OnlineLink != "":
		location, link = "", *p.OnlineLink
	default:
		if p.Location != nil {
			location = *p.Location
		}
		if p.OnlineLink != nil {
			link = *p.OnlineLink
		}
	}
	return NewVenue(location, link)
}

func parseEventDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("must be an RFC 3339 timestamp")
	}
	return t.UTC(), nil
}

func collect(verr *apperrors.ValidationError, err error) {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return
	}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), describe(fe))
	}
}

func collectVar(verr *apperrors.ValidationError, field string, err error) {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return
	}
	for _, fe := range fieldErrs {
		verr.Add(field, describe(fe))
	}
}

func merge(dst *apperrors.ValidationError, err error) {
	var src *apperrors.ValidationError
	if errors.As(err, &src) {
		for k, v := range src.Fields {
			dst.Add(k, v)
		}
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}

// CreateUserInput - payload for registering a user
type CreateUserInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email,max=255"`
	Role  Role   `json:"role" validate:"required,oneof=USER ADMIN"`
}

// Validate normalizes the input and builds the user with the given id.
func (in CreateUserInput) Validate(id string) (*User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = Role(strings.ToUpper(string(in.Role)))

	verr := apperrors.NewValidationError()
	collect(verr, validate.Struct(in))
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return &User{ID: id, Name: in.Name, Email: in.Email, Role: in.Role}, nil
}

// EventResponse - event as returned by the API
type EventResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	EventDate      time.Time `json:"eventDate"`
	MaxCapacity    int       `json:"maxCapacity"`
	AvailableSpots int       `json:"availableSpots"`
	Location       string    `json:"location,omitempty"`
	OnlineLink     string    `json:"onlineLink,omitempty"`
	CreatedBy      string    `json:"createdBy,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func NewEventResponse(e *Event) EventResponse {
	return EventResponse{
		ID:             e.ID,
		Name:           e.Name,
		Description:    e.Description,
		EventDate:      e.EventDate,
		MaxCapacity:    e.MaxCapacity,
		AvailableSpots: e.AvailableSpots,
		Location:       e.Venue.Location(),
		OnlineLink:     e.Venue.OnlineLink(),
		CreatedBy:      e.CreatedBy,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func NewEventListResponse(events []Event) []EventResponse {
	result := make([]EventResponse, len(events))
	for i := range events {
		result[i] = NewEventResponse(&events[i])
	}
	return result
}

// NewEventSummary builds the summary embedded into reservation lists.
func NewEventSummary(e *Event) EventSummary {
	return EventSummary{
		ID:         e.ID,
		Name:       e.Name,
		EventDate:  e.EventDate,
		Location:   e.Venue.Location(),
		OnlineLink: e.Venue.OnlineLink(),
	}
}

// ErrorResponse - error envelope
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}
