package models

import (
	"testing"
	"time"

	apperrors "seatwise/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestNewVenue(t *testing.T) {
	v, err := NewVenue("Hall", "")
	require.NoError(t, err)
	assert.Equal(t, "Hall", v.Location())
	assert.Empty(t, v.OnlineLink())

	v, err = NewVenue("", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, VenueVirtual, v.Kind)
	assert.Empty(t, v.Location())

	_, err = NewVenue("Hall", "https://example.com")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = NewVenue("", "")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestApplyVenue(t *testing.T) {
	physical := Venue{Kind: VenuePhysical, Value: "Hall"}

	tests := []struct {
		name    string
		patch   EventPatch
		want    Venue
		wantErr bool
	}{
		{"untouched", EventPatch{}, physical, false},
		{"new location", EventPatch{Location: strp("Annex")}, Venue{Kind: VenuePhysical, Value: "Annex"}, false},
		{"switch to online", EventPatch{OnlineLink: strp("https://x.io")}, Venue{Kind: VenueVirtual, Value: "https://x.io"}, false},
		{"explicit switch", EventPatch{Location: strp(""), OnlineLink: strp("https://x.io")}, Venue{Kind: VenueVirtual, Value: "https://x.io"}, false},
		{"both set", EventPatch{Location: strp("Annex"), OnlineLink: strp("https://x.io")}, Venue{}, true},
		{"clear location", EventPatch{Location: strp("")}, Venue{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.patch.ApplyVenue(physical)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateEventInputValidate(t *testing.T) {
	fields, err := CreateEventInput{
		Name:        "  Launch ",
		EventDate:   "2030-06-01T09:00:00-03:00",
		MaxCapacity: 10,
		Location:    " Hall ",
	}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "Launch", fields.Name)
	assert.Equal(t, time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC), fields.EventDate)
	assert.Equal(t, Venue{Kind: VenuePhysical, Value: "Hall"}, fields.Venue)

	_, err = CreateEventInput{Name: "x", EventDate: "2030-06-01", MaxCapacity: MaxEventCapacity + 1, Location: "Hall"}.Validate()
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "eventDate")
	assert.Equal(t, "must be at most 100000", verr.Fields["maxCapacity"])
}

func TestUpdateEventInputValidate(t *testing.T) {
	capacity := 0
	_, err := UpdateEventInput{Name: strp(" "), MaxCapacity: &capacity}.Validate()
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "is required", verr.Fields["name"])
	assert.Equal(t, "must be greater than 0", verr.Fields["maxCapacity"])

	patch, err := UpdateEventInput{}.Validate()
	require.NoError(t, err)
	assert.True(t, patch.Empty())
}

func TestCreateUserInputValidate(t *testing.T) {
	user, err := CreateUserInput{Name: " Kim ", Email: "Kim@Example.COM", Role: "user"}.Validate("u1")
	require.NoError(t, err)
	assert.Equal(t, &User{ID: "u1", Name: "Kim", Email: "kim@example.com", Role: RoleUser}, user)

	_, err = CreateUserInput{Name: "Kim", Email: "nope", Role: "ROOT"}.Validate("u2")
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "role")
}

func TestPrincipalRequire(t *testing.T) {
	assert.NoError(t, Principal{UserID: "u", Role: RoleAdmin}.Require(RoleAdmin))
	assert.ErrorIs(t, Principal{UserID: "u", Role: RoleUser}.Require(RoleAdmin), apperrors.ErrNotAuthorized)
	assert.ErrorIs(t, Principal{Role: RoleUser}.Require(RoleUser), apperrors.ErrNotAuthorized)
}

func TestCapacityDriftExpected(t *testing.T) {
	assert.Equal(t, 2, CapacityDrift{MaxCapacity: 5, Confirmed: 3}.Expected())
	assert.Equal(t, 0, CapacityDrift{MaxCapacity: 1, Confirmed: 2}.Expected())
}

func TestHasOccurred(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	e := &Event{EventDate: now}
	assert.True(t, e.HasOccurred(now))
	assert.False(t, e.HasOccurred(now.Add(-time.Second)))
}
