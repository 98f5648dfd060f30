package booking

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

func strPtr(s string) *string { return &s }

func validDraft() Draft {
	return Draft{
		Outbound: trip.Leg{
			Origin:      "Helsingborg",
			Destination: "Malmö",
			Date:        "2025-06-01",
			Time:        "08:00",
			Stops:       []string{" Landskrona ", ""},
		},
		Passengers: 30,
		Customer:   trip.Customer{Name: "Anna", Email: " Anna@Example.se "},
	}
}

func TestNewBooking(t *testing.T) {
	b, err := NewBooking(validDraft())
	require.NoError(t, err)

	assert.Equal(t, StatusCreated, b.Status())
	assert.Equal(t, int64(1), b.Version())
	assert.Equal(t, []string{"Landskrona"}, b.Outbound().Stops)
	assert.Equal(t, "anna@example.se", b.Customer().Email)
	assert.Nil(t, b.OfferID())
	assert.Nil(t, b.VehicleID())
}

func TestNewBooking_RequiresMinimumTripFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Draft)
		want   string
	}{
		{"date", func(d *Draft) { d.Outbound.Date = "" }, "date"},
		{"time", func(d *Draft) { d.Outbound.Time = "" }, "time"},
		{"origin", func(d *Draft) { d.Outbound.Origin = "  " }, "origin"},
		{"destination", func(d *Draft) { d.Outbound.Destination = "" }, "destination"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			_, err := NewBooking(d)
			require.ErrorIs(t, err, apperror.ErrValidation)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewBooking_RejectsMalformedTime(t *testing.T) {
	d := validDraft()
	d.Outbound.Time = "25:00"
	_, err := NewBooking(d)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestNewBooking_KeepsOfferLink(t *testing.T) {
	offerID := uuid.New()
	d := validDraft()
	d.OfferID = &offerID
	d.OfferNumber = "HB25007"
	d.Assignment = Assignment{VehicleID: strPtr("bus-12"), DriverID: strPtr(" ")}

	b, err := NewBooking(d)
	require.NoError(t, err)
	assert.Equal(t, offerID, *b.OfferID())
	assert.Equal(t, "HB25007", b.OfferNumber())
	assert.Equal(t, "bus-12", *b.VehicleID())
	assert.Nil(t, b.DriverID())
}

func TestAssign(t *testing.T) {
	b, err := NewBooking(validDraft())
	require.NoError(t, err)

	require.NoError(t, b.Assign(Assignment{DriverID: strPtr("drv-3")}))
	assert.Equal(t, StatusUpdated, b.Status())
	assert.Equal(t, "drv-3", *b.DriverID())
	assert.Nil(t, b.VehicleID())

	require.NoError(t, b.Assign(Assignment{VehicleID: strPtr("bus-1"), DriverID: strPtr("")}))
	assert.Equal(t, "bus-1", *b.VehicleID())
	assert.Nil(t, b.DriverID())

	assert.ErrorIs(t, b.Assign(Assignment{}), apperror.ErrValidation)
}
