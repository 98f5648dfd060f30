package offer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

func validDraft() Draft {
	return Draft{
		Outbound: trip.Leg{
			Origin:      "Helsingborg",
			Destination: "Malmö",
			Date:        "2025-06-01",
			Time:        "08:00",
		},
		Passengers: 30,
		Customer:   trip.Customer{Name: "Anna Svensson", Email: "anna@example.se"},
	}
}

func answeredOffer(t *testing.T) *Offer {
	t.Helper()
	o, err := NewOffer(validDraft())
	require.NoError(t, err)
	_, err = o.Send(trip.PriceBreakdown{ExVATCents: 800000, VATCents: 48000, TotalCents: 848000})
	require.NoError(t, err)
	return o
}

func TestNewOffer_StartsReceived(t *testing.T) {
	o, err := NewOffer(validDraft())
	require.NoError(t, err)

	assert.Equal(t, StatusReceived, o.Status())
	assert.Equal(t, int64(1), o.Version())
	assert.Nil(t, o.SentAt())
	assert.Nil(t, o.AcceptedAt())
	assert.Nil(t, o.DeclinedAt())
	assert.Nil(t, o.Return())
}

func TestNewOffer_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Draft)
	}{
		{"missing origin", func(d *Draft) { d.Outbound.Origin = " " }},
		{"missing destination", func(d *Draft) { d.Outbound.Destination = "" }},
		{"missing date", func(d *Draft) { d.Outbound.Date = "" }},
		{"missing time", func(d *Draft) { d.Outbound.Time = "" }},
		{"bad date", func(d *Draft) { d.Outbound.Date = "1 juni" }},
		{"bad time", func(d *Draft) { d.Outbound.Time = "8.00" }},
		{"bad return date", func(d *Draft) { d.Return = &trip.Leg{Date: "2025/06/02"} }},
		{"negative passengers", func(d *Draft) { d.Passengers = -1 }},
		{"unreachable customer", func(d *Draft) { d.Customer = trip.Customer{Name: "Anna"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			_, err := NewOffer(d)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestNewOffer_EmptyReturnLegDropped(t *testing.T) {
	d := validDraft()
	d.Return = &trip.Leg{Origin: "  "}
	o, err := NewOffer(d)
	require.NoError(t, err)
	assert.Nil(t, o.Return())
}

func TestSend_StampsAndAttachesPrice(t *testing.T) {
	o, err := NewOffer(validDraft())
	require.NoError(t, err)

	changed, err := o.Send(trip.PriceBreakdown{ExVATCents: 100, VATCents: 6, TotalCents: 106})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusAnswered, o.Status())
	require.NotNil(t, o.SentAt())
	require.NotNil(t, o.Price())
	assert.Equal(t, "SEK", o.Price().Currency)
}

func TestSend_RejectsMissingPrice(t *testing.T) {
	o, err := NewOffer(validDraft())
	require.NoError(t, err)

	_, err = o.Send(trip.PriceBreakdown{})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, StatusReceived, o.Status())
}

func TestSend_IdempotentWhenAlreadyAnswered(t *testing.T) {
	o := answeredOffer(t)
	sentAt := *o.SentAt()

	changed, err := o.Send(trip.PriceBreakdown{TotalCents: 1})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, sentAt, *o.SentAt())
	assert.Equal(t, int64(848000), o.Price().TotalCents)
}

func TestAccept(t *testing.T) {
	o := answeredOffer(t)

	changed, err := o.Accept()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusAccepted, o.Status())
	require.NotNil(t, o.AcceptedAt())
	stamp := *o.AcceptedAt()

	o.IncrementVersion()
	changed, err = o.Accept()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, stamp, *o.AcceptedAt())
}

func TestDeclineAndCancel(t *testing.T) {
	o := answeredOffer(t)
	changed, err := o.Decline()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusDeclined, o.Status())
	assert.NotNil(t, o.DeclinedAt())

	o = answeredOffer(t)
	changed, err = o.Cancel()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusCancelled, o.Status())
	assert.NotNil(t, o.DeclinedAt())
}

func TestReceivedCanOnlyBeAnswered(t *testing.T) {
	for _, step := range []func(*Offer) (bool, error){(*Offer).Accept, (*Offer).Decline, (*Offer).Cancel} {
		o, err := NewOffer(validDraft())
		require.NoError(t, err)
		_, err = step(o)
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
		assert.Equal(t, StatusReceived, o.Status())
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	o := answeredOffer(t)
	_, err := o.Accept()
	require.NoError(t, err)

	_, err = o.Decline()
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	_, err = o.Cancel()
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	_, err = o.Send(trip.PriceBreakdown{TotalCents: 1})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Equal(t, StatusAccepted, o.Status())
}
