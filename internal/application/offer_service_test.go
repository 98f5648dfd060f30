package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helsingbuss/service-booking/internal/domain/offer"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/events"
	"github.com/helsingbuss/service-booking/internal/notify"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

func TestSubmitOffer(t *testing.T) {
	f := newFixture(t)

	o, err := f.offers.SubmitOffer(context.Background(), helsingborgMalmo())
	require.NoError(t, err)

	assert.Equal(t, "HB25001", o.OfferNumber)
	assert.Equal(t, string(offer.StatusReceived), o.Status)
	assert.Nil(t, o.SentAt)
	assert.False(t, o.CanConvert)
	assert.Equal(t, []string{events.OfferSubmitted}, f.publisher.types())
	assert.Equal(t, []notify.Kind{notify.KindOfferReceived, notify.KindOfferStaffNotice}, f.queue.kinds())
}

func TestSubmitOffer_SequentialNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.offers.SubmitOffer(ctx, helsingborgMalmo())
	require.NoError(t, err)
	second, err := f.offers.SubmitOffer(ctx, helsingborgMalmo())
	require.NoError(t, err)

	assert.Equal(t, "HB25001", first.OfferNumber)
	assert.Equal(t, "HB25002", second.OfferNumber)
}

func TestSubmitOffer_Validation(t *testing.T) {
	f := newFixture(t)

	req := helsingborgMalmo()
	req.Customer = trip.Customer{Name: "No Contact"}

	_, err := f.offers.SubmitOffer(context.Background(), req)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Empty(t, f.queue.kinds())
	assert.Empty(t, f.publisher.types())
}

func TestSubmitOffer_RequiresDepartureTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := helsingborgMalmo()
	req.Outbound.Time = ""

	_, err := f.offers.SubmitOffer(ctx, req)
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.Contains(t, err.Error(), "time")
	assert.Empty(t, f.queue.kinds())
	assert.Empty(t, f.publisher.types())

	page, err := f.offers.ListOffers(ctx, "", 1, 20)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestSendOffer_SplitsBareTotal(t *testing.T) {
	f := newFixture(t)

	sent := f.answered(t)

	assert.Equal(t, string(offer.StatusAnswered), sent.Status)
	require.NotNil(t, sent.Price)
	assert.Equal(t, int64(848000), sent.Price.TotalCents)
	assert.Equal(t, int64(800000), sent.Price.ExVATCents)
	assert.Equal(t, int64(48000), sent.Price.VATCents)
	assert.Equal(t, "SEK", sent.Price.Currency)
	assert.NotNil(t, sent.SentAt)
	assert.False(t, sent.CanConvert)

	accepted, err := f.offers.AcceptOffer(context.Background(), sent.OfferNumber)
	require.NoError(t, err)
	assert.True(t, accepted.CanConvert)
}

func TestSendOffer_RequiresPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.offers.SubmitOffer(ctx, helsingborgMalmo())
	require.NoError(t, err)

	_, err = f.offers.SendOffer(ctx, o.OfferNumber, SendOfferRequest{})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	stored, err := f.offers.GetOffer(ctx, o.OfferNumber)
	require.NoError(t, err)
	assert.Equal(t, string(offer.StatusReceived), stored.Status)
}

func TestAcceptOffer_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sent := f.answered(t)

	first, err := f.offers.AcceptOffer(ctx, sent.OfferNumber)
	require.NoError(t, err)
	require.NotNil(t, first.AcceptedAt)
	kindsAfterFirst := f.queue.kinds()
	eventsAfterFirst := f.publisher.types()

	second, err := f.offers.AcceptOffer(ctx, sent.OfferNumber)
	require.NoError(t, err)

	assert.Equal(t, string(offer.StatusAccepted), second.Status)
	assert.Equal(t, *first.AcceptedAt, *second.AcceptedAt)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, kindsAfterFirst, f.queue.kinds())
	assert.Equal(t, eventsAfterFirst, f.publisher.types())
	assert.Contains(t, kindsAfterFirst, notify.KindOfferAccepted)
	assert.Contains(t, kindsAfterFirst, notify.KindOfferStaffAccept)
}

func TestDeclineOffer_FromReceivedIsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.offers.SubmitOffer(ctx, helsingborgMalmo())
	require.NoError(t, err)

	_, err = f.offers.DeclineOffer(ctx, o.OfferNumber)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestCancelOffer_StampsDeclinedAt(t *testing.T) {
	f := newFixture(t)
	sent := f.answered(t)

	cancelled, err := f.offers.CancelOffer(context.Background(), sent.ID.String())
	require.NoError(t, err)

	assert.Equal(t, string(offer.StatusCancelled), cancelled.Status)
	assert.NotNil(t, cancelled.DeclinedAt)
	assert.False(t, cancelled.CanConvert)
}

func TestAcceptOffer_QueueFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sent := f.answered(t)
	f.queue.err = errQueueDown

	accepted, err := f.offers.AcceptOffer(ctx, sent.OfferNumber)
	require.NoError(t, err)
	assert.Equal(t, string(offer.StatusAccepted), accepted.Status)

	stored, err := f.offers.GetOffer(ctx, sent.OfferNumber)
	require.NoError(t, err)
	assert.Equal(t, string(offer.StatusAccepted), stored.Status)
}

func TestTransition_LostRaceIsStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sent := f.answered(t)

	a, err := f.store.Offers().FindByID(ctx, sent.ID)
	require.NoError(t, err)
	b, err := f.store.Offers().FindByID(ctx, sent.ID)
	require.NoError(t, err)

	_, err = f.offers.accept(ctx, a)
	require.NoError(t, err)

	noTasks := func(*offer.Offer) []notify.Task { return nil }
	_, err = f.offers.transition(ctx, b, b.Decline, events.OfferDeclined, noTasks)
	assert.ErrorIs(t, err, apperror.ErrStaleOfferState)

	stored, err := f.offers.GetOffer(ctx, sent.OfferNumber)
	require.NoError(t, err)
	assert.Equal(t, string(offer.StatusAccepted), stored.Status)
}

func TestGetOffer_Resolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.offers.SubmitOffer(ctx, helsingborgMalmo())
	require.NoError(t, err)

	byNumber, err := f.offers.GetOffer(ctx, " hb25001 ")
	require.NoError(t, err)
	assert.Equal(t, o.ID, byNumber.ID)

	byID, err := f.offers.GetOffer(ctx, o.ID.String())
	require.NoError(t, err)
	assert.Equal(t, o.OfferNumber, byID.OfferNumber)

	_, err = f.offers.GetOffer(ctx, "BK25001")
	assert.ErrorIs(t, err, apperror.ErrOfferNotFound)
}

func TestListOffers_FilterAcceptsLegacySpelling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sent := f.answered(t)
	_, err := f.offers.SubmitOffer(ctx, helsingborgMalmo())
	require.NoError(t, err)

	result, err := f.offers.ListOffers(ctx, "answered", 1, 20)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, sent.OfferNumber, result.Items[0].OfferNumber)
	assert.Equal(t, int64(1), result.Total)

	_, err = f.offers.ListOffers(ctx, "nonsense", 1, 20)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
