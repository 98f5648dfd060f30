package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helsingbuss/service-booking/internal/domain/offer"
)

type failingCounts struct {
	offer.OfferRepository
}

func (failingCounts) CountByStatus(context.Context) (map[offer.Status]int64, error) {
	return nil, errors.New("connection reset")
}

func TestDashboard_Overview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sent := f.answered(t)
	_, err := f.bookings.ConvertOffer(ctx, sent.OfferNumber, ConvertOfferRequest{})
	require.NoError(t, err)
	_, err = f.offers.SubmitOffer(ctx, helsingborgMalmo())
	require.NoError(t, err)
	f.departure(t, 50)

	dash := f.dashboard.Overview(ctx)

	assert.Empty(t, dash.Warnings)
	assert.Equal(t, int64(2), dash.OffersTotal)
	assert.Equal(t, int64(1), dash.OffersByStatus[string(offer.StatusAccepted)])
	assert.Equal(t, int64(1), dash.OffersByStatus[string(offer.StatusReceived)])
	assert.Equal(t, int64(0), dash.OffersByStatus[string(offer.StatusDeclined)])
	assert.Equal(t, int64(1), dash.BookingsTotal)
	assert.Len(t, dash.UpcomingDepartures, 1)
}

func TestDashboard_PartialResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sent := f.answered(t)
	_, err := f.bookings.ConvertOffer(ctx, sent.OfferNumber, ConvertOfferRequest{})
	require.NoError(t, err)

	dashboard := NewDashboardService(failingCounts{f.store.Offers()}, f.store.Bookings(), f.store.Departures(), zap.NewNop())
	dash := dashboard.Overview(ctx)

	assert.Equal(t, []string{"offers unavailable"}, dash.Warnings)
	assert.Zero(t, dash.OffersTotal)
	assert.Empty(t, dash.OffersByStatus)
	assert.Equal(t, int64(1), dash.BookingsTotal)
}
