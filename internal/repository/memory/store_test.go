package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingDomain "github.com/helsingbuss/service-booking/internal/domain/booking"
	"github.com/helsingbuss/service-booking/internal/domain/departure"
	"github.com/helsingbuss/service-booking/internal/domain/offer"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

func seedDeparture(t *testing.T, s *Store, total, reserved int) *departure.Departure {
	t.Helper()
	d, err := departure.NewDeparture(uuid.New(), departure.Schedule{Date: "2025-06-01", Time: "08:00"}, total)
	require.NoError(t, err)
	if reserved > 0 {
		_, err = d.Reserve(reserved)
		require.NoError(t, err)
	}
	require.NoError(t, s.Departures().Save(context.Background(), d))
	return d
}

func newBooking(t *testing.T, number string) *bookingDomain.Booking {
	t.Helper()
	b, err := bookingDomain.NewBooking(bookingDomain.Draft{
		Outbound:   trip.Leg{Origin: "Helsingborg", Destination: "Malmö", Date: "2025-06-01", Time: "08:00"},
		Passengers: 2,
		Customer:   trip.Customer{Email: "a@example.se"},
	})
	require.NoError(t, err)
	b.AssignNumber(number)
	return b
}

func TestReserveSeats_ConcurrentNeverOversells(t *testing.T) {
	s := NewStore()
	d := seedDeparture(t, s, 10, 3) // K = 7
	repo := s.Departures()

	const n = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		exceeded  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ReserveSeats(context.Background(), d.ID(), 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperror.ErrCapacityExceeded):
				exceeded++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 7, successes)
	assert.Equal(t, n-7, exceeded)

	got, err := repo.FindByID(context.Background(), d.ID())
	require.NoError(t, err)
	assert.Equal(t, 10, got.SeatsReserved())
	assert.Equal(t, 0, got.SeatsLeft())
}

func TestReserveSeats_Errors(t *testing.T) {
	s := NewStore()
	d := seedDeparture(t, s, 4, 0)
	repo := s.Departures()

	_, err := repo.ReserveSeats(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, apperror.ErrDepartureNotFound)

	_, err = repo.ReserveSeats(context.Background(), d.ID(), 0)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = repo.ReserveSeats(context.Background(), d.ID(), 5)
	assert.ErrorIs(t, err, apperror.ErrCapacityExceeded)

	left, err := repo.ReserveSeats(context.Background(), d.ID(), 4)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

func TestSetTotal_BelowReservedLeavesTotal(t *testing.T) {
	s := NewStore()
	d := seedDeparture(t, s, 40, 40)
	repo := s.Departures()

	err := repo.SetTotal(context.Background(), d.ID(), 30)
	assert.ErrorIs(t, err, apperror.ErrInvalidCapacity)

	got, err := repo.FindByID(context.Background(), d.ID())
	require.NoError(t, err)
	assert.Equal(t, 40, got.SeatsTotal())
}

func TestDelete_OnlyWhenNoSeatsReserved(t *testing.T) {
	s := NewStore()
	busy := seedDeparture(t, s, 10, 1)
	idle := seedDeparture(t, s, 10, 0)
	repo := s.Departures()

	assert.ErrorIs(t, repo.Delete(context.Background(), busy.ID()), apperror.ErrDepartureInUse)
	require.NoError(t, repo.Delete(context.Background(), idle.ID()))
	_, err := repo.FindByID(context.Background(), idle.ID())
	assert.ErrorIs(t, err, apperror.ErrDepartureNotFound)
}

func TestSaveWithReservation_AllOrNothing(t *testing.T) {
	s := NewStore()
	d := seedDeparture(t, s, 3, 0)
	bookings := s.Bookings()

	left, err := bookings.SaveWithReservation(context.Background(), newBooking(t, "BK25001"), bookingDomain.SeatReservation{DepartureID: d.ID(), Seats: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, left)

	// duplicate number: no seats taken
	_, err = bookings.SaveWithReservation(context.Background(), newBooking(t, "BK25001"), bookingDomain.SeatReservation{DepartureID: d.ID(), Seats: 1})
	assert.ErrorIs(t, err, apperror.ErrDuplicateIdentifier)

	// over capacity: no booking stored
	_, err = bookings.SaveWithReservation(context.Background(), newBooking(t, "BK25002"), bookingDomain.SeatReservation{DepartureID: d.ID(), Seats: 2})
	assert.ErrorIs(t, err, apperror.ErrCapacityExceeded)

	count, err := bookings.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := s.Departures().FindByID(context.Background(), d.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, got.SeatsReserved())
}

func TestOfferUpdate_StaleState(t *testing.T) {
	s := NewStore()
	repo := s.Offers()
	ctx := context.Background()

	o, err := offer.NewOffer(offer.Draft{
		Outbound: trip.Leg{Origin: "Helsingborg", Destination: "Lund", Date: "2025-06-01", Time: "10:15"},
		Customer: trip.Customer{Phone: "042-123456"},
	})
	require.NoError(t, err)
	o.AssignNumber("HB25001")
	require.NoError(t, repo.Save(ctx, o))

	first, err := repo.FindByNumber(ctx, "HB25001")
	require.NoError(t, err)
	second, err := repo.FindByNumber(ctx, "HB25001")
	require.NoError(t, err)

	_, err = first.Send(trip.PriceBreakdown{TotalCents: 100})
	require.NoError(t, err)
	first.IncrementVersion()
	require.NoError(t, repo.Update(ctx, first, offer.StatusReceived))

	_, err = second.Send(trip.PriceBreakdown{TotalCents: 200})
	require.NoError(t, err)
	second.IncrementVersion()
	assert.ErrorIs(t, repo.Update(ctx, second, offer.StatusReceived), apperror.ErrStaleOfferState)

	stored, err := repo.FindByID(ctx, o.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(100), stored.Price().TotalCents)
}

func TestRecentNumbers_HighestFirst(t *testing.T) {
	s := NewStore()
	for _, n := range []string{"BK25003", "BK24999", "BK25010", "BK25001"} {
		require.NoError(t, s.Bookings().Save(context.Background(), newBooking(t, n)))
	}

	got, err := s.Bookings().RecentNumbers(context.Background(), "BK25", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"BK25010", "BK25003"}, got)
}
