package application

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	bookingDomain "github.com/helsingbuss/service-booking/internal/domain/booking"
	"github.com/helsingbuss/service-booking/internal/domain/departure"
	"github.com/helsingbuss/service-booking/internal/domain/offer"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
)

// DashboardDTO is the staff overview. Sections whose query failed are left
// empty and named in Warnings.
type DashboardDTO struct {
	OffersByStatus     map[string]int64 `json:"offers_by_status"`
	OffersTotal        int64            `json:"offers_total"`
	BookingsTotal      int64            `json:"bookings_total"`
	UpcomingDepartures []DepartureDTO   `json:"upcoming_departures"`
	Warnings           []string         `json:"warnings,omitempty"`
}

// DashboardService assembles the admin overview.
type DashboardService struct {
	offers     offer.OfferRepository
	bookings   bookingDomain.BookingRepository
	departures departure.DepartureRepository
	upcoming   int
	logger     *zap.Logger
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(
	offers offer.OfferRepository,
	bookings bookingDomain.BookingRepository,
	departures departure.DepartureRepository,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		offers:     offers,
		bookings:   bookings,
		departures: departures,
		upcoming:   10,
		logger:     logger,
	}
}

// Overview runs every aggregate independently. It never fails as a whole.
func (s *DashboardService) Overview(ctx context.Context) *DashboardDTO {
	result := &DashboardDTO{
		OffersByStatus:     make(map[string]int64),
		UpcomingDepartures: []DepartureDTO{},
	}

	var mu sync.Mutex
	warn := func(section string, err error) {
		s.logger.Warn("dashboard section unavailable", zap.String("section", section), zap.Error(err))
		mu.Lock()
		result.Warnings = append(result.Warnings, section+" unavailable")
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		counts, err := s.offers.CountByStatus(ctx)
		if err != nil {
			warn("offers", err)
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		for _, st := range offer.AllStatuses() {
			result.OffersByStatus[string(st)] = counts[st]
			result.OffersTotal += counts[st]
		}
		return nil
	})
	g.Go(func() error {
		total, err := s.bookings.Count(ctx)
		if err != nil {
			warn("bookings", err)
			return nil
		}
		mu.Lock()
		result.BookingsTotal = total
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		list, err := s.departures.ListUpcoming(ctx, time.Now().UTC().Format(trip.DateLayout), s.upcoming)
		if err != nil {
			warn("departures", err)
			return nil
		}
		mu.Lock()
		result.UpcomingDepartures = toDepartureDTOs(list)
		mu.Unlock()
		return nil
	})
	_ = g.Wait()

	return result
}
