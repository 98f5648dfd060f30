// Package memory is an in-process store implementing every repository
// contract. One mutex guards all tables, so each method is atomic with
// respect to every other, including the seat ledger.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	bookingDomain "github.com/helsingbuss/service-booking/internal/domain/booking"
	"github.com/helsingbuss/service-booking/internal/domain/departure"
	"github.com/helsingbuss/service-booking/internal/domain/offer"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
)

// Store holds offers, bookings and departures.
type Store struct {
	mu         sync.Mutex
	offers     map[uuid.UUID]*offer.Offer
	bookings   map[uuid.UUID]*bookingDomain.Booking
	departures map[uuid.UUID]*departure.Departure
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		offers:     make(map[uuid.UUID]*offer.Offer),
		bookings:   make(map[uuid.UUID]*bookingDomain.Booking),
		departures: make(map[uuid.UUID]*departure.Departure),
	}
}

// Offers returns the offer repository view.
func (s *Store) Offers() *OfferRepository { return &OfferRepository{s: s} }

// Bookings returns the booking repository view.
func (s *Store) Bookings() *BookingRepository { return &BookingRepository{s: s} }

// Departures returns the departure repository view.
func (s *Store) Departures() *DepartureRepository { return &DepartureRepository{s: s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func recentNumbers(numbers []string, prefix string, limit int) []string {
	var out []string
	for _, n := range numbers {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func paginate(total, page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}

func cloneLeg(l trip.Leg) trip.Leg {
	if l.Stops != nil {
		l.Stops = append([]string(nil), l.Stops...)
	}
	return l
}

func cloneLegPtr(l *trip.Leg) *trip.Leg {
	if l == nil {
		return nil
	}
	c := cloneLeg(*l)
	return &c
}

func cloneOffer(o *offer.Offer) *offer.Offer {
	var price *trip.PriceBreakdown
	if p := o.Price(); p != nil {
		cp := *p
		price = &cp
	}
	return offer.ReconstructOffer(
		o.ID(), o.OfferNumber(), cloneLeg(o.Outbound()), cloneLegPtr(o.Return()),
		o.Passengers(), o.Customer(), o.Notes(), price, o.Status(),
		o.SentAt(), o.AcceptedAt(), o.DeclinedAt(),
		o.Version(), o.CreatedAt(), o.UpdatedAt(),
	)
}

func cloneBooking(b *bookingDomain.Booking) *bookingDomain.Booking {
	return bookingDomain.ReconstructBooking(
		b.ID(), b.BookingNumber(), cloneLeg(b.Outbound()), cloneLegPtr(b.Return()),
		b.Passengers(), b.Customer(), b.Notes(),
		b.OfferID(), b.OfferNumber(), b.DepartureID(), b.VehicleID(), b.DriverID(),
		b.Status(), b.Version(), b.CreatedAt(), b.UpdatedAt(),
	)
}

func cloneDeparture(d *departure.Departure) *departure.Departure {
	return departure.Reconstruct(
		d.ID(), d.TripID(), d.Date(), d.Time(), d.LineLabel(),
		append([]string(nil), d.Stops()...),
		d.SeatsTotal(), d.SeatsReserved(), d.Status(),
		d.Version(), d.CreatedAt(), d.UpdatedAt(),
	)
}
