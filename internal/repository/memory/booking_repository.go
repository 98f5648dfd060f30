package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	bookingDomain "github.com/helsingbuss/service-booking/internal/domain/booking"
	"github.com/helsingbuss/service-booking/internal/domain/departure"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

// BookingRepository implements booking.BookingRepository.
type BookingRepository struct {
	s *Store
}

func (r *BookingRepository) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, apperror.NewBookingNotFoundError(id.String())
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) FindByNumber(_ context.Context, number string) (*bookingDomain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.BookingNumber() == number {
			return cloneBooking(b), nil
		}
	}
	return nil, apperror.NewBookingNotFoundError(number)
}

func (r *BookingRepository) ListByOffer(_ context.Context, offerID uuid.UUID) ([]*bookingDomain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, b := range r.s.bookings {
		if b.OfferID() != nil && *b.OfferID() == offerID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingNumber() < out[j].BookingNumber() })
	return out, nil
}

func (r *BookingRepository) ListAll(_ context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]*bookingDomain.Booking, 0, len(r.s.bookings))
	for _, b := range r.s.bookings {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].BookingNumber() > all[j].BookingNumber() })

	start, end := paginate(len(all), page, limit)
	out := make([]*bookingDomain.Booking, 0, end-start)
	for _, b := range all[start:end] {
		out = append(out, cloneBooking(b))
	}
	return out, int64(len(all)), nil
}

func (r *BookingRepository) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.bookings)), nil
}

func (r *BookingRepository) RecentNumbers(_ context.Context, prefix string, limit int) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	numbers := make([]string, 0, len(r.s.bookings))
	for _, b := range r.s.bookings {
		numbers = append(numbers, b.BookingNumber())
	}
	return recentNumbers(numbers, prefix, limit), nil
}

func (r *BookingRepository) Save(_ context.Context, b *bookingDomain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkInsertLocked(b); err != nil {
		return err
	}
	r.s.bookings[b.ID()] = cloneBooking(b)
	return nil
}

// SaveWithReservation checks capacity and number uniqueness before changing
// anything, so a failure leaves both tables untouched.
func (r *BookingRepository) SaveWithReservation(_ context.Context, b *bookingDomain.Booking, res bookingDomain.SeatReservation) (int, error) {
	if err := departure.ValidateReservation(res.Seats); err != nil {
		return 0, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.departures[res.DepartureID]
	if !ok {
		return 0, apperror.NewDepartureNotFoundError(res.DepartureID.String())
	}
	if err := r.checkInsertLocked(b); err != nil {
		return 0, err
	}

	updated := cloneDeparture(d)
	left, err := updated.Reserve(res.Seats)
	if err != nil {
		return 0, err
	}
	r.s.departures[res.DepartureID] = updated
	r.s.bookings[b.ID()] = cloneBooking(b)
	return left, nil
}

func (r *BookingRepository) Update(_ context.Context, b *bookingDomain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.bookings[b.ID()]
	if !ok {
		return apperror.NewBookingNotFoundError(b.ID().String())
	}
	if stored.Version() != b.Version()-1 {
		return apperror.NewConflictError("booking was modified concurrently")
	}
	r.s.bookings[b.ID()] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) checkInsertLocked(b *bookingDomain.Booking) error {
	for _, existing := range r.s.bookings {
		if existing.BookingNumber() == b.BookingNumber() {
			return apperror.NewDuplicateIdentifierError(b.BookingNumber(), nil)
		}
	}
	if _, ok := r.s.bookings[b.ID()]; ok {
		return apperror.NewConflictError("booking already exists")
	}
	return nil
}
