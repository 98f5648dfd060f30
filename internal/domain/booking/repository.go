package booking

import (
	"context"

	"github.com/google/uuid"
)

// SeatReservation asks the store to take seats on a departure in the same
// transaction that inserts the booking.
type SeatReservation struct {
	DepartureID uuid.UUID
	Seats       int
}

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByNumber retrieves a booking by its human-readable booking number.
	FindByNumber(ctx context.Context, number string) (*Booking, error)

	// ListByOffer returns every booking converted from the given offer, oldest first.
	ListByOffer(ctx context.Context, offerID uuid.UUID) ([]*Booking, error)

	// ListAll retrieves all bookings newest first with pagination.
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// Count returns the number of stored bookings.
	Count(ctx context.Context) (int64, error)

	// RecentNumbers returns up to limit booking numbers with the prefix, highest first.
	RecentNumbers(ctx context.Context, prefix string, limit int) ([]string, error)

	// Save persists a new booking. A taken booking number yields ErrDuplicateIdentifier.
	Save(ctx context.Context, booking *Booking) error

	// SaveWithReservation reserves seats and inserts the booking atomically.
	// Either both happen or neither does. It returns the seats left afterwards.
	SaveWithReservation(ctx context.Context, booking *Booking, r SeatReservation) (int, error)

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}
