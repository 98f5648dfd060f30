package departure

import (
	"context"

	"github.com/google/uuid"
)

// DepartureRepository defines persistence operations for departures. The seat
// mutations are conditional writes evaluated by the store itself.
type DepartureRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Departure, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]*Departure, error)
	// ListUpcoming returns departures dated on or after fromDate, soonest first.
	ListUpcoming(ctx context.Context, fromDate string, limit int) ([]*Departure, error)
	Save(ctx context.Context, d *Departure) error

	// ReserveSeats atomically checks seats_reserved+count <= seats_total and
	// increments. It returns the seats left, or CapacityExceeded without
	// mutating anything.
	ReserveSeats(ctx context.Context, id uuid.UUID, count int) (int, error)

	// SetTotal updates seats_total unless it would drop below seats_reserved,
	// in which case InvalidCapacity is returned.
	SetTotal(ctx context.Context, id uuid.UUID, newTotal int) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status AdminStatus) error

	// Delete removes the departure only while seats_reserved is zero.
	Delete(ctx context.Context, id uuid.UUID) error
}
