package departure

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

// AdminStatus is the label staff set on a departure. It is independent of
// the seat counters.
type AdminStatus string

const (
	AdminStatusOpen      AdminStatus = "open"
	AdminStatusFew       AdminStatus = "few"
	AdminStatusSoldOut   AdminStatus = "sold_out"
	AdminStatusCancelled AdminStatus = "cancelled"
)

// IsValid returns true if the label is recognized.
func (s AdminStatus) IsValid() bool {
	switch s {
	case AdminStatusOpen, AdminStatusFew, AdminStatusSoldOut, AdminStatusCancelled:
		return true
	}
	return false
}

// ParseAdminStatus converts a string to an AdminStatus.
func ParseAdminStatus(s string) (AdminStatus, error) {
	status := AdminStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", apperror.NewValidationError(fmt.Sprintf("invalid departure status: %s", s))
	}
	return status, nil
}

// Schedule describes when and how a departure runs.
type Schedule struct {
	Date      string
	Time      string
	LineLabel string
	Stops     []string
}

// Departure is one scheduled run of a trip with finite seat capacity.
type Departure struct {
	id            uuid.UUID
	tripID        uuid.UUID
	date          string
	time          string
	lineLabel     string
	stops         []string
	seatsTotal    int
	seatsReserved int
	status        AdminStatus
	version       int64
	createdAt     time.Time
	updatedAt     time.Time
}

// NewDeparture creates an open departure with no seats reserved.
func NewDeparture(tripID uuid.UUID, s Schedule, seatsTotal int) (*Departure, error) {
	if tripID == uuid.Nil {
		return nil, apperror.NewValidationError("trip ID is required")
	}
	date := strings.TrimSpace(s.Date)
	if date == "" {
		return nil, apperror.NewValidationError("departure date is required")
	}
	if !trip.ValidDate(date) {
		return nil, apperror.NewValidationError("date must be YYYY-MM-DD")
	}
	clock := strings.TrimSpace(s.Time)
	if clock != "" && !trip.ValidTime(clock) {
		return nil, apperror.NewValidationError("time must be HH:MM")
	}
	if seatsTotal < 0 {
		return nil, apperror.NewValidationError("seats_total cannot be negative")
	}

	var stops []string
	for _, stop := range s.Stops {
		if stop = strings.TrimSpace(stop); stop != "" {
			stops = append(stops, stop)
		}
	}

	now := time.Now().UTC()
	return &Departure{
		id:         uuid.New(),
		tripID:     tripID,
		date:       date,
		time:       clock,
		lineLabel:  strings.TrimSpace(s.LineLabel),
		stops:      stops,
		seatsTotal: seatsTotal,
		status:     AdminStatusOpen,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// Reconstruct rebuilds a Departure from persistence data (no validation).
func Reconstruct(
	id, tripID uuid.UUID,
	date, clock, lineLabel string,
	stops []string,
	seatsTotal, seatsReserved int,
	status AdminStatus,
	version int64,
	createdAt, updatedAt time.Time,
) *Departure {
	return &Departure{
		id:            id,
		tripID:        tripID,
		date:          date,
		time:          clock,
		lineLabel:     lineLabel,
		stops:         stops,
		seatsTotal:    seatsTotal,
		seatsReserved: seatsReserved,
		status:        status,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// ID returns the departure's unique identifier.
func (d *Departure) ID() uuid.UUID { return d.id }

// TripID returns the trip this departure runs.
func (d *Departure) TripID() uuid.UUID { return d.tripID }

// Date returns the departure date as YYYY-MM-DD.
func (d *Departure) Date() string { return d.date }

// Time returns the departure time as HH:MM, or empty.
func (d *Departure) Time() string { return d.time }

// LineLabel returns the line name shown to passengers.
func (d *Departure) LineLabel() string { return d.lineLabel }

// Stops returns the intermediate stops in order.
func (d *Departure) Stops() []string { return d.stops }

// SeatsTotal returns the seat capacity.
func (d *Departure) SeatsTotal() int { return d.seatsTotal }

// SeatsReserved returns the seats already taken.
func (d *Departure) SeatsReserved() int { return d.seatsReserved }

// Status returns the administrative label.
func (d *Departure) Status() AdminStatus { return d.status }

// Version returns the optimistic locking version.
func (d *Departure) Version() int64 { return d.version }

// CreatedAt returns the creation time.
func (d *Departure) CreatedAt() time.Time { return d.createdAt }

// UpdatedAt returns the last modification time.
func (d *Departure) UpdatedAt() time.Time { return d.updatedAt }

// SeatsLeft is max(seats_total - seats_reserved, 0).
func (d *Departure) SeatsLeft() int {
	return SeatsLeft(d.seatsTotal, d.seatsReserved)
}

// SoldOut treats a departure as sold out when staff say so or when no seats
// are left, whichever label is set.
func (d *Departure) SoldOut() bool {
	return d.status == AdminStatusSoldOut || d.status == AdminStatusCancelled || d.SeatsLeft() <= 0
}

// Reserve takes count seats. It is the in-memory form of the store's
// conditional update and must not be used in place of it.
func (d *Departure) Reserve(count int) (int, error) {
	if err := ValidateReservation(count); err != nil {
		return 0, err
	}
	if d.seatsReserved+count > d.seatsTotal {
		return 0, apperror.NewCapacityExceededError(count, d.SeatsLeft())
	}
	d.seatsReserved += count
	d.updatedAt = time.Now().UTC()
	return d.SeatsLeft(), nil
}

// SetTotal changes the capacity. It never drops below the reserved count.
func (d *Departure) SetTotal(newTotal int) error {
	if err := ValidateTotal(newTotal, d.seatsReserved); err != nil {
		return err
	}
	d.seatsTotal = newTotal
	d.updatedAt = time.Now().UTC()
	return nil
}

// SetStatus replaces the administrative label.
func (d *Departure) SetStatus(status AdminStatus) error {
	if !status.IsValid() {
		return apperror.NewValidationError(fmt.Sprintf("invalid departure status: %s", status))
	}
	d.status = status
	d.updatedAt = time.Now().UTC()
	return nil
}

// CanDelete returns DepartureInUse while any seat is reserved.
func (d *Departure) CanDelete() error {
	if d.seatsReserved != 0 {
		return apperror.NewDepartureInUseError(d.seatsReserved)
	}
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (d *Departure) IncrementVersion() {
	d.version++
	d.updatedAt = time.Now().UTC()
}

// SeatsLeft derives the remaining seats from the two counters.
func SeatsLeft(total, reserved int) int {
	if left := total - reserved; left > 0 {
		return left
	}
	return 0
}

// ValidateReservation rejects non-positive seat requests.
func ValidateReservation(count int) error {
	if count < 1 {
		return apperror.NewValidationError("seat count must be at least 1")
	}
	return nil
}

// ValidateTotal checks a capacity edit against the reserved count.
func ValidateTotal(newTotal, reserved int) error {
	if newTotal < 0 {
		return apperror.NewValidationError("seats_total cannot be negative")
	}
	if newTotal < reserved {
		return apperror.NewInvalidCapacityError(newTotal, reserved)
	}
	return nil
}
