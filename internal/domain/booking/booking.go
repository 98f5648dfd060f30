package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

// Draft carries everything needed to create a booking.
type Draft struct {
	Outbound    trip.Leg
	Return      *trip.Leg
	Passengers  int
	Customer    trip.Customer
	Notes       string
	OfferID     *uuid.UUID
	OfferNumber string
	DepartureID *uuid.UUID
	Assignment  Assignment
}

// Assignment references the vehicle and driver resources. Both are opaque
// ids resolved to labels elsewhere.
type Assignment struct {
	VehicleID *string
	DriverID  *string
}

// IsZero returns true if nothing is assigned.
func (a Assignment) IsZero() bool {
	return a.VehicleID == nil && a.DriverID == nil
}

// Booking is the aggregate root for a confirmed trip reservation.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	outbound      trip.Leg
	returnLeg     *trip.Leg
	passengers    int
	customer      trip.Customer
	notes         string

	offerID     *uuid.UUID
	offerNumber string
	departureID *uuid.UUID
	vehicleID   *string
	driverID    *string

	status BookingStatus

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking validates a draft and creates a booking with status=created.
// The outbound leg must carry date, time, origin and destination.
func NewBooking(d Draft) (*Booking, error) {
	outbound := d.Outbound.Normalize()
	if missing := outbound.MissingRequired(); len(missing) > 0 {
		return nil, apperror.NewValidationError("missing required trip fields: " + strings.Join(missing, ", "))
	}
	if problems := outbound.FormatProblems(); len(problems) > 0 {
		return nil, apperror.NewValidationError("outbound " + strings.Join(problems, ", "))
	}

	var returnLeg *trip.Leg
	if d.Return != nil {
		r := d.Return.Normalize()
		if !r.IsZero() {
			if problems := r.FormatProblems(); len(problems) > 0 {
				return nil, apperror.NewValidationError("return " + strings.Join(problems, ", "))
			}
			returnLeg = &r
		}
	}

	passengers := d.Passengers
	if passengers < 0 {
		return nil, apperror.NewValidationError("passenger count cannot be negative")
	}

	now := time.Now().UTC()
	b := &Booking{
		id:          uuid.New(),
		outbound:    outbound,
		returnLeg:   returnLeg,
		passengers:  passengers,
		customer:    d.Customer.Normalize(),
		notes:       strings.TrimSpace(d.Notes),
		offerID:     d.OfferID,
		offerNumber: d.OfferNumber,
		departureID: d.DepartureID,
		status:      StatusCreated,
		version:     1,
		createdAt:   now,
		updatedAt:   now,
	}
	b.vehicleID, b.driverID = normalizeRef(d.Assignment.VehicleID), normalizeRef(d.Assignment.DriverID)
	return b, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	bookingNumber string,
	outbound trip.Leg,
	returnLeg *trip.Leg,
	passengers int,
	customer trip.Customer,
	notes string,
	offerID *uuid.UUID,
	offerNumber string,
	departureID *uuid.UUID,
	vehicleID *string,
	driverID *string,
	status BookingStatus,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:            id,
		bookingNumber: bookingNumber,
		outbound:      outbound,
		returnLeg:     returnLeg,
		passengers:    passengers,
		customer:      customer,
		notes:         notes,
		offerID:       offerID,
		offerNumber:   offerNumber,
		departureID:   departureID,
		vehicleID:     vehicleID,
		driverID:      driverID,
		status:        status,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// Outbound returns the outbound leg.
func (b *Booking) Outbound() trip.Leg { return b.outbound }

// Return returns the return leg, or nil for a one-way trip.
func (b *Booking) Return() *trip.Leg { return b.returnLeg }

// Passengers returns the passenger count.
func (b *Booking) Passengers() int { return b.passengers }

// Customer returns the contact details.
func (b *Booking) Customer() trip.Customer { return b.customer }

// Notes returns any additional notes for the booking.
func (b *Booking) Notes() string { return b.notes }

// OfferID returns the source offer id when the booking was converted.
func (b *Booking) OfferID() *uuid.UUID { return b.offerID }

// OfferNumber returns the source offer number when the booking was converted.
func (b *Booking) OfferNumber() string { return b.offerNumber }

// DepartureID returns the scheduled departure the seats were reserved on, if any.
func (b *Booking) DepartureID() *uuid.UUID { return b.departureID }

// VehicleID returns the assigned vehicle, or nil if unassigned.
func (b *Booking) VehicleID() *string { return b.vehicleID }

// DriverID returns the assigned driver, or nil if unassigned.
func (b *Booking) DriverID() *string { return b.driverID }

// Status returns the display status.
func (b *Booking) Status() BookingStatus { return b.status }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// AssignNumber sets the human identifier before the booking is first saved.
func (b *Booking) AssignNumber(number string) {
	b.bookingNumber = number
}

// Assign replaces the vehicle and driver assignment. A nil field leaves the
// current value in place; an empty string clears it.
func (b *Booking) Assign(a Assignment) error {
	if a.IsZero() {
		return apperror.NewValidationError("vehicle_id or driver_id is required")
	}
	if a.VehicleID != nil {
		b.vehicleID = normalizeRef(a.VehicleID)
	}
	if a.DriverID != nil {
		b.driverID = normalizeRef(a.DriverID)
	}
	b.status = StatusUpdated
	b.updatedAt = time.Now().UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}

func normalizeRef(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
