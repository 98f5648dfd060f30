package events

import (
	"time"

	"github.com/google/uuid"
)

// Source is the CloudEvent source of everything this service publishes.
const Source = "service-booking"

// Topics.
const (
	TopicOfferEvents       = "offer.events"
	TopicBookingEvents     = "booking.events"
	TopicDepartureEvents   = "departure.events"
	TopicNotificationTasks = "notification.tasks"
)

// Event types.
const (
	OfferSubmitted       = "offer.submitted"
	OfferSent            = "offer.sent"
	OfferAccepted        = "offer.accepted"
	OfferDeclined        = "offer.declined"
	OfferCancelled       = "offer.cancelled"
	BookingCreated       = "booking.created"
	BookingUpdated       = "booking.updated"
	DepartureSeatsChange = "departure.seats_reserved"
	NotificationTask     = "notification.task"
)

// OfferEvent is published for every offer lifecycle change.
type OfferEvent struct {
	OfferID     uuid.UUID `json:"offer_id"`
	OfferNumber string    `json:"offer_number"`
	Status      string    `json:"status"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Date        string    `json:"date"`
	Passengers  int       `json:"passengers"`
	TotalCents  *int64    `json:"total_cents,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// BookingEvent is published when a booking is created or reassigned.
type BookingEvent struct {
	BookingID     uuid.UUID  `json:"booking_id"`
	BookingNumber string     `json:"booking_number"`
	OfferID       *uuid.UUID `json:"offer_id,omitempty"`
	OfferNumber   string     `json:"offer_number,omitempty"`
	DepartureID   *uuid.UUID `json:"departure_id,omitempty"`
	VehicleID     *string    `json:"vehicle_id,omitempty"`
	DriverID      *string    `json:"driver_id,omitempty"`
	Passengers    int        `json:"passengers"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// SeatsReservedEvent is published after a successful seat reservation.
type SeatsReservedEvent struct {
	DepartureID uuid.UUID `json:"departure_id"`
	Seats       int       `json:"seats"`
	SeatsLeft   int       `json:"seats_left"`
	OccurredAt  time.Time `json:"occurred_at"`
}
