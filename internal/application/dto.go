package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/helsingbuss/service-booking/internal/domain/booking"
	"github.com/helsingbuss/service-booking/internal/domain/departure"
	"github.com/helsingbuss/service-booking/internal/domain/offer"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
)

// PaginatedResult is one page of a listing.
type PaginatedResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// NewPaginatedResult builds a page, normalizing nil items to an empty list.
func NewPaginatedResult[T any](items []T, total int64, page, limit int) PaginatedResult[T] {
	if items == nil {
		items = []T{}
	}
	return PaginatedResult[T]{Items: items, Total: total, Page: page, Limit: limit}
}

// OfferDTO is the response representation of an offer.
type OfferDTO struct {
	ID          uuid.UUID            `json:"id"`
	OfferNumber string               `json:"offer_number"`
	Outbound    trip.Leg             `json:"outbound"`
	Return      *trip.Leg            `json:"return,omitempty"`
	Passengers  int                  `json:"passengers"`
	Customer    trip.Customer        `json:"customer"`
	Notes       string               `json:"notes,omitempty"`
	Price       *trip.PriceBreakdown `json:"price,omitempty"`
	Status      string               `json:"status"`
	SentAt      *time.Time           `json:"sent_at,omitempty"`
	AcceptedAt  *time.Time           `json:"accepted_at,omitempty"`
	DeclinedAt  *time.Time           `json:"declined_at,omitempty"`
	CanConvert  bool                 `json:"can_convert"`
	Version     int64                `json:"version"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID            uuid.UUID     `json:"id"`
	BookingNumber string        `json:"booking_number"`
	Outbound      trip.Leg      `json:"outbound"`
	Return        *trip.Leg     `json:"return,omitempty"`
	Passengers    int           `json:"passengers"`
	Customer      trip.Customer `json:"customer"`
	Notes         string        `json:"notes,omitempty"`
	OfferID       *uuid.UUID    `json:"offer_id,omitempty"`
	OfferNumber   string        `json:"offer_number,omitempty"`
	DepartureID   *uuid.UUID    `json:"departure_id,omitempty"`
	VehicleID     *string       `json:"vehicle_id,omitempty"`
	DriverID      *string       `json:"driver_id,omitempty"`
	Status        string        `json:"status"`
	SeatsLeft     *int          `json:"seats_left,omitempty"`
	Version       int64         `json:"version"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// DepartureDTO is the response representation of a departure.
type DepartureDTO struct {
	ID            uuid.UUID `json:"id"`
	TripID        uuid.UUID `json:"trip_id"`
	Date          string    `json:"date"`
	Time          string    `json:"time,omitempty"`
	LineLabel     string    `json:"line_label,omitempty"`
	Stops         []string  `json:"stops"`
	SeatsTotal    int       `json:"seats_total"`
	SeatsReserved int       `json:"seats_reserved"`
	SeatsLeft     int       `json:"seats_left"`
	Status        string    `json:"status"`
	SoldOut       bool      `json:"sold_out"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AvailabilityDTO is the public seat view of a departure.
type AvailabilityDTO struct {
	DepartureID uuid.UUID `json:"departure_id"`
	SeatsTotal  int       `json:"seats_total"`
	SeatsLeft   int       `json:"seats_left"`
	Status      string    `json:"status"`
	SoldOut     bool      `json:"sold_out"`
}

// ReservationDTO is the result of a seat reservation.
type ReservationDTO struct {
	DepartureID uuid.UUID `json:"departure_id"`
	Seats       int       `json:"seats"`
	SeatsLeft   int       `json:"seats_left"`
}

func toOfferDTO(o *offer.Offer) OfferDTO {
	return OfferDTO{
		ID:          o.ID(),
		OfferNumber: o.OfferNumber(),
		Outbound:    o.Outbound(),
		Return:      o.Return(),
		Passengers:  o.Passengers(),
		Customer:    o.Customer(),
		Notes:       o.Notes(),
		Price:       o.Price(),
		Status:      string(o.Status()),
		SentAt:      o.SentAt(),
		AcceptedAt:  o.AcceptedAt(),
		DeclinedAt:  o.DeclinedAt(),
		CanConvert:  o.Status() == offer.StatusAccepted,
		Version:     o.Version(),
		CreatedAt:   o.CreatedAt(),
		UpdatedAt:   o.UpdatedAt(),
	}
}

func toBookingDTO(bk *booking.Booking) BookingDTO {
	return BookingDTO{
		ID:            bk.ID(),
		BookingNumber: bk.BookingNumber(),
		Outbound:      bk.Outbound(),
		Return:        bk.Return(),
		Passengers:    bk.Passengers(),
		Customer:      bk.Customer(),
		Notes:         bk.Notes(),
		OfferID:       bk.OfferID(),
		OfferNumber:   bk.OfferNumber(),
		DepartureID:   bk.DepartureID(),
		VehicleID:     bk.VehicleID(),
		DriverID:      bk.DriverID(),
		Status:        string(bk.Status()),
		Version:       bk.Version(),
		CreatedAt:     bk.CreatedAt(),
		UpdatedAt:     bk.UpdatedAt(),
	}
}

func toDepartureDTO(d *departure.Departure) DepartureDTO {
	stops := d.Stops()
	if stops == nil {
		stops = []string{}
	}
	return DepartureDTO{
		ID:            d.ID(),
		TripID:        d.TripID(),
		Date:          d.Date(),
		Time:          d.Time(),
		LineLabel:     d.LineLabel(),
		Stops:         stops,
		SeatsTotal:    d.SeatsTotal(),
		SeatsReserved: d.SeatsReserved(),
		SeatsLeft:     d.SeatsLeft(),
		Status:        string(d.Status()),
		SoldOut:       d.SoldOut(),
		Version:       d.Version(),
		CreatedAt:     d.CreatedAt(),
		UpdatedAt:     d.UpdatedAt(),
	}
}
