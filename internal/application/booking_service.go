package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/helsingbuss/service-booking/internal/domain/booking"
	"github.com/helsingbuss/service-booking/internal/domain/departure"
	"github.com/helsingbuss/service-booking/internal/domain/identifier"
	"github.com/helsingbuss/service-booking/internal/domain/offer"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/events"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

// CreateBookingRequest holds the data needed to book a trip directly. When
// DepartureID is set, seats are reserved on that departure in the same write.
type CreateBookingRequest struct {
	Outbound    trip.Leg      `json:"outbound"`
	Return      *trip.Leg     `json:"return"`
	Passengers  int           `json:"passengers"`
	Customer    trip.Customer `json:"customer"`
	Notes       string        `json:"notes"`
	DepartureID *uuid.UUID    `json:"departure_id"`
	Seats       int           `json:"seats"`
	VehicleID   *string       `json:"vehicle_id"`
	DriverID    *string       `json:"driver_id"`
}

// ConvertOfferRequest optionally assigns resources to the new booking.
type ConvertOfferRequest struct {
	VehicleID *string `json:"vehicle_id"`
	DriverID  *string `json:"driver_id"`
}

// AssignBookingRequest replaces the vehicle and/or driver on a booking.
type AssignBookingRequest struct {
	VehicleID *string `json:"vehicle_id"`
	DriverID  *string `json:"driver_id"`
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	repo       bookingDomain.BookingRepository
	offers     *OfferService
	departures *DepartureService
	numbers    *identifier.Generator
	publisher  EventPublisher
	queue      NotificationQueue
	logger     *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	offers *OfferService,
	departures *DepartureService,
	numbers *identifier.Generator,
	publisher EventPublisher,
	queue NotificationQueue,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:       repo,
		offers:     offers,
		departures: departures,
		numbers:    numbers,
		publisher:  publisher,
		queue:      queue,
		logger:     logger,
	}
}

// CreateBooking books a trip directly. Date, time, origin and destination
// of the outbound leg are required.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingDTO, error) {
	bk, err := bookingDomain.NewBooking(bookingDomain.Draft{
		Outbound:    req.Outbound,
		Return:      req.Return,
		Passengers:  req.Passengers,
		Customer:    req.Customer,
		Notes:       req.Notes,
		DepartureID: req.DepartureID,
		Assignment:  bookingDomain.Assignment{VehicleID: req.VehicleID, DriverID: req.DriverID},
	})
	if err != nil {
		return nil, err
	}
	if !bk.Customer().Reachable() {
		return nil, apperror.NewValidationError("email or phone is required")
	}

	if req.DepartureID == nil {
		if err := s.save(ctx, bk); err != nil {
			return nil, err
		}
		s.afterCreate(ctx, bk)
		result := toBookingDTO(bk)
		return &result, nil
	}

	seats := req.Seats
	if seats == 0 {
		seats = req.Passengers
	}
	if err := departure.ValidateReservation(seats); err != nil {
		return nil, err
	}

	reservation := bookingDomain.SeatReservation{DepartureID: *req.DepartureID, Seats: seats}
	var left int
	_, err = s.numbers.Allocate(ctx, func(ctx context.Context, number string) error {
		bk.AssignNumber(number)
		var saveErr error
		left, saveErr = s.repo.SaveWithReservation(ctx, bk, reservation)
		return saveErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	if s.departures != nil {
		s.departures.seatsReserved(ctx, reservation.DepartureID, seats, left)
	}
	s.afterCreate(ctx, bk)

	result := toBookingDTO(bk)
	result.SeatsLeft = &left
	return &result, nil
}

// ConvertOffer creates a booking from an offer referenced by id or offer
// number. The trip, contact and notes are copied over and the booking keeps
// a reference to the offer. Marking the offer accepted and mailing the
// customer are best effort and never fail the conversion.
//
// Converting the same offer again creates another booking; callers that
// want to avoid that check ListByOffer first.
func (s *BookingService) ConvertOffer(ctx context.Context, ref string, req ConvertOfferRequest) (*BookingDTO, error) {
	o, err := s.offers.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	offerID := o.ID()
	bk, err := bookingDomain.NewBooking(bookingDomain.Draft{
		Outbound:    o.Outbound(),
		Return:      o.Return(),
		Passengers:  o.Passengers(),
		Customer:    o.Customer(),
		Notes:       o.Notes(),
		OfferID:     &offerID,
		OfferNumber: o.OfferNumber(),
		Assignment:  bookingDomain.Assignment{VehicleID: req.VehicleID, DriverID: req.DriverID},
	})
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, bk); err != nil {
		return nil, err
	}

	s.logger.Info("offer converted to booking",
		zap.String("offer_number", o.OfferNumber()),
		zap.String("booking_number", bk.BookingNumber()),
	)

	if o.Status() != offer.StatusAccepted {
		if _, err := s.offers.accept(ctx, o); err != nil {
			s.logger.Warn("could not mark converted offer accepted",
				zap.String("offer_number", o.OfferNumber()),
				zap.String("status", string(o.Status())),
				zap.Error(err),
			)
		}
	}
	s.afterCreate(ctx, bk)

	result := toBookingDTO(bk)
	return &result, nil
}

// AssignBooking sets the vehicle and/or driver on a booking.
func (s *BookingService) AssignBooking(ctx context.Context, ref string, req AssignBookingRequest) (*BookingDTO, error) {
	bk, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := bk.Assign(bookingDomain.Assignment{VehicleID: req.VehicleID, DriverID: req.DriverID}); err != nil {
		return nil, err
	}
	bk.IncrementVersion()

	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	s.publishBookingEvent(ctx, bk, events.BookingUpdated)
	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking retrieves a booking by id or booking number.
func (s *BookingService) GetBooking(ctx context.Context, ref string) (*BookingDTO, error) {
	bk, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// ListBookings returns a paginated list of all bookings.
func (s *BookingService) ListBookings(ctx context.Context, page, limit int) (*PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	result := NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// ListByOffer returns the bookings created from an offer.
func (s *BookingService) ListByOffer(ctx context.Context, offerRef string) ([]BookingDTO, error) {
	o, err := s.offers.resolve(ctx, offerRef)
	if err != nil {
		return nil, err
	}

	bookings, err := s.repo.ListByOffer(ctx, o.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings for offer: %w", err)
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos, nil
}

// --- Helpers ---

func (s *BookingService) save(ctx context.Context, bk *bookingDomain.Booking) error {
	_, err := s.numbers.Allocate(ctx, func(ctx context.Context, number string) error {
		bk.AssignNumber(number)
		return s.repo.Save(ctx, bk)
	})
	if err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

func (s *BookingService) afterCreate(ctx context.Context, bk *bookingDomain.Booking) {
	s.publishBookingEvent(ctx, bk, events.BookingCreated)
	enqueueTask(ctx, s.queue, s.logger, bookingConfirmedTask(bk))
}

func (s *BookingService) resolve(ctx context.Context, ref string) (*bookingDomain.Booking, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.FindByID(ctx, id)
	}
	if number := strings.ToUpper(ref); identifier.IsKind(identifier.KindBooking, number) {
		return s.repo.FindByNumber(ctx, number)
	}
	return nil, apperror.NewBookingNotFoundError(ref)
}

func (s *BookingService) publishBookingEvent(ctx context.Context, bk *bookingDomain.Booking, eventType string) {
	evt := events.BookingEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		OfferID:       bk.OfferID(),
		OfferNumber:   bk.OfferNumber(),
		DepartureID:   bk.DepartureID(),
		VehicleID:     bk.VehicleID(),
		DriverID:      bk.DriverID(),
		Passengers:    bk.Passengers(),
		OccurredAt:    time.Now().UTC(),
	}
	publishEvent(ctx, s.publisher, s.logger, events.TopicBookingEvents, eventType, bk.ID().String(), evt)
}
