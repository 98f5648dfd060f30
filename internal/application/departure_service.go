package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helsingbuss/service-booking/internal/cache"
	"github.com/helsingbuss/service-booking/internal/domain/departure"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/events"
)

// CreateDepartureRequest schedules one run of a trip.
type CreateDepartureRequest struct {
	TripID     uuid.UUID `json:"trip_id"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	LineLabel  string    `json:"line_label"`
	Stops      []string  `json:"stops"`
	SeatsTotal int       `json:"seats_total"`
}

// DepartureService manages scheduled departures and their seat ledger.
type DepartureService struct {
	repo      departure.DepartureRepository
	cache     AvailabilityCache
	publisher EventPublisher
	logger    *zap.Logger
}

// NewDepartureService creates a new DepartureService. availability may be nil.
func NewDepartureService(
	repo departure.DepartureRepository,
	availability AvailabilityCache,
	publisher EventPublisher,
	logger *zap.Logger,
) *DepartureService {
	return &DepartureService{
		repo:      repo,
		cache:     availability,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateDeparture schedules a departure with no seats reserved.
func (s *DepartureService) CreateDeparture(ctx context.Context, req CreateDepartureRequest) (*DepartureDTO, error) {
	d, err := departure.NewDeparture(req.TripID, departure.Schedule{
		Date:      req.Date,
		Time:      req.Time,
		LineLabel: req.LineLabel,
		Stops:     req.Stops,
	}, req.SeatsTotal)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to save departure: %w", err)
	}

	s.logger.Info("departure created",
		zap.String("departure_id", d.ID().String()),
		zap.String("date", d.Date()),
		zap.Int("seats_total", d.SeatsTotal()),
	)
	result := toDepartureDTO(d)
	return &result, nil
}

// GetDeparture retrieves a departure by id.
func (s *DepartureService) GetDeparture(ctx context.Context, id uuid.UUID) (*DepartureDTO, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toDepartureDTO(d)
	return &result, nil
}

// ListByTrip returns the departures of a trip in schedule order.
func (s *DepartureService) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]DepartureDTO, error) {
	list, err := s.repo.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list departures: %w", err)
	}
	return toDepartureDTOs(list), nil
}

// ListUpcoming returns departures from today on, soonest first.
func (s *DepartureService) ListUpcoming(ctx context.Context, limit int) ([]DepartureDTO, error) {
	list, err := s.repo.ListUpcoming(ctx, time.Now().UTC().Format(trip.DateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming departures: %w", err)
	}
	return toDepartureDTOs(list), nil
}

// Availability returns the seat view of a departure, served from the cache
// when a fresh snapshot exists.
func (s *DepartureService) Availability(ctx context.Context, id uuid.UUID) (*AvailabilityDTO, error) {
	if s.cache != nil {
		if snap, ok := s.cache.Get(ctx, id); ok {
			return &AvailabilityDTO{
				DepartureID: snap.DepartureID,
				SeatsTotal:  snap.SeatsTotal,
				SeatsLeft:   snap.SeatsLeft,
				Status:      snap.Status,
				SoldOut:     snap.SoldOut,
			}, nil
		}
	}

	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, cache.Snapshot{
			DepartureID:   d.ID(),
			SeatsTotal:    d.SeatsTotal(),
			SeatsReserved: d.SeatsReserved(),
			SeatsLeft:     d.SeatsLeft(),
			Status:        string(d.Status()),
			SoldOut:       d.SoldOut(),
		})
	}
	return &AvailabilityDTO{
		DepartureID: d.ID(),
		SeatsTotal:  d.SeatsTotal(),
		SeatsLeft:   d.SeatsLeft(),
		Status:      string(d.Status()),
		SoldOut:     d.SoldOut(),
	}, nil
}

// ReserveSeats takes count seats in one conditional store write. It fails
// with CapacityExceeded, leaving the departure untouched, when fewer than
// count seats are left.
func (s *DepartureService) ReserveSeats(ctx context.Context, id uuid.UUID, count int) (*ReservationDTO, error) {
	if err := departure.ValidateReservation(count); err != nil {
		return nil, err
	}

	left, err := s.repo.ReserveSeats(ctx, id, count)
	if err != nil {
		return nil, err
	}

	s.seatsReserved(ctx, id, count, left)
	return &ReservationDTO{DepartureID: id, Seats: count, SeatsLeft: left}, nil
}

// SetTotal changes the capacity of a departure. It fails with
// InvalidCapacity when newTotal is below the seats already reserved.
func (s *DepartureService) SetTotal(ctx context.Context, id uuid.UUID, newTotal int) (*DepartureDTO, error) {
	if newTotal < 0 {
		return nil, departure.ValidateTotal(newTotal, 0)
	}
	if err := s.repo.SetTotal(ctx, id, newTotal); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	s.logger.Info("departure capacity changed",
		zap.String("departure_id", id.String()),
		zap.Int("seats_total", newTotal),
	)
	return s.GetDeparture(ctx, id)
}

// SetStatus replaces the administrative label of a departure.
func (s *DepartureService) SetStatus(ctx context.Context, id uuid.UUID, raw string) (*DepartureDTO, error) {
	status, err := departure.ParseAdminStatus(raw)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.GetDeparture(ctx, id)
}

// DeleteDeparture removes a departure that has no seats reserved.
func (s *DepartureService) DeleteDeparture(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.logger.Info("departure deleted", zap.String("departure_id", id.String()))
	return nil
}

// --- Helpers ---

func (s *DepartureService) seatsReserved(ctx context.Context, id uuid.UUID, seats, left int) {
	s.invalidate(ctx, id)
	s.logger.Info("seats reserved",
		zap.String("departure_id", id.String()),
		zap.Int("seats", seats),
		zap.Int("seats_left", left),
	)
	publishEvent(ctx, s.publisher, s.logger, events.TopicDepartureEvents, events.DepartureSeatsChange, id.String(), events.SeatsReservedEvent{
		DepartureID: id,
		Seats:       seats,
		SeatsLeft:   left,
		OccurredAt:  time.Now().UTC(),
	})
}

func (s *DepartureService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}

func toDepartureDTOs(list []*departure.Departure) []DepartureDTO {
	dtos := make([]DepartureDTO, len(list))
	for i, d := range list {
		dtos[i] = toDepartureDTO(d)
	}
	return dtos
}
