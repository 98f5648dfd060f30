package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/helsingbuss/service-booking/internal/domain/booking"
	"github.com/helsingbuss/service-booking/internal/domain/departure"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingNumber string          `gorm:"uniqueIndex:bookings_booking_number_key;not null;size:16"`
	Outbound      json.RawMessage `gorm:"type:jsonb;not null"`
	ReturnLeg     json.RawMessage `gorm:"type:jsonb"`
	Passengers    int             `gorm:"not null;default:0"`
	Customer      json.RawMessage `gorm:"type:jsonb;not null"`
	Notes         string          `gorm:"type:text"`
	OfferID       *uuid.UUID      `gorm:"type:uuid;index"`
	OfferNumber   string          `gorm:"size:16"`
	DepartureID   *uuid.UUID      `gorm:"type:uuid;index"`
	VehicleID     *string         `gorm:"size:64"`
	DriverID      *string         `gorm:"size:64"`
	Status        string          `gorm:"not null;size:16"`
	Version       int64           `gorm:"not null;default:1"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	base
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB, timeout time.Duration) *GormBookingRepository {
	return &GormBookingRepository{base: newBase(db, timeout)}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewBookingNotFoundError(id.String())
		}
		return nil, classify("find booking by id", err)
	}
	return toDomainBooking(&model)
}

// FindByNumber retrieves a booking by its booking number.
func (r *GormBookingRepository) FindByNumber(ctx context.Context, number string) (*bookingDomain.Booking, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var model BookingModel
	if err := r.db.WithContext(ctx).Where("booking_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewBookingNotFoundError(number)
		}
		return nil, classify("find booking by number", err)
	}
	return toDomainBooking(&model)
}

// ListByOffer returns the bookings converted from an offer, oldest first.
func (r *GormBookingRepository) ListByOffer(ctx context.Context, offerID uuid.UUID) ([]*bookingDomain.Booking, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, classify("list bookings by offer", err)
	}
	return toDomainBookings(models)
}

// ListAll retrieves all bookings with pagination.
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	limit = normalizeLimit(limit)

	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return nil, 0, classify("count bookings", err)
	}

	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset(page, limit)).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, classify("list bookings", err)
	}

	bookings, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// Count returns the number of stored bookings.
func (r *GormBookingRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return 0, classify("count bookings", err)
	}
	return total, nil
}

// RecentNumbers returns up to limit booking numbers with the prefix, highest first.
func (r *GormBookingRepository) RecentNumbers(ctx context.Context, prefix string, limit int) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var numbers []string
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("booking_number LIKE ?", prefix+"%").
		Order("booking_number DESC").
		Limit(limit).
		Pluck("booking_number", &numbers).Error; err != nil {
		return nil, classify("read recent booking numbers", err)
	}
	return numbers, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return duplicateOrClassify("save booking", bk.BookingNumber(), err)
	}
	return nil
}

// SaveWithReservation reserves seats and inserts the booking in one
// transaction. A full departure or a taken number rolls both back.
func (r *GormBookingRepository) SaveWithReservation(ctx context.Context, bk *bookingDomain.Booking, res bookingDomain.SeatReservation) (int, error) {
	if err := departure.ValidateReservation(res.Seats); err != nil {
		return 0, err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	model, err := toBookingModel(bk)
	if err != nil {
		return 0, fmt.Errorf("failed to convert booking to model: %w", err)
	}

	var left int
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := reserveSeats(tx, res.DepartureID, res.Seats)
		if err != nil {
			return err
		}
		if err := tx.Create(model).Error; err != nil {
			return duplicateOrClassify("save booking", bk.BookingNumber(), err)
		}
		left = n
		return nil
	})
	if err != nil {
		return 0, classify("save booking with reservation", err)
	}
	return left, nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	// IncrementVersion has already run, so the stored row is one behind.
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"vehicle_id": model.VehicleID,
			"driver_id":  model.DriverID,
			"status":     model.Status,
			"notes":      model.Notes,
			"version":    model.Version,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return classify("update booking", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NewConflictError("booking was modified by another transaction")
	}
	return nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	outbound, err := json.Marshal(bk.Outbound())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outbound leg: %w", err)
	}
	returnLeg, err := marshalOptional(bk.Return())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal return leg: %w", err)
	}
	customer, err := json.Marshal(bk.Customer())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal customer: %w", err)
	}

	return &BookingModel{
		ID:            bk.ID(),
		BookingNumber: bk.BookingNumber(),
		Outbound:      outbound,
		ReturnLeg:     returnLeg,
		Passengers:    bk.Passengers(),
		Customer:      customer,
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
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var outbound trip.Leg
	if err := json.Unmarshal(m.Outbound, &outbound); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outbound leg: %w", err)
	}

	var returnLeg *trip.Leg
	if len(m.ReturnLeg) > 0 && string(m.ReturnLeg) != "null" {
		returnLeg = &trip.Leg{}
		if err := json.Unmarshal(m.ReturnLeg, returnLeg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal return leg: %w", err)
		}
	}

	var customer trip.Customer
	if err := json.Unmarshal(m.Customer, &customer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal customer: %w", err)
	}

	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.BookingNumber,
		outbound,
		returnLeg,
		m.Passengers,
		customer,
		m.Notes,
		m.OfferID,
		m.OfferNumber,
		m.DepartureID,
		m.VehicleID,
		m.DriverID,
		status,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	out := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		out[i] = bk
	}
	return out, nil
}
