package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helsingbuss/service-booking/internal/domain/departure"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

// DepartureModel is the GORM model for the departures table.
type DepartureModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TripID        uuid.UUID       `gorm:"type:uuid;index;not null"`
	DepartDate    string          `gorm:"column:depart_date;not null;size:10;index"`
	DepartTime    string          `gorm:"column:depart_time;size:5"`
	LineLabel     string          `gorm:"size:120"`
	Stops         json.RawMessage `gorm:"type:jsonb"`
	SeatsTotal    int             `gorm:"not null"`
	SeatsReserved int             `gorm:"not null;default:0"`
	Status        string          `gorm:"not null;size:16"`
	Version       int64           `gorm:"not null;default:1"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (DepartureModel) TableName() string {
	return "departures"
}

// reserveSQL takes seats only while the sum stays within capacity. The
// check and the increment are one statement so concurrent callers cannot
// both pass the check.
const reserveSQL = `UPDATE departures
SET seats_reserved = seats_reserved + ?, version = version + 1, updated_at = ?
WHERE id = ? AND seats_reserved + ? <= seats_total
RETURNING seats_total - seats_reserved`

// GormDepartureRepository is the GORM-based implementation of DepartureRepository.
type GormDepartureRepository struct {
	base
}

// NewGormDepartureRepository creates a new GormDepartureRepository.
func NewGormDepartureRepository(db *gorm.DB, timeout time.Duration) *GormDepartureRepository {
	return &GormDepartureRepository{base: newBase(db, timeout)}
}

// FindByID retrieves a departure by id.
func (r *GormDepartureRepository) FindByID(ctx context.Context, id uuid.UUID) (*departure.Departure, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	model, err := findDeparture(r.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return toDomainDeparture(model)
}

// ListByTrip returns the departures of a trip in schedule order.
func (r *GormDepartureRepository) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]*departure.Departure, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var models []DepartureModel
	if err := r.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("depart_date ASC, depart_time ASC").
		Find(&models).Error; err != nil {
		return nil, classify("list departures by trip", err)
	}
	return toDomainDepartures(models)
}

// ListUpcoming returns departures dated on or after fromDate, soonest first.
func (r *GormDepartureRepository) ListUpcoming(ctx context.Context, fromDate string, limit int) ([]*departure.Departure, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var models []DepartureModel
	if err := r.db.WithContext(ctx).
		Where("depart_date >= ?", fromDate).
		Order("depart_date ASC, depart_time ASC").
		Limit(normalizeLimit(limit)).
		Find(&models).Error; err != nil {
		return nil, classify("list upcoming departures", err)
	}
	return toDomainDepartures(models)
}

// Save persists a new departure.
func (r *GormDepartureRepository) Save(ctx context.Context, d *departure.Departure) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	model, err := toDepartureModel(d)
	if err != nil {
		return fmt.Errorf("failed to convert departure to model: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return apperror.NewConflictError("departure already exists")
		}
		return classify("save departure", err)
	}
	return nil
}

// ReserveSeats atomically takes count seats and returns the seats left.
func (r *GormDepartureRepository) ReserveSeats(ctx context.Context, id uuid.UUID, count int) (int, error) {
	if err := departure.ValidateReservation(count); err != nil {
		return 0, err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return reserveSeats(r.db.WithContext(ctx), id, count)
}

// SetTotal changes the capacity unless it would fall below seats_reserved.
func (r *GormDepartureRepository) SetTotal(ctx context.Context, id uuid.UUID, newTotal int) error {
	if newTotal < 0 {
		return apperror.NewValidationError("seats_total cannot be negative")
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	db := r.db.WithContext(ctx)

	result := db.Model(&DepartureModel{}).
		Where("id = ? AND seats_reserved <= ?", id, newTotal).
		Updates(map[string]interface{}{
			"seats_total": newTotal,
			"version":     gorm.Expr("version + 1"),
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return classify("set departure capacity", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	model, err := findDeparture(db, id)
	if err != nil {
		return err
	}
	return apperror.NewInvalidCapacityError(newTotal, model.SeatsReserved)
}

// UpdateStatus replaces the administrative label.
func (r *GormDepartureRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status departure.AdminStatus) error {
	if !status.IsValid() {
		return apperror.NewValidationError(fmt.Sprintf("invalid departure status: %s", status))
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result := r.db.WithContext(ctx).Model(&DepartureModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return classify("update departure status", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NewDepartureNotFoundError(id.String())
	}
	return nil
}

// Delete removes the departure only while no seats are reserved.
func (r *GormDepartureRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	db := r.db.WithContext(ctx)

	result := db.Where("id = ? AND seats_reserved = 0", id).Delete(&DepartureModel{})
	if result.Error != nil {
		return classify("delete departure", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	model, err := findDeparture(db, id)
	if err != nil {
		return err
	}
	return apperror.NewDepartureInUseError(model.SeatsReserved)
}

// reserveSeats runs the conditional increment on db, which may be a
// transaction. When no row matches it tells a missing departure apart from
// a full one.
func reserveSeats(db *gorm.DB, id uuid.UUID, count int) (int, error) {
	var left int
	err := db.Raw(reserveSQL, count, time.Now().UTC(), id, count).Row().Scan(&left)
	if err == nil {
		return left, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, classify("reserve seats", err)
	}

	model, err := findDeparture(db, id)
	if err != nil {
		return 0, err
	}
	return 0, apperror.NewCapacityExceededError(count, departure.SeatsLeft(model.SeatsTotal, model.SeatsReserved))
}

func findDeparture(db *gorm.DB, id uuid.UUID) (*DepartureModel, error) {
	var model DepartureModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewDepartureNotFoundError(id.String())
		}
		return nil, classify("find departure", err)
	}
	return &model, nil
}

// --- Conversion Helpers ---

func toDomainDeparture(m *DepartureModel) (*departure.Departure, error) {
	var stops []string
	if len(m.Stops) > 0 && string(m.Stops) != "null" {
		if err := json.Unmarshal(m.Stops, &stops); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stops: %w", err)
		}
	}
	return departure.Reconstruct(
		m.ID, m.TripID, m.DepartDate, m.DepartTime, m.LineLabel, stops,
		m.SeatsTotal, m.SeatsReserved, departure.AdminStatus(m.Status),
		m.Version, m.CreatedAt, m.UpdatedAt,
	), nil
}

func toDomainDepartures(models []DepartureModel) ([]*departure.Departure, error) {
	out := make([]*departure.Departure, len(models))
	for i := range models {
		d, err := toDomainDeparture(&models[i])
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func toDepartureModel(d *departure.Departure) (*DepartureModel, error) {
	var stops json.RawMessage
	if len(d.Stops()) > 0 {
		raw, err := json.Marshal(d.Stops())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stops: %w", err)
		}
		stops = raw
	}
	return &DepartureModel{
		ID:            d.ID(),
		TripID:        d.TripID(),
		DepartDate:    d.Date(),
		DepartTime:    d.Time(),
		LineLabel:     d.LineLabel(),
		Stops:         stops,
		SeatsTotal:    d.SeatsTotal(),
		SeatsReserved: d.SeatsReserved(),
		Status:        string(d.Status()),
		Version:       d.Version(),
		CreatedAt:     d.CreatedAt(),
		UpdatedAt:     d.UpdatedAt(),
	}, nil
}
