package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helsingbuss/service-booking/internal/domain/offer"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

// OfferModel is the GORM model for the offers table.
type OfferModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OfferNumber string          `gorm:"uniqueIndex:offers_offer_number_key;not null;size:16"`
	Outbound    json.RawMessage `gorm:"type:jsonb;not null"`
	ReturnLeg   json.RawMessage `gorm:"type:jsonb"`
	Passengers  int             `gorm:"not null;default:0"`
	Customer    json.RawMessage `gorm:"type:jsonb;not null"`
	Notes       string          `gorm:"type:text"`
	Price       json.RawMessage `gorm:"type:jsonb"`
	Status      string          `gorm:"not null;size:32;index"`
	SentAt      *time.Time      `gorm:""`
	AcceptedAt  *time.Time      `gorm:""`
	DeclinedAt  *time.Time      `gorm:""`
	Version     int64           `gorm:"not null"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (OfferModel) TableName() string {
	return "offers"
}

var errNoRowMatched = errors.New("no row matched")

// GormOfferRepository is the GORM-based implementation of OfferRepository.
type GormOfferRepository struct {
	base
	legacyFallback bool
}

// NewGormOfferRepository creates a new GormOfferRepository. With
// legacyFallback set, a status write that the column rejects is retried with
// the historical spellings of the same status.
func NewGormOfferRepository(db *gorm.DB, timeout time.Duration, legacyFallback bool) *GormOfferRepository {
	return &GormOfferRepository{base: newBase(db, timeout), legacyFallback: legacyFallback}
}

// FindByID retrieves an offer by its store id.
func (r *GormOfferRepository) FindByID(ctx context.Context, id uuid.UUID) (*offer.Offer, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var model OfferModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewOfferNotFoundError(id.String())
		}
		return nil, classify("find offer by id", err)
	}
	return toDomainOffer(&model)
}

// FindByNumber retrieves an offer by its offer number.
func (r *GormOfferRepository) FindByNumber(ctx context.Context, number string) (*offer.Offer, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var model OfferModel
	if err := r.db.WithContext(ctx).Where("offer_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewOfferNotFoundError(number)
		}
		return nil, classify("find offer by number", err)
	}
	return toDomainOffer(&model)
}

// List returns offers newest first. A status filter matches every spelling
// of that status.
func (r *GormOfferRepository) List(ctx context.Context, filter offer.ListFilter, page, limit int) ([]*offer.Offer, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	limit = normalizeLimit(limit)

	query := r.db.WithContext(ctx).Model(&OfferModel{})
	if filter.Status != nil {
		query = query.Where("status IN ?", filter.Status.Spellings())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, classify("count offers", err)
	}

	var models []OfferModel
	if err := query.
		Order("created_at DESC").
		Offset(offset(page, limit)).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, classify("list offers", err)
	}

	offers := make([]*offer.Offer, len(models))
	for i := range models {
		o, err := toDomainOffer(&models[i])
		if err != nil {
			return nil, 0, err
		}
		offers[i] = o
	}
	return offers, total, nil
}

// CountByStatus returns offer counts keyed by canonical status. Legacy
// spellings are folded into their canonical status.
func (r *GormOfferRepository) CountByStatus(ctx context.Context) (map[offer.Status]int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&OfferModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, classify("count offers by status", err)
	}

	counts := make(map[offer.Status]int64)
	for _, sc := range results {
		if st, ok := offer.NormalizeStatus(sc.Status); ok {
			counts[st] += sc.Count
		}
	}
	return counts, nil
}

// RecentNumbers returns up to limit offer numbers with the prefix, highest first.
func (r *GormOfferRepository) RecentNumbers(ctx context.Context, prefix string, limit int) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var numbers []string
	if err := r.db.WithContext(ctx).Model(&OfferModel{}).
		Where("offer_number LIKE ?", prefix+"%").
		Order("offer_number DESC").
		Limit(limit).
		Pluck("offer_number", &numbers).Error; err != nil {
		return nil, classify("read recent offer numbers", err)
	}
	return numbers, nil
}

// Save persists a new offer.
func (r *GormOfferRepository) Save(ctx context.Context, o *offer.Offer) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	model, err := toOfferModel(o)
	if err != nil {
		return fmt.Errorf("failed to convert offer to model: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return duplicateOrClassify("save offer", o.OfferNumber(), err)
	}
	return nil
}

// Update writes a transition. The row must still hold a spelling of from at
// the version preceding o's; otherwise another writer got there first.
func (r *GormOfferRepository) Update(ctx context.Context, o *offer.Offer, from offer.Status) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	model, err := toOfferModel(o)
	if err != nil {
		return fmt.Errorf("failed to convert offer to model: %w", err)
	}

	write := func(ctx context.Context, status string) error {
		result := r.db.WithContext(ctx).
			Model(&OfferModel{}).
			Where("id = ? AND version = ? AND status IN ?", model.ID, o.Version()-1, from.Spellings()).
			Updates(map[string]interface{}{
				"status":      status,
				"price":       model.Price,
				"sent_at":     model.SentAt,
				"accepted_at": model.AcceptedAt,
				"declined_at": model.DeclinedAt,
				"version":     model.Version,
				"updated_at":  model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNoRowMatched
		}
		return nil
	}

	if r.legacyFallback {
		_, err = offer.WriteStatus(ctx, o.Status(), write, isValueRejection)
	} else {
		err = write(ctx, string(o.Status()))
	}

	if errors.Is(err, errNoRowMatched) {
		return r.staleOrMissing(ctx, o, from)
	}
	return classify("update offer", err)
}

// NormalizeLegacyStatuses rewrites every historical spelling to its
// canonical value and returns the number of rows changed.
func (r *GormOfferRepository) NormalizeLegacyStatuses(ctx context.Context) (int64, error) {
	var changed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, st := range offer.AllStatuses() {
			legacy := st.Spellings()[1:]
			if len(legacy) == 0 {
				continue
			}
			result := tx.Model(&OfferModel{}).
				Where("status IN ?", legacy).
				Update("status", string(st))
			if result.Error != nil {
				return result.Error
			}
			changed += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, classify("normalize offer statuses", err)
	}
	return changed, nil
}

func (r *GormOfferRepository) staleOrMissing(ctx context.Context, o *offer.Offer, from offer.Status) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&OfferModel{}).Where("id = ?", o.ID()).Count(&n).Error; err != nil {
		return classify("check offer", err)
	}
	if n == 0 {
		return apperror.NewOfferNotFoundError(o.ID().String())
	}
	return apperror.NewStaleOfferStateError(o.OfferNumber(), string(from))
}

// --- Conversion Helpers ---

func toDomainOffer(m *OfferModel) (*offer.Offer, error) {
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

	var price *trip.PriceBreakdown
	if len(m.Price) > 0 && string(m.Price) != "null" {
		price = &trip.PriceBreakdown{}
		if err := json.Unmarshal(m.Price, price); err != nil {
			return nil, fmt.Errorf("failed to unmarshal price: %w", err)
		}
	}

	status, err := offer.ParseStatus(m.Status)
	if err != nil {
		return nil, fmt.Errorf("offer %s: %w", m.OfferNumber, err)
	}

	return offer.ReconstructOffer(
		m.ID, m.OfferNumber, outbound, returnLeg, m.Passengers, customer, m.Notes, price, status,
		m.SentAt, m.AcceptedAt, m.DeclinedAt, m.Version, m.CreatedAt, m.UpdatedAt,
	), nil
}

func toOfferModel(o *offer.Offer) (*OfferModel, error) {
	outbound, err := json.Marshal(o.Outbound())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outbound leg: %w", err)
	}
	returnLeg, err := marshalOptional(o.Return())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal return leg: %w", err)
	}
	customer, err := json.Marshal(o.Customer())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal customer: %w", err)
	}
	price, err := marshalOptional(o.Price())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal price: %w", err)
	}

	return &OfferModel{
		ID:          o.ID(),
		OfferNumber: o.OfferNumber(),
		Outbound:    outbound,
		ReturnLeg:   returnLeg,
		Passengers:  o.Passengers(),
		Customer:    customer,
		Notes:       o.Notes(),
		Price:       price,
		Status:      string(o.Status()),
		SentAt:      o.SentAt(),
		AcceptedAt:  o.AcceptedAt(),
		DeclinedAt:  o.DeclinedAt(),
		Version:     o.Version(),
		CreatedAt:   o.CreatedAt(),
		UpdatedAt:   o.UpdatedAt(),
	}, nil
}

// marshalOptional returns nil for a nil pointer so the column stays NULL.
func marshalOptional[T any](v *T) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
