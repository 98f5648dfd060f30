package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/helsingbuss/service-booking/internal/domain/offer"
	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

// OfferRepository implements offer.OfferRepository.
type OfferRepository struct {
	s *Store
}

func (r *OfferRepository) FindByID(_ context.Context, id uuid.UUID) (*offer.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.offers[id]
	if !ok {
		return nil, apperror.NewOfferNotFoundError(id.String())
	}
	return cloneOffer(o), nil
}

func (r *OfferRepository) FindByNumber(_ context.Context, number string) (*offer.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.offers {
		if o.OfferNumber() == number {
			return cloneOffer(o), nil
		}
	}
	return nil, apperror.NewOfferNotFoundError(number)
}

func (r *OfferRepository) List(_ context.Context, filter offer.ListFilter, page, limit int) ([]*offer.Offer, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*offer.Offer
	for _, o := range r.s.offers {
		if filter.Status != nil && o.Status() != *filter.Status {
			continue
		}
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt().Equal(matched[j].CreatedAt()) {
			return matched[i].OfferNumber() > matched[j].OfferNumber()
		}
		return matched[i].CreatedAt().After(matched[j].CreatedAt())
	})

	start, end := paginate(len(matched), page, limit)
	out := make([]*offer.Offer, 0, end-start)
	for _, o := range matched[start:end] {
		out = append(out, cloneOffer(o))
	}
	return out, int64(len(matched)), nil
}

func (r *OfferRepository) CountByStatus(_ context.Context) (map[offer.Status]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[offer.Status]int64)
	for _, o := range r.s.offers {
		counts[o.Status()]++
	}
	return counts, nil
}

func (r *OfferRepository) RecentNumbers(_ context.Context, prefix string, limit int) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	numbers := make([]string, 0, len(r.s.offers))
	for _, o := range r.s.offers {
		numbers = append(numbers, o.OfferNumber())
	}
	return recentNumbers(numbers, prefix, limit), nil
}

func (r *OfferRepository) Save(_ context.Context, o *offer.Offer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.offers {
		if existing.OfferNumber() == o.OfferNumber() {
			return apperror.NewDuplicateIdentifierError(o.OfferNumber(), nil)
		}
	}
	if _, ok := r.s.offers[o.ID()]; ok {
		return apperror.NewConflictError("offer already exists")
	}
	r.s.offers[o.ID()] = cloneOffer(o)
	return nil
}

// Update applies the write only if the stored offer is still in from at the
// version preceding o's.
func (r *OfferRepository) Update(_ context.Context, o *offer.Offer, from offer.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.offers[o.ID()]
	if !ok {
		return apperror.NewOfferNotFoundError(o.ID().String())
	}
	if stored.Status() != from || stored.Version() != o.Version()-1 {
		return apperror.NewStaleOfferStateError(o.OfferNumber(), string(from))
	}
	r.s.offers[o.ID()] = cloneOffer(o)
	return nil
}

// NormalizeLegacyStatuses is a no-op: statuses are held in canonical form.
func (r *OfferRepository) NormalizeLegacyStatuses(context.Context) (int64, error) {
	return 0, nil
}
