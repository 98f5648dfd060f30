package offer

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows an offer listing.
type ListFilter struct {
	Status *Status
}

// OfferRepository defines the persistence contract for offers.
type OfferRepository interface {
	// FindByID retrieves an offer by its store id.
	FindByID(ctx context.Context, id uuid.UUID) (*Offer, error)

	// FindByNumber retrieves an offer by its human identifier.
	FindByNumber(ctx context.Context, number string) (*Offer, error)

	// List returns offers newest first with pagination.
	List(ctx context.Context, filter ListFilter, page, limit int) ([]*Offer, int64, error)

	// CountByStatus returns offer counts grouped by canonical status.
	CountByStatus(ctx context.Context) (map[Status]int64, error)

	// RecentNumbers returns up to limit offer numbers with the prefix, highest first.
	RecentNumbers(ctx context.Context, prefix string, limit int) ([]string, error)

	// Save persists a new offer. A taken offer number yields ErrDuplicateIdentifier.
	Save(ctx context.Context, o *Offer) error

	// Update persists a transition. The write only applies while the stored
	// offer is still in state from at the previous version; otherwise
	// ErrStaleOfferState is returned.
	Update(ctx context.Context, o *Offer, from Status) error

	// NormalizeLegacyStatuses rewrites stored legacy spellings to canonical values.
	NormalizeLegacyStatuses(ctx context.Context) (int64, error)
}
