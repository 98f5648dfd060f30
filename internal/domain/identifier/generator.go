package identifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

// NumberSource lists identifiers already in the store.
type NumberSource interface {
	// RecentNumbers returns up to limit stored identifiers starting with
	// prefix, highest first.
	RecentNumbers(ctx context.Context, prefix string, limit int) ([]string, error)
}

// PersistFunc stores a new record under number. It must return an error
// matching apperror.ErrDuplicateIdentifier when the number is already taken.
type PersistFunc func(ctx context.Context, number string) error

// Generator hands out sequential identifiers for one kind.
type Generator struct {
	kind        Kind
	source      NumberSource
	window      int
	floor       int
	maxAttempts int
	now         func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithWindow sets how many recent identifiers are scanned for the maximum.
func WithWindow(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.window = n
		}
	}
}

// WithFloor sets the sequence value a fresh year counts up from.
func WithFloor(n int) Option {
	return func(g *Generator) {
		if n >= 0 && n < MaxSequence {
			g.floor = n
		}
	}
}

// WithMaxAttempts bounds the retries after a uniqueness conflict.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a generator for kind reading existing numbers from source.
func NewGenerator(kind Kind, source NumberSource, opts ...Option) *Generator {
	g := &Generator{
		kind:        kind,
		source:      source,
		window:      200,
		floor:       0,
		maxAttempts: 3,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Kind returns the sequence this generator allocates from.
func (g *Generator) Kind() Kind { return g.kind }

// Next computes the next free identifier from the store's current maximum.
// A failed store read fails closed: no identifier is produced.
func (g *Generator) Next(ctx context.Context) (string, error) {
	prefix := YearPrefix(g.kind, g.now())

	numbers, err := g.source.RecentNumbers(ctx, prefix, g.window)
	if err != nil {
		if errors.Is(err, apperror.ErrStoreUnavailable) {
			return "", err
		}
		return "", apperror.NewStoreUnavailableError("identifier lookup", err)
	}

	highest := g.floor
	for _, n := range numbers {
		if seq, ok := ParseSequence(prefix, n); ok && seq > highest {
			highest = seq
		}
	}

	if highest >= MaxSequence {
		full := apperror.NewIdentifierGenerationExhaustedError(prefix, 0)
		full.Message = "sequence " + prefix + " is full"
		return "", full
	}
	return Format(prefix, highest+1)
}

// Allocate picks the next identifier and persists the record under it. A
// uniqueness conflict means another writer took the same number; the maximum
// is re-read and the write retried.
func (g *Generator) Allocate(ctx context.Context, persist PersistFunc) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		number, err := g.Next(ctx)
		if err != nil {
			return "", err
		}

		err = persist(ctx, number)
		if err == nil {
			return number, nil
		}
		if !errors.Is(err, apperror.ErrDuplicateIdentifier) {
			return "", err
		}
		lastErr = err
	}

	exhausted := apperror.NewIdentifierGenerationExhaustedError(YearPrefix(g.kind, g.now()), g.maxAttempts)
	exhausted.Err = lastErr
	return "", fmt.Errorf("allocate %s number: %w", g.kind, exhausted)
}
