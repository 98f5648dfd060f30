package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

// PostgreSQL error codes the repositories react to.
const (
	pgUniqueViolation   = "23505"
	pgCheckViolation    = "23514"
	pgInvalidText       = "22P02"
	pgStringTooLong     = "22001"
	pgNotNullViolation  = "23502"
	defaultStoreTimeout = 5 * time.Second
)

// base carries the connection and the per-call timeout shared by every
// repository.
type base struct {
	db      *gorm.DB
	timeout time.Duration
}

func newBase(db *gorm.DB, timeout time.Duration) base {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return base{db: db, timeout: timeout}
}

func (b base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}

// Ping checks the connection.
func (b base) Ping(ctx context.Context) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

// isValueRejection reports whether the store refused a value on its own
// merits: a check constraint, an enum/domain cast, a length limit or a
// not-null rule. Anything else says nothing about the value.
func isValueRejection(err error) bool {
	switch pgCode(err) {
	case pgCheckViolation, pgInvalidText, pgStringTooLong, pgNotNullViolation:
		return true
	}
	return false
}

// classify turns a driver error into the error taxonomy. Errors already
// classified pass through, server-side errors keep their text and anything
// on the transport level becomes StoreUnavailable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.NewStoreUnavailableError(op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return apperror.NewStoreUnavailableError(op, err)
}

// duplicateOrClassify maps a unique violation on a number column to
// ErrDuplicateIdentifier.
func duplicateOrClassify(op, number string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, "number") {
		return apperror.NewDuplicateIdentifierError(number, err)
	}
	if isUniqueViolation(err) {
		return apperror.NewConflictError(op + ": record already exists")
	}
	return classify(op, err)
}

func offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

func normalizeLimit(limit int) int {
	if limit < 1 {
		return 20
	}
	return limit
}
