package offer

import (
	"context"

	"github.com/helsingbuss/service-booking/internal/platform/apperror"
)

// StatusWriteFunc attempts to store one spelling of a status.
type StatusWriteFunc func(ctx context.Context, value string) error

// WriteStatus stores target using the first spelling the store accepts.
//
// Some deployments constrain the status column to a subset of spellings, so
// a value rejected on validation grounds (reported by isRejection) moves on
// to the next candidate. Any other failure aborts at once. When every
// candidate is rejected the result is NoAcceptableStatusValue listing them.
func WriteStatus(ctx context.Context, target Status, write StatusWriteFunc, isRejection func(error) bool) (string, error) {
	candidates := target.Spellings()
	tried := make([]string, 0, len(candidates))
	var last error

	for _, value := range candidates {
		err := write(ctx, value)
		if err == nil {
			return value, nil
		}
		if !isRejection(err) {
			return "", err
		}
		tried = append(tried, value)
		last = err
	}

	return "", apperror.NewNoAcceptableStatusValueError(tried, last)
}
