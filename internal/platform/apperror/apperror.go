// Package apperror defines the error taxonomy shared by the domain, application
// and transport layers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. They are stable and appear in API responses.
const (
	CodeValidation                    = "VALIDATION_ERROR"
	CodeNotFound                      = "NOT_FOUND"
	CodeOfferNotFound                 = "OFFER_NOT_FOUND"
	CodeBookingNotFound               = "BOOKING_NOT_FOUND"
	CodeDepartureNotFound             = "DEPARTURE_NOT_FOUND"
	CodeCapacityExceeded              = "CAPACITY_EXCEEDED"
	CodeInvalidCapacity               = "INVALID_CAPACITY"
	CodeDepartureInUse                = "DEPARTURE_IN_USE"
	CodeInvalidTransition             = "INVALID_TRANSITION"
	CodeStaleOfferState               = "STALE_OFFER_STATE"
	CodeConflict                      = "CONFLICT"
	CodeNoAcceptableStatusValue       = "NO_ACCEPTABLE_STATUS_VALUE"
	CodeDuplicateIdentifier           = "DUPLICATE_IDENTIFIER"
	CodeIdentifierGenerationExhausted = "IDENTIFIER_GENERATION_EXHAUSTED"
	CodeStoreUnavailable              = "STORE_UNAVAILABLE"
)

// AppError is an error with a machine readable code and an HTTP status.
type AppError struct {
	Code    string
	Message string
	Status  int
	Details map[string]interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is reports whether target is an AppError carrying the same code, so the
// package sentinels work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Retryable reports whether the caller may retry the operation with backoff.
func (e *AppError) Retryable() bool {
	return e.Code == CodeStoreUnavailable || e.Code == CodeIdentifierGenerationExhausted
}

// Sentinels for errors.Is checks.
var (
	ErrValidation                    = &AppError{Code: CodeValidation}
	ErrNotFound                      = &AppError{Code: CodeNotFound}
	ErrOfferNotFound                 = &AppError{Code: CodeOfferNotFound}
	ErrBookingNotFound               = &AppError{Code: CodeBookingNotFound}
	ErrDepartureNotFound             = &AppError{Code: CodeDepartureNotFound}
	ErrCapacityExceeded              = &AppError{Code: CodeCapacityExceeded}
	ErrInvalidCapacity               = &AppError{Code: CodeInvalidCapacity}
	ErrDepartureInUse                = &AppError{Code: CodeDepartureInUse}
	ErrInvalidTransition             = &AppError{Code: CodeInvalidTransition}
	ErrStaleOfferState               = &AppError{Code: CodeStaleOfferState}
	ErrConflict                      = &AppError{Code: CodeConflict}
	ErrNoAcceptableStatusValue       = &AppError{Code: CodeNoAcceptableStatusValue}
	ErrDuplicateIdentifier           = &AppError{Code: CodeDuplicateIdentifier}
	ErrIdentifierGenerationExhausted = &AppError{Code: CodeIdentifierGenerationExhausted}
	ErrStoreUnavailable              = &AppError{Code: CodeStoreUnavailable}
)

// NewValidationError creates a validation error for malformed or missing input.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message, Status: http.StatusBadRequest}
}

// NewNotFoundError creates a generic not-found error for the given entity.
func NewNotFoundError(entity, key string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", entity, key),
		Status:  http.StatusNotFound,
	}
}

// NewOfferNotFoundError is returned when an offer id or number does not resolve.
func NewOfferNotFoundError(ref string) *AppError {
	return &AppError{Code: CodeOfferNotFound, Message: "offer not found: " + ref, Status: http.StatusNotFound}
}

// NewBookingNotFoundError is returned when a booking id or number does not resolve.
func NewBookingNotFoundError(ref string) *AppError {
	return &AppError{Code: CodeBookingNotFound, Message: "booking not found: " + ref, Status: http.StatusNotFound}
}

// NewDepartureNotFoundError is returned when a departure id does not resolve.
func NewDepartureNotFoundError(ref string) *AppError {
	return &AppError{Code: CodeDepartureNotFound, Message: "departure not found: " + ref, Status: http.StatusNotFound}
}

// NewCapacityExceededError reports a reservation that would overbook a departure.
func NewCapacityExceededError(requested, remaining int) *AppError {
	return &AppError{
		Code:    CodeCapacityExceeded,
		Message: fmt.Sprintf("cannot reserve %d seats, %d left", requested, remaining),
		Status:  http.StatusConflict,
		Details: map[string]interface{}{"requested": requested, "seats_left": remaining},
	}
}

// NewInvalidCapacityError reports a capacity edit below the reserved seat count.
func NewInvalidCapacityError(newTotal, reserved int) *AppError {
	return &AppError{
		Code:    CodeInvalidCapacity,
		Message: fmt.Sprintf("seats_total %d is below seats_reserved %d", newTotal, reserved),
		Status:  http.StatusUnprocessableEntity,
		Details: map[string]interface{}{"seats_total": newTotal, "seats_reserved": reserved},
	}
}

// NewDepartureInUseError reports an attempt to delete a departure with reservations.
func NewDepartureInUseError(reserved int) *AppError {
	return &AppError{
		Code:    CodeDepartureInUse,
		Message: fmt.Sprintf("departure has %d reserved seats", reserved),
		Status:  http.StatusConflict,
	}
}

// NewInvalidTransitionError reports a state change the lifecycle does not allow.
func NewInvalidTransitionError(from, to string) *AppError {
	return &AppError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
		Status:  http.StatusConflict,
	}
}

// NewStaleOfferStateError reports a lost race on an offer transition.
func NewStaleOfferStateError(number, expected string) *AppError {
	return &AppError{
		Code:    CodeStaleOfferState,
		Message: fmt.Sprintf("offer %s is no longer in state %s", number, expected),
		Status:  http.StatusConflict,
	}
}

// NewConflictError reports an optimistic-lock conflict.
func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, Status: http.StatusConflict}
}

// NewNoAcceptableStatusValueError lists every status spelling the store rejected.
func NewNoAcceptableStatusValueError(tried []string, last error) *AppError {
	return &AppError{
		Code:    CodeNoAcceptableStatusValue,
		Message: fmt.Sprintf("store rejected every status value %v", tried),
		Status:  http.StatusInternalServerError,
		Details: map[string]interface{}{"tried": tried},
		Err:     last,
	}
}

// NewDuplicateIdentifierError reports a uniqueness conflict on a human identifier.
func NewDuplicateIdentifierError(number string, err error) *AppError {
	return &AppError{
		Code:    CodeDuplicateIdentifier,
		Message: "identifier already taken: " + number,
		Status:  http.StatusConflict,
		Err:     err,
	}
}

// NewIdentifierGenerationExhaustedError is returned when retries run out.
func NewIdentifierGenerationExhaustedError(prefix string, attempts int) *AppError {
	return &AppError{
		Code:    CodeIdentifierGenerationExhausted,
		Message: fmt.Sprintf("could not allocate identifier for %s after %d attempts", prefix, attempts),
		Status:  http.StatusServiceUnavailable,
	}
}

// NewStoreUnavailableError wraps a transport or timeout failure against the store.
func NewStoreUnavailableError(op string, err error) *AppError {
	return &AppError{
		Code:    CodeStoreUnavailable,
		Message: "store unavailable during " + op,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

// As extracts the AppError from err, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
