package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("Validation failed")

	ErrGroupNotFound            = errors.New("Listing group not found")
	ErrListingNotFound          = errors.New("Listing not found")
	ErrPickupRequestNotFound    = errors.New("Pickup request not found")
	ErrInventoryItemNotFound    = errors.New("Inventory item not found")
	ErrInsufficientAvailability = errors.New("Requested quantity exceeds available quantity")
	ErrInvalidReleaseAmount     = errors.New("Release amount exceeds reserved quantity")
	ErrInvalidTransition        = errors.New("Transition not allowed from current status")
	ErrConcurrencyConflict      = errors.New("Resource was modified concurrently, retry the request")
	ErrIdempotencyConflict      = errors.New("Idempotency key already used with different parameters")
	ErrForbiddenActor           = errors.New("Organization is not a party allowed to perform this action")
	ErrListingNotOpen           = errors.New("Listing is not open")
)

// Kind groups errors for callers that need to branch on category rather than identity.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindInsufficientAvailability
	KindInvalidReleaseAmount
	KindInvalidTransition
	KindConcurrencyConflict
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindInsufficientAvailability:
		return "insufficient_availability"
	case KindInvalidReleaseAmount:
		return "invalid_release_amount"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal_error"
	}
}

// Validation wraps ErrValidation with the reason shown to the end user.
func Validation(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrValidation), errors.Is(err, ErrListingNotOpen), errors.Is(err, ErrIdempotencyConflict):
		return KindValidation
	case errors.Is(err, ErrGroupNotFound), errors.Is(err, ErrListingNotFound),
		errors.Is(err, ErrPickupRequestNotFound), errors.Is(err, ErrInventoryItemNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientAvailability):
		return KindInsufficientAvailability
	case errors.Is(err, ErrInvalidReleaseAmount):
		return KindInvalidReleaseAmount
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrConcurrencyConflict):
		return KindConcurrencyConflict
	case errors.Is(err, ErrForbiddenActor):
		return KindForbidden
	default:
		return KindInternal
	}
}

// Internal marks an unexpected failure (e.g. persistence) that happened after validation passed.
func Internal(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
