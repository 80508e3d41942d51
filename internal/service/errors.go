package service

import (
	"errors"
	"fmt"
)

// Business errors returned by the service. Callers match them with errors.Is.
var (
	ErrItemNotFound       = errors.New("item not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrItemNotAvailable   = errors.New("item is not available for swapping")
	ErrSelfSwap           = errors.New("cannot swap your own item")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrConflict           = errors.New("item changed concurrently")
	ErrVersionConflict    = errors.New("item version does not match")
	ErrInvalidTransition  = errors.New("status change not allowed")
	ErrUnauthorized       = errors.New("not allowed")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrTransient marks store or infrastructure failures that may succeed on
	// retry. The underlying cause stays reachable through errors.Is/As.
	ErrTransient = errors.New("temporary failure")
)

func transient(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransient, op, err)
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// reasonCode is the short failure reason stored on rejected swap records
func reasonCode(err error) string {
	switch {
	case errors.Is(err, ErrItemNotAvailable):
		return "item_not_available"
	case errors.Is(err, ErrSelfSwap):
		return "self_swap"
	case errors.Is(err, ErrInsufficientPoints):
		return "insufficient_points"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "transient_error"
	}
}
