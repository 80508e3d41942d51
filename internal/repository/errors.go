package repository

import "errors"

// Store errors shared by every Repository implementation
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when an item's stored version does not
	// match the version the caller based its update on.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidTransition is returned when a status change is not permitted
	// from the item's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInsufficientFunds is returned when a ledger batch would drive an
	// account balance below zero. The whole batch is discarded.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateKey is returned when a record with the same key already
	// exists, including a second entry pair for the same swapped item.
	ErrDuplicateKey = errors.New("duplicate key")
)
