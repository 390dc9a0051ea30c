package database

import "errors"

// Common store errors that can be checked using errors.Is(). The service
// layer translates these into domain error kinds; they never cross the
// acknowledgment boundary raw.
var (
	// ErrNotFound is returned when a record is not found in the database.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when a write violates a uniqueness
	// constraint, e.g. a duplicate room name.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInvalidInput is returned when invalid input is provided to a store
	// method.
	ErrInvalidInput = errors.New("invalid input data")
)
