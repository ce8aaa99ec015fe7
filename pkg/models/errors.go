package models

import "errors"

var (
	// ErrNotFound is returned when an addressed entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("validation failed")
)
