package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrUnavailable indicates a file could not be read for digesting
	ErrUnavailable = errors.New("content unavailable")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidField indicates a non-whitelisted column in a dynamic update
	ErrInvalidField = errors.New("invalid field name")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPermission indicates a permission error
	ErrPermission = errors.New("permission denied")

	// ErrDiskFull indicates insufficient disk space
	ErrDiskFull = errors.New("disk full")

	// ErrValidation indicates a deletion group failed its safety checklist
	ErrValidation = errors.New("validation failed")
)
