package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Shape errors
	ErrRaggedColumns  = errors.New("columns have different lengths")
	ErrColumnMismatch = errors.New("tables have different columns")
	ErrRowOutOfRange  = errors.New("row index out of range")

	// Format errors
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFormatUnavailable = errors.New("file format not available in this build")
)

// Error constructors with context
func NewRaggedColumnsError(column string, got, want int) error {
	return fmt.Errorf("%w: column %q has %d rows, expected %d", ErrRaggedColumns, column, got, want)
}

func NewColumnMismatchError(got, want []string) error {
	return fmt.Errorf("%w: got %v, expected %v", ErrColumnMismatch, got, want)
}

func NewUnsupportedFormatError(path string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Error checking helpers
func IsShapeError(err error) bool {
	return errors.Is(err, ErrRaggedColumns) ||
		errors.Is(err, ErrColumnMismatch) ||
		errors.Is(err, ErrRowOutOfRange)
}

func IsFormatError(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrFormatUnavailable)
}
