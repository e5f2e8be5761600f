// Package errors defines all exported error sentinels for the setdiff library.
//
// This is the single source of truth for error values. The top-level setdiff
// package returns values from here, so errors.Is checks work regardless of
// which operation produced the failure.
package errors

import (
	"errors"
	"fmt"
)

// Reconciliation errors
var (
	// ErrShapeMismatch is returned when a binary operation (subtract, merge,
	// estimate) is attempted on structures whose shapes differ. The inputs
	// are left untouched; the caller can re-negotiate shape and retry.
	ErrShapeMismatch = errors.New("setdiff: shape mismatch")

	// ErrInsufficientCapacity is returned when peeling stalls before every
	// bucket is zeroed. The filter was undersized for the actual difference;
	// re-estimate and exchange a larger filter.
	ErrInsufficientCapacity = errors.New("setdiff: insufficient capacity to decode")
)

// Construction errors
var (
	ErrInvalidCapacity    = errors.New("setdiff: capacity must be at least the hash count")
	ErrInvalidHashCount   = errors.New("setdiff: hash count out of range")
	ErrInvalidStrataCount = errors.New("setdiff: strata count out of range")
)

// Deserialization errors. ErrMalformedInput is the umbrella: every decode
// failure satisfies errors.Is(err, ErrMalformedInput). The specific sentinels
// narrow the cause for callers that care.
var (
	ErrMalformedInput = errors.New("setdiff: malformed payload")

	ErrInvalidMagic   = fmt.Errorf("%w: invalid magic number", ErrMalformedInput)
	ErrInvalidVersion = fmt.Errorf("%w: unsupported version", ErrMalformedInput)
	ErrTruncatedInput = fmt.Errorf("%w: truncated", ErrMalformedInput)
	ErrSymbolSize     = fmt.Errorf("%w: symbol width mismatch", ErrMalformedInput)
)
