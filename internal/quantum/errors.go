package quantum

import "errors"

// Error taxonomy for engine operations. Every operation validates its inputs
// up front and returns one of these (wrapped with context) without mutating
// any state: either the whole operation succeeds and the invariants hold, or
// nothing changes.
var (
	// ErrNotFound covers unknown registers, labels and components.
	ErrNotFound = errors.New("not found")

	// ErrDimensionMismatch is returned when a gate matrix size does not
	// match the target arity.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidState covers operations issued against a state that cannot
	// accept them, such as a non-unitary gate matrix or a two-register gate
	// whose registers coincide.
	ErrInvalidState = errors.New("invalid state")
)
