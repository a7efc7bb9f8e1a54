package solver

import "errors"

// Stepping faults. All are fail-fast: the engine reports them to the caller
// instead of letting mismatched or degenerate inputs propagate as NaNs.
var (
	// ErrDimensionMismatch indicates an RHS vector whose length differs from
	// the state vector.
	ErrDimensionMismatch = errors.New("solver: rhs dimension does not match state dimension")

	// ErrInvalidTimestep indicates a timestep that is zero, negative, or
	// non-finite.
	ErrInvalidTimestep = errors.New("solver: timestep must be positive and finite")

	// ErrInvalidStage indicates a stage index outside [0, Stages).
	ErrInvalidStage = errors.New("solver: stage index out of range")

	// ErrNotImplemented indicates an engine constructed with the zero Scheme.
	// Only concrete schemes can step.
	ErrNotImplemented = errors.New("solver: scheme defines no stages")
)
