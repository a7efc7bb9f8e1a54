package solver

import (
	"fmt"
	"math"
)

// StepResult is the acceptance tuple returned by every stage update. Fixed
// step schemes always accept with zero error and unit rescale; adaptive
// schemes would report an error norm and a suggested dt scale factor for the
// caller to act on.
type StepResult struct {
	Accepted    bool
	ErrorNorm   float64
	ScaleFactor float64
}

// Engine advances a state vector across discrete timesteps using the stage
// formulas of its Scheme. The engine owns the state, the per-timestep stage
// buffer, and the history of accepted states; right-hand-side values passed
// in are copied, never retained.
//
// The driving loop calls Buffer once per timestep, then Step for each stage
// in order. Repeating a stage is allowed: the update is always recomputed
// from the state frozen by Buffer, so convergence retries on feedback loops
// never compound partial results.
type Engine struct {
	scheme Scheme
	x      []float64
	hist   *history
	k      [][]float64
	parent any
	scalar bool
}

// Option configures an Engine at construction.
type Option func(*engineOptions)

type engineOptions struct {
	historyDepth int
	parent       any
}

// WithHistoryDepth sets the lookback depth of the acceptance history.
// Single-step schemes need 1 (the default); multistep methods need more.
func WithHistoryDepth(depth int) Option {
	return func(o *engineOptions) { o.historyDepth = depth }
}

// WithParent attaches an opaque parent reference for hierarchical solver
// composition. The engine never inspects it.
func WithParent(parent any) Option {
	return func(o *engineOptions) { o.parent = parent }
}

// New creates an engine with the given scheme and initial condition. The
// initial condition is copied and seeds the history, so the engine is
// immediately steppable after the first Buffer call.
func New(scheme Scheme, x0 []float64, opts ...Option) (*Engine, error) {
	if err := scheme.validate(); err != nil {
		return nil, err
	}
	if len(x0) == 0 {
		return nil, fmt.Errorf("solver: empty initial condition: %w", ErrDimensionMismatch)
	}

	options := engineOptions{historyDepth: 1}
	for _, opt := range opts {
		opt(&options)
	}
	if options.historyDepth < 1 {
		return nil, fmt.Errorf("solver: history depth %d, need at least 1", options.historyDepth)
	}

	e := &Engine{
		scheme: scheme,
		x:      append([]float64(nil), x0...),
		hist:   newHistory(options.historyDepth, len(x0)),
		k:      make([][]float64, scheme.Stages),
		parent: options.parent,
	}
	e.hist.push(e.x)
	return e, nil
}

// NewScalar creates a one-dimensional engine. Get and Step still operate on
// slices; GetScalar reads the single component back.
func NewScalar(scheme Scheme, x0 float64, opts ...Option) (*Engine, error) {
	e, err := New(scheme, []float64{x0}, opts...)
	if err != nil {
		return nil, err
	}
	e.scalar = true
	return e, nil
}

// Buffer begins a new timestep: it snapshots the current state into the
// history and clears the stage buffer. The state itself is untouched. Must
// be called exactly once per timestep, before any stage's Step.
func (e *Engine) Buffer(dt float64) error {
	if e.scheme.Stages == 0 {
		return ErrNotImplemented
	}
	if !validTimestep(dt) {
		return fmt.Errorf("solver: buffer with dt=%v: %w", dt, ErrInvalidTimestep)
	}
	e.hist.push(e.x)
	for s := range e.k {
		e.k[s] = nil
	}
	return nil
}

// Step records the RHS evaluation f for the given stage and recomputes the
// state from the start-of-timestep snapshot. For SSPRK22 stage 0 is the
// forward-Euler predictor x0 + dt*k0 and stage 1 the convex combination
// x0 + dt*(0.5*k0 + 0.5*k1); the combination is accumulated before the
// single multiply by dt, exactly as written, to keep the SSP property.
//
// Non-finite RHS values are propagated, not rejected: the scheme has no
// error estimator and unconditionally accepts.
func (e *Engine) Step(stage int, f []float64, dt float64) (StepResult, error) {
	if e.scheme.Stages == 0 {
		return StepResult{}, ErrNotImplemented
	}
	if stage < 0 || stage >= e.scheme.Stages {
		return StepResult{}, fmt.Errorf("solver: stage %d outside [0, %d): %w", stage, e.scheme.Stages, ErrInvalidStage)
	}
	if !validTimestep(dt) {
		return StepResult{}, fmt.Errorf("solver: step with dt=%v: %w", dt, ErrInvalidTimestep)
	}
	if len(f) != len(e.x) {
		return StepResult{}, fmt.Errorf("solver: rhs length %d, state length %d: %w", len(f), len(e.x), ErrDimensionMismatch)
	}

	if e.k[stage] == nil {
		e.k[stage] = make([]float64, len(e.x))
	}
	copy(e.k[stage], f)

	// Intermediate stages advance to the point where the next stage's RHS
	// must be evaluated; the last stage applies the final weights.
	weights := e.scheme.B
	if stage < e.scheme.Stages-1 {
		weights = e.scheme.A[stage+1]
	}

	x0 := e.hist.newest()
	for i := range e.x {
		sum := 0.0
		for j, w := range weights {
			if e.k[j] == nil {
				continue
			}
			sum += w * e.k[j][i]
		}
		e.x[i] = x0[i] + dt*sum
	}

	return StepResult{Accepted: true, ErrorNorm: 0, ScaleFactor: 1}, nil
}

// Get returns a copy of the current state, which mid-timestep is the
// intermediate point the next stage's RHS must be evaluated at.
func (e *Engine) Get() []float64 {
	return append([]float64(nil), e.x...)
}

// GetScalar returns the single component of a one-dimensional engine.
func (e *Engine) GetScalar() float64 {
	return e.x[0]
}

// Previous returns a copy of the state frozen at the start of the current
// timestep.
func (e *Engine) Previous() []float64 {
	return append([]float64(nil), e.hist.newest()...)
}

// EvalStages returns the stage time fractions within [t, t+dt]: the driving
// loop evaluates the stage-s RHS at t + EvalStages()[s]*dt.
func (e *Engine) EvalStages() []float64 {
	return append([]float64(nil), e.scheme.C...)
}

// Scheme returns the engine's method descriptor.
func (e *Engine) Scheme() Scheme { return e.scheme }

// Dim returns the state dimension.
func (e *Engine) Dim() int { return len(e.x) }

// Parent returns the opaque parent reference, if any.
func (e *Engine) Parent() any { return e.parent }

func validTimestep(dt float64) bool {
	return dt > 0 && !math.IsInf(dt, 0) && !math.IsNaN(dt)
}
