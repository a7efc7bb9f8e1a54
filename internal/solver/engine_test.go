package solver

import (
	"errors"
	"math"
	"testing"
)

func mustEngine(t *testing.T, scheme Scheme, x0 []float64) *Engine {
	t.Helper()
	e, err := New(scheme, x0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func stepOK(t *testing.T, e *Engine, stage int, f []float64, dt float64) StepResult {
	t.Helper()
	res, err := e.Step(stage, f, dt)
	if err != nil {
		t.Fatalf("Step(%d): %v", stage, err)
	}
	return res
}

func TestScenarioA(t *testing.T) {
	e := mustEngine(t, SSPRK22(), []float64{1.0})
	dt := 0.1

	if err := e.Buffer(dt); err != nil {
		t.Fatalf("Buffer: %v", err)
	}

	stepOK(t, e, 0, []float64{1.0}, dt)
	if got := e.Get()[0]; got != 1.1 {
		t.Errorf("intermediate state: got %v, want 1.1", got)
	}

	stepOK(t, e, 1, []float64{1.0}, dt)
	if got := e.Get()[0]; got != 1.1 {
		t.Errorf("final state: got %v, want 1.1", got)
	}
}

func TestStageFormulas(t *testing.T) {
	x0 := []float64{2.0, -1.0}
	f0 := []float64{0.5, 3.0}
	f1 := []float64{-2.0, 7.0}
	dt := 0.25

	e := mustEngine(t, SSPRK22(), x0)
	if err := e.Buffer(dt); err != nil {
		t.Fatalf("Buffer: %v", err)
	}

	stepOK(t, e, 0, f0, dt)
	for i, got := range e.Get() {
		want := x0[i] + dt*f0[i]
		if got != want {
			t.Errorf("stage 0 component %d: got %v, want %v", i, got, want)
		}
	}

	stepOK(t, e, 1, f1, dt)
	for i, got := range e.Get() {
		want := x0[i] + dt*(0.5*f0[i]+0.5*f1[i])
		if got != want {
			t.Errorf("final component %d: got %v, want %v", i, got, want)
		}
	}
}

func TestForwardEulerCollapse(t *testing.T) {
	// Constant RHS makes both slopes equal, so the two-stage update must
	// degenerate exactly to a single forward Euler step.
	x0 := []float64{1.5, -0.25, 100.0}
	c := []float64{0.3, -7.0, 1e-3}
	dt := 0.01

	e := mustEngine(t, SSPRK22(), x0)
	if err := e.Buffer(dt); err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	stepOK(t, e, 0, c, dt)
	stepOK(t, e, 1, c, dt)

	for i, got := range e.Get() {
		want := x0[i] + dt*c[i]
		if got != want {
			t.Errorf("component %d: got %v, want %v", i, got, want)
		}
	}
}

func TestBufferSemantics(t *testing.T) {
	e := mustEngine(t, SSPRK22(), []float64{1.0})
	dt := 0.1

	if err := e.Buffer(dt); err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	stepOK(t, e, 0, []float64{2.0}, dt)

	before := e.Get()
	if err := e.Buffer(dt); err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	after := e.Get()
	if before[0] != after[0] {
		t.Errorf("Buffer mutated state: %v -> %v", before, after)
	}

	// The snapshot frozen by Buffer is the mutated state, not the one from
	// the previous timestep.
	if prev := e.Previous()[0]; prev != before[0] {
		t.Errorf("Previous after Buffer: got %v, want %v", prev, before[0])
	}

	// Stage buffer was cleared: a lone stage-1 step must not see a stale k0.
	stepOK(t, e, 1, []float64{4.0}, dt)
	want := before[0] + dt*(0.5*4.0)
	if got := e.Get()[0]; got != want {
		t.Errorf("stale stage buffer: got %v, want %v", got, want)
	}
}

func TestStepDoesNotMutateHistory(t *testing.T) {
	e := mustEngine(t, SSPRK22(), []float64{3.0})
	if err := e.Buffer(0.5); err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	stepOK(t, e, 0, []float64{10.0}, 0.5)
	stepOK(t, e, 1, []float64{10.0}, 0.5)

	if prev := e.Previous()[0]; prev != 3.0 {
		t.Errorf("history mutated by Step: got %v, want 3.0", prev)
	}
}

func TestStageReentrancy(t *testing.T) {
	// Re-invoking a stage (loop convergence retries) must overwrite the
	// stored slope and recompute from the frozen snapshot, never compound.
	x0 := 1.0
	dt := 0.1
	e := mustEngine(t, SSPRK22(), []float64{x0})
	if err := e.Buffer(dt); err != nil {
		t.Fatalf("Buffer: %v", err)
	}

	stepOK(t, e, 0, []float64{100.0}, dt)
	stepOK(t, e, 0, []float64{2.0}, dt)
	if got, want := e.Get()[0], x0+dt*2.0; got != want {
		t.Errorf("stage 0 retry: got %v, want %v", got, want)
	}

	stepOK(t, e, 1, []float64{-50.0}, dt)
	stepOK(t, e, 1, []float64{4.0}, dt)
	if got, want := e.Get()[0], x0+dt*(0.5*2.0+0.5*4.0); got != want {
		t.Errorf("stage 1 retry: got %v, want %v", got, want)
	}
}

func TestAlwaysAccepts(t *testing.T) {
	inputs := [][]float64{
		{0.0},
		{1e300},
		{-1e300},
		{math.Inf(1)},
		{math.NaN()},
	}

	for _, f := range inputs {
		e := mustEngine(t, SSPRK22(), []float64{1.0})
		if err := e.Buffer(0.1); err != nil {
			t.Fatalf("Buffer: %v", err)
		}
		for stage := 0; stage < 2; stage++ {
			res := stepOK(t, e, stage, f, 0.1)
			if !res.Accepted || res.ErrorNorm != 0 || res.ScaleFactor != 1 {
				t.Errorf("f=%v stage %d: got %+v, want accepted/0/1", f, stage, res)
			}
		}
	}
}

func TestNonFinitePropagates(t *testing.T) {
	// No estimator, no rejection: garbage in, garbage out, by contract.
	e := mustEngine(t, SSPRK22(), []float64{1.0})
	if err := e.Buffer(0.1); err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	stepOK(t, e, 0, []float64{math.NaN()}, 0.1)
	if !math.IsNaN(e.Get()[0]) {
		t.Errorf("NaN rhs did not propagate: got %v", e.Get()[0])
	}
}

func TestZeroSchemeRefusesToStep(t *testing.T) {
	e := mustEngine(t, Scheme{}, []float64{1.0})
	if err := e.Buffer(0.1); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("zero scheme Buffer: got %v, want ErrNotImplemented", err)
	}
	if _, err := e.Step(0, []float64{1.0}, 0.1); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("zero scheme Step: got %v, want ErrNotImplemented", err)
	}
}

func TestStepValidation(t *testing.T) {
	tests := []struct {
		name  string
		stage int
		f     []float64
		dt    float64
		want  error
	}{
		{"negative stage", -1, []float64{1}, 0.1, ErrInvalidStage},
		{"stage too large", 2, []float64{1}, 0.1, ErrInvalidStage},
		{"short rhs", 0, []float64{}, 0.1, ErrDimensionMismatch},
		{"long rhs", 0, []float64{1, 2}, 0.1, ErrDimensionMismatch},
		{"zero dt", 0, []float64{1}, 0, ErrInvalidTimestep},
		{"negative dt", 0, []float64{1}, -0.1, ErrInvalidTimestep},
		{"nan dt", 0, []float64{1}, math.NaN(), ErrInvalidTimestep},
		{"inf dt", 0, []float64{1}, math.Inf(1), ErrInvalidTimestep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustEngine(t, SSPRK22(), []float64{1.0})
			if err := e.Buffer(0.1); err != nil {
				t.Fatalf("Buffer: %v", err)
			}
			if _, err := e.Step(tt.stage, tt.f, tt.dt); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBufferValidation(t *testing.T) {
	e := mustEngine(t, SSPRK22(), []float64{1.0})
	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := e.Buffer(dt); !errors.Is(err, ErrInvalidTimestep) {
			t.Errorf("Buffer(%v): got %v, want ErrInvalidTimestep", dt, err)
		}
	}
}

func TestGetReturnsCopy(t *testing.T) {
	e := mustEngine(t, SSPRK22(), []float64{1.0, 2.0})
	snapshot := e.Get()
	snapshot[0] = 999
	if e.Get()[0] != 1.0 {
		t.Error("Get aliases internal state")
	}
}

func TestStepCopiesRHS(t *testing.T) {
	e := mustEngine(t, SSPRK22(), []float64{1.0})
	if err := e.Buffer(0.1); err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	f := []float64{1.0}
	stepOK(t, e, 0, f, 0.1)
	f[0] = 999
	stepOK(t, e, 1, []float64{1.0}, 0.1)
	if got := e.Get()[0]; got != 1.1 {
		t.Errorf("engine retained caller-owned rhs: got %v, want 1.1", got)
	}
}

func TestNewScalar(t *testing.T) {
	e, err := NewScalar(SSPRK22(), 5.0)
	if err != nil {
		t.Fatalf("NewScalar: %v", err)
	}
	if e.Dim() != 1 || e.GetScalar() != 5.0 {
		t.Errorf("scalar engine: dim %d value %v", e.Dim(), e.GetScalar())
	}
}

func TestEvalStages(t *testing.T) {
	e := mustEngine(t, SSPRK22(), []float64{0})
	c := e.EvalStages()
	if len(c) != 2 || c[0] != 0 || c[1] != 1 {
		t.Errorf("EvalStages: got %v, want [0 1]", c)
	}
	c[0] = 999
	if e.EvalStages()[0] != 0 {
		t.Error("EvalStages aliases scheme coefficients")
	}
}

func TestWithParent(t *testing.T) {
	parent := struct{ name string }{"outer"}
	e, err := New(SSPRK22(), []float64{0}, WithParent(parent))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.Parent() != parent {
		t.Error("parent reference not passed through")
	}
}

func TestExponentialDecayRecurrence(t *testing.T) {
	// x' = k*x with k < 0. Per step SSPRK22 multiplies the state by
	// 1 + h + h^2/2 with h = dt*k; the engine must track that recurrence
	// to machine precision and the continuous solution to O(dt^2).
	k := -2.0
	dt := 0.01
	steps := 1000

	e := mustEngine(t, SSPRK22(), []float64{1.0})
	expected := 1.0
	h := dt * k
	growth := 1.0 + h + 0.5*h*h

	for n := 0; n < steps; n++ {
		if err := e.Buffer(dt); err != nil {
			t.Fatalf("Buffer: %v", err)
		}
		f0 := k * e.Get()[0]
		stepOK(t, e, 0, []float64{f0}, dt)
		f1 := k * e.Get()[0]
		stepOK(t, e, 1, []float64{f1}, dt)
		expected *= growth
	}

	got := e.Get()[0]
	if math.Abs(got-expected) > 1e-11*math.Abs(expected) {
		t.Errorf("discrete recurrence: got %v, want %v", got, expected)
	}

	// Truncation error vs the continuous solution accumulates to roughly
	// dt^2*|k|^3*T/6 ~ 1.3e-3 at these parameters.
	exact := math.Exp(k * dt * float64(steps))
	if rel := math.Abs(got-exact) / exact; rel > 2e-3 {
		t.Errorf("relative error vs exp: %e", rel)
	}
}

func TestRK4HarmonicOscillator(t *testing.T) {
	// x'' = -x via the generic tableau path, checked against cos/sin.
	scheme := RK4()
	e := mustEngine(t, scheme, []float64{1.0, 0.0})
	dt := 0.01
	steps := 100
	c := scheme.C

	rhs := func(x []float64) []float64 { return []float64{x[1], -x[0]} }

	for n := 0; n < steps; n++ {
		if err := e.Buffer(dt); err != nil {
			t.Fatalf("Buffer: %v", err)
		}
		for s := range c {
			stepOK(t, e, s, rhs(e.Get()), dt)
		}
	}

	x := e.Get()
	tEnd := dt * float64(steps)
	if math.Abs(x[0]-math.Cos(tEnd)) > 1e-6 {
		t.Errorf("position: got %v, want %v", x[0], math.Cos(tEnd))
	}
	if math.Abs(x[1]+math.Sin(tEnd)) > 1e-6 {
		t.Errorf("velocity: got %v, want %v", x[1], -math.Sin(tEnd))
	}
}

func TestHistoryDepth(t *testing.T) {
	e, err := New(SSPRK22(), []float64{1.0}, WithHistoryDepth(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Buffer(0.1); err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	if got := e.Previous()[0]; got != 1.0 {
		t.Errorf("Previous with deeper history: got %v, want 1.0", got)
	}

	if _, err := New(SSPRK22(), []float64{1.0}, WithHistoryDepth(0)); err == nil {
		t.Error("expected error for zero history depth")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(SSPRK22(), nil); err == nil {
		t.Error("expected error for empty initial condition")
	}

	bad := SSPRK22()
	bad.B = bad.B[:1]
	if _, err := New(bad, []float64{1.0}); err == nil {
		t.Error("expected error for malformed tableau")
	}
}
