// Package solver provides explicit multi-stage time-stepping engines for
// ordinary differential equations.
//
// The package separates the stepping protocol from the method coefficients:
//
//   - [Scheme]: a Runge-Kutta method described as data (Butcher tableau)
//   - [Engine]: owns the state vector, stage buffer, and acceptance history
//   - [StepResult]: the accept/error/rescale tuple returned by every stage
//
// An engine is driven externally. Per timestep the caller invokes
// [Engine.Buffer] once, then for each stage evaluates the right-hand side at
// the engine's current state and passes it to [Engine.Step]:
//
//	eng, _ := solver.New(solver.SSPRK22(), []float64{1.0})
//	eng.Buffer(dt)
//	for s, c := range eng.EvalStages() {
//	    f := rhs(t+c*dt, eng.Get())
//	    eng.Step(s, f, dt)
//	}
//
// # Thread Safety
//
// Engine instances are NOT thread-safe. Stepping is fully synchronous and
// all mutation happens on the calling goroutine.
package solver
