package block

import "github.com/san-kum/flowsim/internal/solver"

// Integrator integrates its inputs: output i is the i-th state component,
// input i its time derivative. The continuous state lives in an owned
// stepping engine; the integrator has no direct feedthrough, so it breaks
// algebraic loops.
type Integrator struct {
	eng *solver.Engine
	in  []float64
	out []float64
}

// NewIntegrator creates a scalar integrator with the given initial value.
func NewIntegrator(x0 float64, scheme solver.Scheme) (*Integrator, error) {
	return NewVectorIntegrator([]float64{x0}, scheme)
}

// NewVectorIntegrator creates an integrator over a state vector, with one
// input/output port per component.
func NewVectorIntegrator(x0 []float64, scheme solver.Scheme) (*Integrator, error) {
	eng, err := solver.New(scheme, x0)
	if err != nil {
		return nil, err
	}
	return &Integrator{
		eng: eng,
		in:  make([]float64, len(x0)),
		out: eng.Get(),
	}, nil
}

func (b *Integrator) Inputs() int  { return len(b.in) }
func (b *Integrator) Outputs() int { return len(b.out) }

func (b *Integrator) SetInput(port int, v float64) {
	b.in[port] = v
}

func (b *Integrator) Output(port int) float64 { return b.out[port] }

// Update publishes the engine's current state on the output ports.
func (b *Integrator) Update(t float64) float64 {
	max := 0.0
	for i, v := range b.eng.Get() {
		if d := delta(v, b.out[i]); d > max {
			max = d
		}
		b.out[i] = v
	}
	return max
}

func (b *Integrator) Buffer(dt float64) error {
	return b.eng.Buffer(dt)
}

// StepStage feeds the buffered inputs to the engine as the stage slope.
func (b *Integrator) StepStage(stage int, t, dt float64) error {
	_, err := b.eng.Step(stage, b.in, dt)
	return err
}

func (b *Integrator) Engine() *solver.Engine { return b.eng }
