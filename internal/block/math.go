package block

import "fmt"

// Amplifier multiplies its single input by a fixed gain.
type Amplifier struct {
	gain float64
	in   float64
	out  float64
}

func NewAmplifier(gain float64) *Amplifier {
	return &Amplifier{gain: gain}
}

func (a *Amplifier) Inputs() int                  { return 1 }
func (a *Amplifier) Outputs() int                 { return 1 }
func (a *Amplifier) SetInput(port int, v float64) { a.in = v }
func (a *Amplifier) Output(port int) float64      { return a.out }

func (a *Amplifier) Update(t float64) float64 {
	v := a.gain * a.in
	d := delta(v, a.out)
	a.out = v
	return d
}

// Adder sums its inputs with per-port signs given as a string of '+' and
// '-' runes, e.g. NewAdder("+-") computes in0 - in1.
type Adder struct {
	signs []float64
	in    []float64
	out   float64
}

func NewAdder(operations string) (*Adder, error) {
	if operations == "" {
		return nil, fmt.Errorf("block: adder needs at least one operation")
	}
	signs := make([]float64, 0, len(operations))
	for _, op := range operations {
		switch op {
		case '+':
			signs = append(signs, 1)
		case '-':
			signs = append(signs, -1)
		default:
			return nil, fmt.Errorf("block: adder operation %q, want '+' or '-'", op)
		}
	}
	return &Adder{signs: signs, in: make([]float64, len(signs))}, nil
}

func (a *Adder) Inputs() int  { return len(a.signs) }
func (a *Adder) Outputs() int { return 1 }

func (a *Adder) SetInput(port int, v float64) {
	a.in[port] = v
}

func (a *Adder) Output(port int) float64 { return a.out }

func (a *Adder) Update(t float64) float64 {
	sum := 0.0
	for i, s := range a.signs {
		sum += s * a.in[i]
	}
	d := delta(sum, a.out)
	a.out = sum
	return d
}
