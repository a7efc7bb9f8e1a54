package solver

import (
	"fmt"
	"sort"
)

// Scheme describes an explicit Runge-Kutta method as data. Adding a method
// means adding a tableau, not a new engine type.
//
// C holds the stage time fractions within [t, t+dt], A the strictly
// lower-triangular stage coupling rows (A[s] feeds stage s from the earlier
// slopes), and B the final combination weights. All fields are treated as
// immutable after construction.
type Scheme struct {
	Name     string
	Order    int
	Stages   int
	C        []float64
	A        [][]float64
	B        []float64
	Explicit bool
	Adaptive bool
}

// SSPRK22 returns the two-stage, second-order strong-stability-preserving
// Runge-Kutta method (Heun's method in SSP form). Each stage is a forward
// Euler sub-step and the final update is their convex combination, so
// total-variation bounds of forward Euler carry over under the usual
// CFL-type restriction on dt.
//
// Reference: C.-W. Shu & S. Osher, "Efficient implementation of essentially
// non-oscillatory shock-capturing schemes", J. Comput. Phys., 77 (1988)
// 439-471.
func SSPRK22() Scheme {
	return Scheme{
		Name:   "SSPRK22",
		Order:  2,
		Stages: 2,
		C:      []float64{0, 1},
		A: [][]float64{
			{},
			{1},
		},
		B:        []float64{0.5, 0.5},
		Explicit: true,
	}
}

// SSPRK33 returns the three-stage, third-order SSP Runge-Kutta method of
// Shu and Osher. The optimal third-order SSP scheme.
func SSPRK33() Scheme {
	return Scheme{
		Name:   "SSPRK33",
		Order:  3,
		Stages: 3,
		C:      []float64{0, 1, 0.5},
		A: [][]float64{
			{},
			{1},
			{0.25, 0.25},
		},
		B:        []float64{1.0 / 6.0, 1.0 / 6.0, 2.0 / 3.0},
		Explicit: true,
	}
}

// Euler returns the forward Euler method. First order, one stage. Useful as
// a baseline and for debugging the stepping protocol.
func Euler() Scheme {
	return Scheme{
		Name:     "Euler",
		Order:    1,
		Stages:   1,
		C:        []float64{0},
		A:        [][]float64{{}},
		B:        []float64{1},
		Explicit: true,
	}
}

// RK4 returns the classic fourth-order Runge-Kutta method. Fixed step, no
// embedded error estimator.
func RK4() Scheme {
	return Scheme{
		Name:   "RK4",
		Order:  4,
		Stages: 4,
		C:      []float64{0, 0.5, 0.5, 1},
		A: [][]float64{
			{},
			{0.5},
			{0, 0.5},
			{0, 0, 1},
		},
		B:        []float64{1.0 / 6.0, 1.0 / 3.0, 1.0 / 3.0, 1.0 / 6.0},
		Explicit: true,
	}
}

var schemes = map[string]func() Scheme{
	"ssprk22": SSPRK22,
	"ssprk33": SSPRK33,
	"euler":   Euler,
	"rk4":     RK4,
}

// ByName looks up a scheme constructor by its lowercase name.
func ByName(name string) (Scheme, error) {
	ctor, ok := schemes[name]
	if !ok {
		return Scheme{}, fmt.Errorf("solver: unknown scheme %q", name)
	}
	return ctor(), nil
}

// Names returns the registered scheme names in sorted order.
func Names() []string {
	names := make([]string, 0, len(schemes))
	for name := range schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validate checks tableau shape consistency. The zero Scheme is permitted
// (it describes the abstract, non-steppable base contract).
func (s Scheme) validate() error {
	if s.Stages == 0 {
		return nil
	}
	if len(s.C) != s.Stages {
		return fmt.Errorf("solver: scheme %s: %d stage offsets for %d stages", s.Name, len(s.C), s.Stages)
	}
	if len(s.B) != s.Stages {
		return fmt.Errorf("solver: scheme %s: %d final weights for %d stages", s.Name, len(s.B), s.Stages)
	}
	if len(s.A) != s.Stages {
		return fmt.Errorf("solver: scheme %s: %d coupling rows for %d stages", s.Name, len(s.A), s.Stages)
	}
	for i, row := range s.A {
		if len(row) > i {
			return fmt.Errorf("solver: scheme %s: coupling row %d has %d entries, explicit schemes allow at most %d", s.Name, i, len(row), i)
		}
	}
	return nil
}
