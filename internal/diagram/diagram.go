// Package diagram provides the builtin block diagrams and a registry that
// builds them by name from a parameter map.
package diagram

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/flowsim/internal/block"
	"github.com/san-kum/flowsim/internal/graph"
	"github.com/san-kum/flowsim/internal/solver"
)

// Built is an assembled diagram with its recording scope.
type Built struct {
	Sim   *graph.Simulation
	Scope *block.Scope
}

type builder func(scheme solver.Scheme, params map[string]float64, cfg graph.Config) (*Built, error)

var builders = map[string]builder{
	"simple_integrator":   simpleIntegrator,
	"double_integrator":   doubleIntegrator,
	"feedback":            feedback,
	"harmonic_oscillator": harmonicOscillator,
	"sine_tracker":        sineTracker,
}

// Build assembles the named diagram. Missing parameters fall back to the
// diagram's defaults.
func Build(name string, scheme solver.Scheme, params map[string]float64, cfg graph.Config) (*Built, error) {
	b, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("diagram: unknown diagram %q", name)
	}
	return b(scheme, params, cfg)
}

// Names returns the registered diagram names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

// simpleIntegrator integrates a constant: the canonical smoke-test diagram.
func simpleIntegrator(scheme solver.Scheme, params map[string]float64, cfg graph.Config) (*Built, error) {
	src := block.NewConstant(param(params, "constant_value", 1.0))
	integ, err := block.NewIntegrator(param(params, "initial_value", 0.0), scheme)
	if err != nil {
		return nil, err
	}
	scope := block.NewScope("output")

	sim, err := graph.New(
		[]block.Block{src, integ, scope},
		[]graph.Connection{
			graph.Connect(src, 0, integ, 0),
			graph.Connect(integ, 0, scope, 0),
		},
		cfg,
	)
	if err != nil {
		return nil, err
	}
	return &Built{Sim: sim, Scope: scope}, nil
}

// doubleIntegrator cascades two integrators fed by a constant acceleration.
func doubleIntegrator(scheme solver.Scheme, params map[string]float64, cfg graph.Config) (*Built, error) {
	accel := block.NewConstant(param(params, "acceleration", 0.1))
	vel, err := block.NewIntegrator(param(params, "initial_velocity", 0.0), scheme)
	if err != nil {
		return nil, err
	}
	pos, err := block.NewIntegrator(param(params, "initial_position", 0.0), scheme)
	if err != nil {
		return nil, err
	}
	scope := block.NewScope("position", "velocity")

	sim, err := graph.New(
		[]block.Block{accel, vel, pos, scope},
		[]graph.Connection{
			graph.Connect(accel, 0, vel, 0),
			graph.Connect(vel, 0, pos, 0),
			graph.Connect(pos, 0, scope, 0),
			graph.Connect(vel, 0, scope, 1),
		},
		cfg,
	)
	if err != nil {
		return nil, err
	}
	return &Built{Sim: sim, Scope: scope}, nil
}

// feedback closes an integrator over a gain block: x' = gain * x.
func feedback(scheme solver.Scheme, params map[string]float64, cfg graph.Config) (*Built, error) {
	integ, err := block.NewIntegrator(param(params, "initial_value", 1.0), scheme)
	if err != nil {
		return nil, err
	}
	amp := block.NewAmplifier(param(params, "gain", -1.0))
	scope := block.NewScope("output")

	sim, err := graph.New(
		[]block.Block{integ, amp, scope},
		[]graph.Connection{
			graph.Connect(integ, 0, amp, 0),
			graph.Connect(amp, 0, integ, 0),
			graph.Connect(integ, 0, scope, 0),
		},
		cfg,
	)
	if err != nil {
		return nil, err
	}
	return &Built{Sim: sim, Scope: scope}, nil
}

// harmonicOscillator builds x'' = -omega^2*x - damping*x' from two
// integrators, two gains, and an adder.
func harmonicOscillator(scheme solver.Scheme, params map[string]float64, cfg graph.Config) (*Built, error) {
	omega := param(params, "omega", 1.0)
	damping := param(params, "damping", 0.0)

	pos, err := block.NewIntegrator(param(params, "initial_position", 1.0), scheme)
	if err != nil {
		return nil, err
	}
	vel, err := block.NewIntegrator(param(params, "initial_velocity", 0.0), scheme)
	if err != nil {
		return nil, err
	}
	spring := block.NewAmplifier(-omega * omega)
	damper := block.NewAmplifier(-damping)
	sum, err := block.NewAdder("++")
	if err != nil {
		return nil, err
	}
	scope := block.NewScope("position", "velocity")

	sim, err := graph.New(
		[]block.Block{pos, vel, spring, damper, sum, scope},
		[]graph.Connection{
			graph.Connect(pos, 0, spring, 0),
			graph.Connect(vel, 0, damper, 0),
			graph.Connect(spring, 0, sum, 0),
			graph.Connect(damper, 0, sum, 1),
			graph.Connect(sum, 0, vel, 0),
			graph.Connect(vel, 0, pos, 0),
			graph.Connect(pos, 0, scope, 0),
			graph.Connect(vel, 0, scope, 1),
		},
		cfg,
	)
	if err != nil {
		return nil, err
	}
	return &Built{Sim: sim, Scope: scope}, nil
}

// sineTracker integrates a sinusoidal source, exercising time-dependent
// inputs: x' = amplitude * sin(frequency * t).
func sineTracker(scheme solver.Scheme, params map[string]float64, cfg graph.Config) (*Built, error) {
	amplitude := param(params, "amplitude", 1.0)
	frequency := param(params, "frequency", 1.0)

	src := block.NewSource(func(t float64) float64 {
		return amplitude * math.Sin(frequency*t)
	})
	integ, err := block.NewIntegrator(param(params, "initial_value", 0.0), scheme)
	if err != nil {
		return nil, err
	}
	scope := block.NewScope("input", "output")

	sim, err := graph.New(
		[]block.Block{src, integ, scope},
		[]graph.Connection{
			graph.Connect(src, 0, integ, 0),
			graph.Connect(src, 0, scope, 0),
			graph.Connect(integ, 0, scope, 1),
		},
		cfg,
	)
	if err != nil {
		return nil, err
	}
	return &Built{Sim: sim, Scope: scope}, nil
}
