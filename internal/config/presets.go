package config

import "sort"

// Presets are ready-made run configurations mirroring the regression
// scenarios.
var Presets = map[string]*Config{
	"simple_integrator": {
		Diagram: "simple_integrator", Scheme: "ssprk22", Dt: 0.1, Duration: 10.0,
		Params: map[string]float64{"constant_value": 1.0, "initial_value": 0.0},
	},
	"double_integrator": {
		Diagram: "double_integrator", Scheme: "ssprk22", Dt: 0.01, Duration: 10.0,
		Params: map[string]float64{"acceleration": 0.1, "initial_position": 1.0},
	},
	"feedback": {
		Diagram: "feedback", Scheme: "ssprk22", Dt: 0.01, Duration: 5.0,
		Params: map[string]float64{"gain": -1.0, "initial_value": 1.0},
	},
	"oscillator": {
		Diagram: "harmonic_oscillator", Scheme: "ssprk22", Dt: 0.01, Duration: 10.0,
		Params: map[string]float64{"omega": 1.0, "initial_position": 1.0},
	},
	"damped_oscillator": {
		Diagram: "harmonic_oscillator", Scheme: "ssprk22", Dt: 0.01, Duration: 30.0,
		Params: map[string]float64{"omega": 1.0, "damping": 0.2, "initial_position": 1.0},
	},
	"sine": {
		Diagram: "sine_tracker", Scheme: "ssprk22", Dt: 0.01, Duration: 20.0,
		Params: map[string]float64{"amplitude": 1.0, "frequency": 1.0},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := *p
	if cfg.Tolerance == 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.MaxIter == 0 {
		cfg.MaxIter = DefaultMaxIter
	}
	params := make(map[string]float64, len(p.Params))
	for k, v := range p.Params {
		params[k] = v
	}
	cfg.Params = params
	return &cfg
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
