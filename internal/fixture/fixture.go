// Package fixture reads and writes the regression-fixture records used to
// compare simulated trajectories against independently computed reference
// trajectories. A fixture is a JSON document of the form
//
//	{
//	  "test": "simple_integrator",
//	  "parameters": {"dt": 0.1, "duration": 10.0, ...},
//	  "results": {"time": [...], "output": [...], "num_points": 101}
//	}
//
// where every key of "results" other than "time" and "num_points" is a named
// signal series parallel to "time".
package fixture

import (
	"encoding/json"
	"fmt"
	"os"
)

// Results holds the reference trajectory: the time grid and one or more
// named signal series of equal length.
type Results struct {
	Time      []float64
	Signals   map[string][]float64
	NumPoints int
}

// Fixture is one regression record.
type Fixture struct {
	Test       string             `json:"test"`
	Parameters map[string]float64 `json:"parameters"`
	Results    Results            `json:"results"`
}

// MarshalJSON flattens the named signals next to time/num_points.
func (r Results) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Signals)+2)
	out["time"] = r.Time
	out["num_points"] = r.NumPoints
	for name, series := range r.Signals {
		if name == "time" || name == "num_points" {
			return nil, fmt.Errorf("fixture: reserved signal name %q", name)
		}
		out[name] = series
	}
	return json.Marshal(out)
}

// UnmarshalJSON picks time/num_points out of the results object and treats
// every remaining array as a named signal.
func (r *Results) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Signals = make(map[string][]float64)
	for name, msg := range raw {
		switch name {
		case "time":
			if err := json.Unmarshal(msg, &r.Time); err != nil {
				return fmt.Errorf("fixture: time: %w", err)
			}
		case "num_points":
			if err := json.Unmarshal(msg, &r.NumPoints); err != nil {
				return fmt.Errorf("fixture: num_points: %w", err)
			}
		default:
			var series []float64
			if err := json.Unmarshal(msg, &series); err != nil {
				return fmt.Errorf("fixture: signal %q: %w", name, err)
			}
			r.Signals[name] = series
		}
	}
	return nil
}

// validate checks the parallel-array invariant.
func (f *Fixture) validate() error {
	n := len(f.Results.Time)
	if f.Results.NumPoints != n {
		return fmt.Errorf("fixture %s: num_points %d, time has %d entries", f.Test, f.Results.NumPoints, n)
	}
	for name, series := range f.Results.Signals {
		if len(series) != n {
			return fmt.Errorf("fixture %s: signal %q has %d entries, time has %d", f.Test, name, len(series), n)
		}
	}
	return nil
}

// Load reads and validates a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("fixture: %s: %w", path, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Save writes a fixture file with the indentation the reference tooling
// uses.
func Save(path string, f *Fixture) error {
	if err := f.validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Signal returns the named series, or an error naming the available ones.
func (f *Fixture) Signal(name string) ([]float64, error) {
	series, ok := f.Results.Signals[name]
	if !ok {
		names := make([]string, 0, len(f.Results.Signals))
		for n := range f.Results.Signals {
			names = append(names, n)
		}
		return nil, fmt.Errorf("fixture %s: no signal %q (have %v)", f.Test, name, names)
	}
	return series, nil
}
