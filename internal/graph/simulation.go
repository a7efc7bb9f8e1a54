package graph

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/flowsim/internal/block"
)

const (
	DefaultDt        = 0.01
	DefaultTolerance = 1e-12
	DefaultMaxIter   = 100
)

// Config controls the time grid and the algebraic-loop iteration.
type Config struct {
	Dt        float64
	Tolerance float64
	MaxIter   int
}

func DefaultConfig() Config {
	return Config{
		Dt:        DefaultDt,
		Tolerance: DefaultTolerance,
		MaxIter:   DefaultMaxIter,
	}
}

// Simulation owns a validated diagram and advances it over a fixed time
// grid. Per timestep it buffers every integrator once, then for each solver
// stage settles the algebraic part of the diagram and feeds the resulting
// inputs to the engines as that stage's slopes. Scopes sample only committed
// timesteps.
//
// Simulation instances are NOT thread-safe.
type Simulation struct {
	blocks  []block.Block
	inbound [][]Connection
	order   []int
	dynamic []block.Dynamic
	dynIdx  []int
	scopes  []*block.Scope
	stages  []float64
	cfg     Config
	t       float64
	primed  bool
}

// New validates the diagram and prepares the evaluation order. All
// integrators must share one scheme, so every engine agrees on the stage
// count and stage times.
func New(blocks []block.Block, conns []Connection, cfg Config) (*Simulation, error) {
	if cfg.Dt <= 0 {
		return nil, fmt.Errorf("graph: dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = DefaultMaxIter
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("graph: empty diagram")
	}

	index := make(map[block.Block]int, len(blocks))
	for i, b := range blocks {
		if _, dup := index[b]; dup {
			return nil, fmt.Errorf("graph: block %d listed twice", i)
		}
		index[b] = i
	}

	s := &Simulation{
		blocks:  blocks,
		inbound: make([][]Connection, len(blocks)),
		cfg:     cfg,
	}

	driven := make(map[[2]int]bool, len(conns))
	for _, c := range conns {
		if err := c.validate(index); err != nil {
			return nil, err
		}
		ti := index[c.To.Block]
		key := [2]int{ti, c.To.Index}
		if driven[key] {
			return nil, fmt.Errorf("graph: input port %d of block %d has two drivers", c.To.Index, ti)
		}
		driven[key] = true
		s.inbound[ti] = append(s.inbound[ti], c)
	}

	for i, b := range blocks {
		if d, ok := b.(block.Dynamic); ok {
			s.dynamic = append(s.dynamic, d)
			s.dynIdx = append(s.dynIdx, i)
		}
		if sc, ok := b.(*block.Scope); ok {
			s.scopes = append(s.scopes, sc)
		}
	}

	if len(s.dynamic) > 0 {
		s.stages = s.dynamic[0].Engine().EvalStages()
		for _, d := range s.dynamic[1:] {
			if !sameStages(s.stages, d.Engine().EvalStages()) {
				return nil, fmt.Errorf("graph: integrators use different schemes")
			}
		}
	} else {
		s.stages = []float64{0}
	}

	s.order = evalOrder(blocks, index, conns)
	return s, nil
}

// sameStages reports whether two engines agree on stage count and times.
func sameStages(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// evalOrder topologically sorts the blocks over their instantaneous
// dependencies. Integrators and sink blocks have no direct feedthrough and
// contribute no edges, so only pure algebraic cycles survive; those blocks
// are appended in index order and left to the fixed-point iteration.
func evalOrder(blocks []block.Block, index map[block.Block]int, conns []Connection) []int {
	n := len(blocks)
	adj := make([][]int, n)
	indeg := make([]int, n)

	feedsThrough := func(b block.Block) bool {
		if b.Outputs() == 0 {
			return false
		}
		_, dynamic := b.(block.Dynamic)
		return !dynamic
	}

	for _, c := range conns {
		if !feedsThrough(c.To.Block) {
			continue
		}
		u, v := index[c.From.Block], index[c.To.Block]
		adj[u] = append(adj[u], v)
		indeg[v]++
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, n)
	for len(ready) > 0 {
		u := ready[0]
		ready = ready[1:]
		order = append(order, u)
		for _, v := range adj[u] {
			indeg[v]--
			if indeg[v] == 0 {
				ready = append(ready, v)
			}
		}
	}

	if len(order) < n {
		rest := make([]int, 0, n-len(order))
		seen := make([]bool, n)
		for _, i := range order {
			seen[i] = true
		}
		for i := 0; i < n; i++ {
			if !seen[i] {
				rest = append(rest, i)
			}
		}
		sort.Ints(rest)
		order = append(order, rest...)
	}
	return order
}

// Time returns the current simulation time.
func (s *Simulation) Time() float64 { return s.t }

// Scopes returns the diagram's recording blocks.
func (s *Simulation) Scopes() []*block.Scope { return s.scopes }

// Dt returns the timestep.
func (s *Simulation) Dt() float64 { return s.cfg.Dt }

// pull copies the driving outputs onto block bi's input ports.
func (s *Simulation) pull(bi int) {
	b := s.blocks[bi]
	for _, c := range s.inbound[bi] {
		b.SetInput(c.To.Index, c.From.Block.Output(c.From.Index))
	}
}

// settle iterates the algebraic part of the diagram at time t until the
// outputs stop moving. Acyclic diagrams converge within two passes thanks to
// the evaluation order; algebraic loops contract towards their fixed point
// or exhaust the iteration budget.
func (s *Simulation) settle(t float64) error {
	for it := 0; it < s.cfg.MaxIter; it++ {
		delta := 0.0
		for _, bi := range s.order {
			s.pull(bi)
			if d := s.blocks[bi].Update(t); d > delta {
				delta = d
			}
		}
		if delta <= s.cfg.Tolerance {
			return nil
		}
	}
	return fmt.Errorf("graph: tolerance %g not reached after %d iterations at t=%.6f: %w",
		s.cfg.Tolerance, s.cfg.MaxIter, t, ErrNoConvergence)
}

// prime settles the diagram at the initial time and takes the t=0 scope
// sample. Runs once, lazily, before the first step.
func (s *Simulation) prime() error {
	if s.primed {
		return nil
	}
	if err := s.settle(s.t); err != nil {
		return err
	}
	for _, sc := range s.scopes {
		sc.Sample(s.t)
	}
	s.primed = true
	return nil
}

// Step advances the diagram by one timestep.
func (s *Simulation) Step() error {
	if err := s.prime(); err != nil {
		return err
	}

	dt := s.cfg.Dt
	for _, d := range s.dynamic {
		if err := d.Buffer(dt); err != nil {
			return err
		}
	}

	for stage, c := range s.stages {
		ts := s.t + c*dt
		if err := s.settle(ts); err != nil {
			return err
		}
		// Refresh the integrator inputs now that their drivers are settled:
		// the slope each engine sees is the RHS at the solver's current
		// state, which for stage > 0 is the previous stage's predictor.
		for _, bi := range s.dynIdx {
			s.pull(bi)
		}
		for _, d := range s.dynamic {
			if err := d.StepStage(stage, ts, dt); err != nil {
				return err
			}
		}
	}

	s.t += dt
	if err := s.settle(s.t); err != nil {
		return err
	}
	for _, sc := range s.scopes {
		sc.Sample(s.t)
	}
	return nil
}

// Run advances the diagram for the given duration, checking for
// cancellation between steps.
func (s *Simulation) Run(ctx context.Context, duration float64) error {
	if duration <= 0 {
		return fmt.Errorf("graph: duration must be positive, got %f", duration)
	}

	steps := int(math.Round(duration / s.cfg.Dt))
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}
