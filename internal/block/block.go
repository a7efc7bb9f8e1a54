// Package block provides the node types of a block diagram: signal sources,
// algebraic operators, integrators, and scopes. Blocks exchange scalar
// signals through numbered ports; the graph package wires and drives them.
package block

import "github.com/san-kum/flowsim/internal/solver"

// Block is a diagram node. Update recomputes the outputs from the current
// inputs (and internal state) at time t and reports the largest absolute
// change of any output, which the driving loop uses as its fixed-point
// convergence measure.
type Block interface {
	Inputs() int
	Outputs() int
	SetInput(port int, v float64)
	Output(port int) float64
	Update(t float64) float64
}

// Dynamic is a block with continuous state advanced by a stepping engine.
// The driving loop buffers every dynamic block once per timestep and then
// steps them stage by stage.
type Dynamic interface {
	Block
	Buffer(dt float64) error
	StepStage(stage int, t, dt float64) error
	Engine() *solver.Engine
}

// Port identifies one input or output of a block.
type Port struct {
	Block Block
	Index int
}

// delta returns |a-b|, the per-output convergence contribution.
func delta(a, b float64) float64 {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}
