// Package graph wires blocks into a diagram and drives it through time. The
// simulation evaluates the algebraic part of the diagram to a fixed point at
// every solver stage, then advances all stepping engines, matching the
// buffer/step protocol the solver package documents.
package graph

import (
	"errors"
	"fmt"

	"github.com/san-kum/flowsim/internal/block"
)

// ErrNoConvergence indicates an algebraic loop whose fixed-point iteration
// did not settle within the configured iteration budget.
var ErrNoConvergence = errors.New("graph: algebraic loop failed to converge")

// Connection routes one output port to one input port.
type Connection struct {
	From block.Port
	To   block.Port
}

// Connect is shorthand for single-output to single-input wiring.
func Connect(from block.Block, fromPort int, to block.Block, toPort int) Connection {
	return Connection{
		From: block.Port{Block: from, Index: fromPort},
		To:   block.Port{Block: to, Index: toPort},
	}
}

func (c Connection) validate(index map[block.Block]int) error {
	fi, ok := index[c.From.Block]
	if !ok {
		return fmt.Errorf("graph: connection source block not in diagram")
	}
	ti, ok := index[c.To.Block]
	if !ok {
		return fmt.Errorf("graph: connection target block not in diagram")
	}
	if c.From.Index < 0 || c.From.Index >= c.From.Block.Outputs() {
		return fmt.Errorf("graph: block %d has no output port %d", fi, c.From.Index)
	}
	if c.To.Index < 0 || c.To.Index >= c.To.Block.Inputs() {
		return fmt.Errorf("graph: block %d has no input port %d", ti, c.To.Index)
	}
	return nil
}
