// Copyright 2018 MPI-SWS and Valentin Wuestholz

// This file is part of Bran.
//
// Bran is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Bran is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Bran.  If not, see <https://www.gnu.org/licenses/>.

package analysis

import (
	"errors"
	"fmt"

	"github.com/willf/bitset"
	"go.uber.org/zap"

	"github.com/practical-formal-methods/cfa/ir"
)

var (
	// ErrNoFixedPoint is returned when the analysis did not converge within the iteration limit.
	ErrNoFixedPoint = errors.New("analysis did not reach a fixed point")
	// ErrUnstableFixedPoint is returned when verification finds a block whose tail would still change.
	ErrUnstableFixedPoint = errors.New("fixed point is not stable")
)

// DefaultMaxIterations bounds the number of sweeps over the graph.
const DefaultMaxIterations = 10000

// CFAStats counts the work done by a run.
type CFAStats struct {
	Iterations    int `json:"iterations"`
	BlockVisits   int `json:"blockVisits"`
	ChangedMerges int `json:"changedMerges"`
}

// CFA computes the fixed point of the abstract state over a graph.
type CFA struct {
	graph         *ir.Graph
	state         *State
	interpreter   *AbstractInterpreter
	maxIterations int
	verify        bool
	stats         CFAStats
}

// CFAOption configures a CFA.
type CFAOption func(*CFA)

// WithMaxIterations sets the sweep limit. Non-positive values select DefaultMaxIterations.
func WithMaxIterations(n int) CFAOption {
	return func(c *CFA) {
		if n <= 0 {
			n = DefaultMaxIterations
		}
		c.maxIterations = n
	}
}

// WithVerification makes Run check that the fixed point is stable.
func WithVerification(verify bool) CFAOption {
	return func(c *CFA) {
		c.verify = verify
	}
}

func NewCFA(g *ir.Graph, opts ...CFAOption) *CFA {
	c := &CFA{
		graph:         g,
		state:         NewState(g),
		interpreter:   NewAbstractInterpreter(g),
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CFA) State() *State {
	return c.state
}

func (c *CFA) Stats() CFAStats {
	return c.stats
}

// Run computes the fixed point from scratch.
func (c *CFA) Run() error {
	c.stats = CFAStats{}
	c.state.Initialize()

	// Initialize marks every block for revisit.
	dirty := bitset.New(uint(c.graph.NumBlocks()))
	for i := 0; i < c.graph.NumBlocks(); i++ {
		if c.state.BlockState(c.graph.Block(ir.BlockIndex(i))).ShouldRevisit {
			dirty.Set(uint(i))
		}
	}
	for dirty.Any() {
		if c.stats.Iterations >= c.maxIterations {
			logger().Warn("giving up on fixed point", zap.Int("iterations", c.stats.Iterations))
			return fmt.Errorf("%w after %d iterations", ErrNoFixedPoint, c.stats.Iterations)
		}
		c.stats.Iterations++

		// Successors marked ahead of i are visited in this sweep, the
		// others in the next one.
		for i, ok := dirty.NextSet(0); ok; i, ok = dirty.NextSet(i + 1) {
			dirty.Clear(i)
			block := c.graph.Block(ir.BlockIndex(i))
			if !c.performBlockCFA(block) {
				continue
			}
			for _, succ := range block.Successors {
				if c.state.BlockState(c.graph.Block(succ)).ShouldRevisit {
					dirty.Set(uint(succ))
				}
			}
		}
	}

	logger().Info("reached fixed point",
		zap.Int("blocks", c.graph.NumBlocks()),
		zap.Int("iterations", c.stats.Iterations),
		zap.Int("visits", c.stats.BlockVisits),
		zap.Int("changedMerges", c.stats.ChangedMerges))

	if c.verify {
		return c.verifyFixedPoint()
	}
	return nil
}

// performBlockCFA visits one block and reports whether anything downstream changed.
func (c *CFA) performBlockCFA(block *ir.BasicBlock) bool {
	c.stats.BlockVisits++
	finished := c.execute(block)
	changed := c.state.EndBasicBlock(MergeToSuccessors)
	if changed {
		c.stats.ChangedMerges++
	}
	logger().Debug("visited block",
		zap.Stringer("block", block),
		zap.Bool("finished", finished),
		zap.Bool("changed", changed))
	return changed
}

// execute begins block and interprets it. A block that control cannot reach
// yet is not interpreted; its state is bottom, so the visit ends invalid.
func (c *CFA) execute(block *ir.BasicBlock) bool {
	c.state.BeginBasicBlock(block)
	if !c.state.BlockState(block).Reached {
		c.state.SetIsValid(false)
		return false
	}
	return c.interpreter.ExecuteBlock(c.state)
}

// verifyFixedPoint re-executes every visited block without merging and fails
// if any of them would produce a different tail.
func (c *CFA) verifyFixedPoint() error {
	for i := 0; i < c.graph.NumBlocks(); i++ {
		block := c.graph.Block(ir.BlockIndex(i))
		bs := c.state.BlockState(block)
		if !bs.HasVisited {
			continue
		}
		saved := *bs
		c.execute(block)
		c.state.EndBasicBlock(DontMerge)
		wouldChange := c.state.TailWouldChange()
		// Verification must not disturb what the run recorded.
		*bs = saved
		if wouldChange {
			return fmt.Errorf("%w: block %v", ErrUnstableFixedPoint, block)
		}
	}
	return nil
}

// Result returns the outcome of the last Run.
func (c *CFA) Result() *Result {
	return newResult(c.state, c.stats)
}
