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

package ir

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	ErrEmptyGraph    = errors.New("graph has no blocks")
	ErrEmptyBlock    = errors.New("block has no nodes")
	ErrNoTerminal    = errors.New("block does not end in a terminal")
	ErrEarlyTerminal = errors.New("terminal before the end of the block")
	ErrBadChild      = errors.New("child must be an earlier node of the same block")
	ErrBadArity      = errors.New("wrong number of children")
	ErrBadOperand    = errors.New("operand out of range")
	ErrBadTarget     = errors.New("invalid branch target")
	ErrBadOpcode     = errors.New("invalid opcode")
)

// Builder assembles a Graph. Topology is validated and derived facts
// (predecessors, successors, liveness) are computed by Finish.
type Builder struct {
	g *Graph
}

func NewBuilder(numArguments, numLocals int) *Builder {
	return &Builder{
		g: &Graph{
			numArguments: numArguments,
			numLocals:    numLocals,
			predictions:  make([]Prediction, numArguments),
		},
	}
}

// SetPrediction records what is known about an argument on entry.
func (b *Builder) SetPrediction(argument int, p Prediction) {
	b.g.predictions[argument] = p
}

// AddBlock appends an empty block. The first block is the entry.
func (b *Builder) AddBlock(name string) BlockIndex {
	idx := BlockIndex(len(b.g.blocks))
	b.g.blocks = append(b.g.blocks, &BasicBlock{Index: idx, Name: name})
	return idx
}

// Append adds n at the end of block and returns its id.
func (b *Builder) Append(block BlockIndex, n Node) NodeID {
	blk := b.g.Block(block)
	n.ID = NodeID(len(b.g.nodes))
	n.Block = block
	n.Index = len(blk.Nodes)
	b.g.nodes = append(b.g.nodes, n)
	blk.Nodes = append(blk.Nodes, n.ID)
	return n.ID
}

func (b *Builder) Constant(block BlockIndex, v uint64) NodeID {
	n := Node{Op: Constant}
	n.Value.SetUint64(v)
	return b.Append(block, n)
}

func (b *Builder) ConstantWord(block BlockIndex, v *uint256.Int) NodeID {
	n := Node{Op: Constant}
	n.Value.Set(v)
	return b.Append(block, n)
}

func (b *Builder) GetLocal(block BlockIndex, op Operand) NodeID {
	return b.Append(block, Node{Op: GetLocal, Operand: op})
}

func (b *Builder) SetLocal(block BlockIndex, op Operand, child NodeID) NodeID {
	return b.Append(block, Node{Op: SetLocal, Operand: op, Children: []NodeID{child}})
}

// Binary appends a two-operand node (Add, Sub, Mul, CompareEq, CompareLess).
func (b *Builder) Binary(block BlockIndex, op Opcode, left, right NodeID) NodeID {
	return b.Append(block, Node{Op: op, Children: []NodeID{left, right}})
}

func (b *Builder) LogicalNot(block BlockIndex, child NodeID) NodeID {
	return b.Append(block, Node{Op: LogicalNot, Children: []NodeID{child}})
}

func (b *Builder) NewObject(block BlockIndex, structure uint32) NodeID {
	return b.Append(block, Node{Op: NewObject, Structure: structure})
}

func (b *Builder) CheckStructure(block BlockIndex, child NodeID, structure uint32) NodeID {
	return b.Append(block, Node{Op: CheckStructure, Children: []NodeID{child}, Structure: structure})
}

func (b *Builder) CheckInt(block BlockIndex, child NodeID) NodeID {
	return b.Append(block, Node{Op: CheckInt, Children: []NodeID{child}})
}

func (b *Builder) Call(block BlockIndex, children ...NodeID) NodeID {
	return b.Append(block, Node{Op: Call, Children: children})
}

func (b *Builder) ForceExit(block BlockIndex) NodeID {
	return b.Append(block, Node{Op: ForceExit})
}

func (b *Builder) Jump(block, target BlockIndex) NodeID {
	return b.Append(block, Node{Op: Jump, Targets: []BlockIndex{target}})
}

func (b *Builder) Branch(block BlockIndex, cond NodeID, taken, notTaken BlockIndex) NodeID {
	return b.Append(block, Node{Op: Branch, Children: []NodeID{cond}, Targets: []BlockIndex{taken, notTaken}})
}

// Switch appends a multi-way terminal; fallThrough is taken when no case matches.
func (b *Builder) Switch(block BlockIndex, child NodeID, fallThrough BlockIndex, cases ...BlockIndex) NodeID {
	targets := append(append([]BlockIndex{}, cases...), fallThrough)
	return b.Append(block, Node{Op: Switch, Children: []NodeID{child}, Targets: targets})
}

func (b *Builder) Return(block BlockIndex, child NodeID) NodeID {
	return b.Append(block, Node{Op: Return, Children: []NodeID{child}})
}

func (b *Builder) Throw(block BlockIndex, child NodeID) NodeID {
	return b.Append(block, Node{Op: Throw, Children: []NodeID{child}})
}

func (b *Builder) Unreachable(block BlockIndex) NodeID {
	return b.Append(block, Node{Op: Unreachable})
}

// Finish validates the graph and computes predecessors, successors and liveness.
func (b *Builder) Finish() (*Graph, error) {
	g := b.g
	if len(g.blocks) == 0 {
		return nil, ErrEmptyGraph
	}
	for _, blk := range g.blocks {
		if err := g.validateBlock(blk); err != nil {
			return nil, fmt.Errorf("block %v: %w", blk, err)
		}
	}
	for _, blk := range g.blocks {
		blk.Successors = successorsOf(g.Node(blk.Terminal()))
		for _, s := range blk.Successors {
			succ := g.blocks[s]
			if !containsBlock(succ.Predecessors, blk.Index) {
				succ.Predecessors = append(succ.Predecessors, blk.Index)
			}
		}
	}
	g.ComputeLiveness()
	return g, nil
}

func (g *Graph) validateBlock(blk *BasicBlock) error {
	if len(blk.Nodes) == 0 {
		return ErrEmptyBlock
	}
	for i, id := range blk.Nodes {
		n := g.Node(id)
		info := n.Op.Info()
		if !info.Valid {
			return fmt.Errorf("node %v: %w %d", n, ErrBadOpcode, n.Op)
		}
		last := i == len(blk.Nodes)-1
		if n.Op.IsTerminal() && !last {
			return fmt.Errorf("node %v: %w", n, ErrEarlyTerminal)
		}
		if last && !n.Op.IsTerminal() {
			return ErrNoTerminal
		}
		if len(n.Children) < info.MinChildren || (info.MaxChildren != unlimited && len(n.Children) > info.MaxChildren) {
			return fmt.Errorf("node %v (%v): %w: %d", n, n.Op, ErrBadArity, len(n.Children))
		}
		for _, c := range n.Children {
			if c < 0 || int(c) >= len(g.nodes) {
				return fmt.Errorf("node %v: %w", n, ErrBadChild)
			}
			child := g.Node(c)
			if child.Block != blk.Index || child.Index >= n.Index {
				return fmt.Errorf("node %v: %w", n, ErrBadChild)
			}
		}
		if n.Op.AccessesLocal() {
			limit := g.numLocals
			if n.Operand.IsArgument {
				limit = g.numArguments
			}
			if n.Operand.Index < 0 || n.Operand.Index >= limit {
				return fmt.Errorf("node %v: %w: %v", n, ErrBadOperand, n.Operand)
			}
		}
		if info.NumTargets != unlimited && len(n.Targets) != info.NumTargets {
			return fmt.Errorf("node %v: %w: want %d targets, have %d", n, ErrBadTarget, info.NumTargets, len(n.Targets))
		}
		if n.Op == Switch && len(n.Targets) == 0 {
			return fmt.Errorf("node %v: %w: switch without fall-through", n, ErrBadTarget)
		}
		for _, t := range n.Targets {
			if t < 0 || int(t) >= len(g.blocks) {
				return fmt.Errorf("node %v: %w: %d", n, ErrBadTarget, t)
			}
		}
	}
	return nil
}

// successorsOf returns the distinct targets of a terminal in order.
func successorsOf(terminal *Node) []BlockIndex {
	var succs []BlockIndex
	for _, t := range terminal.Targets {
		if !containsBlock(succs, t) {
			succs = append(succs, t)
		}
	}
	return succs
}

func containsBlock(blocks []BlockIndex, b BlockIndex) bool {
	for _, x := range blocks {
		if x == b {
			return true
		}
	}
	return false
}
