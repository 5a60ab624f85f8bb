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
	"fmt"

	"github.com/holiman/uint256"
	"github.com/willf/bitset"
)

// NodeID is the stable index of a node in the graph's node arena.
type NodeID int32

const (
	// NoNode means no node.
	NoNode NodeID = -1
	// AmbiguousNode stands for "more than one node".
	AmbiguousNode NodeID = -2
	// EntryNode stands for the function entry, which defines every slot on entry.
	EntryNode NodeID = -3
)

// BlockIndex is the stable index of a basic block.
type BlockIndex int32

// Prediction is what is statically known about an argument on entry.
type Prediction byte

const (
	PredictAny Prediction = iota
	PredictInt
	PredictBool
	PredictObject
)

var predictionNames = [...]string{"any", "int", "bool", "object"}

func (p Prediction) String() string {
	if int(p) < len(predictionNames) {
		return predictionNames[p]
	}
	return "invalid"
}

// PredictionByName parses a prediction name.
func PredictionByName(name string) (Prediction, bool) {
	for p, n := range predictionNames {
		if n == name {
			return Prediction(p), true
		}
	}
	return PredictAny, false
}

// Node is a single IR instruction.
type Node struct {
	ID    NodeID
	Op    Opcode
	Name  string
	Block BlockIndex
	// Index is the position of the node inside its block.
	Index int

	Children []NodeID
	// Operand is the slot accessed by GetLocal and SetLocal.
	Operand Operand
	// Value is the literal of a Constant.
	Value uint256.Int
	// Structure is the structure id used by NewObject and CheckStructure.
	Structure uint32
	// Targets are the successors of a terminal.
	// Branch: [taken, notTaken]. Switch: cases followed by the fall-through.
	Targets []BlockIndex
}

func (n *Node) String() string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("n%d", n.ID)
}

// Child returns the i-th child.
func (n *Node) Child(i int) NodeID {
	return n.Children[i]
}

// BasicBlock is an ordered sequence of nodes ending in a terminal.
type BasicBlock struct {
	Index        BlockIndex
	Name         string
	Nodes        []NodeID
	Predecessors []BlockIndex
	Successors   []BlockIndex

	// LiveAtHead and LiveAtTail hold the flat slot indices live on block entry and exit.
	LiveAtHead *bitset.BitSet
	LiveAtTail *bitset.BitSet
}

func (b *BasicBlock) String() string {
	if b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("#%d", b.Index)
}

// Terminal returns the last node of the block.
func (b *BasicBlock) Terminal() NodeID {
	return b.Nodes[len(b.Nodes)-1]
}

// IsLiveAtHead reports whether the slot is live on block entry.
// Without liveness information every slot is live.
func (b *BasicBlock) IsLiveAtHead(slot int) bool {
	return b.LiveAtHead == nil || b.LiveAtHead.Test(uint(slot))
}

// IsLiveAtTail reports whether the slot is live on block exit.
func (b *BasicBlock) IsLiveAtTail(slot int) bool {
	return b.LiveAtTail == nil || b.LiveAtTail.Test(uint(slot))
}

// Graph is the control-flow graph of one function. Its topology does not change once built.
type Graph struct {
	nodes        []Node
	blocks       []*BasicBlock
	numArguments int
	numLocals    int
	predictions  []Prediction
}

func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

func (g *Graph) NumBlocks() int {
	return len(g.blocks)
}

func (g *Graph) NumArguments() int {
	return g.numArguments
}

func (g *Graph) NumLocals() int {
	return g.numLocals
}

// NumSlots returns the number of variable slots (arguments and locals).
func (g *Graph) NumSlots() int {
	return g.numArguments + g.numLocals
}

// SlotIndex returns the flat slot index of op.
func (g *Graph) SlotIndex(op Operand) int {
	if op.IsArgument {
		return op.Index
	}
	return g.numArguments + op.Index
}

func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		panic(fmt.Sprintf("ir: node %d is not part of the graph", id))
	}
	return &g.nodes[id]
}

func (g *Graph) Block(i BlockIndex) *BasicBlock {
	if i < 0 || int(i) >= len(g.blocks) {
		panic(fmt.Sprintf("ir: block %d is not part of the graph", i))
	}
	return g.blocks[i]
}

// Entry returns the root block.
func (g *Graph) Entry() *BasicBlock {
	return g.Block(0)
}

// ArgumentPrediction returns what is known about argument i on entry.
func (g *Graph) ArgumentPrediction(i int) Prediction {
	if i < len(g.predictions) {
		return g.predictions[i]
	}
	return PredictAny
}

// BlockByName finds a block by name.
func (g *Graph) BlockByName(name string) (*BasicBlock, bool) {
	for _, b := range g.blocks {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}
