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
	"fmt"

	"go.uber.org/zap"

	"github.com/practical-formal-methods/cfa/ir"
)

// BlockState is what the analysis knows about one basic block.
type BlockState struct {
	ValuesAtHead ir.Operands[AbstractValue]
	ValuesAtTail ir.Operands[AbstractValue]
	// DefsAtHead and DefsAtTail hold the reaching definition of every slot:
	// ir.NoNode (none yet), a node, ir.EntryNode, or ir.AmbiguousNode.
	DefsAtHead ir.Operands[ir.NodeID]
	DefsAtTail ir.Operands[ir.NodeID]

	ShouldRevisit bool
	HasVisited    bool

	// Reached is set once control can flow into the block: for the entry
	// block on Initialize, for the others by a merge from a reached block.
	Reached         bool
	FoundConstants  bool
	DidFinish       bool
	BranchDirection BranchDirection
}

func newBlockState(g *ir.Graph) BlockState {
	bs := BlockState{
		ValuesAtHead: ir.NewOperands[AbstractValue](g.NumArguments(), g.NumLocals()),
		ValuesAtTail: ir.NewOperands[AbstractValue](g.NumArguments(), g.NumLocals()),
		DefsAtHead:   ir.NewOperands[ir.NodeID](g.NumArguments(), g.NumLocals()),
		DefsAtTail:   ir.NewOperands[ir.NodeID](g.NumArguments(), g.NumLocals()),
	}
	bs.DefsAtHead.Fill(ir.NoNode)
	bs.DefsAtTail.Fill(ir.NoNode)
	return bs
}

// blockFacts are the facts accumulated while interpreting one block. They are
// independent of each other and reset together by BeginBasicBlock.
type blockFacts struct {
	haveStructures  bool
	foundConstants  bool
	isValid         bool
	didClobber      bool
	branchDirection BranchDirection
}

// State is the abstract state of a control flow analysis over one graph.
//
// Node values live in a side array indexed by node id, so ForNode hands out
// the same storage on every visit. The live variable mapping belongs to the
// block between BeginBasicBlock and EndBasicBlock; there is exactly one such
// block at a time.
type State struct {
	graph       *ir.Graph
	nodeValues  []AbstractValue
	blocks      []BlockState
	variables   ir.Operands[AbstractValue]
	definitions ir.Operands[ir.NodeID]
	block       *ir.BasicBlock
	facts       blockFacts

	tailWouldChange bool
}

func NewState(g *ir.Graph) *State {
	s := &State{
		graph:       g,
		nodeValues:  make([]AbstractValue, g.NumNodes()),
		blocks:      make([]BlockState, g.NumBlocks()),
		variables:   ir.NewOperands[AbstractValue](g.NumArguments(), g.NumLocals()),
		definitions: ir.NewOperands[ir.NodeID](g.NumArguments(), g.NumLocals()),
	}
	for i := range s.blocks {
		s.blocks[i] = newBlockState(g)
	}
	s.definitions.Fill(ir.NoNode)
	return s
}

func (s *State) Graph() *ir.Graph {
	return s.graph
}

// CreateValueForNode is a no-op: storage for every node exists from the start.
func (s *State) CreateValueForNode(ir.NodeID) {}

// ForNode returns the abstract value of a node for in-place reads and writes.
func (s *State) ForNode(id ir.NodeID) *AbstractValue {
	if id < 0 || int(id) >= len(s.nodeValues) {
		panic(fmt.Sprintf("analysis: node %d is not part of the graph", id))
	}
	return &s.nodeValues[id]
}

// Variables returns the live variable mapping.
func (s *State) Variables() *ir.Operands[AbstractValue] {
	return &s.variables
}

// Definitions returns the live reaching-definition mapping.
func (s *State) Definitions() *ir.Operands[ir.NodeID] {
	return &s.definitions
}

// BlockState returns what is known about block b.
func (s *State) BlockState(b *ir.BasicBlock) *BlockState {
	if b == nil || b.Index < 0 || int(b.Index) >= len(s.blocks) || s.graph.Block(b.Index) != b {
		panic(fmt.Sprintf("analysis: block %v is not part of the graph", b))
	}
	return &s.blocks[b.Index]
}

// Block returns the block currently being interpreted, or nil.
func (s *State) Block() *ir.BasicBlock {
	return s.block
}

// Initialize must be called before the first block is visited. It clears all
// node values and block snapshots, seeds the entry block with the argument
// predictions, and marks every block unvisited and due for a visit.
func (s *State) Initialize() {
	for i := range s.nodeValues {
		s.nodeValues[i].Clear()
	}
	for i := range s.blocks {
		bs := &s.blocks[i]
		bs.ValuesAtHead.Fill(AbstractValue{})
		bs.ValuesAtTail.Fill(AbstractValue{})
		bs.DefsAtHead.Fill(ir.NoNode)
		bs.DefsAtTail.Fill(ir.NoNode)
		bs.ShouldRevisit = true
		bs.HasVisited = false
		bs.Reached = false
		bs.FoundConstants = false
		bs.DidFinish = false
		bs.BranchDirection = InvalidBranchDirection
	}

	root := &s.blocks[s.graph.Entry().Index]
	for i := 0; i < s.graph.NumArguments(); i++ {
		*root.ValuesAtHead.Argument(i) = valueForPrediction(s.graph.ArgumentPrediction(i))
	}
	root.DefsAtHead.Fill(ir.EntryNode)
	root.Reached = true
	s.Reset()
}

// BeginBasicBlock starts abstractly executing b. The live mapping is loaded
// from b's head snapshot, the per-block facts are reset and b no longer needs
// a revisit.
func (s *State) BeginBasicBlock(b *ir.BasicBlock) {
	bs := s.BlockState(b)
	s.variables.CopyFrom(&bs.ValuesAtHead)
	s.definitions.CopyFrom(&bs.DefsAtHead)

	s.facts = blockFacts{
		isValid:         true,
		branchDirection: InvalidBranchDirection,
	}
	for i := 0; i < s.variables.Len(); i++ {
		if s.variables.At(i).HasClobberableState() {
			s.facts.haveStructures = true
			break
		}
	}

	bs.ShouldRevisit = false
	bs.HasVisited = true
	s.block = b
	s.tailWouldChange = false
}

// EndBasicBlock finishes abstractly executing the current block.
//
// DontMerge:
//    Always returns false. Whether the tail would have changed is available
//    from TailWouldChange.
//
// MergeToTail:
//    Returns true if the state of the block at the tail was changed, which
//    means MergeToSuccessors must be called. Always false if the block is
//    terminal or did not execute to completion.
//
// MergeToSuccessors:
//    Returns true if the tail changed (for non-terminal blocks) or the head
//    of any successor changed. Successors that changed are marked for revisit.
//
// If the block did not execute to completion nothing is merged anywhere.
func (s *State) EndBasicBlock(mode MergeMode) bool {
	if s.block == nil {
		panic("analysis: EndBasicBlock without BeginBasicBlock")
	}
	block := s.block
	bs := s.BlockState(block)
	bs.FoundConstants = s.facts.foundConstants
	bs.DidFinish = s.facts.isValid
	bs.BranchDirection = s.facts.branchDirection

	if !s.facts.isValid {
		logger().Debug("block did not finish", zap.Stringer("block", block))
		s.Reset()
		return false
	}

	var changed bool
	switch mode {
	case DontMerge:
		wouldChange := s.tailChanged(block, bs)
		s.Reset()
		s.tailWouldChange = wouldChange
		return false
	case MergeToTail, MergeToSuccessors:
		changed = s.commitTail(block, bs)
	default:
		panic(fmt.Sprintf("analysis: invalid merge mode %d", mode))
	}
	s.Reset()

	if !s.graph.Node(block.Terminal()).Op.HasSuccessors() {
		// Nothing downstream can observe the tail.
		changed = false
	}
	if mode == MergeToTail {
		return changed
	}
	succChanged := s.MergeToSuccessors(block)
	return changed || succChanged
}

// TailWouldChange reports whether the last EndBasicBlock(DontMerge) found a
// tail state that differs from the block's recorded tail.
func (s *State) TailWouldChange() bool {
	return s.tailWouldChange
}

// commitTail joins the live mapping into the tail snapshot of block.
func (s *State) commitTail(block *ir.BasicBlock, bs *BlockState) bool {
	changed := false
	for i := 0; i < s.variables.Len(); i++ {
		changed = mergeStateAtTail(bs.ValuesAtTail.At(i), *s.variables.At(i),
			bs.DefsAtTail.At(i), *s.definitions.At(i), block.IsLiveAtTail(i)) || changed
	}
	return changed
}

// tailChanged is commitTail without the writes.
func (s *State) tailChanged(block *ir.BasicBlock, bs *BlockState) bool {
	for i := 0; i < s.variables.Len(); i++ {
		value := *bs.ValuesAtTail.At(i)
		def := *bs.DefsAtTail.At(i)
		if mergeStateAtTail(&value, *s.variables.At(i), &def, *s.definitions.At(i), block.IsLiveAtTail(i)) {
			return true
		}
	}
	return false
}

// Reset throws away the in-flight block. Afterwards BeginBasicBlock may be
// called on any block. References to the live mapping must not be kept
// across a Reset.
func (s *State) Reset() {
	s.block = nil
	s.variables.Fill(AbstractValue{})
	s.definitions.Fill(ir.NoNode)
	s.facts = blockFacts{branchDirection: InvalidBranchDirection}
	s.tailWouldChange = false
}

// ClobberStructures forgets every structure fact held by the live mapping and
// by the nodes of the current block up to and including indexInBlock.
func (s *State) ClobberStructures(indexInBlock int) {
	if !s.facts.haveStructures {
		return
	}
	for i := 0; i <= indexInBlock && i < len(s.block.Nodes); i++ {
		s.ForNode(s.block.Nodes[i]).ClobberStructures()
	}
	for i := 0; i < s.variables.Len(); i++ {
		s.variables.At(i).ClobberStructures()
	}
	s.facts.haveStructures = false
}

// Methods intended to be called from an abstract interpreter.

// DidClobber reports whether the last executed node clobbered the world.
func (s *State) DidClobber() bool {
	return s.facts.didClobber
}

// IsValid reports whether the execution state is still valid.
func (s *State) IsValid() bool {
	return s.facts.isValid
}

func (s *State) FoundConstants() bool {
	return s.facts.foundConstants
}

func (s *State) BranchDirection() BranchDirection {
	return s.facts.branchDirection
}

// HaveStructures reports whether any tracked value may carry structure facts.
// It may report true when none do; it never reports false when one does.
func (s *State) HaveStructures() bool {
	return s.facts.haveStructures
}

func (s *State) SetDidClobber(didClobber bool) {
	s.facts.didClobber = didClobber
}

func (s *State) SetIsValid(isValid bool) {
	s.facts.isValid = isValid
}

func (s *State) SetBranchDirection(d BranchDirection) {
	s.facts.branchDirection = d
}

func (s *State) SetFoundConstants(foundConstants bool) {
	s.facts.foundConstants = foundConstants
}

func (s *State) SetHaveStructures(haveStructures bool) {
	s.facts.haveStructures = haveStructures
}
