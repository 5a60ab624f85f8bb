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

// Merge merges the abstract state stored at the tail of from into the head
// of to. It returns true if the head of to changed, in which case to must be
// interpreted again. It also sets ShouldRevisit on to if it returns true, or
// if to has not been visited yet. A reached from makes to reached, which
// counts as a change.
func (s *State) Merge(from, to *ir.BasicBlock) bool {
	src := s.BlockState(from)
	dst := s.BlockState(to)
	if !src.ValuesAtTail.SameShape(&dst.ValuesAtHead) {
		panic(fmt.Sprintf("analysis: slot count mismatch merging %v into %v", from, to))
	}

	changed := false
	for i := 0; i < dst.ValuesAtHead.Len(); i++ {
		changed = mergeVariableBetweenBlocks(dst.ValuesAtHead.At(i), *src.ValuesAtTail.At(i),
			dst.DefsAtHead.At(i), *src.DefsAtTail.At(i), to.IsLiveAtHead(i)) || changed
	}

	if src.Reached && !dst.Reached {
		dst.Reached = true
		changed = true
	}
	if !dst.HasVisited {
		changed = true
	}
	dst.ShouldRevisit = dst.ShouldRevisit || changed

	logger().Debug("merge",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Bool("changed", changed))
	return changed
}

// MergeToSuccessors merges the tail of block into all successors that can be
// reached. It returns true if any successor's head changed. This is called
// automatically by EndBasicBlock(MergeToSuccessors).
func (s *State) MergeToSuccessors(block *ir.BasicBlock) bool {
	bs := s.BlockState(block)
	if !bs.DidFinish {
		return false
	}
	terminal := s.graph.Node(block.Terminal())
	switch terminal.Op {
	case ir.Jump:
		return s.Merge(block, s.graph.Block(terminal.Targets[0]))
	case ir.Branch:
		changed := false
		if bs.BranchDirection != TakeFalse {
			changed = s.Merge(block, s.graph.Block(terminal.Targets[0])) || changed
		}
		if bs.BranchDirection != TakeTrue {
			changed = s.Merge(block, s.graph.Block(terminal.Targets[1])) || changed
		}
		return changed
	case ir.Switch:
		changed := false
		for _, t := range terminal.Targets {
			changed = s.Merge(block, s.graph.Block(t)) || changed
		}
		return changed
	case ir.Return, ir.Throw, ir.Unreachable:
		return false
	default:
		panic(fmt.Sprintf("analysis: block %v ends in non-terminal %v", block, terminal.Op))
	}
}

// mergeStateAtTail joins the value a slot has at the end of the current visit
// into the slot's tail snapshot. Slots dead at the tail are left alone.
func mergeStateAtTail(destination *AbstractValue, inVariable AbstractValue, destinationNode *ir.NodeID, node ir.NodeID, live bool) bool {
	if !live {
		return false
	}
	changed := destination.Merge(inVariable)
	return mergeDefinitions(destinationNode, node) || changed
}

// mergeVariableBetweenBlocks joins one slot of a predecessor's tail into a
// successor's head. Slots dead at the destination are left alone.
func mergeVariableBetweenBlocks(destination *AbstractValue, source AbstractValue, destinationNode *ir.NodeID, sourceNode ir.NodeID, live bool) bool {
	if !live {
		return false
	}
	changed := destination.Merge(source)
	return mergeDefinitions(destinationNode, sourceNode) || changed
}

// mergeDefinitions joins reaching definitions: NoNode is bottom, AmbiguousNode
// is top, and two different definitions join to AmbiguousNode.
func mergeDefinitions(destination *ir.NodeID, source ir.NodeID) bool {
	switch {
	case source == ir.NoNode || *destination == ir.AmbiguousNode || *destination == source:
		return false
	case *destination == ir.NoNode:
		*destination = source
	default:
		*destination = ir.AmbiguousNode
	}
	return true
}
