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
	"testing"

	"github.com/practical-formal-methods/cfa/ir"
)

const branchOnArgument = `
arguments: 1
blocks:
  - name: entry
    nodes:
      - {name: c, op: GetLocal, argument: 0}
      - {op: Branch, child: c, taken: yes, not_taken: no}
  - name: yes
    nodes:
      - {name: a, op: GetLocal, argument: 0}
      - {op: Return, child: a}
  - name: no
    nodes:
      - {name: b, op: GetLocal, argument: 0}
      - {op: Return, child: b}
`

func TestMergeForcesUnvisitedBlocks(t *testing.T) {
	g := mustDecode(t, twoBlocks)
	entry, next := g.Entry(), block(t, g, "next")
	st := NewState(g)
	st.Initialize()
	st.BlockState(next).ShouldRevisit = false

	// Both snapshots are bottom, yet next has never been visited.
	if !st.Merge(entry, next) {
		t.Errorf("merge into an unvisited block must report a change")
	}
	if !st.BlockState(next).ShouldRevisit {
		t.Errorf("merge into an unvisited block must mark it for revisit")
	}
}

func TestMergeHonorsBranchDirection(t *testing.T) {
	tests := []struct {
		direction BranchDirection
		yes, no   bool
	}{
		{TakeTrue, true, false},
		{TakeFalse, false, true},
		{TakeBoth, true, true},
		{InvalidBranchDirection, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.direction.String(), func(t *testing.T) {
			g := mustDecode(t, branchOnArgument)
			entry, yes, no := g.Entry(), block(t, g, "yes"), block(t, g, "no")
			st := NewState(g)
			st.Initialize()
			for _, b := range []*ir.BasicBlock{yes, no} {
				st.BeginBasicBlock(b)
				st.EndBasicBlock(MergeToSuccessors)
			}

			st.BeginBasicBlock(entry)
			st.SetBranchDirection(tt.direction)
			if !st.EndBasicBlock(MergeToSuccessors) {
				t.Errorf("EndBasicBlock = false, want true")
			}
			for _, c := range []struct {
				b    *ir.BasicBlock
				want bool
			}{{yes, tt.yes}, {no, tt.no}} {
				bs := st.BlockState(c.b)
				merged := !bs.ValuesAtHead.Argument(0).IsClear()
				if merged != c.want || bs.ShouldRevisit != c.want {
					t.Errorf("%v: merged=%v revisit=%v, want %v", c.b, merged, bs.ShouldRevisit, c.want)
				}
			}
		})
	}
}

func TestMergeSwitchReachesAllTargets(t *testing.T) {
	g := mustDecode(t, `
locals: 1
blocks:
  - name: entry
    nodes:
      - {name: k, op: Constant, value: "2"}
      - {op: SetLocal, local: 0, child: k}
      - {op: Switch, child: k, cases: [a, b], fall_through: c}
  - {name: a, nodes: [{name: x, op: GetLocal, local: 0}, {op: Return, child: x}]}
  - {name: b, nodes: [{name: y, op: GetLocal, local: 0}, {op: Return, child: y}]}
  - {name: c, nodes: [{name: z, op: GetLocal, local: 0}, {op: Return, child: z}]}
`)
	st := NewState(g)
	st.Initialize()
	st.BeginBasicBlock(g.Entry())
	*st.Variables().Local(0) = intValue(2)
	st.EndBasicBlock(MergeToSuccessors)
	for _, name := range []string{"a", "b", "c"} {
		if got := *st.BlockState(block(t, g, name)).ValuesAtHead.Local(0); got != intValue(2) {
			t.Errorf("%s head = %v, want Int(2)", name, got)
		}
	}
}

func TestMergeSkipsDeadSlots(t *testing.T) {
	g := mustDecode(t, `
locals: 2
blocks:
  - name: entry
    nodes:
      - {op: Jump, target: next}
  - name: next
    nodes:
      - {name: x, op: GetLocal, local: 1}
      - {op: Return, child: x}
`)
	entry, next := g.Entry(), block(t, g, "next")
	st := NewState(g)
	st.Initialize()
	st.BeginBasicBlock(entry)
	*st.Variables().Local(0) = intValue(1)
	*st.Variables().Local(1) = intValue(2)
	st.EndBasicBlock(MergeToSuccessors)

	head := st.BlockState(next).ValuesAtHead
	if !head.Local(0).IsClear() {
		t.Errorf("dead slot was merged: %v", *head.Local(0))
	}
	if *head.Local(1) != intValue(2) {
		t.Errorf("live slot = %v, want Int(2)", *head.Local(1))
	}
}

func TestMergeDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		dst, src ir.NodeID
		want     ir.NodeID
		changed  bool
	}{
		{"bottom source", 3, ir.NoNode, 3, false},
		{"bottom destination", ir.NoNode, 3, 3, true},
		{"same node", 3, 3, 3, false},
		{"different nodes", 3, 4, ir.AmbiguousNode, true},
		{"entry and node", ir.EntryNode, 4, ir.AmbiguousNode, true},
		{"already ambiguous", ir.AmbiguousNode, 4, ir.AmbiguousNode, false},
		{"ambiguous source", 3, ir.AmbiguousNode, ir.AmbiguousNode, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := tt.dst
			changed := mergeDefinitions(&dst, tt.src)
			if dst != tt.want || changed != tt.changed {
				t.Errorf("mergeDefinitions(%d, %d) = %d, %v; want %d, %v", tt.dst, tt.src, dst, changed, tt.want, tt.changed)
			}
		})
	}
}

func TestMergeWidensDisagreeingDefinitions(t *testing.T) {
	g := mustDecode(t, `
locals: 1
blocks:
  - name: entry
    nodes:
      - {name: c, op: Constant, value: "1"}
      - {op: Branch, child: c, taken: left, not_taken: right}
  - name: left
    nodes:
      - {name: one, op: Constant, value: "1"}
      - {op: SetLocal, local: 0, child: one}
      - {op: Jump, target: join}
  - name: right
    nodes:
      - {name: uno, op: Constant, value: "1"}
      - {op: SetLocal, local: 0, child: uno}
      - {op: Jump, target: join}
  - name: join
    nodes:
      - {name: x, op: GetLocal, local: 0}
      - {op: Return, child: x}
`)
	left, right, join := block(t, g, "left"), block(t, g, "right"), block(t, g, "join")
	st := NewState(g)
	st.Initialize()
	st.BlockState(left).Reached = true
	st.BlockState(right).Reached = true

	for _, b := range []*ir.BasicBlock{left, right} {
		st.BeginBasicBlock(b)
		*st.Variables().Local(0) = intValue(1)
		*st.Definitions().Local(0) = b.Nodes[1]
		st.EndBasicBlock(MergeToSuccessors)
	}
	bs := st.BlockState(join)
	if *bs.ValuesAtHead.Local(0) != intValue(1) {
		t.Errorf("equal constants must survive the merge, got %v", *bs.ValuesAtHead.Local(0))
	}
	if *bs.DefsAtHead.Local(0) != ir.AmbiguousNode {
		t.Errorf("definitions from two blocks must widen to ambiguous, got %d", *bs.DefsAtHead.Local(0))
	}
}

func TestMergePropagatesReachability(t *testing.T) {
	g := mustDecode(t, `
blocks:
  - {name: entry, nodes: [{op: Jump, target: next}]}
  - {name: next, nodes: [{op: Jump, target: last}]}
  - {name: last, nodes: [{op: Unreachable}]}
`)
	entry, next, last := g.Entry(), block(t, g, "next"), block(t, g, "last")
	st := NewState(g)
	st.Initialize()
	for _, b := range []*ir.BasicBlock{next, last} {
		st.BeginBasicBlock(b)
		st.EndBasicBlock(MergeToSuccessors)
	}
	if st.Merge(next, last) {
		t.Errorf("merging from an unreached block must not change a visited one")
	}
	if st.BlockState(last).Reached {
		t.Errorf("last reached through an unreached block")
	}
	// Slot-free graphs still learn reachability through merges.
	if !st.Merge(entry, next) || !st.BlockState(next).Reached {
		t.Errorf("merge from the entry must reach next")
	}
}
