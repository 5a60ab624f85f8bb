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
	"github.com/willf/bitset"
)

// ComputeLiveness computes the variable slots live at the head and tail of every block.
//
// A slot is live at a point if some path from that point reads it (GetLocal)
// before writing it (SetLocal). The sets are the usual backward fixed point:
//   liveOut(b) = union of liveIn(s) over successors s
//   liveIn(b)  = gen(b) | (liveOut(b) - kill(b))
func (g *Graph) ComputeLiveness() {
	numSlots := uint(g.NumSlots())
	gen := make([]*bitset.BitSet, len(g.blocks))
	kill := make([]*bitset.BitSet, len(g.blocks))
	for i, blk := range g.blocks {
		gen[i], kill[i] = bitset.New(numSlots), bitset.New(numSlots)
		for _, id := range blk.Nodes {
			n := g.Node(id)
			if !n.Op.AccessesLocal() {
				continue
			}
			slot := uint(g.SlotIndex(n.Operand))
			if n.Op.WritesLocal() {
				kill[i].Set(slot)
			} else if !kill[i].Test(slot) {
				gen[i].Set(slot)
			}
		}
		blk.LiveAtHead = gen[i].Clone()
		blk.LiveAtTail = bitset.New(numSlots)
	}

	for changed := true; changed; {
		changed = false
		for i := len(g.blocks) - 1; 0 <= i; i-- {
			blk := g.blocks[i]
			out := bitset.New(numSlots)
			for _, s := range blk.Successors {
				out.InPlaceUnion(g.blocks[s].LiveAtHead)
			}
			in := out.Difference(kill[i]).Union(gen[i])
			if !out.Equal(blk.LiveAtTail) || !in.Equal(blk.LiveAtHead) {
				blk.LiveAtTail = out
				blk.LiveAtHead = in
				changed = true
			}
		}
	}
}
