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
	"github.com/ethereum/go-ethereum/common"
	"github.com/willf/bitset"

	"github.com/practical-formal-methods/cfa/ir"
)

// SlotResult is the value of one variable slot.
type SlotResult struct {
	Slot       string        `json:"slot"`
	Value      AbstractValue `json:"value"`
	Definition string        `json:"definition,omitempty"`

	site definitionSite
}

// BlockResult is what the analysis proved about one block.
type BlockResult struct {
	Name            string          `json:"name"`
	Reachable       bool            `json:"reachable"`
	Finished        bool            `json:"finished"`
	FoundConstants  bool            `json:"foundConstants"`
	BranchDirection BranchDirection `json:"branchDirection"`
	Head            []SlotResult    `json:"head,omitempty"`
	Tail            []SlotResult    `json:"tail,omitempty"`
}

// Result is the outcome of an analysis run.
type Result struct {
	Fingerprint common.Hash   `json:"fingerprint"`
	Blocks      []BlockResult `json:"blocks"`
	Stats       CFAStats      `json:"stats"`

	// Reachable has a bit set for every block control can flow into.
	Reachable *bitset.BitSet `json:"-"`
}

func newResult(st *State, stats CFAStats) *Result {
	g := st.Graph()
	res := &Result{
		Fingerprint: g.Fingerprint(),
		Blocks:      make([]BlockResult, g.NumBlocks()),
		Stats:       stats,
		Reachable:   bitset.New(uint(g.NumBlocks())),
	}
	for i := range res.Blocks {
		block := g.Block(ir.BlockIndex(i))
		bs := st.BlockState(block)
		br := BlockResult{
			Name:            block.Name,
			Reachable:       bs.Reached,
			Finished:        bs.DidFinish,
			FoundConstants:  bs.FoundConstants,
			BranchDirection: bs.BranchDirection,
		}
		if bs.Reached {
			br.Head = slotResults(&bs.ValuesAtHead, &bs.DefsAtHead, g)
			res.Reachable.Set(uint(i))
		}
		if bs.DidFinish {
			br.Tail = slotResults(&bs.ValuesAtTail, &bs.DefsAtTail, g)
		}
		res.Blocks[i] = br
	}
	return res
}

// slotResults lists the slots that hold information.
func slotResults(values *ir.Operands[AbstractValue], defs *ir.Operands[ir.NodeID], g *ir.Graph) []SlotResult {
	var out []SlotResult
	for i := 0; i < values.Len(); i++ {
		v := *values.At(i)
		if v.IsClear() {
			continue
		}
		site := siteOf(*defs.At(i), g)
		out = append(out, SlotResult{
			Slot:       values.OperandAt(i).String(),
			Value:      v,
			Definition: site.name(g),
			site:       site,
		})
	}
	return out
}

// definitionSite locates a reaching definition by block and position, which
// stay the same across graphs with equal fingerprints.
type definitionSite struct {
	id    ir.NodeID
	block ir.BlockIndex
	index int
}

func siteOf(id ir.NodeID, g *ir.Graph) definitionSite {
	switch id {
	case ir.NoNode, ir.EntryNode, ir.AmbiguousNode:
		return definitionSite{id: id}
	}
	n := g.Node(id)
	return definitionSite{id: id, block: n.Block, index: n.Index}
}

func (d definitionSite) name(g *ir.Graph) string {
	switch d.id {
	case ir.NoNode:
		return ""
	case ir.EntryNode:
		return "entry"
	case ir.AmbiguousNode:
		return "ambiguous"
	default:
		return g.Node(g.Block(d.block).Nodes[d.index]).String()
	}
}

// relabel returns a copy of r named after g. g must have the fingerprint of
// the graph r was computed for.
func (r *Result) relabel(g *ir.Graph) *Result {
	out := *r
	out.Blocks = make([]BlockResult, len(r.Blocks))
	for i, b := range r.Blocks {
		b.Name = g.Block(ir.BlockIndex(i)).Name
		b.Head = relabelSlots(b.Head, g)
		b.Tail = relabelSlots(b.Tail, g)
		out.Blocks[i] = b
	}
	out.Reachable = r.Reachable.Clone()
	return &out
}

func relabelSlots(slots []SlotResult, g *ir.Graph) []SlotResult {
	if slots == nil {
		return nil
	}
	out := make([]SlotResult, len(slots))
	for i, sr := range slots {
		sr.Definition = sr.site.name(g)
		out[i] = sr
	}
	return out
}

// Block returns the result of the block with the given name.
func (r *Result) Block(name string) (BlockResult, bool) {
	for _, b := range r.Blocks {
		if b.Name == name {
			return b, true
		}
	}
	return BlockResult{}, false
}

// NumReachable returns how many blocks control can flow into.
func (r *Result) NumReachable() int {
	return int(r.Reachable.Count())
}
