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

	"github.com/practical-formal-methods/cfa/ir"
)

// AbstractInterpreter computes what a single node does to the abstract state.
// It holds no state of its own; every call names the State it works on.
type AbstractInterpreter struct {
	graph *ir.Graph
	ops   absOpTable
}

func NewAbstractInterpreter(g *ir.Graph) *AbstractInterpreter {
	return &AbstractInterpreter{
		graph: g,
		ops:   newAbsOpTable(),
	}
}

// Execute abstractly executes the node at indexInBlock of the block st is
// currently interpreting. It returns false once the state is no longer valid,
// after which the rest of the block must not be executed.
func (a *AbstractInterpreter) Execute(st *State, indexInBlock int) bool {
	block := st.Block()
	if block == nil {
		panic("analysis: Execute outside of BeginBasicBlock/EndBasicBlock")
	}
	node := a.graph.Node(block.Nodes[indexInBlock])
	op := a.ops[node.Op]
	if !op.valid {
		panic(fmt.Sprintf("analysis: no abstract operation for %v", node.Op))
	}
	st.SetDidClobber(node.Op.Clobbers())
	if st.DidClobber() {
		st.ClobberStructures(indexInBlock)
	}
	op.exec(execEnv{st: st, node: node, index: indexInBlock})
	return st.IsValid()
}

// ExecuteBlock executes the nodes of the current block in order, stopping at
// the first one that invalidates the state. It returns whether the block
// executed to completion.
func (a *AbstractInterpreter) ExecuteBlock(st *State) bool {
	block := st.Block()
	if block == nil {
		panic("analysis: ExecuteBlock outside of BeginBasicBlock/EndBasicBlock")
	}
	for i := range block.Nodes {
		if !a.Execute(st, i) {
			return false
		}
	}
	return true
}
