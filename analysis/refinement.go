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
	"github.com/practical-formal-methods/cfa/ir"
)

// filterChild refines the value of the first child of env.node in place with
// filter, which reports a contradiction by returning true. A contradiction
// means the rest of the block cannot execute.
//
// If the child reads a variable slot that has not been written since, the
// refinement is propagated back to the slot, so that later reads in the
// block (and the successors) see the narrower value.
func filterChild(env execEnv, filter func(v *AbstractValue) bool) {
	childID := env.node.Child(0)
	if filter(env.st.ForNode(childID)) {
		env.st.SetIsValid(false)
		return
	}
	child := env.st.Graph().Node(childID)
	if child.Op != ir.GetLocal || !readsCurrentDefinition(env, child) {
		return
	}
	filter(env.st.Variables().Operand(child.Operand))
}

// readsCurrentDefinition determines whether no SetLocal on the slot read by
// get appears between get and the node being executed.
func readsCurrentDefinition(env execEnv, get *ir.Node) bool {
	block := env.st.Block()
	g := env.st.Graph()
	for i := get.Index + 1; i < env.index; i++ {
		n := g.Node(block.Nodes[i])
		if n.Op == ir.SetLocal && n.Operand == get.Operand {
			return false
		}
	}
	return true
}
