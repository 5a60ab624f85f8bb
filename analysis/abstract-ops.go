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
	"github.com/holiman/uint256"

	"github.com/practical-formal-methods/cfa/ir"
)

// absOpTable holds the transfer function of every opcode.
type absOpTable [ir.NumOpcodes]absOp

// execFn is the type of functions executing abstract operations.
// It updates the value of env.node and the live mapping in place.
type execFn func(env execEnv)

// absOp represents an abstract operation.
type absOp struct {
	// valid is true if the operation has been initialized.
	valid bool
	exec  execFn
}

// fromExec creates a valid abstract operation.
func fromExec(exec execFn) absOp {
	return absOp{
		valid: true,
		exec:  exec,
	}
}

// noOpOp is the no-op abstract operation.
var noOpOp = fromExec(func(env execEnv) {})

// invalidateOp marks the rest of the block as unreachable.
var invalidateOp = fromExec(func(env execEnv) {
	env.st.SetIsValid(false)
})

// execEnv is the (abstract) execution environment of one node.
type execEnv struct {
	st    *State
	node  *ir.Node
	index int
}

// value returns the value of the node being executed.
func (e execEnv) value() *AbstractValue {
	return e.st.ForNode(e.node.ID)
}

// child returns the value of the i-th child.
func (e execEnv) child(i int) *AbstractValue {
	return e.st.ForNode(e.node.Child(i))
}

func newAbsOpTable() absOpTable {
	return absOpTable{
		ir.Constant: fromExec(opConstant),
		ir.GetLocal: fromExec(opGetLocal),
		ir.SetLocal: fromExec(opSetLocal),

		ir.Add: makeArithOp(func(z, x, y *uint256.Int) { z.Add(x, y) }),
		ir.Sub: makeArithOp(func(z, x, y *uint256.Int) { z.Sub(x, y) }),
		ir.Mul: makeArithOp(func(z, x, y *uint256.Int) { z.Mul(x, y) }),

		ir.CompareEq:   fromExec(opCompareEq),
		ir.CompareLess: makeCompareOp(func(x, y *uint256.Int) bool { return x.Lt(y) }),
		ir.LogicalNot:  fromExec(opLogicalNot),

		ir.NewObject:      fromExec(opNewObject),
		ir.CheckStructure: fromExec(opCheckStructure),
		ir.CheckInt:       fromExec(opCheckInt),
		ir.Call:           fromExec(opCall),
		ir.ForceExit:      invalidateOp,

		ir.Jump:   noOpOp,
		ir.Branch: fromExec(opBranch),
		ir.Switch: noOpOp,
		ir.Return: noOpOp,
		ir.Throw:  noOpOp,
		// A previous run may have proven this unreachable even if this one cannot.
		ir.Unreachable: invalidateOp,
	}
}

func opConstant(env execEnv) {
	env.value().SetInt(&env.node.Value)
}

func opGetLocal(env execEnv) {
	v := *env.st.Variables().Operand(env.node.Operand)
	*env.value() = v
	if v.IsConstant() {
		env.st.SetFoundConstants(true)
	}
}

func opSetLocal(env execEnv) {
	*env.st.Variables().Operand(env.node.Operand) = *env.child(0)
	*env.st.Definitions().Operand(env.node.Operand) = env.node.ID
}

// makeArithOp returns an integer operation that folds constant operands with f.
// Folding wraps at 256 bits.
func makeArithOp(f func(z, x, y *uint256.Int)) absOp {
	return fromExec(func(env execEnv) {
		x, xok := env.child(0).Constant()
		y, yok := env.child(1).Constant()
		if xok && yok && env.child(0).Type() == SpecInt && env.child(1).Type() == SpecInt {
			var z uint256.Int
			f(&z, &x, &y)
			env.value().SetInt(&z)
			env.st.SetFoundConstants(true)
			return
		}
		env.value().SetType(SpecInt)
	})
}

// makeCompareOp returns an integer comparison that folds constant operands with f.
func makeCompareOp(f func(x, y *uint256.Int) bool) absOp {
	return fromExec(func(env execEnv) {
		x, xok := env.child(0).Constant()
		y, yok := env.child(1).Constant()
		if xok && yok && env.child(0).Type() == SpecInt && env.child(1).Type() == SpecInt {
			env.value().SetBool(f(&x, &y))
			env.st.SetFoundConstants(true)
			return
		}
		env.value().SetType(SpecBool)
	})
}

func opCompareEq(env execEnv) {
	l, r := *env.child(0), *env.child(1)
	if l.IsConstant() && r.IsConstant() {
		env.value().SetBool(l == r)
		env.st.SetFoundConstants(true)
		return
	}
	if !l.IsClear() && !r.IsClear() && l.Type()&r.Type() == SpecNone {
		// Values of disjoint types are never equal.
		env.value().SetBool(false)
		env.st.SetFoundConstants(true)
		return
	}
	env.value().SetType(SpecBool)
}

func opLogicalNot(env execEnv) {
	if c, ok := env.child(0).Constant(); ok {
		env.value().SetBool(c.IsZero())
		env.st.SetFoundConstants(true)
		return
	}
	env.value().SetType(SpecBool)
}

func opNewObject(env execEnv) {
	env.value().SetObject(env.node.Structure)
	env.st.SetHaveStructures(true)
}

func opCheckStructure(env execEnv) {
	filterChild(env, func(v *AbstractValue) bool {
		return v.FilterStructure(env.node.Structure)
	})
	env.st.SetHaveStructures(true)
}

func opCheckInt(env execEnv) {
	filterChild(env, func(v *AbstractValue) bool {
		return v.FilterType(SpecInt)
	})
}

// opCall is an opaque call whose result can be anything. Execute has already
// clobbered the world.
func opCall(env execEnv) {
	env.value().MakeHeapTop()
}

func opBranch(env execEnv) {
	env.st.SetBranchDirection(branchDirectionForCondition(*env.child(0)))
}
