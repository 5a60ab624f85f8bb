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

import "fmt"

// Operand names a variable slot: an argument or a local.
type Operand struct {
	IsArgument bool
	Index      int
}

func Argument(i int) Operand {
	return Operand{IsArgument: true, Index: i}
}

func Local(i int) Operand {
	return Operand{Index: i}
}

func (o Operand) String() string {
	if o.IsArgument {
		return fmt.Sprintf("arg%d", o.Index)
	}
	return fmt.Sprintf("loc%d", o.Index)
}

// Operands is a fixed-length positional mapping from variable slots to values.
// Arguments come first, followed by locals.
type Operands[T any] struct {
	numArguments int
	values       []T
}

func NewOperands[T any](numArguments, numLocals int) Operands[T] {
	return Operands[T]{
		numArguments: numArguments,
		values:       make([]T, numArguments+numLocals),
	}
}

func (o *Operands[T]) NumberOfArguments() int {
	return o.numArguments
}

func (o *Operands[T]) NumberOfLocals() int {
	return len(o.values) - o.numArguments
}

// Len returns the total number of slots.
func (o *Operands[T]) Len() int {
	return len(o.values)
}

func (o *Operands[T]) Argument(i int) *T {
	if i < 0 || i >= o.numArguments {
		panic(fmt.Sprintf("ir: argument %d out of range [0, %d)", i, o.numArguments))
	}
	return &o.values[i]
}

func (o *Operands[T]) Local(i int) *T {
	if i < 0 || i >= o.NumberOfLocals() {
		panic(fmt.Sprintf("ir: local %d out of range [0, %d)", i, o.NumberOfLocals()))
	}
	return &o.values[o.numArguments+i]
}

func (o *Operands[T]) Operand(op Operand) *T {
	if op.IsArgument {
		return o.Argument(op.Index)
	}
	return o.Local(op.Index)
}

// At returns the slot at flat index i.
func (o *Operands[T]) At(i int) *T {
	return &o.values[i]
}

// OperandAt returns the operand naming flat index i.
func (o *Operands[T]) OperandAt(i int) Operand {
	if i < o.numArguments {
		return Argument(i)
	}
	return Local(i - o.numArguments)
}

// SlotIndex returns the flat index of op.
func (o *Operands[T]) SlotIndex(op Operand) int {
	if op.IsArgument {
		return op.Index
	}
	return o.numArguments + op.Index
}

// SameShape reports whether both mappings have the same argument and local counts.
func (o *Operands[T]) SameShape(other *Operands[T]) bool {
	return o.numArguments == other.numArguments && len(o.values) == len(other.values)
}

// CopyFrom overwrites every slot with the corresponding slot of other.
func (o *Operands[T]) CopyFrom(other *Operands[T]) {
	if !o.SameShape(other) {
		panic(fmt.Sprintf("ir: operand shape mismatch (%d/%d vs %d/%d)",
			o.numArguments, len(o.values), other.numArguments, len(other.values)))
	}
	copy(o.values, other.values)
}

// Clone does a shallow copy of every slot.
func (o *Operands[T]) Clone() Operands[T] {
	values := make([]T, len(o.values))
	copy(values, o.values)
	return Operands[T]{numArguments: o.numArguments, values: values}
}

func (o *Operands[T]) Fill(v T) {
	for i := range o.values {
		o.values[i] = v
	}
}
