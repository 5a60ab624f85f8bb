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

// Opcode identifies an IR operation.
type Opcode byte

const (
	Constant Opcode = iota
	GetLocal
	SetLocal
	Add
	Sub
	Mul
	CompareEq
	CompareLess
	LogicalNot
	NewObject
	CheckStructure
	CheckInt
	Call
	ForceExit

	// Terminals.
	Jump
	Branch
	Switch
	Return
	Throw
	Unreachable

	// NumOpcodes is the number of defined opcodes.
	NumOpcodes
)

var opNames = [NumOpcodes]string{
	Constant:       "Constant",
	GetLocal:       "GetLocal",
	SetLocal:       "SetLocal",
	Add:            "Add",
	Sub:            "Sub",
	Mul:            "Mul",
	CompareEq:      "CompareEq",
	CompareLess:    "CompareLess",
	LogicalNot:     "LogicalNot",
	NewObject:      "NewObject",
	CheckStructure: "CheckStructure",
	CheckInt:       "CheckInt",
	Call:           "Call",
	ForceExit:      "ForceExit",
	Jump:           "Jump",
	Branch:         "Branch",
	Switch:         "Switch",
	Return:         "Return",
	Throw:          "Throw",
	Unreachable:    "Unreachable",
}

func (op Opcode) String() string {
	if op < NumOpcodes {
		return opNames[op]
	}
	return "Invalid"
}

// OpcodeByName looks an opcode up by its name.
func OpcodeByName(name string) (Opcode, bool) {
	for op, n := range opNames {
		if n == name {
			return Opcode(op), true
		}
	}
	return 0, false
}

// unlimited marks operations with a variable number of children.
const unlimited = -1

type Operation struct {
	// MinChildren tells how many children are required
	MinChildren int
	// MaxChildren is the maximum number of children, or unlimited.
	MaxChildren int
	// NumTargets is the number of successor blocks, or unlimited.
	NumTargets int

	accessesLocal bool // reads or writes a variable slot
	writesLocal   bool // defines a variable slot
	halts         bool // ends the block without successors
	jumps         bool // ends the block with successors
	clobbers      bool // may change any mutable structure
	Valid         bool // indication whether the operation is known
}

// OpTable contains the operation properties of every opcode.
type OpTable [NumOpcodes]Operation

var opTable = newOpTable()

func arity(n int) (int, int) {
	return n, n
}

func newOpTable() OpTable {
	var t OpTable
	set := func(op Opcode, children int, o Operation) {
		o.MinChildren, o.MaxChildren = arity(children)
		o.Valid = true
		t[op] = o
	}
	set(Constant, 0, Operation{})
	set(GetLocal, 0, Operation{accessesLocal: true})
	set(SetLocal, 1, Operation{accessesLocal: true, writesLocal: true})
	for _, op := range []Opcode{Add, Sub, Mul, CompareEq, CompareLess} {
		set(op, 2, Operation{})
	}
	set(LogicalNot, 1, Operation{})
	set(NewObject, 0, Operation{})
	set(CheckStructure, 1, Operation{})
	set(CheckInt, 1, Operation{})
	set(ForceExit, 0, Operation{})

	set(Call, 0, Operation{clobbers: true})
	t[Call].MaxChildren = unlimited

	set(Jump, 0, Operation{jumps: true, NumTargets: 1})
	set(Branch, 1, Operation{jumps: true, NumTargets: 2})
	set(Switch, 1, Operation{jumps: true, NumTargets: unlimited})
	set(Return, 1, Operation{halts: true})
	set(Throw, 1, Operation{halts: true})
	set(Unreachable, 0, Operation{halts: true})
	return t
}

// Info returns the operation properties of op.
func (op Opcode) Info() Operation {
	if op >= NumOpcodes {
		return Operation{}
	}
	return opTable[op]
}

// IsTerminal reports whether op ends a basic block.
func (op Opcode) IsTerminal() bool {
	info := op.Info()
	return info.halts || info.jumps
}

// HasSuccessors reports whether op transfers control to other blocks.
func (op Opcode) HasSuccessors() bool {
	return op.Info().jumps
}

// AccessesLocal reports whether op names a variable slot.
func (op Opcode) AccessesLocal() bool {
	return op.Info().accessesLocal
}

// WritesLocal reports whether op defines a variable slot.
func (op Opcode) WritesLocal() bool {
	return op.Info().writesLocal
}

// Clobbers reports whether op may invalidate facts about mutable structures.
func (op Opcode) Clobbers() bool {
	return op.Info().clobbers
}
