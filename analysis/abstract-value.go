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
	"strings"

	"github.com/holiman/uint256"
	"github.com/practical-formal-methods/cfa/ir"
)

// SpeculatedType is a set of runtime types, one bit per type.
type SpeculatedType uint8

const (
	SpecInt SpeculatedType = 1 << iota
	SpecBool
	SpecObject
	SpecOther
)

const (
	SpecNone    SpeculatedType = 0
	SpecHeapTop                = SpecInt | SpecBool | SpecObject | SpecOther
)

var specNames = [...]struct {
	t    SpeculatedType
	name string
}{
	{SpecInt, "Int"},
	{SpecBool, "Bool"},
	{SpecObject, "Object"},
	{SpecOther, "Other"},
}

func (t SpeculatedType) String() string {
	if t == SpecNone {
		return "None"
	}
	if t == SpecHeapTop {
		return "Top"
	}
	var parts []string
	for _, s := range specNames {
		if t&s.t != 0 {
			parts = append(parts, s.name)
		}
	}
	return strings.Join(parts, "|")
}

// AbstractValue represents what is known about a runtime value: the set of
// possible types, the possible structures of objects, and possibly a constant.
//
// The zero value is bottom (no information yet). AbstractValue is a plain
// value: it can be copied freely and compared with ==, which is how merges
// detect change. The representation is kept canonical so that == is
// structural equality in the lattice:
//   - structures are non-empty only when the type includes SpecObject
//   - a constant is present only when the type is exactly SpecInt or SpecBool
type AbstractValue struct {
	typ        SpeculatedType
	structures StructureSet
	value      uint256.Int
	hasValue   bool
}

func (v AbstractValue) Type() SpeculatedType {
	return v.typ
}

func (v AbstractValue) Structures() StructureSet {
	return v.structures
}

// IsClear reports whether v is bottom.
func (v AbstractValue) IsClear() bool {
	return v.typ == SpecNone
}

// IsHeapTop reports whether v could be anything.
func (v AbstractValue) IsHeapTop() bool {
	return v.typ == SpecHeapTop && v.structures.IsTop()
}

// Constant returns the constant v is known to hold, if any.
func (v AbstractValue) Constant() (uint256.Int, bool) {
	return v.value, v.hasValue
}

func (v AbstractValue) IsConstant() bool {
	return v.hasValue
}

// HasClobberableState reports whether v carries structure facts that a clobbering operation invalidates.
func (v AbstractValue) HasClobberableState() bool {
	return v.typ&SpecObject != 0 && !v.structures.IsTop()
}

// Clear resets v to bottom.
func (v *AbstractValue) Clear() {
	*v = AbstractValue{}
}

// MakeHeapTop makes v the top of the lattice.
func (v *AbstractValue) MakeHeapTop() {
	v.SetType(SpecHeapTop)
}

// SetType forgets everything about v except that it has one of the types in t.
func (v *AbstractValue) SetType(t SpeculatedType) {
	*v = AbstractValue{typ: t}
	if t&SpecObject != 0 {
		v.structures = topStructures()
	}
}

// SetInt makes v the integer constant c.
func (v *AbstractValue) SetInt(c *uint256.Int) {
	*v = AbstractValue{typ: SpecInt, hasValue: true}
	v.value.Set(c)
}

// SetBool makes v the boolean constant b.
func (v *AbstractValue) SetBool(b bool) {
	*v = AbstractValue{typ: SpecBool, hasValue: true}
	if b {
		v.value.SetOne()
	}
}

// SetObject makes v an object with the single structure id.
func (v *AbstractValue) SetObject(id uint32) {
	*v = AbstractValue{typ: SpecObject, structures: singletonStructure(id)}
}

// Merge joins other into v and reports whether v changed.
// Merging never makes v more precise.
func (v *AbstractValue) Merge(other AbstractValue) bool {
	if other.IsClear() {
		return false
	}
	if v.IsClear() {
		*v = other
		return true
	}
	old := *v
	v.typ |= other.typ
	v.structures, _ = joinStructures(v.structures, other.structures)
	v.hasValue = old.hasValue && other.hasValue && old.value == other.value
	v.normalize()
	return *v != old
}

// FilterType narrows v to the types in t. It returns true if the result is
// contradictory, i.e. v became bottom.
func (v *AbstractValue) FilterType(t SpeculatedType) bool {
	v.typ &= t
	v.normalize()
	return v.IsClear()
}

// FilterStructure narrows v to objects with structure id. It returns true if
// the result is contradictory.
func (v *AbstractValue) FilterStructure(id uint32) bool {
	v.typ &= SpecObject
	v.structures = meetStructures(v.structures, singletonStructure(id))
	v.normalize()
	return v.IsClear()
}

// ClobberStructures forgets the structures of v. Types and constants survive.
func (v *AbstractValue) ClobberStructures() {
	if v.typ&SpecObject != 0 {
		v.structures = topStructures()
	}
}

func (v *AbstractValue) normalize() {
	if v.typ&SpecObject == 0 {
		v.structures = StructureSet{}
	} else if v.structures.IsEmpty() {
		v.typ &^= SpecObject
	}
	if v.hasValue && v.typ != SpecInt && v.typ != SpecBool {
		v.hasValue = false
	}
	if !v.hasValue {
		v.value.Clear()
	}
}

func (v AbstractValue) String() string {
	if v.IsClear() {
		return "Bottom"
	}
	if v.hasValue {
		if v.typ == SpecBool {
			if v.value.IsZero() {
				return "Bool(false)"
			}
			return "Bool(true)"
		}
		return "Int(" + v.value.ToBig().String() + ")"
	}
	s := v.typ.String()
	if v.typ&SpecObject != 0 && !v.structures.IsTop() {
		s += "[" + v.structures.String() + "]"
	}
	return s
}

func (v AbstractValue) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// valueForPrediction returns the entry value of an argument.
func valueForPrediction(p ir.Prediction) AbstractValue {
	var v AbstractValue
	switch p {
	case ir.PredictInt:
		v.SetType(SpecInt)
	case ir.PredictBool:
		v.SetType(SpecBool)
	case ir.PredictObject:
		v.SetType(SpecObject)
	default:
		v.MakeHeapTop()
	}
	return v
}
