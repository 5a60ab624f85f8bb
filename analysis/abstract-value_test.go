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

	"github.com/holiman/uint256"
)

func intValue(c uint64) AbstractValue {
	var v AbstractValue
	v.SetInt(uint256.NewInt(c))
	return v
}

func boolValue(b bool) AbstractValue {
	var v AbstractValue
	v.SetBool(b)
	return v
}

func typeValue(t SpeculatedType) AbstractValue {
	var v AbstractValue
	v.SetType(t)
	return v
}

func objectValue(ids ...uint32) AbstractValue {
	var v AbstractValue
	for _, id := range ids {
		var o AbstractValue
		o.SetObject(id)
		v.Merge(o)
	}
	return v
}

func sampleValues() map[string]AbstractValue {
	var top AbstractValue
	top.MakeHeapTop()
	intOrBool := intValue(3)
	intOrBool.Merge(boolValue(true))
	return map[string]AbstractValue{
		"bottom":     {},
		"int1":       intValue(1),
		"int2":       intValue(2),
		"int":        typeValue(SpecInt),
		"true":       boolValue(true),
		"false":      boolValue(false),
		"bool":       typeValue(SpecBool),
		"object1":    objectValue(1),
		"object2":    objectValue(2),
		"object12":   objectValue(1, 2),
		"object":     typeValue(SpecObject),
		"intOrBool":  intOrBool,
		"top":        top,
		"bigObject":  objectValue(200),
		"objectOr1":  func() AbstractValue { v := objectValue(1); v.Merge(intValue(1)); return v }(),
		"otherTyped": typeValue(SpecOther),
	}
}

func join(a, b AbstractValue) AbstractValue {
	a.Merge(b)
	return a
}

// leq reports whether a is at least as precise as b.
func leq(a, b AbstractValue) bool {
	return join(b, a) == b
}

func TestMergeIdempotent(t *testing.T) {
	for name, a := range sampleValues() {
		got := a
		if got.Merge(a) {
			t.Errorf("%s: merge with itself reported a change", name)
		}
		if got != a {
			t.Errorf("%s: merge with itself = %v", name, got)
		}
	}
}

func TestMergeCommutative(t *testing.T) {
	values := sampleValues()
	for na, a := range values {
		for nb, b := range values {
			if ab, ba := join(a, b), join(b, a); ab != ba {
				t.Errorf("merge(%s, %s) = %v but merge(%s, %s) = %v", na, nb, ab, nb, na, ba)
			}
		}
	}
}

func TestMergeAssociative(t *testing.T) {
	values := sampleValues()
	for na, a := range values {
		for nb, b := range values {
			for nc, c := range values {
				if l, r := join(join(a, b), c), join(a, join(b, c)); l != r {
					t.Errorf("(%s+%s)+%s = %v but %s+(%s+%s) = %v", na, nb, nc, l, na, nb, nc, r)
				}
			}
		}
	}
}

func TestMergeMonotone(t *testing.T) {
	values := sampleValues()
	for na, a := range values {
		for nb, b := range values {
			j := a
			changed := j.Merge(b)
			if !leq(a, j) || !leq(b, j) {
				t.Errorf("merge(%s, %s) = %v is not an upper bound", na, nb, j)
			}
			if changed != (j != a) {
				t.Errorf("merge(%s, %s) reported changed=%v", na, nb, changed)
			}
		}
	}
}

func TestMergeDropsDisagreeingConstants(t *testing.T) {
	got := join(intValue(1), intValue(2))
	if got != typeValue(SpecInt) {
		t.Errorf("Int(1)+Int(2) = %v, want Int", got)
	}
	if got := join(boolValue(true), boolValue(false)); got != typeValue(SpecBool) {
		t.Errorf("true+false = %v, want Bool", got)
	}
	if got := join(intValue(1), boolValue(true)); got.IsConstant() {
		t.Errorf("Int(1)+Bool(true) = %v must not be constant", got)
	}
}

func TestFilter(t *testing.T) {
	v := join(intValue(4), objectValue(1, 2))
	if v.FilterType(SpecInt) {
		t.Fatalf("filtering Int|Object to Int is not a contradiction")
	}
	if v != typeValue(SpecInt) {
		t.Errorf("after FilterType(Int) = %v", v)
	}

	o := objectValue(1, 2)
	if o.FilterStructure(2) {
		t.Fatalf("filtering {1,2} to 2 is not a contradiction")
	}
	if o != objectValue(2) {
		t.Errorf("after FilterStructure(2) = %v", o)
	}
	if !o.FilterStructure(3) {
		t.Errorf("filtering {2} to 3 must be a contradiction")
	}
	if !o.IsClear() {
		t.Errorf("contradiction must leave bottom, got %v", o)
	}

	b := boolValue(true)
	if !b.FilterType(SpecInt) {
		t.Errorf("filtering Bool to Int must be a contradiction")
	}
}

func TestClobberStructures(t *testing.T) {
	v := join(objectValue(1), intValue(1))
	if !v.HasClobberableState() {
		t.Fatalf("%v should carry structure facts", v)
	}
	v.ClobberStructures()
	if v.HasClobberableState() || !v.Structures().IsTop() {
		t.Errorf("after clobber = %v", v)
	}
	if v.Type() != SpecInt|SpecObject {
		t.Errorf("clobber changed the type to %v", v.Type())
	}
	i := intValue(1)
	i.ClobberStructures()
	if i != intValue(1) {
		t.Errorf("clobber changed a constant to %v", i)
	}
}

func TestAbstractValueString(t *testing.T) {
	tests := []struct {
		v    AbstractValue
		want string
	}{
		{AbstractValue{}, "Bottom"},
		{intValue(42), "Int(42)"},
		{boolValue(false), "Bool(false)"},
		{objectValue(1, 3), "Object[1,3]"},
		{typeValue(SpecObject), "Object"},
		{typeValue(SpecInt | SpecBool), "Int|Bool"},
		{sampleValues()["top"], "Top"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
