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
	"math/bits"
	"strconv"
	"strings"
)

// maxTrackedStructures is the number of distinct structure ids a set can hold.
// Larger ids are only representable by top.
const maxTrackedStructures = 64

// StructureSet represents a set of structure ids that can be top.
type StructureSet struct {
	isTop bool
	bits  uint64
}

func topStructures() StructureSet {
	return StructureSet{isTop: true}
}

// singletonStructure returns the set containing only id (or top if id cannot be tracked).
func singletonStructure(id uint32) StructureSet {
	if id >= maxTrackedStructures {
		return topStructures()
	}
	return StructureSet{bits: 1 << id}
}

func (s StructureSet) IsTop() bool {
	return s.isTop
}

func (s StructureSet) IsEmpty() bool {
	return !s.isTop && s.bits == 0
}

// Contains reports whether id may be in the set. Top contains everything.
func (s StructureSet) Contains(id uint32) bool {
	if s.isTop {
		return true
	}
	return id < maxTrackedStructures && s.bits&(1<<id) != 0
}

// Len returns the number of ids, or -1 for top.
func (s StructureSet) Len() int {
	if s.isTop {
		return -1
	}
	return bits.OnesCount64(s.bits)
}

func (s StructureSet) String() string {
	if s.isTop {
		return "*"
	}
	var ids []string
	for b := s.bits; b != 0; b &= b - 1 {
		ids = append(ids, strconv.Itoa(bits.TrailingZeros64(b)))
	}
	return strings.Join(ids, ",")
}

// joinStructures computes the join of two structure sets.
// It also returns a boolean indicating whether we went up (relative to the first set) in the lattice.
func joinStructures(s1, s2 StructureSet) (StructureSet, bool) {
	if s1.isTop {
		return topStructures(), false
	}
	if s2.isTop {
		return topStructures(), true
	}
	joined := StructureSet{bits: s1.bits | s2.bits}
	return joined, joined.bits != s1.bits
}

// meetStructures computes the meet of two structure sets.
func meetStructures(s1, s2 StructureSet) StructureSet {
	if s1.isTop {
		return s2
	}
	if s2.isTop {
		return s1
	}
	return StructureSet{bits: s1.bits & s2.bits}
}
