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

// MergeMode selects what EndBasicBlock does with the state reached at the end of a block.
type MergeMode int

const (
	// DontMerge leaves the graph untouched.
	DontMerge MergeMode = iota
	// MergeToTail commits the state into the block's tail snapshot.
	MergeToTail
	// MergeToSuccessors commits the tail and merges it into the heads of the successors.
	MergeToSuccessors
)

func (m MergeMode) String() string {
	switch m {
	case DontMerge:
		return "DontMerge"
	case MergeToTail:
		return "MergeToTail"
	case MergeToSuccessors:
		return "MergeToSuccessors"
	default:
		return "InvalidMergeMode"
	}
}

// BranchDirection records which edges of a two-way branch can be taken.
type BranchDirection int

const (
	// InvalidBranchDirection means the block does not end in a branch or has not been executed.
	InvalidBranchDirection BranchDirection = iota
	TakeTrue
	TakeFalse
	TakeBoth
)

func (d BranchDirection) String() string {
	switch d {
	case TakeTrue:
		return "TakeTrue"
	case TakeFalse:
		return "TakeFalse"
	case TakeBoth:
		return "TakeBoth"
	default:
		return "Invalid"
	}
}

func (d BranchDirection) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// branchDirectionForCondition returns the direction of a branch on cond.
func branchDirectionForCondition(cond AbstractValue) BranchDirection {
	c, ok := cond.Constant()
	if !ok {
		return TakeBoth
	}
	if c.IsZero() {
		return TakeFalse
	}
	return TakeTrue
}
