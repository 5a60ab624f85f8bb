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

import (
	"testing"
)

func TestOpcodeProperties(t *testing.T) {
	for op := Opcode(0); op < NumOpcodes; op++ {
		info := op.Info()
		if !info.Valid {
			t.Errorf("%v has no operation properties", op)
		}
		if got, want := op.Clobbers(), op == Call; got != want {
			t.Errorf("%v.Clobbers() = %v, want %v", op, got, want)
		}
		succ := op == Jump || op == Branch || op == Switch
		if op.HasSuccessors() != succ {
			t.Errorf("%v.HasSuccessors() = %v, want %v", op, op.HasSuccessors(), succ)
		}
		if succ && !op.IsTerminal() {
			t.Errorf("%v has successors but is not a terminal", op)
		}
		if name, ok := OpcodeByName(op.String()); !ok || name != op {
			t.Errorf("OpcodeByName(%q) = %v, %v", op.String(), name, ok)
		}
	}
	if NumOpcodes.Info().Valid || NumOpcodes.String() != "Invalid" {
		t.Errorf("out-of-range opcode must be invalid")
	}
}
