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
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Fingerprint hashes everything the analysis depends on: slot counts,
// argument predictions and every node of every block. Names are ignored.
func (g *Graph) Fingerprint() common.Hash {
	var buf []byte
	u32 := func(v uint32) {
		buf = binary.BigEndian.AppendUint32(buf, v)
	}
	u32(uint32(g.numArguments))
	u32(uint32(g.numLocals))
	for i := 0; i < g.numArguments; i++ {
		buf = append(buf, byte(g.ArgumentPrediction(i)))
	}
	u32(uint32(len(g.blocks)))
	for _, blk := range g.blocks {
		u32(uint32(len(blk.Nodes)))
		for _, id := range blk.Nodes {
			n := g.Node(id)
			buf = append(buf, byte(n.Op))
			u32(uint32(len(n.Children)))
			for _, c := range n.Children {
				// Children are local to the block.
				u32(uint32(g.Node(c).Index))
			}
			if n.Op.AccessesLocal() {
				u32(uint32(g.SlotIndex(n.Operand)))
			}
			switch n.Op {
			case Constant:
				word := n.Value.Bytes32()
				buf = append(buf, word[:]...)
			case NewObject, CheckStructure:
				u32(n.Structure)
			}
			u32(uint32(len(n.Targets)))
			for _, t := range n.Targets {
				u32(uint32(t))
			}
		}
	}
	return crypto.Keccak256Hash(buf)
}
