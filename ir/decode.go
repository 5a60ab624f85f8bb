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
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// DecodeError reports a malformed program.
type DecodeError struct {
	Block  string
	Node   string
	Detail string
	Cause  error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("decode")
	if e.Block != "" {
		b.WriteString(" block ")
		b.WriteString(e.Block)
	}
	if e.Node != "" {
		b.WriteString(" node ")
		b.WriteString(e.Node)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

type programFile struct {
	Arguments   int         `yaml:"arguments"`
	Locals      int         `yaml:"locals"`
	Predictions []string    `yaml:"predictions"`
	Blocks      []blockFile `yaml:"blocks"`
}

type blockFile struct {
	Name  string     `yaml:"name"`
	Nodes []nodeFile `yaml:"nodes"`
}

type nodeFile struct {
	Name        string   `yaml:"name"`
	Op          string   `yaml:"op"`
	Value       string   `yaml:"value"`
	Local       *int     `yaml:"local"`
	Argument    *int     `yaml:"argument"`
	Child       string   `yaml:"child"`
	Children    []string `yaml:"children"`
	Structure   uint32   `yaml:"structure"`
	Target      string   `yaml:"target"`
	Taken       string   `yaml:"taken"`
	NotTaken    string   `yaml:"not_taken"`
	Cases       []string `yaml:"cases"`
	FallThrough string   `yaml:"fall_through"`
}

// Decode reads a program in YAML (or JSON) form and builds its graph.
func Decode(r io.Reader) (*Graph, error) {
	var pf programFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &DecodeError{Detail: "empty program"}
		}
		return nil, &DecodeError{Cause: err}
	}
	return pf.build()
}

func DecodeBytes(data []byte) (*Graph, error) {
	return Decode(bytes.NewReader(data))
}

func (pf *programFile) build() (*Graph, error) {
	if pf.Arguments < 0 || pf.Locals < 0 {
		return nil, &DecodeError{Detail: "negative slot count"}
	}
	if len(pf.Predictions) > pf.Arguments {
		return nil, &DecodeError{Detail: fmt.Sprintf("%d predictions for %d arguments", len(pf.Predictions), pf.Arguments)}
	}
	b := NewBuilder(pf.Arguments, pf.Locals)
	for i, name := range pf.Predictions {
		p, ok := PredictionByName(name)
		if !ok {
			return nil, &DecodeError{Detail: fmt.Sprintf("unknown prediction %q for argument %d", name, i)}
		}
		b.SetPrediction(i, p)
	}

	blockIndex := map[string]BlockIndex{}
	for i, bf := range pf.Blocks {
		name := bf.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		if _, dup := blockIndex[name]; dup {
			return nil, &DecodeError{Block: name, Detail: "duplicate block name"}
		}
		blockIndex[name] = b.AddBlock(name)
	}

	for i, bf := range pf.Blocks {
		blk := BlockIndex(i)
		nodeIndex := map[string]NodeID{}
		for j, nf := range bf.Nodes {
			n, err := nf.toNode(nodeIndex, blockIndex)
			if err != nil {
				label := nf.Name
				if label == "" {
					label = fmt.Sprintf("%d", j)
				}
				return nil, &DecodeError{Block: b.g.Block(blk).Name, Node: label, Cause: err}
			}
			id := b.Append(blk, n)
			if nf.Name != "" {
				nodeIndex[nf.Name] = id
			}
		}
	}

	g, err := b.Finish()
	if err != nil {
		return nil, &DecodeError{Detail: "invalid graph", Cause: err}
	}
	return g, nil
}

func (nf *nodeFile) toNode(nodes map[string]NodeID, blocks map[string]BlockIndex) (Node, error) {
	op, ok := OpcodeByName(nf.Op)
	if !ok {
		return Node{}, fmt.Errorf("%w %q", ErrBadOpcode, nf.Op)
	}
	n := Node{Op: op, Name: nf.Name, Structure: nf.Structure}

	children := nf.Children
	if nf.Child != "" {
		children = append([]string{nf.Child}, children...)
	}
	for _, c := range children {
		id, ok := nodes[c]
		if !ok {
			return Node{}, fmt.Errorf("%w: unknown node %q", ErrBadChild, c)
		}
		n.Children = append(n.Children, id)
	}

	if op.AccessesLocal() {
		switch {
		case nf.Local != nil && nf.Argument == nil:
			n.Operand = Local(*nf.Local)
		case nf.Argument != nil && nf.Local == nil:
			n.Operand = Argument(*nf.Argument)
		default:
			return Node{}, fmt.Errorf("%w: exactly one of local or argument is required", ErrBadOperand)
		}
	}

	if op == Constant {
		v, err := parseWord(nf.Value)
		if err != nil {
			return Node{}, err
		}
		n.Value = *v
	}

	var targets []string
	switch op {
	case Jump:
		targets = []string{nf.Target}
	case Branch:
		targets = []string{nf.Taken, nf.NotTaken}
	case Switch:
		targets = append(append(targets, nf.Cases...), nf.FallThrough)
	}
	for _, t := range targets {
		idx, ok := blocks[t]
		if !ok {
			return Node{}, fmt.Errorf("%w: unknown block %q", ErrBadTarget, t)
		}
		n.Targets = append(n.Targets, idx)
	}
	return n, nil
}

// parseWord parses a decimal or 0x-prefixed literal, wrapping negatives to 256 bits.
func parseWord(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("constant without value")
	}
	b, ok := math.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("invalid 256-bit literal %q", s)
	}
	v, overflow := uint256.FromBig(math.U256(b))
	if overflow {
		return nil, fmt.Errorf("literal %q overflows 256 bits", s)
	}
	return v, nil
}
