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
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAnalyzerCachesByFingerprint(t *testing.T) {
	a := NewAnalyzer(AnalyzerConfig{Cache: true, Verify: true})
	first, err := a.Analyze(mustDecode(t, countingLoop))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	// A separately decoded copy of the same program hits the cache.
	second, err := a.Analyze(mustDecode(t, countingLoop))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if diff := cmp.Diff(string(firstJSON), string(secondJSON)); diff != "" {
		t.Errorf("cached result differs (-first +second):\n%s", diff)
	}
	if _, err := a.Analyze(mustDecode(t, foldedBranch)); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if a.NumCacheHits() != 1 || a.NumSuccess() != 3 {
		t.Errorf("hits=%d success=%d, want 1 and 3", a.NumCacheHits(), a.NumSuccess())
	}
}

func TestAnalyzerCacheUsesCurrentNames(t *testing.T) {
	a := NewAnalyzer(AnalyzerConfig{Cache: true})
	if _, err := a.Analyze(mustDecode(t, twoBlocks)); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	renamed := strings.NewReplacer("next", "other", "one", "uno").Replace(twoBlocks)
	res, err := a.Analyze(mustDecode(t, renamed))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if a.NumCacheHits() != 1 {
		t.Fatalf("hits = %d, want 1", a.NumCacheHits())
	}
	if _, ok := res.Block("next"); ok {
		t.Errorf("result carries a block name of the previous program")
	}
	other, ok := res.Block("other")
	if !ok {
		t.Fatalf("no block %q in %+v", "other", res.Blocks)
	}
	if len(other.Head) != 1 || other.Head[0].Definition != "n1" {
		t.Errorf("other head = %+v, want loc0 defined by n1", other.Head)
	}

	// The cached result keeps its own names.
	again, _ := a.Analyze(mustDecode(t, twoBlocks))
	if _, ok := again.Block("next"); !ok {
		t.Errorf("cached result was relabelled in place")
	}
}

func TestAnalyzerWithoutCache(t *testing.T) {
	a := NewAnalyzer(AnalyzerConfig{})
	g := mustDecode(t, twoBlocks)
	first, _ := a.Analyze(g)
	second, _ := a.Analyze(g)
	if first == second || a.NumCacheHits() != 0 {
		t.Errorf("results must not be cached")
	}
}

func TestAnalyzerRecordsFailures(t *testing.T) {
	a := NewAnalyzer(AnalyzerConfig{MaxIterations: 1, Cache: true})
	g := mustDecode(t, countingLoop)
	for i := 0; i < 2; i++ {
		if _, err := a.Analyze(g); !errors.Is(err, ErrNoFixedPoint) {
			t.Fatalf("Analyze() error = %v, want ErrNoFixedPoint", err)
		}
	}
	if _, err := a.Analyze(nil); err == nil {
		t.Errorf("Analyze(nil) must fail")
	}
	if diff := cmp.Diff(map[string]uint64{NoFixedPointFail: 2}, a.FailureCauses()); diff != "" {
		t.Errorf("failure causes mismatch (-want +got):\n%s", diff)
	}
	if a.NumFail() != 2 || a.NumErrors() != 1 || a.NumSuccess() != 0 {
		t.Errorf("fail=%d errors=%d success=%d", a.NumFail(), a.NumErrors(), a.NumSuccess())
	}
}
