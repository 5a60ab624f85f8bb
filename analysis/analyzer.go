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
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/practical-formal-methods/cfa/ir"
)

var NoFixedPointFail = "no-fixed-point"
var UnstableFixedPointFail = "unstable-fixed-point"

// AnalyzerConfig configures an Analyzer.
type AnalyzerConfig struct {
	MaxIterations int
	Verify        bool
	// Cache makes the analyzer remember results by graph fingerprint.
	Cache bool
}

// Analyzer runs control flow analyses over many graphs and keeps statistics.
type Analyzer struct {
	config        AnalyzerConfig
	cachedResults map[common.Hash]*Result

	numSuccess    uint64
	numFail       uint64
	numCacheHits  uint64
	failureCauses map[string]uint64
	numErrors     uint64
	time          time.Duration
	startTime     time.Time
}

func NewAnalyzer(config AnalyzerConfig) *Analyzer {
	return &Analyzer{
		config:        config,
		cachedResults: map[common.Hash]*Result{},
		failureCauses: map[string]uint64{},
	}
}

// Analyze computes the fixed point of g. A run that does not converge or
// converges to an unstable state counts as a failure and is returned as an
// error wrapping ErrNoFixedPoint or ErrUnstableFixedPoint.
func (a *Analyzer) Analyze(g *ir.Graph) (*Result, error) {
	a.startTimer()
	defer a.stopTimer()

	if g == nil {
		a.recordError()
		return nil, errors.New("analysis: nil graph")
	}

	var fp common.Hash
	if a.config.Cache {
		fp = g.Fingerprint()
		if cached, found := a.cachedResults[fp]; found {
			a.numCacheHits++
			a.recordSuccess()
			// The fingerprint ignores names, so they come from g.
			return cached.relabel(g), nil
		}
	}

	cfa := NewCFA(g, WithMaxIterations(a.config.MaxIterations), WithVerification(a.config.Verify))
	if err := cfa.Run(); err != nil {
		switch {
		case errors.Is(err, ErrNoFixedPoint):
			a.recordFailure(NoFixedPointFail)
		case errors.Is(err, ErrUnstableFixedPoint):
			a.recordFailure(UnstableFixedPointFail)
		default:
			a.recordError()
		}
		logger().Warn("analysis failed", zap.Error(err))
		return nil, err
	}

	res := cfa.Result()
	// We cache successful results only.
	if a.config.Cache {
		a.cachedResults[fp] = res
	}
	a.recordSuccess()
	return res, nil
}

func (a *Analyzer) startTimer() {
	a.startTime = time.Now()
}

func (a *Analyzer) stopTimer() {
	a.time += time.Since(a.startTime)
}

func (a *Analyzer) recordSuccess() {
	a.numSuccess++
}

func (a *Analyzer) recordFailure(cause string) {
	a.numFail++
	a.failureCauses[cause]++
}

func (a *Analyzer) recordError() {
	a.numErrors++
}

func (a *Analyzer) NumSuccess() uint64 {
	return a.numSuccess
}

func (a *Analyzer) NumFail() uint64 {
	return a.numFail
}

func (a *Analyzer) NumErrors() uint64 {
	return a.numErrors
}

func (a *Analyzer) NumCacheHits() uint64 {
	return a.numCacheHits
}

func (a *Analyzer) Time() time.Duration {
	return a.time
}

func (a *Analyzer) FailureCauses() map[string]uint64 {
	fcs := map[string]uint64{}
	for cause, cnt := range a.failureCauses {
		fcs[cause] = cnt
	}
	return fcs
}
