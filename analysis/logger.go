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
	"sync"

	"go.uber.org/zap"
)

var (
	log     *zap.Logger
	logOnce sync.Once
)

// logger returns the package logger. It is a no-op logger unless SetLogger was called.
func logger() *zap.Logger {
	logOnce.Do(func() {
		if log == nil {
			log = zap.NewNop()
		}
	})
	return log
}

// SetLogger configures the analysis package's logger.
// This must be called before any analysis runs.
func SetLogger(l *zap.Logger) {
	log = l
}
