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

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/practical-formal-methods/cfa/analysis"
)

type fileReport struct {
	File   string           `json:"file"`
	Result *analysis.Result `json:"result"`
}

func writeReport(w io.Writer, format string, reports []fileReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case "text":
		return writeText(w, reports)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeText(w io.Writer, reports []fileReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range reports {
		res := r.Result
		fmt.Fprintf(tw, "%s (%x)\n", r.File, res.Fingerprint.Bytes()[:8])
		fmt.Fprintf(tw, "  %d/%d blocks reachable, %d iterations, %d visits\n",
			res.NumReachable(), len(res.Blocks), res.Stats.Iterations, res.Stats.BlockVisits)
		for _, b := range res.Blocks {
			var flags []string
			if !b.Reachable {
				flags = append(flags, "unreachable")
			} else if !b.Finished {
				flags = append(flags, "exits")
			}
			if b.FoundConstants {
				flags = append(flags, "constants")
			}
			if b.BranchDirection != analysis.InvalidBranchDirection {
				flags = append(flags, b.BranchDirection.String())
			}
			fmt.Fprintf(tw, "  %s\t%s\n", b.Name, strings.Join(flags, " "))
			for _, s := range b.Tail {
				fmt.Fprintf(tw, "    %s\t%v\t%s\n", s.Slot, s.Value, s.Definition)
			}
		}
	}
	return tw.Flush()
}
