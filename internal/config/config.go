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

package config

import (
	"github.com/spf13/viper"

	"github.com/practical-formal-methods/cfa/analysis"
)

// Config holds the application configuration
type Config struct {
	MaxIterations int
	Verify        bool
	Cache         bool
	Format        string
	Verbose       bool
	OutputFile    string
}

// Load loads configuration from defaults and the global viper instance.
func Load() *Config {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads configuration from defaults and v.
func LoadFrom(v *viper.Viper) *Config {
	cfg := &Config{
		MaxIterations: analysis.DefaultMaxIterations,
		Verify:        false,
		Cache:         true,
		Format:        "text",
	}

	if v.IsSet("max_iterations") {
		cfg.MaxIterations = v.GetInt("max_iterations")
	}
	if v.IsSet("verify") {
		cfg.Verify = v.GetBool("verify")
	}
	if v.IsSet("cache") {
		cfg.Cache = v.GetBool("cache")
	}
	if v.IsSet("format") {
		cfg.Format = v.GetString("format")
	}
	if v.IsSet("verbose") {
		cfg.Verbose = v.GetBool("verbose")
	}
	if v.IsSet("output") {
		cfg.OutputFile = v.GetString("output")
	}

	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = analysis.DefaultMaxIterations
	}
	return cfg
}

// ValidFormat reports whether f is a supported report format.
func ValidFormat(f string) bool {
	return f == "text" || f == "json"
}
