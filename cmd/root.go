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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/practical-formal-methods/cfa/analysis"
	"github.com/practical-formal-methods/cfa/internal/config"
	"github.com/practical-formal-methods/cfa/ir"
)

// options are the values of the command line flags.
type options struct {
	cfgFile       string
	outputFile    string
	format        string
	verbose       bool
	maxIterations int
	verify        bool
	noCache       bool
}

// NewRootCommand builds the cfa command. Every command has its own viper instance.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "cfa [files...]",
		Short: "Abstract interpretation of IR programs",
		Long: `cfa runs a control flow analysis over programs written in the cfa IR
(YAML or JSON) and reports the abstract state at the head and tail of every
basic block, which blocks are reachable, and which branches are decided.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, opts.cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, v, args)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is .cfa.yaml)")
	flags.StringVarP(&opts.outputFile, "output", "o", "", "output file (default: stdout)")
	flags.StringVarP(&opts.format, "format", "f", "text", "output format (text, json)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	flags.IntVar(&opts.maxIterations, "max-iterations", analysis.DefaultMaxIterations, "maximum number of sweeps before giving up")
	flags.BoolVar(&opts.verify, "verify", false, "check that the fixed point is stable")
	flags.BoolVar(&opts.noCache, "no-cache", false, "analyze identical programs again")

	for key, flag := range map[string]string{
		"output":         "output",
		"format":         "format",
		"verbose":        "verbose",
		"max_iterations": "max-iterations",
		"verify":         "verify",
	} {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(flag)))
	}
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(".cfa")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("CFA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, v *viper.Viper, files []string) error {
	cfg := config.LoadFrom(v)
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache = false
	}
	if !config.ValidFormat(cfg.Format) {
		return fmt.Errorf("unknown format %q", cfg.Format)
	}

	logger := initLogger(cfg.Verbose)
	defer logger.Sync()
	analysis.SetLogger(logger)

	analyzer := analysis.NewAnalyzer(analysis.AnalyzerConfig{
		MaxIterations: cfg.MaxIterations,
		Verify:        cfg.Verify,
		Cache:         cfg.Cache,
	})

	var reports []fileReport
	for _, file := range files {
		g, err := decodeFile(file)
		if err != nil {
			return err
		}
		res, err := analyzer.Analyze(g)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		logger.Info("analyzed program",
			zap.String("file", file),
			zap.Int("blocks", g.NumBlocks()),
			zap.Int("reachable", res.NumReachable()))
		reports = append(reports, fileReport{File: file, Result: res})
	}
	logger.Debug("analysis finished",
		zap.Uint64("success", analyzer.NumSuccess()),
		zap.Uint64("cacheHits", analyzer.NumCacheHits()),
		zap.Duration("time", analyzer.Time()))

	out := cmd.OutOrStdout()
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return writeReport(out, cfg.Format, reports)
}

func decodeFile(file string) (*ir.Graph, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open program: %w", err)
	}
	defer f.Close()
	g, err := ir.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return g, nil
}

func initLogger(verbose bool) *zap.Logger {
	var logger *zap.Logger
	var err error

	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}

	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}
