// Package cli implements the rtbioeval command line: batch analysis, the
// API server and version reporting.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivszhuravlev/rt-bioeval/internal/application/analysis"
	"github.com/ivszhuravlev/rt-bioeval/internal/config"
	"github.com/ivszhuravlev/rt-bioeval/internal/domain/dvh"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/monitoring/logging"
)

// Build metadata, injected via -ldflags by the release build.
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "rtbioeval",
		Short:         "Radiobiological evaluation of DVH exports",
		Long:          "rtbioeval computes TCP/NTCP and dose metrics from treatment planning system DVH exports and compares treatment plans.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file (default: environment only)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newAnalyzeCommand(opts),
		newServeCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// setup loads the configuration and builds the process logger.
func (o *rootOptions) setup() (*config.Config, logging.Logger, error) {
	var cfg *config.Config
	var err error
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	logging.SetDefault(logger)
	return cfg, logger, nil
}

// buildAnalyzer wires the plan analyzer from the loaded configuration.
func buildAnalyzer(cfg *config.Config, logger logging.Logger) (*analysis.Analyzer, error) {
	target, err := cfg.Analysis.TargetParams()
	if err != nil {
		return nil, err
	}
	organs, err := cfg.Analysis.OrganParams()
	if err != nil {
		return nil, err
	}
	resolver := dvh.NewResolver(cfg.Analysis.RoleMapping())
	return analysis.NewAnalyzer(resolver, analysis.ModelConfig{
		Target: target,
		Organs: organs,
	}, logger)
}
