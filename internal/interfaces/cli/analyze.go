package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ivszhuravlev/rt-bioeval/internal/application/pipeline"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/dvhfile"
)

func newAnalyzeCommand(opts *rootOptions) *cobra.Command {
	var (
		inputDir    string
		outputDir   string
		patients    []string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the batch analysis over a directory of DVH exports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			if inputDir != "" {
				cfg.Pipeline.InputDir = inputDir
			}
			if outputDir != "" {
				cfg.Pipeline.OutputDir = outputDir
			}
			if len(patients) > 0 {
				cfg.Pipeline.Patients = patients
			}
			if concurrency > 0 {
				cfg.Pipeline.Concurrency = concurrency
			}

			analyzer, err := buildAnalyzer(cfg, logger)
			if err != nil {
				return err
			}
			parser := dvhfile.NewParser(logger)
			runner, err := pipeline.NewRunner(cfg.Pipeline, parser, analyzer, nil, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, err := runner.Run(ctx)
			if err != nil {
				return err
			}
			if err := pipeline.Export(report, cfg.Pipeline.OutputDir); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: analyzed %d patient(s), %d failed\n",
				report.RunID, report.PatientCount, len(report.Failures))
			for patient, reason := range report.Failures {
				fmt.Fprintf(out, "  FAILED %s: %s\n", patient, reason)
			}
			fmt.Fprintf(out, "Results written to %s\n", cfg.Pipeline.OutputDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "directory with DVH export files")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for results.json and results.csv")
	cmd.Flags().StringSliceVarP(&patients, "patients", "p", nil, "restrict the run to these patient IDs")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of patients processed in parallel")
	return cmd
}
