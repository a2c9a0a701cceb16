package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpapi "github.com/ivszhuravlev/rt-bioeval/internal/interfaces/http"

	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/dvhfile"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/monitoring/logging"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/monitoring/prometheus"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis REST API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			analyzer, err := buildAnalyzer(cfg, logger)
			if err != nil {
				return err
			}
			metrics := prometheus.NewMetrics()
			server, err := httpapi.NewServer(cfg.Server, cfg.Pipeline,
				dvhfile.NewParser(logger), analyzer, metrics, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("shutdown signal received", logging.String("signal", "interrupt"))
				return server.Stop(context.Background())
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	return cmd
}
