package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yasurirashmika/dtlc/internal/cli/config"
	"github.com/yasurirashmika/dtlc/internal/runner"
	"github.com/yasurirashmika/dtlc/internal/web"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the compile-and-run web service",
		Long: `Start an HTTP service for uploading CSV files and compiling and
executing DTL scripts against them. Generated code and result CSVs are
available for download.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetCurrentConfig()
			logger := config.GetLogger(cmd.Context())

			if port == 0 {
				port = cfg.Serve.Port
			}

			store, err := openStore(cfg.StatePath)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := web.NewServer(web.Config{
				Store: store,
				Runner: &runner.Runner{
					Python:  cfg.PythonBin,
					Timeout: time.Duration(cfg.Run.TimeoutSeconds) * time.Second,
				},
				Port:        port,
				UploadsDir:  cfg.UploadsDir,
				OutputsDir:  cfg.OutputsDir,
				PreviewRows: cfg.Serve.PreviewRows,
				Logger:      logger,
			})

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Serve(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port to listen on")

	return cmd
}
