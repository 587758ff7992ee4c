package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/okian/facepunch/internal/adapters/storage"
	app "github.com/okian/facepunch/internal/app"
	"github.com/okian/facepunch/internal/config"
	"github.com/okian/facepunch/pkg/logger"
	"github.com/spf13/cobra"
)

// rootOptions are shared by every subcommand.
type rootOptions struct {
	dataDir string
	verbose bool
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cobra.OnInitialize(initConfig)

	cmd := &cobra.Command{
		Use:   "punchctl",
		Short: "Inspect and administer facepunch attendance data",
		Long: `punchctl works directly on a facepunch data directory (users.json,
embeddings.cbor, attendance.json). Settings come from FACEPUNCH_* environment
variables, an optional .env file and the file named by FACEPUNCH_CONFIG.

Do not enroll while the server is running on the same directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("data-dir") || cfg.DataDir == "" {
				cfg.DataDir = opts.dataDir
			}
			opts.cfg = cfg

			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			return logger.SetLevelString(level)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "data", "Data directory (overrides FACEPUNCH_DATA_DIR)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	cmd.AddCommand(
		newUsersCmd(opts),
		newReportCmd(opts),
		newExportCmd(opts),
		newEnrollCmd(opts),
	)
	return cmd
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// openService starts a service over the configured data directory.
func (o *rootOptions) openService(ctx context.Context) (*app.Service, error) {
	log := logger.Get()
	fs, err := storage.OpenFileStore(ctx, o.cfg.DataDir, storage.WithLogger(log.Named("storage")))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.cfg.DataDir, err)
	}
	svc := app.New(
		app.WithLogger(log),
		app.WithPersister(fs),
		app.WithTolerance(o.cfg.Tolerance),
		app.WithEmbeddingDim(o.cfg.EmbeddingDim),
		app.WithMinEnrollmentSamples(o.cfg.MinEnrollmentSamples),
		app.WithEnrollmentTimeout(o.cfg.EnrollmentTimeout),
		app.WithCaptureWorkers(o.cfg.CaptureWorkers),
		app.WithFrameQueueSize(o.cfg.FrameQueueSize),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}
