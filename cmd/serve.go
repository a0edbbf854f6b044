package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/mangapdf/internal/config"
	"github.com/brogergvhs/mangapdf/internal/server"
	"github.com/brogergvhs/mangapdf/internal/util"
)

const shutdownGrace = 30 * time.Second

var (
	flagAddr    string
	flagEnvFile string
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search, info and convert over HTTP",
		Long: "Serve /s?q=, /f?s= and /c?s=&f=&l= as JSON.\n" +
			"Settings come from the selected config, then a .env file, then MANGAPDF_* variables, then flags.",
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default :8080)")
	serveCmd.Flags().StringVar(&flagEnvFile, "env-file", ".env", "optional dotenv file")
	serveCmd.Flags().StringVar(&flagBucket, "bucket", "", "S3 bucket to publish to")
	serveCmd.Flags().StringVar(&flagRegion, "region", "", "S3 region")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	opts := baseOptions()
	opts.Addr = flagAddr
	opts.Bucket = flagBucket
	opts.Region = flagRegion

	cfg, usedPath, err := config.LoadServer(opts, flagEnvFile)
	if err != nil {
		return err
	}

	log := newLogger(cfg, os.Stdout)
	log.Infof("config: %s\n", usedPath)

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub, err := a.publisher(ctx)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Addr, a.scraper, a.pipeline(pub), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return stopServer(srv, shutdownGrace, util.Scratches)
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// stopServer gives in-flight requests grace to finish, then removes the
// scratch areas of conversions that are still running.
func stopServer(srv shutdowner, grace time.Duration, scratches *util.ScratchRegistry) error {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	err := srv.Shutdown(ctx)
	scratches.Cleanup()
	return err
}
