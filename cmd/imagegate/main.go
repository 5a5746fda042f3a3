// Command imagegate is an object-storage upload gateway exposed as an MCP
// stdio server. It uploads images (single or batched), optimizing them on the
// way, and lists the buckets its credentials can reach.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/imagegate/imagegate/internal/config"
	"github.com/imagegate/imagegate/internal/logging"
	"github.com/imagegate/imagegate/internal/store"
	"github.com/imagegate/imagegate/internal/uploader"
)

// rootCmd starts the MCP server on stdio.
var rootCmd = &cobra.Command{
	Use:   "imagegate",
	Short: "Image upload gateway for S3-compatible object storage",
	Long: `imagegate is an MCP (Model Context Protocol) server that uploads images to
S3-compatible object storage. It exposes four tools over stdio:

  upload_image   upload one image, optionally optimized (resize + recompress)
  upload_images  upload many images concurrently with per-item retry,
                 a circuit breaker, and partial-success reporting
  list_buckets   list the buckets the configured credentials can see
  server_info    report backend, defaults, and supported formats

Configuration comes from environment variables (see .env support):
IMAGEGATE_BUCKET, IMAGEGATE_STORAGE_BACKEND (s3|minio), AWS_REGION, and the
IMAGEGATE_* upload tunables. AWS credentials use the SDK's native chain.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runServe wires config → store → uploader and serves MCP over stdio until
// stdin closes or a signal arrives.
func runServe(cmd *cobra.Command, args []string) error {
	logging.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init %s store: %w", cfg.Backend, err)
	}

	up := uploader.New(uploader.Params{
		Store: st,
		Policy: uploader.RetryPolicy{
			MaxAttempts:       cfg.MaxAttempts,
			BaseDelay:         cfg.BaseDelay,
			BackoffMultiplier: cfg.BackoffMultiplier,
			MaxDelay:          cfg.MaxDelay,
			RetryableKinds:    uploader.DefaultRetryPolicy().RetryableKinds,
		},
		Concurrency:      cfg.Concurrency,
		FailureThreshold: cfg.FailureThreshold,
		Cooldown:         cfg.Cooldown,
		ItemTimeout:      cfg.ItemTimeout,
		MaxFileSize:      cfg.MaxFileSize,
	})

	logging.NewStartupLogger("imagegate").
		Backend(cfg.Backend).
		Feature("optimize", cfg.Optimize).
		Config("bucket", cfg.Bucket).
		Config("region", cfg.Region).
		Config("concurrency", strconv.Itoa(cfg.Concurrency)).
		Config("maxAttempts", strconv.Itoa(cfg.MaxAttempts)).
		Log()

	gw := &gateway{cfg: cfg, uploader: up}
	if err := gw.serve(ctx); err != nil {
		log.Error().Err(err).Msg("MCP server exited with error")
		return err
	}
	return nil
}

// buildStore picks the backend from configuration.
func buildStore(ctx context.Context, cfg *config.Config) (store.ObjectStore, error) {
	switch cfg.Backend {
	case "minio":
		return store.NewMinioStore(
			cfg.MinioEndpoint,
			cfg.MinioAccessKey,
			cfg.MinioSecretKey,
			cfg.PublicBaseURL,
			cfg.MinioUseSSL,
		)
	default:
		return store.NewS3Store(ctx, cfg.Region, cfg.PublicBaseURL)
	}
}
