package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aisdata/aisup/errors"
	"github.com/aisdata/aisup/internal/config"
	"github.com/aisdata/aisup/internal/logging"
	"github.com/aisdata/aisup/internal/storage"
)

// storeFlags are the per-command overrides for connection settings. Empty
// values defer to the config file, environment, or defaults.
type storeFlags struct {
	basePath  string
	bucket    string
	region    string
	endpoint  string
	accessKey string
	secretKey string
}

// addStoreFlags registers the shared connection flags on a command.
func addStoreFlags(cmd *cobra.Command, f *storeFlags) {
	cmd.Flags().StringVarP(&f.basePath, "base-path", "p", "", "base directory of the YEAR/MONTH archive tree")
	cmd.Flags().StringVarP(&f.bucket, "bucket", "b", "", "destination bucket")
	cmd.Flags().StringVarP(&f.region, "region", "r", "", "bucket region")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "custom store endpoint (S3-compatible stores)")
	cmd.Flags().StringVar(&f.accessKey, "access-key", "", "static access key ID")
	cmd.Flags().StringVar(&f.secretKey, "secret-key", "", "static secret access key")
}

// loadConfig merges config file, environment, and command flags, flags
// winning.
func loadConfig(f *storeFlags) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if f != nil {
		if f.basePath != "" {
			cfg.BasePath = f.basePath
		}
		if f.bucket != "" {
			cfg.Bucket = f.bucket
		}
		if f.region != "" {
			cfg.Region = f.region
		}
		if f.endpoint != "" {
			cfg.Endpoint = f.endpoint
		}
		if f.accessKey != "" {
			cfg.AccessKeyID = f.accessKey
		}
		if f.secretKey != "" {
			cfg.SecretAccessKey = f.secretKey
		}
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.LogLevel)
}

// connect builds the store client and verifies the destination bucket is
// reachable. A missing or unreachable bucket is a setup failure.
func connect(ctx context.Context, cfg *config.Config) (*storage.Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required (--bucket or AISUP_BUCKET)", errors.ErrSetup)
	}

	opts := []storage.Option{
		storage.WithRegion(cfg.Region),
		storage.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, storage.WithStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, storage.WithEndpoint(cfg.Endpoint))
	}
	if cfg.ForcePathStyle {
		opts = append(opts, storage.WithForcePathStyle(true))
	}

	client, err := storage.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrSetup, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: checking bucket %q: %w", errors.ErrSetup, cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: bucket %q does not exist", errors.ErrSetup, cfg.Bucket)
	}
	return client, nil
}

// requireBasePath rejects runs without a scan root.
func requireBasePath(cfg *config.Config) error {
	if cfg.BasePath == "" {
		return fmt.Errorf("%w: base path is required (--base-path or AISUP_BASE_PATH)", errors.ErrSetup)
	}
	return nil
}
