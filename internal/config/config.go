// Package config loads the uploader configuration from file, environment,
// and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (AISUP_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// A .env file in the working directory is loaded into the environment first,
// so it participates at environment precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/aisdata/aisup/errors"
)

// Config holds every tunable of an upload run.
type Config struct {
	// BasePath is the root of the year/month archive tree to scan.
	BasePath string `mapstructure:"base_path" yaml:"base_path"`

	// Bucket is the destination bucket.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// Region is the bucket region.
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the store endpoint, for S3-compatible stores
	// and local test stacks. Empty means the AWS default.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// AccessKeyID and SecretAccessKey are static credentials. When empty
	// the default AWS credential chain applies.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`

	// ForcePathStyle switches to path-style addressing, required by most
	// non-AWS endpoints.
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style"`

	// PartSizeMB is the multipart part size in MiB.
	PartSizeMB int `mapstructure:"part_size_mb" yaml:"part_size_mb"`

	// MaxConcurrentParts is the width of the part worker pool.
	MaxConcurrentParts int `mapstructure:"max_concurrent_parts" yaml:"max_concurrent_parts"`

	// MaxRetries is the request retry budget handed to the SDK.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// MultipartThresholdMB is the file size in MiB above which a file is
	// transferred as a multipart session.
	MultipartThresholdMB int `mapstructure:"multipart_threshold_mb" yaml:"multipart_threshold_mb"`

	// LedgerPath is where upload progress is persisted.
	LedgerPath string `mapstructure:"ledger_path" yaml:"ledger_path"`

	// ArchiveExt is the file extension the scanner accepts.
	ArchiveExt string `mapstructure:"archive_ext" yaml:"archive_ext"`

	// LogLevel sets the logger verbosity (trace..panic).
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

const mib = 1024 * 1024

// PartSize returns the configured part size in bytes.
func (c *Config) PartSize() int64 { return int64(c.PartSizeMB) * mib }

// MultipartThreshold returns the configured multipart threshold in bytes.
func (c *Config) MultipartThreshold() int64 { return int64(c.MultipartThresholdMB) * mib }

// Load reads configuration from the given file (empty string means no file,
// environment and defaults only) and the environment.
func Load(configPath string) (*Config, error) {
	// Best effort; a missing .env file is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("AISUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewPathError("config.Load", configPath,
				fmt.Errorf("%w: %w", errors.ErrSetup, err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config: %w", errors.ErrSetup, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_path", "")
	v.SetDefault("bucket", "")
	v.SetDefault("region", "us-east-1")
	v.SetDefault("endpoint", "")
	v.SetDefault("access_key_id", "")
	v.SetDefault("secret_access_key", "")
	v.SetDefault("force_path_style", false)
	v.SetDefault("part_size_mb", 100)
	v.SetDefault("max_concurrent_parts", 10)
	v.SetDefault("max_retries", 3)
	v.SetDefault("multipart_threshold_mb", 100)
	v.SetDefault("ledger_path", "ais-upload-progress.json")
	v.SetDefault("archive_ext", ".rar")
	v.SetDefault("log_level", "info")
}

// Validate rejects configurations no run could execute with.
func (c *Config) Validate() error {
	switch {
	case c.PartSizeMB <= 0:
		return fmt.Errorf("%w: part_size_mb must be positive, got %d", errors.ErrInvalidInput, c.PartSizeMB)
	case c.MaxConcurrentParts <= 0:
		return fmt.Errorf("%w: max_concurrent_parts must be positive, got %d", errors.ErrInvalidInput, c.MaxConcurrentParts)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max_retries must not be negative, got %d", errors.ErrInvalidInput, c.MaxRetries)
	case c.MultipartThresholdMB <= 0:
		return fmt.Errorf("%w: multipart_threshold_mb must be positive, got %d", errors.ErrInvalidInput, c.MultipartThresholdMB)
	case c.LedgerPath == "":
		return fmt.Errorf("%w: ledger_path must not be empty", errors.ErrInvalidInput)
	case !strings.HasPrefix(c.ArchiveExt, "."):
		return fmt.Errorf("%w: archive_ext must start with a dot, got %q", errors.ErrInvalidInput, c.ArchiveExt)
	}
	return nil
}
