// Package storage provides functional options for configuring the object-store client.
// These options follow the functional options pattern for clean, composable configuration.
package storage

import (
	"time"
)

// ClientConfig holds the resolved client configuration.
type ClientConfig struct {
	// Region is the AWS region for S3 operations
	Region string

	// AccessKeyID and SecretAccessKey are optional static credentials.
	// When empty, the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint is an optional custom endpoint URL, e.g. for MinIO or LocalStack
	Endpoint string

	// ForcePathStyle forces path-style URLs instead of virtual-hosted style.
	// Required for most S3-compatible services.
	ForcePathStyle bool

	// MaxRetries is the maximum number of SDK-level retry attempts
	MaxRetries int

	// Timeout is the per-request HTTP timeout (0 means no timeout)
	Timeout time.Duration
}

// Option configures the client.
type Option func(*ClientConfig)

// WithRegion sets the AWS region for S3 operations.
// If not specified, uses the default region from the credential chain.
func WithRegion(region string) Option {
	return func(c *ClientConfig) {
		if region != "" {
			c.Region = region
		}
	}
}

// WithStaticCredentials sets explicit access credentials.
// When either value is empty the default credential chain is used instead.
func WithStaticCredentials(accessKeyID, secretAccessKey string) Option {
	return func(c *ClientConfig) {
		c.AccessKeyID = accessKeyID
		c.SecretAccessKey = secretAccessKey
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing with MinIO.
func WithEndpoint(endpoint string) Option {
	return func(c *ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of
// virtual-hosted style. Default is false.
func WithForcePathStyle(forcePathStyle bool) Option {
	return func(c *ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithMaxRetries sets the maximum number of retry attempts for failed requests.
// Default is 3 retries. Set to 0 to disable retries.
func WithMaxRetries(maxRetries int) Option {
	return func(c *ClientConfig) {
		if maxRetries >= 0 {
			c.MaxRetries = maxRetries
		}
	}
}

// WithTimeout sets the timeout for individual S3 requests.
// Default is no timeout (0).
func WithTimeout(timeout time.Duration) Option {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}
