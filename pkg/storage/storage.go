package storage

import (
	"context"
	"time"
)

// Storage is the object capability provider: it mints time-limited URLs for a
// single object operation and answers metadata queries. It keeps no durable
// state of its own.
type Storage interface {
	// PresignPut returns a URL that allows exactly one PUT of the given key.
	// Use WithContentType to bind the upload to a content type.
	PresignPut(ctx context.Context, key string, opts ...URLOption) (string, error)

	// URL returns a signed GET URL for the key.
	// Use URLOptions to customize expiry or download disposition.
	URL(ctx context.Context, key string, opts ...URLOption) (string, error)

	// Head fetches object metadata without downloading the body.
	// Returns ErrNotFound or ErrAccessDenied for the matching storage responses.
	Head(ctx context.Context, key string) (*ObjectInfo, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Config holds S3-compatible storage configuration.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string `env:"S3_BUCKET,required"`

	// AccessKey is the AWS access key ID (required).
	AccessKey string `env:"S3_ACCESS_KEY_ID,required"`

	// SecretKey is the AWS secret access key (required).
	SecretKey string `env:"S3_SECRET_ACCESS_KEY,required"`

	// Endpoint is the custom S3 endpoint URL (optional, for MinIO or other S3-compatible services).
	Endpoint string `env:"S3_ENDPOINT"`

	// Region is the AWS region (default: us-east-1).
	Region string `env:"S3_REGION" envDefault:"us-east-1"`

	// PathStyle enables path-style URLs (required for MinIO).
	PathStyle bool `env:"S3_PATH_STYLE" envDefault:"false"`
}

// ObjectInfo is the typed result of a head request.
// Optional fields are empty when the store did not report them.
type ObjectInfo struct {
	LastModified time.Time

	// Key is the storage key (path) for the object.
	Key string

	// ContentType is the content type stored with the object, if any.
	ContentType string

	// ETag is the object fingerprint with surrounding quotes removed.
	ETag string

	// Size is the object size in bytes.
	Size int64
}

// DefaultRegion is used when Config.Region is empty.
const DefaultRegion = "us-east-1"

// applyDefaults fills in default values for empty config fields.
func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

// validate checks that required configuration fields are set.
func (c *Config) validate() error {
	if c.Bucket == "" || c.AccessKey == "" || c.SecretKey == "" {
		return ErrInvalidConfig
	}
	return nil
}
