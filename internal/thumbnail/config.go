package thumbnail

import "time"

// Config tunes the worker side of thumbnail derivation.
type Config struct {
	FetchTimeout time.Duration `env:"THUMBNAIL_FETCH_TIMEOUT" envDefault:"60s"`
	MaxBytes     int64         `env:"THUMBNAIL_MAX_BYTES" envDefault:"52428800"`
	// Decompression bomb guard, checked against the header before decoding.
	MaxPixels int `env:"THUMBNAIL_MAX_PIXELS" envDefault:"100000000"`
	Quality   int `env:"THUMBNAIL_JPEG_QUALITY" envDefault:"82"`
}

const (
	defaultFetchTimeout = 60 * time.Second
	defaultMaxBytes     = 50 << 20
	defaultMaxPixels    = 100_000_000
	defaultQuality      = 82
)

func (c *Config) applyDefaults() {
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = defaultMaxBytes
	}
	if c.MaxPixels <= 0 {
		c.MaxPixels = defaultMaxPixels
	}
	if c.Quality <= 0 || c.Quality > 100 {
		c.Quality = defaultQuality
	}
}
