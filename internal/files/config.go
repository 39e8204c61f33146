package files

import "time"

// Config holds the capability lifetimes and timeouts of the service.
type Config struct {
	UploadURLTTL   time.Duration `env:"UPLOAD_URL_TTL" envDefault:"1h"`
	DownloadURLTTL time.Duration `env:"DOWNLOAD_URL_TTL" envDefault:"1h"`
	// Lifetime of the read and write URLs handed to a thumbnail job. A job
	// still queued when they expire fails with an HTTP error until its
	// attempts run out; the repair sweep then schedules it again.
	JobURLTTL   time.Duration `env:"THUMBNAIL_JOB_URL_TTL" envDefault:"1h"`
	HeadTimeout time.Duration `env:"HEAD_TIMEOUT" envDefault:"20s"`

	ThumbnailMaxAttempts int `env:"THUMBNAIL_MAX_ATTEMPTS" envDefault:"5"`

	SweepMinAge time.Duration `env:"THUMBNAIL_SWEEP_MIN_AGE" envDefault:"15m"`
	SweepBatch  int           `env:"THUMBNAIL_SWEEP_BATCH" envDefault:"100"`
}

func (c *Config) applyDefaults() {
	if c.UploadURLTTL <= 0 {
		c.UploadURLTTL = time.Hour
	}
	if c.DownloadURLTTL <= 0 {
		c.DownloadURLTTL = time.Hour
	}
	if c.JobURLTTL <= 0 {
		c.JobURLTTL = time.Hour
	}
	if c.HeadTimeout <= 0 {
		c.HeadTimeout = 20 * time.Second
	}
	if c.ThumbnailMaxAttempts <= 0 {
		c.ThumbnailMaxAttempts = 5
	}
	if c.SweepMinAge <= 0 {
		c.SweepMinAge = 15 * time.Minute
	}
	if c.SweepBatch <= 0 {
		c.SweepBatch = 100
	}
}
