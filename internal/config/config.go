// Package config assembles the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/filevault/internal/files"
	"github.com/dmitrymomot/filevault/internal/thumbnail"
	"github.com/dmitrymomot/filevault/pkg/db"
	"github.com/dmitrymomot/filevault/pkg/logger"
	"github.com/dmitrymomot/filevault/pkg/storage"
)

// Mode selects which roles the process runs.
type Mode string

const (
	ModeAll    Mode = "all"
	ModeAPI    Mode = "api"
	ModeWorker Mode = "worker"
)

// RunsAPI reports whether the HTTP server runs in this mode.
func (m Mode) RunsAPI() bool { return m == ModeAll || m == ModeAPI }

// RunsWorker reports whether the job workers run in this mode.
func (m Mode) RunsWorker() bool { return m == ModeAll || m == ModeWorker }

var ErrInvalidConfig = errors.New("config: invalid configuration")

// decodeHeadroom is the job time reserved for decoding and encoding, on top
// of one fetch and one upload.
const decodeHeadroom = 30 * time.Second

// HTTP configures the API listener.
type HTTP struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Auth configures bearer token verification.
type Auth struct {
	Secret string `env:"JWT_SECRET,required"`
	Issuer string `env:"JWT_ISSUER"`
}

// Worker configures the job runner.
type Worker struct {
	MaxWorkers       int           `env:"WORKER_MAX_WORKERS" envDefault:"10"`
	ThumbnailWorkers int           `env:"THUMBNAIL_WORKERS" envDefault:"4"`
	JobTimeout       time.Duration `env:"JOB_TIMEOUT" envDefault:"3m"`
}

// Config is the full process configuration.
type Config struct {
	Mode      Mode `env:"APP_MODE" envDefault:"all"`
	HTTP      HTTP
	Auth      Auth
	Worker    Worker
	Logger    logger.Config
	Database  db.Config
	Storage   storage.Config
	Files     files.Config
	Thumbnail thumbnail.Config
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

func parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Mode {
	case ModeAll, ModeAPI, ModeWorker:
	default:
		return fmt.Errorf("%w: APP_MODE must be all, api or worker, got %q", ErrInvalidConfig, c.Mode)
	}
	if c.Mode.RunsWorker() && c.Worker.ThumbnailWorkers < 1 {
		return fmt.Errorf("%w: THUMBNAIL_WORKERS must be positive", ErrInvalidConfig)
	}
	if c.Mode.RunsWorker() && c.Worker.JobTimeout <= 2*c.Thumbnail.FetchTimeout+decodeHeadroom {
		return fmt.Errorf("%w: JOB_TIMEOUT must exceed twice THUMBNAIL_FETCH_TIMEOUT plus %s",
			ErrInvalidConfig, decodeHeadroom)
	}
	return nil
}
