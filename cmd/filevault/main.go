package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/filevault/internal/config"
	"github.com/dmitrymomot/filevault/internal/files"
	"github.com/dmitrymomot/filevault/internal/httpapi"
	"github.com/dmitrymomot/filevault/internal/migrations"
	"github.com/dmitrymomot/filevault/internal/thumbnail"
	"github.com/dmitrymomot/filevault/pkg/db"
	"github.com/dmitrymomot/filevault/pkg/job"
	"github.com/dmitrymomot/filevault/pkg/logger"
	"github.com/dmitrymomot/filevault/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, flush := logger.New(cfg.Logger,
		logger.StringExtractor(httpapi.RequestIDKey, "request_id"),
		logger.Int64Extractor(httpapi.UserIDKey, "user_id"),
	)
	defer flush()
	log = log.With(slog.String("mode", string(cfg.Mode)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Shutdown(pool)(context.Background()) }()

	if err := db.Migrate(ctx, pool, migrations.FS, cfg.Database.MigrationsTable, log); err != nil {
		return err
	}
	if err := job.Migrate(ctx, pool, log); err != nil {
		return err
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}

	enqueuer, err := job.NewEnqueuer(pool, job.WithEnqueuerLogger(log))
	if err != nil {
		return err
	}

	repo := files.NewPostgresRepository(pool)
	svc := files.NewService(store, repo, enqueuer, cfg.Files, files.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)

	var manager *job.Manager
	if cfg.Mode.RunsWorker() {
		deriver := thumbnail.NewDeriver(cfg.Thumbnail, thumbnail.WithLogger(log))
		manager, err = job.NewManager(pool,
			job.WithTask[thumbnail.Payload](thumbnail.NewTask(deriver, repo, log)),
			job.WithScheduledTask(files.NewSweepTask(svc)),
			job.WithQueue(thumbnail.Queue, cfg.Worker.ThumbnailWorkers),
			job.WithMaxWorkers(cfg.Worker.MaxWorkers),
			job.WithJobTimeout(cfg.Worker.JobTimeout),
			job.WithLogger(log),
		)
		if err != nil {
			return err
		}

		// River hard-stops when its start context ends; shutdown goes through Stop instead.
		if err := manager.Start(context.WithoutCancel(ctx)); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			return manager.Stop(stopCtx)
		})
	}

	if cfg.Mode.RunsAPI() {
		opts := []httpapi.Option{
			httpapi.WithLogger(log),
			httpapi.WithReadinessCheck("postgres", db.Healthcheck(pool)),
			httpapi.WithReadinessCheck("storage", storage.Healthcheck(store)),
		}
		if manager != nil {
			opts = append(opts, httpapi.WithReadinessCheck("jobs", job.Healthcheck(manager)))
		}

		srv := httpapi.NewServer(svc, httpapi.NewAuthenticator(cfg.Auth.Secret, cfg.Auth.Issuer), opts...)
		g.Go(func() error {
			return httpapi.Serve(ctx, cfg.HTTP.Addr, srv.Routes(), cfg.HTTP.ShutdownTimeout, log)
		})
	}

	start := time.Now()
	err = g.Wait()
	log.Info("shutdown completed", slog.Duration("uptime", time.Since(start)), slog.Any("error", err))
	return err
}
