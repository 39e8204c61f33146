package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dmitrymomot/filevault/internal/files"
	"github.com/dmitrymomot/filevault/pkg/health"
	"github.com/dmitrymomot/filevault/pkg/logger"
)

const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20
	defaultShutdownTimeout   = 30 * time.Second
)

// FileService is the part of files.Service the HTTP layer drives.
type FileService interface {
	PresignUpload(ctx context.Context, caller files.Caller, filename, contentType string) (files.UploadTicket, error)
	Finalize(ctx context.Context, caller files.Caller, in files.FinalizeInput) (files.FinalizeResult, error)
	Get(ctx context.Context, caller files.Caller, id int64) (files.View, error)
	List(ctx context.Context, caller files.Caller, limit, offset int) ([]files.View, error)
	ListAll(ctx context.Context, caller files.Caller, limit, offset int) ([]files.View, error)
	DownloadURL(ctx context.Context, caller files.Caller, id int64) (string, error)
	Delete(ctx context.Context, caller files.Caller, id int64) error
}

// Server is the HTTP surface of the file service.
type Server struct {
	files  FileService
	auth   *Authenticator
	log    *slog.Logger
	checks health.Checks
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithReadinessCheck adds a named dependency check to /readyz.
func WithReadinessCheck(name string, fn health.CheckFunc) Option {
	return func(s *Server) {
		s.checks[name] = fn
	}
}

// NewServer creates a Server.
func NewServer(svc FileService, auth *Authenticator, opts ...Option) *Server {
	s := &Server{
		files:  svc,
		auth:   auth,
		log:    logger.NewNope(),
		checks: health.Checks{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve listens on addr and serves h until ctx is cancelled, then drains
// in-flight requests for at most shutdownTimeout.
func Serve(ctx context.Context, addr string, h http.Handler, shutdownTimeout time.Duration, log *slog.Logger) error {
	if addr == "" {
		addr = ":8080"
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	if log == nil {
		log = logger.NewNope()
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
