package files

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/filevault/internal/thumbnail"
	"github.com/dmitrymomot/filevault/pkg/job"
	"github.com/dmitrymomot/filevault/pkg/logger"
	"github.com/dmitrymomot/filevault/pkg/storage"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

var (
	finalizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filevault_finalize_total",
			Help: "Finalize calls by result.",
		},
		[]string{"result"},
	)

	thumbnailJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filevault_thumbnail_jobs_enqueued_total",
			Help: "Thumbnail jobs handed to the queue, by trigger.",
		},
		[]string{"trigger"},
	)
)

// Enqueuer hands jobs to the queue. *job.Enqueuer and *job.Manager satisfy it.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...job.EnqueueOption) error
}

// Service coordinates finalization, listing and deletion of files.
type Service struct {
	store  storage.Storage
	repo   Repository
	jobs   Enqueuer
	logger *slog.Logger
	now    func() time.Time
	cfg    Config
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service. All collaborators are required.
func NewService(store storage.Storage, repo Repository, jobs Enqueuer, cfg Config, opts ...Option) *Service {
	cfg.applyDefaults()
	s := &Service{
		store:  store,
		repo:   repo,
		jobs:   jobs,
		cfg:    cfg,
		logger: logger.NewNope(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Finalize records an object the caller uploaded to key.
//
// Ownership is checked before any remote call. Size, content type and
// integrity tag come from the object store; the claimed content type is used
// only when the store has none. For images the thumbnail key is written with
// the record and the derivation job is enqueued after the upsert commits.
func (s *Service) Finalize(ctx context.Context, caller Caller, in FinalizeInput) (res FinalizeResult, err error) {
	defer func() {
		switch {
		case err != nil:
			finalizeTotal.WithLabelValues("error").Inc()
		default:
			finalizeTotal.WithLabelValues(res.Status()).Inc()
		}
	}()

	if !OwnsKey(caller.ID, in.Key) {
		return FinalizeResult{}, ErrForbidden
	}
	if err := validateKey(in.Key); err != nil {
		return FinalizeResult{}, err
	}
	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		return FinalizeResult{}, ErrInvalidFilename
	}

	info, err := s.head(ctx, in.Key)
	if err != nil {
		return FinalizeResult{}, err
	}

	contentType := storage.ResolveContentType(info.ContentType, in.ContentType)
	isImage := storage.IsImageMIME(contentType)

	var thumbKey *string
	if isImage {
		k := thumbnail.KeyFor(in.Key)
		thumbKey = &k
	}

	up, err := s.repo.Upsert(ctx, UpsertParams{
		OwnerID:      caller.ID,
		StorageKey:   in.Key,
		Filename:     filename,
		ContentType:  contentType,
		Size:         info.Size,
		IntegrityTag: info.ETag,
		ThumbnailKey: thumbKey,
	})
	if err != nil {
		return FinalizeResult{}, err
	}

	log := s.logger.With(slog.Int64("file_id", up.File.ID), slog.String("key", in.Key))

	// Committed: from here on nothing fails the call.
	if isImage {
		if err := s.scheduleThumbnail(ctx, up.File, "finalize"); err != nil {
			log.ErrorContext(ctx, "thumbnail job not enqueued, left to repair sweep", slog.Any("error", err))
		}
	} else if up.PreviousThumbnailKey != nil {
		s.deleteObject(ctx, log, *up.PreviousThumbnailKey)
	}

	view := s.view(ctx, up.File)

	log.InfoContext(ctx, "file finalized",
		slog.Bool("created", up.Created),
		slog.String("content_type", contentType),
		slog.Int64("size", info.Size),
	)
	return FinalizeResult{File: view, Created: up.Created}, nil
}

func (s *Service) head(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HeadTimeout)
	defer cancel()

	info, err := s.store.Head(ctx, key)
	switch {
	case err == nil:
		return info, nil
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, storage.ErrAccessDenied):
		return nil, ErrForbidden
	default:
		return nil, errors.Join(ErrUpstream, err)
	}
}

// scheduleThumbnail mints fresh capabilities for f and enqueues a job.
func (s *Service) scheduleThumbnail(ctx context.Context, f File, trigger string) error {
	if f.ThumbnailKey == nil {
		return nil
	}

	src, err := s.store.URL(ctx, f.StorageKey, storage.WithExpiry(s.cfg.JobURLTTL))
	if err != nil {
		return fmt.Errorf("presign source: %w", err)
	}
	dst, err := s.store.PresignPut(ctx, *f.ThumbnailKey,
		storage.WithExpiry(s.cfg.JobURLTTL),
		storage.WithContentType(thumbnail.ContentType),
		storage.WithCacheControl(thumbnail.CacheControl),
	)
	if err != nil {
		return fmt.Errorf("presign destination: %w", err)
	}

	err = s.jobs.Enqueue(ctx, thumbnail.TaskName, thumbnail.Payload{
		FileID:       f.ID,
		SourceURL:    src,
		DestURL:      dst,
		ThumbnailKey: *f.ThumbnailKey,
	},
		job.InQueue(thumbnail.Queue),
		job.MaxAttempts(s.cfg.ThumbnailMaxAttempts),
		job.Tags("thumbnail", trigger),
	)
	if err != nil {
		return err
	}

	thumbnailJobsTotal.WithLabelValues(trigger).Inc()
	return nil
}

// PresignUpload issues a key in the caller's namespace and a PUT capability
// for it. When contentType is set the upload must carry the same header.
func (s *Service) PresignUpload(ctx context.Context, caller Caller, filename, contentType string) (UploadTicket, error) {
	key, err := BuildKey(caller.ID, filename)
	if err != nil {
		return UploadTicket{}, err
	}

	opts := []storage.URLOption{storage.WithExpiry(s.cfg.UploadURLTTL)}
	if ct := storage.NormalizeMIME(contentType); ct != "" {
		opts = append(opts, storage.WithContentType(ct))
	}

	url, err := s.store.PresignPut(ctx, key, opts...)
	if err != nil {
		return UploadTicket{}, errors.Join(ErrUpstream, err)
	}

	return UploadTicket{
		URL:       url,
		Key:       key,
		ExpiresAt: s.now().Add(s.cfg.UploadURLTTL).UTC(),
	}, nil
}

// Get returns a file the caller may see. Files of other owners are
// reported as ErrNotFound, never ErrForbidden.
func (s *Service) Get(ctx context.Context, caller Caller, id int64) (View, error) {
	f, err := s.lookup(ctx, caller, id)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, f), nil
}

func (s *Service) lookup(ctx context.Context, caller Caller, id int64) (File, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return File{}, err
	}
	if !f.VisibleTo(caller) {
		return File{}, ErrNotFound
	}
	return f, nil
}

// List returns the caller's own files, newest first.
func (s *Service) List(ctx context.Context, caller Caller, limit, offset int) ([]View, error) {
	limit, offset = page(limit, offset)
	list, err := s.repo.ListByOwner(ctx, caller.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, list), nil
}

// ListAll returns every file, newest first. Admins only.
func (s *Service) ListAll(ctx context.Context, caller Caller, limit, offset int) ([]View, error) {
	if !caller.Admin {
		return nil, ErrForbidden
	}
	limit, offset = page(limit, offset)
	list, err := s.repo.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, list), nil
}

// DownloadURL mints a GET capability that saves the file under its name.
func (s *Service) DownloadURL(ctx context.Context, caller Caller, id int64) (string, error) {
	f, err := s.lookup(ctx, caller, id)
	if err != nil {
		return "", err
	}
	url, err := s.store.URL(ctx, f.StorageKey,
		storage.WithExpiry(s.cfg.DownloadURLTTL),
		storage.WithDownload(f.Filename),
	)
	if err != nil {
		return "", errors.Join(ErrUpstream, err)
	}
	return url, nil
}

// Delete removes the record, then the stored objects. Object deletion is
// best-effort: failures are logged and never fail the call, so a flaky
// store cannot keep a record alive.
func (s *Service) Delete(ctx context.Context, caller Caller, id int64) error {
	f, err := s.lookup(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	log := s.logger.With(slog.Int64("file_id", id), slog.String("key", f.StorageKey))
	s.deleteObject(ctx, log, f.StorageKey)
	if f.ThumbnailKey != nil {
		s.deleteObject(ctx, log, *f.ThumbnailKey)
	}

	log.InfoContext(ctx, "file deleted")
	return nil
}

func (s *Service) deleteObject(ctx context.Context, log *slog.Logger, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.HeadTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.WarnContext(ctx, "object delete failed", slog.String("object", key), slog.Any("error", err))
	}
}

// view shapes f for the caller. A thumbnail URL that cannot be minted is
// left out; the record itself is already committed.
func (s *Service) view(ctx context.Context, f File) View {
	v := View{
		ID:           f.ID,
		OwnerID:      f.OwnerID,
		Key:          f.StorageKey,
		Filename:     f.Filename,
		ContentType:  f.ContentType,
		Size:         f.Size,
		IntegrityTag: f.IntegrityTag,
		UploadedAt:   f.UploadedAt,
	}
	switch {
	case f.ThumbnailKey == nil:
	case f.ThumbnailFailedAt != nil:
		v.ThumbnailFailed = true
	default:
		url, err := s.store.URL(ctx, *f.ThumbnailKey, storage.WithExpiry(s.cfg.DownloadURLTTL))
		if err != nil {
			s.logger.WarnContext(ctx, "thumbnail url not minted",
				slog.Int64("file_id", f.ID),
				slog.Any("error", err),
			)
			break
		}
		v.ThumbnailURL = url
	}
	return v
}

func (s *Service) views(ctx context.Context, list []File) []View {
	out := make([]View, 0, len(list))
	for _, f := range list {
		out = append(out, s.view(ctx, f))
	}
	return out
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return min(limit, MaxPageSize), max(offset, 0)
}
