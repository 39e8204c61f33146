package files

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/filevault/pkg/storage"
)

// SweepResult counts what one repair pass did.
type SweepResult struct {
	Confirmed   int
	Rescheduled int
	Failed      int
}

// RepairThumbnails finds image files whose thumbnail was scheduled but never
// confirmed. A derivative that exists is recorded; a missing one gets a new
// job with fresh capabilities. Per-file failures are logged and skipped.
func (s *Service) RepairThumbnails(ctx context.Context) (SweepResult, error) {
	pending, err := s.repo.ListPendingThumbnails(ctx, s.now().Add(-s.cfg.SweepMinAge), s.cfg.SweepBatch)
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	for _, f := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		log := s.logger.With(slog.Int64("file_id", f.ID), slog.String("thumbnail_key", *f.ThumbnailKey))

		info, err := s.headThumbnail(ctx, *f.ThumbnailKey)
		switch {
		case err == nil:
			if err := s.repo.MarkThumbnailReady(ctx, f.ID, *f.ThumbnailKey, info.Size); err != nil {
				log.WarnContext(ctx, "thumbnail confirm failed", slog.Any("error", err))
				res.Failed++
				continue
			}
			res.Confirmed++
		case errors.Is(err, storage.ErrNotFound):
			if err := s.scheduleThumbnail(ctx, f, "sweep"); err != nil {
				log.WarnContext(ctx, "thumbnail reschedule failed", slog.Any("error", err))
				res.Failed++
				continue
			}
			res.Rescheduled++
		default:
			log.WarnContext(ctx, "thumbnail head failed", slog.Any("error", err))
			res.Failed++
		}
	}

	if len(pending) > 0 {
		s.logger.InfoContext(ctx, "thumbnail sweep finished",
			slog.Int("pending", len(pending)),
			slog.Int("confirmed", res.Confirmed),
			slog.Int("rescheduled", res.Rescheduled),
			slog.Int("failed", res.Failed),
		)
	}
	return res, nil
}

func (s *Service) headThumbnail(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HeadTimeout)
	defer cancel()
	return s.store.Head(ctx, key)
}

// SweepTask runs RepairThumbnails on a cron schedule.
type SweepTask struct {
	svc *Service
}

// NewSweepTask creates the hourly repair task.
func NewSweepTask(svc *Service) *SweepTask {
	return &SweepTask{svc: svc}
}

func (t *SweepTask) Name() string     { return "repair_thumbnails" }
func (t *SweepTask) Schedule() string { return "17 * * * *" }

func (t *SweepTask) Handle(ctx context.Context) error {
	_, err := t.svc.RepairThumbnails(ctx)
	return err
}
