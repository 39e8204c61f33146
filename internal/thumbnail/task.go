package thumbnail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/filevault/pkg/job"
	"github.com/dmitrymomot/filevault/pkg/logger"
)

var (
	outcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filevault_thumbnail_outcomes_total",
			Help: "Thumbnail derivations by outcome class.",
		},
		[]string{"outcome"},
	)

	derivedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filevault_thumbnail_bytes_total",
		Help: "Bytes of thumbnails written.",
	})
)

// Recorder persists the terminal state of a derivation. Implementations must
// be idempotent and tolerate a record that no longer exists.
type Recorder interface {
	MarkThumbnailReady(ctx context.Context, fileID int64, key string, size int64) error
	MarkThumbnailFailed(ctx context.Context, fileID int64, key, reason string) error
}

// Task is the job handler registered under TaskName.
type Task struct {
	deriver  *Deriver
	recorder Recorder
	logger   *slog.Logger
}

// NewTask creates the derivation task. A nil logger discards output.
func NewTask(deriver *Deriver, recorder Recorder, log *slog.Logger) *Task {
	if log == nil {
		log = logger.NewNope()
	}
	return &Task{deriver: deriver, recorder: recorder, logger: log}
}

func (t *Task) Name() string { return TaskName }

// Handle derives the thumbnail and writes its size back to the record.
// Content failures are recorded on the file and cancel the job; transport and
// unexpected failures are returned so the queue retries them with backoff.
func (t *Task) Handle(ctx context.Context, p Payload) error {
	log := t.logger.With(
		slog.Int64("file_id", p.FileID),
		slog.String("thumbnail_key", p.ThumbnailKey),
	)

	out := t.deriver.Derive(ctx, p)
	outcomesTotal.WithLabelValues(out.Label()).Inc()

	if !out.OK {
		switch {
		case out.Permanent():
			log.WarnContext(ctx, "thumbnail rejected", slog.String("reason", out.Reason))
			if err := t.recorder.MarkThumbnailFailed(ctx, p.FileID, p.ThumbnailKey, out.Reason); err != nil {
				return fmt.Errorf("record thumbnail failure %d: %w", p.FileID, err)
			}
			return job.Cancel(out.Err)
		case out.Label() == "unexpected_error":
			log.ErrorContext(ctx, "thumbnail derivation failed", slog.String("reason", out.Reason), slog.Any("error", out.Err))
		default:
			log.WarnContext(ctx, "thumbnail derivation failed", slog.String("reason", out.Reason))
		}
		return out.Err
	}

	derivedBytesTotal.Add(float64(out.ByteSize))

	if err := t.recorder.MarkThumbnailReady(ctx, p.FileID, out.ThumbnailKey, out.ByteSize); err != nil {
		return fmt.Errorf("record thumbnail %d: %w", p.FileID, err)
	}

	log.InfoContext(ctx, "thumbnail derived", slog.Int64("byte_size", out.ByteSize))
	return nil
}
