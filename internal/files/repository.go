package files

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/filevault/pkg/db"
)

// UpsertParams is the reconciled state of one finalize.
type UpsertParams struct {
	ThumbnailKey *string
	StorageKey   string
	Filename     string
	ContentType  string
	IntegrityTag string
	OwnerID      int64
	Size         int64
}

// UpsertResult is the committed record of a finalize.
type UpsertResult struct {
	// PreviousThumbnailKey is the thumbnail key the row held before this
	// upsert, nil for a fresh insert.
	PreviousThumbnailKey *string
	File                 File
	Created              bool
}

// Repository is the durable File store. Upsert commits before it returns.
type Repository interface {
	Upsert(ctx context.Context, p UpsertParams) (UpsertResult, error)
	GetByID(ctx context.Context, id int64) (File, error)
	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]File, error)
	ListAll(ctx context.Context, limit, offset int) ([]File, error)
	Delete(ctx context.Context, id int64) error
	MarkThumbnailReady(ctx context.Context, id int64, key string, size int64) error
	MarkThumbnailFailed(ctx context.Context, id int64, key, reason string) error
	ListPendingThumbnails(ctx context.Context, uploadedBefore time.Time, limit int) ([]File, error)
}

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is a DBTX that can also open transactions, like *pgxpool.Pool.
type DB interface {
	DBTX
	db.TxBeginner
}

// PostgresRepository stores files in the files table.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a repository over pool.
func NewPostgresRepository(pool DB) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

const fileColumns = `id, owner_id, storage_key, filename, content_type, size,
	integrity_tag, thumbnail_key, thumbnail_size, thumbnail_failed_at, uploaded_at`

func scanFile(row pgx.Row) (File, error) {
	var f File
	err := row.Scan(
		&f.ID, &f.OwnerID, &f.StorageKey, &f.Filename, &f.ContentType, &f.Size,
		&f.IntegrityTag, &f.ThumbnailKey, &f.ThumbnailSize, &f.ThumbnailFailedAt, &f.UploadedAt,
	)
	return f, err
}

// upsertAttempts bounds retries when the row vanishes between the insert
// attempt and the lock, i.e. a concurrent delete.
const upsertAttempts = 3

// Upsert inserts the record or updates it in place when the storage key
// already exists. owner_id and uploaded_at are never updated; the thumbnail
// state is reset because the derivative has to be produced again.
//
// The insert runs first with DO NOTHING, which waits for a concurrent
// inserter of the same key to finish. Only then is the existing row locked
// and read, so PreviousThumbnailKey is the committed value even when two
// finalizes race on a new key.
func (r *PostgresRepository) Upsert(ctx context.Context, p UpsertParams) (UpsertResult, error) {
	var res UpsertResult
	for range upsertAttempts {
		res = UpsertResult{}
		err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
			return r.upsert(ctx, tx, p, &res)
		})
		if errors.Is(err, errRowVanished) {
			continue
		}
		if err != nil {
			return UpsertResult{}, fmt.Errorf("files: upsert %s: %w", p.StorageKey, err)
		}
		return res, nil
	}
	return UpsertResult{}, fmt.Errorf("files: upsert %s: %w", p.StorageKey, errRowVanished)
}

var errRowVanished = errors.New("row deleted concurrently")

func (r *PostgresRepository) upsert(ctx context.Context, tx pgx.Tx, p UpsertParams, res *UpsertResult) error {
	f, err := scanFile(tx.QueryRow(ctx, `
		INSERT INTO files (owner_id, storage_key, filename, content_type, size, integrity_tag, thumbnail_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (storage_key) DO NOTHING
		RETURNING `+fileColumns,
		p.OwnerID, p.StorageKey, p.Filename, p.ContentType, p.Size, p.IntegrityTag, p.ThumbnailKey,
	))
	switch {
	case err == nil:
		res.File, res.Created = f, true
		return nil
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	err = tx.QueryRow(ctx,
		`SELECT thumbnail_key FROM files WHERE storage_key = $1 FOR UPDATE`,
		p.StorageKey,
	).Scan(&res.PreviousThumbnailKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return errRowVanished
	}
	if err != nil {
		return err
	}

	res.File, err = scanFile(tx.QueryRow(ctx, `
		UPDATE files SET
			filename            = $2,
			content_type        = $3,
			size                = $4,
			integrity_tag       = $5,
			thumbnail_key       = $6,
			thumbnail_size      = NULL,
			thumbnail_failed_at = NULL,
			thumbnail_error     = NULL
		WHERE storage_key = $1
		RETURNING `+fileColumns,
		p.StorageKey, p.Filename, p.ContentType, p.Size, p.IntegrityTag, p.ThumbnailKey,
	))
	return err
}

// GetByID returns ErrNotFound for a missing id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (File, error) {
	f, err := scanFile(r.db.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return File{}, ErrNotFound
	}
	if err != nil {
		return File{}, fmt.Errorf("files: get %d: %w", id, err)
	}
	return f, nil
}

// ListByOwner returns ownerID's files, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]File, error) {
	return r.list(ctx, `SELECT `+fileColumns+` FROM files WHERE owner_id = $1
		ORDER BY uploaded_at DESC, id DESC LIMIT $2 OFFSET $3`, ownerID, limit, offset)
}

// ListAll returns every file, newest first.
func (r *PostgresRepository) ListAll(ctx context.Context, limit, offset int) ([]File, error) {
	return r.list(ctx, `SELECT `+fileColumns+` FROM files
		ORDER BY uploaded_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
}

// ListPendingThumbnails returns image files whose thumbnail was scheduled
// before uploadedBefore but neither confirmed nor rejected, oldest first.
func (r *PostgresRepository) ListPendingThumbnails(ctx context.Context, uploadedBefore time.Time, limit int) ([]File, error) {
	return r.list(ctx, `SELECT `+fileColumns+` FROM files
		WHERE thumbnail_key IS NOT NULL AND thumbnail_size IS NULL
			AND thumbnail_failed_at IS NULL AND uploaded_at < $1
		ORDER BY uploaded_at ASC LIMIT $2`, uploadedBefore, limit)
}

func (r *PostgresRepository) list(ctx context.Context, sql string, args ...any) ([]File, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("files: list: %w", err)
	}
	defer rows.Close()

	out := make([]File, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("files: scan: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("files: list: %w", err)
	}
	return out, nil
}

// Delete removes the record. ErrNotFound when nothing was deleted.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("files: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkThumbnailReady records a produced derivative. Repeating it is a no-op
// and a deleted row is silently skipped. The key guard keeps a late worker
// from resurrecting a thumbnail that a re-finalize cleared.
func (r *PostgresRepository) MarkThumbnailReady(ctx context.Context, id int64, key string, size int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE files SET thumbnail_key = $2, thumbnail_size = $3
		 WHERE id = $1 AND thumbnail_key = $2`,
		id, key, size,
	)
	if err != nil {
		return fmt.Errorf("files: mark thumbnail %d: %w", id, err)
	}
	return nil
}

// MarkThumbnailFailed records that the derivative for key was rejected and
// will not be retried. Guarded like MarkThumbnailReady.
func (r *PostgresRepository) MarkThumbnailFailed(ctx context.Context, id int64, key, reason string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE files SET thumbnail_failed_at = now(), thumbnail_error = $3
		 WHERE id = $1 AND thumbnail_key = $2 AND thumbnail_size IS NULL`,
		id, key, reason,
	)
	if err != nil {
		return fmt.Errorf("files: mark thumbnail failed %d: %w", id, err)
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
