package files

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dmitrymomot/filevault/internal/thumbnail"
	"github.com/dmitrymomot/filevault/pkg/job"
	"github.com/dmitrymomot/filevault/pkg/storage"
)

// fakeStore is an in-memory object store.
type fakeStore struct {
	mu        sync.Mutex
	objects   map[string]storage.ObjectInfo
	headErr   map[string]error
	urlErr    map[string]error
	deleteErr error
	calls     []string
	deleted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: make(map[string]storage.ObjectInfo),
		headErr: make(map[string]error),
		urlErr:  make(map[string]error),
	}
}

func (s *fakeStore) put(key, contentType string, size int64, etag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = storage.ObjectInfo{Key: key, ContentType: contentType, Size: size, ETag: etag}
}

func (s *fakeStore) record(call string) {
	s.calls = append(s.calls, call)
}

func (s *fakeStore) PresignPut(_ context.Context, key string, _ ...storage.URLOption) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("presign_put " + key)
	return "https://store.test/" + key + "?op=put", nil
}

func (s *fakeStore) URL(_ context.Context, key string, _ ...storage.URLOption) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("url " + key)
	if err, ok := s.urlErr[key]; ok {
		return "", err
	}
	return "https://store.test/" + key + "?op=get", nil
}

func (s *fakeStore) Head(_ context.Context, key string) (*storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("head " + key)
	if err, ok := s.headErr[key]; ok {
		return nil, err
	}
	info, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &info, nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("delete " + key)
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// fakeRepo is an in-memory Repository. Upsert "commits" atomically under mu.
type fakeRepo struct {
	mu        sync.Mutex
	byID      map[int64]*File
	nextID    int64
	upsertErr error
	calls     int
	now       func() time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byID: make(map[int64]*File),
		now:  func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func (r *fakeRepo) Upsert(_ context.Context, p UpsertParams) (UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.upsertErr != nil {
		return UpsertResult{}, r.upsertErr
	}

	for _, f := range r.byID {
		if f.StorageKey != p.StorageKey {
			continue
		}
		prev := f.ThumbnailKey
		f.Filename = p.Filename
		f.ContentType = p.ContentType
		f.Size = p.Size
		f.IntegrityTag = p.IntegrityTag
		f.ThumbnailKey = p.ThumbnailKey
		f.ThumbnailSize = nil
		f.ThumbnailFailedAt = nil
		return UpsertResult{File: *f, PreviousThumbnailKey: prev}, nil
	}

	r.nextID++
	f := &File{
		ID:           r.nextID,
		OwnerID:      p.OwnerID,
		StorageKey:   p.StorageKey,
		Filename:     p.Filename,
		ContentType:  p.ContentType,
		Size:         p.Size,
		IntegrityTag: p.IntegrityTag,
		ThumbnailKey: p.ThumbnailKey,
		UploadedAt:   r.now(),
	}
	r.byID[f.ID] = f
	return UpsertResult{File: *f, Created: true}, nil
}

func (r *fakeRepo) insert(f File) File {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	f.ID = r.nextID
	r.byID[f.ID] = &f
	return f
}

func (r *fakeRepo) committed(id int64) (File, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok {
		return File{}, false
	}
	return *f, true
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *fakeRepo) GetByID(_ context.Context, id int64) (File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	f, ok := r.byID[id]
	if !ok {
		return File{}, ErrNotFound
	}
	return *f, nil
}

func (r *fakeRepo) sorted(filter func(*File) bool, limit, offset int) []File {
	out := make([]File, 0)
	for _, f := range r.byID {
		if filter(f) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID > out[j].ID
	})
	if offset >= len(out) {
		return []File{}
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *fakeRepo) ListByOwner(_ context.Context, ownerID int64, limit, offset int) ([]File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.sorted(func(f *File) bool { return f.OwnerID == ownerID }, limit, offset), nil
}

func (r *fakeRepo) ListAll(_ context.Context, limit, offset int) ([]File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.sorted(func(*File) bool { return true }, limit, offset), nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeRepo) MarkThumbnailReady(_ context.Context, id int64, key string, size int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	f, ok := r.byID[id]
	if !ok || f.ThumbnailKey == nil || *f.ThumbnailKey != key {
		return nil
	}
	f.ThumbnailSize = &size
	return nil
}

func (r *fakeRepo) MarkThumbnailFailed(_ context.Context, id int64, key, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	f, ok := r.byID[id]
	if !ok || f.ThumbnailKey == nil || *f.ThumbnailKey != key || f.ThumbnailSize != nil {
		return nil
	}
	at := r.now()
	f.ThumbnailFailedAt = &at
	return nil
}

func (r *fakeRepo) ListPendingThumbnails(_ context.Context, before time.Time, limit int) ([]File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	out := make([]File, 0)
	for _, f := range r.byID {
		if f.ThumbnailKey != nil && f.ThumbnailSize == nil && f.ThumbnailFailedAt == nil &&
			f.UploadedAt.Before(before) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.Before(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeQueue records jobs and, at enqueue time, what the repository had
// committed for the job's file.
type fakeQueue struct {
	mu   sync.Mutex
	repo *fakeRepo
	err  error
	jobs []queuedJob
}

type queuedJob struct {
	name      string
	payload   thumbnail.Payload
	committed File
	visible   bool
}

func (q *fakeQueue) Enqueue(_ context.Context, name string, payload any, _ ...job.EnqueueOption) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}

	p, ok := payload.(thumbnail.Payload)
	if !ok {
		return errors.New("unexpected payload type")
	}
	j := queuedJob{name: name, payload: p}
	if q.repo != nil {
		j.committed, j.visible = q.repo.committed(p.FileID)
	}
	q.jobs = append(q.jobs, j)
	return nil
}

func (q *fakeQueue) enqueued() []queuedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queuedJob(nil), q.jobs...)
}
