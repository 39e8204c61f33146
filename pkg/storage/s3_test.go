package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()
		store, err := New(Config{
			Bucket:    "test-bucket",
			AccessKey: "test-access-key",
			SecretKey: "test-secret-key",
		})
		require.NoError(t, err)
		require.NotNil(t, store.client)
		require.NotNil(t, store.presigner)
		require.Equal(t, DefaultRegion, store.cfg.Region)
	})

	t.Run("custom endpoint", func(t *testing.T) {
		t.Parallel()
		store, err := New(Config{
			Bucket:    "test-bucket",
			AccessKey: "test-access-key",
			SecretKey: "test-secret-key",
			Endpoint:  "http://localhost:9000",
			PathStyle: true,
		})
		require.NoError(t, err)
		require.NotNil(t, store)
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()
		store, err := New(Config{})
		require.ErrorIs(t, err, ErrInvalidConfig)
		require.Nil(t, store)
	})
}

func newLocalStore(t *testing.T, endpoint string) *S3Storage {
	t.Helper()

	store, err := New(Config{
		Bucket:    "uploads",
		AccessKey: "test-access-key",
		SecretKey: "test-secret-key",
		Endpoint:  endpoint,
		PathStyle: true,
	})
	require.NoError(t, err)
	return store
}

func TestS3Storage_PresignPut(t *testing.T) {
	t.Parallel()

	store := newLocalStore(t, "http://localhost:9000")

	raw, err := store.PresignPut(context.Background(), "7/abc-photo.jpg",
		WithContentType("image/jpeg"),
		WithExpiry(time.Hour),
	)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "/uploads/7/abc-photo.jpg", u.Path)
	require.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	require.Contains(t, u.Query().Get("X-Amz-SignedHeaders"), "content-type")
}

func TestS3Storage_URL(t *testing.T) {
	t.Parallel()

	store := newLocalStore(t, "http://localhost:9000")

	t.Run("default expiry", func(t *testing.T) {
		t.Parallel()
		raw, err := store.URL(context.Background(), "7/abc-photo.jpg")
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	})

	t.Run("download disposition", func(t *testing.T) {
		t.Parallel()
		raw, err := store.URL(context.Background(), "7/abc-photo.jpg", WithDownload("photo.jpg"))
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, `attachment; filename="photo.jpg"`, u.Query().Get("response-content-disposition"))
	})
}

func TestS3Storage_Head(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/uploads/7/present.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Header().Set("Content-Length", "1234")
			w.Header().Set("ETag", `"9b2cf535f27731c974343645a3985328"`)
			w.WriteHeader(http.StatusOK)
		case "/uploads/7/denied.jpg":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	store := newLocalStore(t, srv.URL)
	ctx := context.Background()

	t.Run("present", func(t *testing.T) {
		t.Parallel()
		info, err := store.Head(ctx, "7/present.jpg")
		require.NoError(t, err)
		require.Equal(t, "7/present.jpg", info.Key)
		require.Equal(t, "image/jpeg", info.ContentType)
		require.Equal(t, int64(1234), info.Size)
		require.Equal(t, "9b2cf535f27731c974343645a3985328", info.ETag)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		_, err := store.Head(ctx, "7/missing.jpg")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("denied", func(t *testing.T) {
		t.Parallel()
		_, err := store.Head(ctx, "7/denied.jpg")
		require.ErrorIs(t, err, ErrAccessDenied)
	})
}

func TestTrimETag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{`"abc"`, "abc"},
		{`W/"abc"`, "abc"},
		{"abc", "abc"},
		{`"abc-3"`, "abc-3"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, TrimETag(tt.in), tt.in)
	}
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	t.Run("missing key is healthy", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		t.Cleanup(srv.Close)

		require.NoError(t, Healthcheck(newLocalStore(t, srv.URL))(context.Background()))
	})

	t.Run("denied is unhealthy", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		t.Cleanup(srv.Close)

		err := Healthcheck(newLocalStore(t, srv.URL))(context.Background())
		require.ErrorIs(t, err, ErrHealthcheckFailed)
		require.ErrorIs(t, err, ErrAccessDenied)
	})
}
