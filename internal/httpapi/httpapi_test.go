package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/filevault/internal/files"
	"github.com/dmitrymomot/filevault/pkg/logger"
)

const (
	testSecret = "test-secret"
	testIssuer = "filevault-test"
)

type fakeFiles struct {
	finalizeErr error
	created     bool
	lastCaller  files.Caller
	lastLimit   int
	lastOffset  int
	deleted     []int64
}

func (f *fakeFiles) PresignUpload(_ context.Context, c files.Caller, filename, _ string) (files.UploadTicket, error) {
	f.lastCaller = c
	return files.UploadTicket{URL: "https://store/put", Key: "7/abc-" + filename}, nil
}

func (f *fakeFiles) Finalize(_ context.Context, c files.Caller, in files.FinalizeInput) (files.FinalizeResult, error) {
	f.lastCaller = c
	if f.finalizeErr != nil {
		return files.FinalizeResult{}, f.finalizeErr
	}
	return files.FinalizeResult{
		File:    files.View{ID: 1, OwnerID: c.ID, Key: in.Key, Filename: in.Filename},
		Created: f.created,
	}, nil
}

func (f *fakeFiles) Get(_ context.Context, c files.Caller, id int64) (files.View, error) {
	f.lastCaller = c
	if id == 404 {
		return files.View{}, files.ErrNotFound
	}
	return files.View{ID: id, OwnerID: c.ID}, nil
}

func (f *fakeFiles) List(_ context.Context, c files.Caller, limit, offset int) ([]files.View, error) {
	f.lastCaller, f.lastLimit, f.lastOffset = c, limit, offset
	return nil, nil
}

func (f *fakeFiles) ListAll(_ context.Context, c files.Caller, limit, offset int) ([]files.View, error) {
	f.lastCaller, f.lastLimit, f.lastOffset = c, limit, offset
	return []files.View{{ID: 1}, {ID: 2}}, nil
}

func (f *fakeFiles) DownloadURL(_ context.Context, c files.Caller, _ int64) (string, error) {
	f.lastCaller = c
	return "https://store/get", nil
}

func (f *fakeFiles) Delete(_ context.Context, c files.Caller, id int64) error {
	f.lastCaller = c
	f.deleted = append(f.deleted, id)
	return nil
}

type testEnv struct {
	files   *fakeFiles
	auth    *Authenticator
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	svc := &fakeFiles{}
	auth := NewAuthenticator(testSecret, testIssuer)
	srv := NewServer(svc, auth)
	return &testEnv{files: svc, auth: auth, handler: srv.Routes()}
}

func (e *testEnv) token(t *testing.T, userID int64, role Role) string {
	t.Helper()
	tok, err := e.auth.Issue(userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestFinalizeStatusCodes(t *testing.T) {
	t.Parallel()

	body := `{"key":"7/abc-photo.jpg","filename":"photo.jpg","contentType":"image/jpeg"}`

	t.Run("created", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.files.created = true

		rec := env.do(t, http.MethodPost, "/files/finalize", env.token(t, 7, RoleEditor), body)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp finalizeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "created", resp.Status)
		assert.Equal(t, "7/abc-photo.jpg", resp.File.Key)
		assert.Equal(t, files.Caller{ID: 7}, env.files.lastCaller)
	})

	t.Run("refinalize", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/files/finalize", env.token(t, 7, RoleEditor), body)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp finalizeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
	})
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"forbidden", files.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found", files.ErrNotFound, http.StatusNotFound, "not_found"},
		{"upstream", errors.Join(files.ErrUpstream, errors.New("timeout")), http.StatusBadGateway, "upstream_error"},
		{"invalid key", files.ErrInvalidKey, http.StatusUnprocessableEntity, "invalid_key"},
		{"invalid filename", files.ErrInvalidFilename, http.StatusUnprocessableEntity, "invalid_filename"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			env.files.finalizeErr = tt.err

			rec := env.do(t, http.MethodPost, "/files/finalize", env.token(t, 7, RoleEditor),
				`{"key":"7/abc-photo.jpg","filename":"photo.jpg"}`)
			require.Equal(t, tt.status, rec.Code)

			detail := decodeError(t, rec)
			assert.Equal(t, tt.code, detail.Code)
			assert.NotEmpty(t, detail.RequestID)
			assert.Equal(t, rec.Header().Get("X-Request-ID"), detail.RequestID)
			assert.NotContains(t, rec.Body.String(), "boom")
		})
	}
}

func TestAuthentication(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		rec := env.do(t, http.MethodGet, "/files", "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decodeError(t, rec).Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		other, err := NewAuthenticator("other", testIssuer).Issue(7, RoleAdmin, time.Hour)
		require.NoError(t, err)
		rec := env.do(t, http.MethodGet, "/files", other, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		t.Parallel()
		other, err := NewAuthenticator(testSecret, "someone-else").Issue(7, RoleAdmin, time.Hour)
		require.NoError(t, err)
		rec := env.do(t, http.MethodGet, "/files", other, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		rec := env.do(t, http.MethodGet, "/files", env.token(t, 7, RoleAdmin)+"x", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		expired, err := env.auth.Issue(7, RoleAdmin, -time.Minute)
		require.NoError(t, err)
		rec = env.do(t, http.MethodGet, "/files", expired, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non numeric subject", func(t *testing.T) {
		t.Parallel()
		claims := Claims{
			Role: RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "alice",
				Issuer:    testIssuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		rec := env.do(t, http.MethodGet, "/files", tok, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("none algorithm", func(t *testing.T) {
		t.Parallel()
		claims := Claims{
			Role: RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "7",
				Issuer:    testIssuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		rec := env.do(t, http.MethodGet, "/files", tok, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRoles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		role   Role
		method string
		path   string
		body   string
		status int
	}{
		{"viewer lists", RoleViewer, http.MethodGet, "/files", "", http.StatusOK},
		{"viewer gets", RoleViewer, http.MethodGet, "/files/3", "", http.StatusOK},
		{"viewer downloads", RoleViewer, http.MethodGet, "/files/3/download", "", http.StatusOK},
		{"viewer cannot finalize", RoleViewer, http.MethodPost, "/files/finalize", `{"key":"7/a","filename":"a"}`, http.StatusForbidden},
		{"viewer cannot presign", RoleViewer, http.MethodPost, "/files/presign-upload", `{"filename":"a"}`, http.StatusForbidden},
		{"viewer cannot delete", RoleViewer, http.MethodDelete, "/files/3", "", http.StatusForbidden},
		{"editor presigns", RoleEditor, http.MethodPost, "/files/presign-upload", `{"filename":"a.jpg"}`, http.StatusOK},
		{"editor deletes", RoleEditor, http.MethodDelete, "/files/3", "", http.StatusNoContent},
		{"editor cannot list all", RoleEditor, http.MethodGet, "/files/all", "", http.StatusForbidden},
		{"admin lists all", RoleAdmin, http.MethodGet, "/files/all", "", http.StatusOK},
		{"admin finalizes", RoleAdmin, http.MethodPost, "/files/finalize", `{"key":"7/a","filename":"a"}`, http.StatusOK},
		{"unknown role", Role("owner"), http.MethodGet, "/files", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			rec := env.do(t, tt.method, tt.path, env.token(t, 7, tt.role), tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestAdminCaller(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/files/all", env.token(t, 1, RoleAdmin), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, files.Caller{ID: 1, Admin: true}, env.files.lastCaller)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 2)
}

func TestPagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query  string
		status int
		limit  int
		offset int
	}{
		{"", http.StatusOK, files.DefaultPageSize, 0},
		{"?limit=1&offset=5", http.StatusOK, 1, 5},
		{"?limit=100", http.StatusOK, 100, 0},
		{"?limit=0", http.StatusBadRequest, 0, 0},
		{"?limit=101", http.StatusBadRequest, 0, 0},
		{"?limit=abc", http.StatusBadRequest, 0, 0},
		{"?offset=-1", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			rec := env.do(t, http.MethodGet, "/files"+tt.query, env.token(t, 7, RoleViewer), "")
			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				return
			}
			assert.Equal(t, tt.limit, env.files.lastLimit)
			assert.Equal(t, tt.offset, env.files.lastOffset)

			var resp listResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotNil(t, resp.Items)
		})
	}
}

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	tok := env.token(t, 7, RoleEditor)

	rec := env.do(t, http.MethodPost, "/files/finalize", tok, `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/files/finalize", tok, `{"key":"7/a"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/files/abc", tok, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/files/404", tok, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAndDownload(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	tok := env.token(t, 7, RoleEditor)

	rec := env.do(t, http.MethodDelete, "/files/12", tok, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
	assert.Equal(t, []int64{12}, env.files.deleted)

	rec = env.do(t, http.MethodGet, "/files/12/download", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp downloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://store/get", resp.URL)
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "upstream-id")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 26)
}

func TestRecover(t *testing.T) {
	t.Parallel()

	h := RequestID(Recover(logger.NewNope())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec).Code)
	assert.NotContains(t, rec.Body.String(), "kaboom")
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/nope", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)
}

func TestRoleAllows(t *testing.T) {
	t.Parallel()

	assert.True(t, RoleAdmin.Allows(RoleViewer))
	assert.True(t, RoleEditor.Allows(RoleEditor))
	assert.False(t, RoleViewer.Allows(RoleEditor))
	assert.False(t, Role("").Allows(RoleViewer))
	assert.False(t, Role("root").Allows(Role("root")))
}
