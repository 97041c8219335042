package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unknproject/loader/internal/domain"
)

// endpoint is an httptest server that counts requests and answers with a
// fixed status and body.
type endpoint struct {
	*httptest.Server
	hits atomic.Int32
}

func newEndpoint(t *testing.T, status int, body string) *endpoint {
	t.Helper()
	e := &endpoint{}
	e.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.hits.Add(1)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(e.Close)
	return e
}

// closedURL returns the base URL of a server that is no longer listening.
func closedURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/"
	srv.Close()
	return url
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFetcher(primary, fallback string) *Fetcher {
	return New(Config{PrimaryURL: primary, FallbackURL: fallback}, nil, testLogger())
}

func TestFetch_Primary(t *testing.T) {
	primary := newEndpoint(t, http.StatusOK, "payload-bytes")
	fallback := newEndpoint(t, http.StatusOK, "fallback-bytes")
	dest := filepath.Join(t.TempDir(), "foo.dll")

	f := newFetcher(primary.URL+"/", fallback.URL+"/")
	require.NoError(t, f.Fetch(context.Background(), "foo.dll", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload-bytes", string(data))
	assert.Equal(t, int32(1), primary.hits.Load())
	assert.Equal(t, int32(0), fallback.hits.Load())
}

func TestFetch_CacheHitMakesNoRequest(t *testing.T) {
	primary := newEndpoint(t, http.StatusOK, "payload-bytes")
	fallback := newEndpoint(t, http.StatusOK, "fallback-bytes")
	dest := filepath.Join(t.TempDir(), "foo.dll")

	f := newFetcher(primary.URL+"/", fallback.URL+"/")
	require.NoError(t, f.Fetch(context.Background(), "foo.dll", dest))
	require.NoError(t, f.Fetch(context.Background(), "foo.dll", dest))

	assert.Equal(t, int32(1), primary.hits.Load())
	assert.Equal(t, int32(0), fallback.hits.Load())
}

func TestFetch_ExistingFileIsTrusted(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "foo.dll")
	require.NoError(t, os.WriteFile(dest, []byte("already here"), 0o644))

	f := newFetcher(closedURL(t), closedURL(t))
	require.NoError(t, f.Fetch(context.Background(), "foo.dll", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "already here", string(data))
}

func TestFetch_FallbackOnStatus(t *testing.T) {
	primary := newEndpoint(t, http.StatusNotFound, "missing")
	fallback := newEndpoint(t, http.StatusOK, "fallback-bytes")
	dest := filepath.Join(t.TempDir(), "foo.dll")

	f := newFetcher(primary.URL+"/", fallback.URL+"/")
	require.NoError(t, f.Fetch(context.Background(), "foo.dll", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "fallback-bytes", string(data))
	assert.Equal(t, int32(1), primary.hits.Load())
	assert.Equal(t, int32(1), fallback.hits.Load())
}

func TestFetch_FallbackOnServerError(t *testing.T) {
	primary := newEndpoint(t, http.StatusInternalServerError, "oops")
	fallback := newEndpoint(t, http.StatusOK, "fallback-bytes")
	dest := filepath.Join(t.TempDir(), "foo.dll")

	f := newFetcher(primary.URL+"/", fallback.URL+"/")
	require.NoError(t, f.Fetch(context.Background(), "foo.dll", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "fallback-bytes", string(data))
}

func TestFetch_FallbackOnUnreachablePrimary(t *testing.T) {
	fallback := newEndpoint(t, http.StatusOK, "fallback-bytes")
	dest := filepath.Join(t.TempDir(), "foo.dll")

	f := newFetcher(closedURL(t), fallback.URL+"/")
	require.NoError(t, f.Fetch(context.Background(), "foo.dll", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "fallback-bytes", string(data))
}

func TestFetch_RequestPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	f := newFetcher(srv.URL+"/resources/hacks/", closedURL(t))
	require.NoError(t, f.Fetch(context.Background(), "foo.dll", filepath.Join(t.TempDir(), "foo.dll")))
	assert.Equal(t, "/resources/hacks/foo.dll", gotPath)
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		primary  func(t *testing.T) string
		fallback func(t *testing.T) string
		wantKind domain.FetchErrorKind
		wantCode int
	}{
		{
			name:     "both unreachable",
			primary:  closedURL,
			fallback: closedURL,
			wantKind: domain.FetchNetwork,
		},
		{
			name: "both non-200",
			primary: func(t *testing.T) string {
				return newEndpoint(t, http.StatusNotFound, "").URL + "/"
			},
			fallback: func(t *testing.T) string {
				return newEndpoint(t, http.StatusForbidden, "").URL + "/"
			},
			wantKind: domain.FetchHTTPStatus,
			wantCode: http.StatusForbidden,
		},
		{
			name:    "fallback server error",
			primary: closedURL,
			fallback: func(t *testing.T) string {
				return newEndpoint(t, http.StatusBadGateway, "").URL + "/"
			},
			wantKind: domain.FetchHTTPStatus,
			wantCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "foo.dll")
			f := newFetcher(tt.primary(t), tt.fallback(t))

			err := f.Fetch(context.Background(), "foo.dll", dest)
			require.Error(t, err)

			var fe *domain.FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.wantKind, fe.Kind)
			assert.Equal(t, tt.wantCode, fe.Code)
			assert.Equal(t, "foo.dll", fe.File)

			_, statErr := os.Stat(dest)
			assert.True(t, os.IsNotExist(statErr), "failed fetch must not leave a file behind")
		})
	}
}

func TestFetch_IOError(t *testing.T) {
	primary := newEndpoint(t, http.StatusOK, "payload-bytes")

	// The cache "directory" is a regular file, so it cannot be created.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	dest := filepath.Join(blocker, "foo.dll")

	f := newFetcher(primary.URL+"/", closedURL(t))
	err := f.Fetch(context.Background(), "foo.dll", dest)

	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, domain.FetchIO, fe.Kind)
}

func TestFetch_CreatesCacheDir(t *testing.T) {
	primary := newEndpoint(t, http.StatusOK, "payload-bytes")
	dest := filepath.Join(t.TempDir(), "nested", "cache", "foo.dll")

	f := newFetcher(primary.URL+"/", closedURL(t))
	require.NoError(t, f.Fetch(context.Background(), "foo.dll", dest))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must be renamed away")
	assert.Equal(t, "foo.dll", entries[0].Name())
}

func TestFetch_TruncatedBodyLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "partial")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		hj, ok := w.(http.Hijacker)
		if !ok {
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	t.Cleanup(srv.Close)

	cache := t.TempDir()
	dest := filepath.Join(cache, "foo.dll")

	f := newFetcher(srv.URL+"/", srv.URL+"/")
	err := f.Fetch(context.Background(), "foo.dll", dest)
	require.Error(t, err)

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, domain.FetchIO, fetchErr.Kind)

	entries, err := os.ReadDir(cache)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
