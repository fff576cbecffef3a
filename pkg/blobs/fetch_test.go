package blobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestParseSource(t *testing.T) {
	src, err := ParseSource("gs://my-bucket/builds/libparagon.so")
	require.NoError(t, err)
	require.True(t, src.Remote())
	gcs, ok := src.Reader.(*GCSBlobstore)
	require.True(t, ok)
	assert.Equal(t, "my-bucket", gcs.Bucket)
	assert.Equal(t, "builds/libparagon.so", src.Info.Key)

	src, err = ParseSource("https://example.com/releases/v3/libparagon.so")
	require.NoError(t, err)
	h, ok := src.Reader.(*HTTPBlobReader)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/releases/v3/", h.BaseURL.String())
	assert.Equal(t, "libparagon.so", src.Info.Key)

	src, err = ParseSource("./libparagon.so")
	require.NoError(t, err)
	assert.False(t, src.Remote())
	assert.Equal(t, "./libparagon.so", src.LocalPath)

	for _, bad := range []string{"gs://bucket-only", "gs:///object", "https://example.com/dir/"} {
		_, err := ParseSource(bad)
		assert.Equal(t, codes.InvalidArgument, status.Code(err), bad)
	}
}

func TestHTTPDownload(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lib/libparagon.so" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ELF..."))
	}))
	defer server.Close()

	dir := t.TempDir()
	path, err := FetchLibrary(ctx, server.URL+"/lib/libparagon.so", dir, 1)
	require.NoError(t, err)
	assert.Equal(t, CachePath(dir, server.URL+"/lib/libparagon.so", "libparagon.so"), path)
	assert.Equal(t, "libparagon.so", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ELF...", string(data))

	_, err = FetchLibrary(ctx, server.URL+"/lib/missing.so", dir, 3)
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
	missingPath := CachePath(dir, server.URL+"/lib/missing.so", "missing.so")
	_, statErr := os.Stat(missingPath)
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(filepath.Dir(missingPath))
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files must not be left behind")
}

func TestFetchLibraryReusesCache(t *testing.T) {
	ctx := context.Background()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(r.URL.Path))
	}))
	defer server.Close()

	dir := t.TempDir()
	first, err := FetchLibrary(ctx, server.URL+"/v1/libparagon.so", dir, 1)
	require.NoError(t, err)
	second, err := FetchLibrary(ctx, server.URL+"/v1/libparagon.so", dir, 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())

	other, err := FetchLibrary(ctx, server.URL+"/v2/libparagon.so", dir, 1)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
	assert.Equal(t, int32(2), hits.Load())

	data, err := os.ReadFile(other)
	require.NoError(t, err)
	assert.Equal(t, "/v2/libparagon.so", string(data))
}

func TestFetchLibraryLocal(t *testing.T) {
	path, err := FetchLibrary(context.Background(), "/opt/paragon/libparagon.so", t.TempDir(), 0)
	require.NoError(t, err)
	assert.Equal(t, "/opt/paragon/libparagon.so", path)
}

type flakyReader struct {
	failures int
	attempts int
	err      error
}

func (r *flakyReader) Download(ctx context.Context, info BlobInfo, destPath string) error {
	r.attempts++
	if r.attempts <= r.failures {
		return r.err
	}
	return os.WriteFile(destPath, []byte(info.Key), 0o644)
}

func TestFetcherRetries(t *testing.T) {
	ctx := context.Background()
	reader := &flakyReader{failures: 2, err: errors.New("connection reset")}
	f := NewFetcher(reader)
	f.Backoff = time.Millisecond

	dest := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, f.Fetch(ctx, BlobInfo{Key: "k"}, dest))
	assert.Equal(t, 3, reader.attempts)

	reader = &flakyReader{failures: 10, err: errors.New("connection reset")}
	f = NewFetcher(reader)
	f.MaxAttempts = 2
	f.Backoff = time.Millisecond
	require.Error(t, f.Fetch(ctx, BlobInfo{Key: "k"}, dest))
	assert.Equal(t, 2, reader.attempts)
}

func TestFetcherDoesNotRetryNotFound(t *testing.T) {
	reader := &flakyReader{failures: 10, err: status.Error(codes.NotFound, "gone")}
	f := NewFetcher(reader)
	f.Backoff = time.Millisecond

	err := f.Fetch(context.Background(), BlobInfo{Key: "k"}, filepath.Join(t.TempDir(), "blob"))
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, 1, reader.attempts)
}

func TestFetcherStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &flakyReader{failures: 10, err: errors.New("connection reset")}
	f := NewFetcher(reader)
	f.Backoff = time.Hour

	err := f.Fetch(ctx, BlobInfo{Key: "k"}, filepath.Join(t.TempDir(), "blob"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, reader.attempts)
}
