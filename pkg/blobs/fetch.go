package blobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog/v2"
)

// Source is a parsed artifact location.
type Source struct {
	// Reader is nil for local paths.
	Reader BlobReader
	Info   BlobInfo
	// LocalPath is set for local paths.
	LocalPath string
}

// Remote reports whether the source must be downloaded.
func (s Source) Remote() bool {
	return s.Reader != nil
}

// ParseSource accepts gs://bucket/object, http(s)://host/path/name or a local path.
func ParseSource(source string) (Source, error) {
	switch {
	case strings.HasPrefix(source, "gs://"):
		bucket, object, _ := strings.Cut(strings.TrimPrefix(source, "gs://"), "/")
		if bucket == "" || object == "" {
			return Source{}, status.Errorf(codes.InvalidArgument, "GCS source must look like gs://<bucket>/<object>, got %q", source)
		}
		return Source{
			Reader: &GCSBlobstore{Bucket: bucket},
			Info:   BlobInfo{Key: object},
		}, nil

	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		u, err := url.Parse(source)
		if err != nil {
			return Source{}, status.Errorf(codes.InvalidArgument, "parsing url %q: %v", source, err)
		}
		dir, name := path.Split(u.Path)
		if name == "" {
			return Source{}, status.Errorf(codes.InvalidArgument, "url %q does not name a file", source)
		}
		base := *u
		base.Path = dir
		base.RawPath = ""
		return Source{
			Reader: &HTTPBlobReader{BaseURL: &base},
			Info:   BlobInfo{Key: name},
		}, nil

	default:
		return Source{LocalPath: source}, nil
	}
}

// Fetcher downloads a blob, retrying failed attempts.
type Fetcher struct {
	// reader is the interface to fetch blobs
	reader BlobReader

	// MaxAttempts is the number of times to attempt a download before failing.
	MaxAttempts int
	// Backoff is the pause between attempts.
	Backoff time.Duration
}

func NewFetcher(reader BlobReader) *Fetcher {
	return &Fetcher{
		reader:      reader,
		MaxAttempts: 5,
		Backoff:     5 * time.Second,
	}
}

// Fetch downloads info to destPath. Missing blobs are not retried.
func (f *Fetcher) Fetch(ctx context.Context, info BlobInfo, destPath string) error {
	log := klog.FromContext(ctx)

	attempt := 0
	for {
		attempt++

		err := f.reader.Download(ctx, info, destPath)
		if err == nil {
			return nil
		}

		if attempt >= f.MaxAttempts || status.Code(err) == codes.NotFound {
			return err
		}

		log.Error(err, "downloading blob, will retry", "key", info.Key, "attempt", attempt)
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting to retry download of %q: %w", info.Key, ctx.Err())
		case <-time.After(f.Backoff):
		}
	}
}

// FetchLibrary makes the library named by source available on local disk and
// returns its path. Local paths are returned unchanged. Remote sources are
// downloaded once into cacheDir and reused by later runs.
func FetchLibrary(ctx context.Context, source string, cacheDir string, maxAttempts int) (string, error) {
	log := klog.FromContext(ctx)

	src, err := ParseSource(source)
	if err != nil {
		return "", err
	}
	if !src.Remote() {
		return src.LocalPath, nil
	}

	localPath := CachePath(cacheDir, source, src.Info.Key)
	if stat, err := os.Stat(localPath); err == nil && stat.Mode().IsRegular() {
		log.Info("using cached library", "source", source, "path", localPath)
		return localPath, nil
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", fmt.Errorf("creating cache directory %q: %w", filepath.Dir(localPath), err)
	}

	fetcher := NewFetcher(src.Reader)
	if maxAttempts > 0 {
		fetcher.MaxAttempts = maxAttempts
	}
	if err := fetcher.Fetch(ctx, src.Info, localPath); err != nil {
		return "", fmt.Errorf("fetching library %q: %w", source, err)
	}
	return localPath, nil
}

// CachePath is where a download of source is kept under cacheDir. The file
// keeps the object's base name; the directory is derived from the full source
// so that equally named libraries from different locations do not collide.
func CachePath(cacheDir string, source string, key string) string {
	sum := sha256.Sum256([]byte(source))
	return filepath.Join(cacheDir, hex.EncodeToString(sum[:8]), path.Base(key))
}
