// Package blobs moves benchmark artifacts: it fetches the library under test
// from remote storage and uploads run reports.
package blobs

import "context"

type BlobReader interface {
	// Download writes the blob to destPath. If no such object exists, the
	// error carries codes.NotFound.
	Download(ctx context.Context, info BlobInfo, destPath string) error
}

type Blobstore interface {
	BlobReader
	// Upload uploads the file at sourcePath under info.Key.
	// If an object with that key already exists, Upload does nothing and returns no error.
	Upload(ctx context.Context, sourcePath string, info BlobInfo) error
}

type BlobInfo struct {
	Key string
	// ContentType is set on uploaded objects when not empty.
	ContentType string
	// Metadata is attached to uploaded objects.
	Metadata map[string]string
}
