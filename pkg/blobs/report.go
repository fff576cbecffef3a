package blobs

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ReportUploader stores run reports in a bucket, one object per run.
type ReportUploader struct {
	store Blobstore
}

// NewReportUploader parses a gs://bucket[/prefix] destination.
func NewReportUploader(destination string) (*ReportUploader, error) {
	if !strings.HasPrefix(destination, "gs://") {
		return nil, status.Errorf(codes.InvalidArgument, "report bucket must be a GCS bucket URL (gs://<bucketName>[/prefix]), got %q", destination)
	}
	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(destination, "gs://"), "/")
	if bucket == "" {
		return nil, status.Errorf(codes.InvalidArgument, "report bucket %q has no bucket name", destination)
	}
	return &ReportUploader{store: &GCSBlobstore{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}}, nil
}

// NewReportUploaderForStore uploads to an existing Blobstore.
func NewReportUploaderForStore(store Blobstore) *ReportUploader {
	return &ReportUploader{store: store}
}

// ReportKey is the object key of the CSV report of a run.
func ReportKey(runID string) string {
	return "reports/" + runID + ".csv"
}

// UploadCSV uploads the CSV report at localPath for the given run.
func (u *ReportUploader) UploadCSV(ctx context.Context, runID string, localPath string) error {
	info := BlobInfo{
		Key:         ReportKey(runID),
		ContentType: "text/csv",
		Metadata:    map[string]string{"run-id": runID},
	}
	if err := u.store.Upload(ctx, localPath, info); err != nil {
		return fmt.Errorf("uploading report for run %s: %w", runID, err)
	}
	return nil
}
