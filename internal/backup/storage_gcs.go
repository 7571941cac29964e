package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSUploader replicates artifacts to a Google Cloud Storage bucket
type GCSUploader struct {
	client *storage.Client
	bucket string
}

// NewGCSUploader creates a new GCSUploader instance
func NewGCSUploader(ctx context.Context, config *GCSConfig) (*GCSUploader, error) {
	if config == nil || !config.Enabled() {
		return nil, NewConfigurationError("GCS bucket is not configured", nil)
	}

	var client *storage.Client
	var err error
	if config.CredentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsPath))
	} else {
		// Default credentials: environment or metadata server
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, NewUploadError("failed to create GCS client", err)
	}

	return &GCSUploader{
		client: client,
		bucket: config.Bucket,
	}, nil
}

// Name returns the provider name
func (gu *GCSUploader) Name() string {
	return "gcs"
}

// Upload pushes the file to the bucket under its basename
func (gu *GCSUploader) Upload(ctx context.Context, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return NewUploadError(fmt.Sprintf("failed to open %s for upload", localPath), err)
	}
	defer file.Close()

	key := filepath.Base(localPath)
	writer := gu.client.Bucket(gu.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = "application/gzip"

	if _, err := io.Copy(writer, file); err != nil {
		writer.Close()
		return NewUploadError(fmt.Sprintf("failed to write %s to gs://%s/%s", localPath, gu.bucket, key), err)
	}
	if err := writer.Close(); err != nil {
		return NewUploadError(fmt.Sprintf("failed to upload %s to gs://%s/%s", localPath, gu.bucket, key), err)
	}

	return nil
}

// Close closes the GCS client
func (gu *GCSUploader) Close() error {
	return gu.client.Close()
}
