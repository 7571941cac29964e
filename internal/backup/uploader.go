package backup

import (
	"context"
	"fmt"

	"dbbackup/internal/logging"
)

// Uploader replicates a local artifact to remote object storage. The
// artifact's basename is preserved as the remote key. Replication is an
// enhancement: failures are warnings, never fatal, and local backup
// success remains the primary success criterion.
type Uploader interface {
	// Name identifies the provider in logs ("s3", "gcs", "azure")
	Name() string

	// Upload pushes the file at localPath to the remote bucket
	Upload(ctx context.Context, localPath string) error
}

// NewUploaders builds the uploader set from configuration. Providers with
// no bucket configured are omitted; zero configured providers yields an
// empty set and replication becomes a no-op. A provider whose client
// cannot be constructed is skipped with a warning, in keeping with the
// best-effort contract.
func NewUploaders(ctx context.Context, config *Config, logger *logging.Logger) []Uploader {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	var uploaders []Uploader

	if config.S3.Enabled() {
		uploader, err := NewS3Uploader(&config.S3)
		if err != nil {
			logger.Warn(fmt.Sprintf("S3 uploader unavailable: %v", err))
		} else {
			uploaders = append(uploaders, uploader)
		}
	}

	if config.GCS.Enabled() {
		uploader, err := NewGCSUploader(ctx, &config.GCS)
		if err != nil {
			logger.Warn(fmt.Sprintf("GCS uploader unavailable: %v", err))
		} else {
			uploaders = append(uploaders, uploader)
		}
	}

	if config.Azure.Enabled() {
		uploader, err := NewAzureUploader(&config.Azure)
		if err != nil {
			logger.Warn(fmt.Sprintf("Azure uploader unavailable: %v", err))
		} else {
			uploaders = append(uploaders, uploader)
		}
	}

	return uploaders
}
