package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Uploader replicates artifacts to an Amazon S3 (or S3-compatible) bucket
type S3Uploader struct {
	client *s3.S3
	bucket string
}

// NewS3Uploader creates a new S3Uploader instance
func NewS3Uploader(config *S3Config) (*S3Uploader, error) {
	if config == nil || !config.Enabled() {
		return nil, NewConfigurationError("S3 bucket is not configured", nil)
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	// Static credentials when provided; otherwise the default chain
	// (environment, shared config, instance profile) applies.
	if config.AccessKey != "" && config.SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, NewUploadError("failed to create AWS session", err)
	}

	return &S3Uploader{
		client: s3.New(sess),
		bucket: config.Bucket,
	}, nil
}

// Name returns the provider name
func (su *S3Uploader) Name() string {
	return "s3"
}

// Upload pushes the file to the bucket under its basename
func (su *S3Uploader) Upload(ctx context.Context, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return NewUploadError(fmt.Sprintf("failed to open %s for upload", localPath), err)
	}
	defer file.Close()

	key := filepath.Base(localPath)
	_, err = su.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(su.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("application/gzip"),
	})
	if err != nil {
		return NewUploadError(fmt.Sprintf("failed to upload %s to s3://%s/%s", localPath, su.bucket, key), err)
	}

	return nil
}
