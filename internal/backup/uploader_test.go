package backup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUploaders_NoneConfigured(t *testing.T) {
	config := &Config{}
	config.SetDefaults()

	uploaders := NewUploaders(context.Background(), config, nil)
	assert.Empty(t, uploaders)
}

func TestNewUploaders_S3(t *testing.T) {
	config := &Config{}
	config.SetDefaults()
	config.S3 = S3Config{Bucket: "backups", Region: "eu-west-1", AccessKey: "key", SecretKey: "secret"}

	uploaders := NewUploaders(context.Background(), config, nil)
	require.Len(t, uploaders, 1)
	assert.Equal(t, "s3", uploaders[0].Name())
}

func TestNewUploaders_SkipsBrokenProvider(t *testing.T) {
	config := &Config{}
	config.SetDefaults()
	// Invalid base64 account key: the Azure credential cannot be built,
	// the provider is skipped and the rest of the run is unaffected.
	config.Azure = AzureConfig{AccountName: "acct", AccountKey: "!!not-base64!!", ContainerName: "backups"}

	uploaders := NewUploaders(context.Background(), config, nil)
	assert.Empty(t, uploaders)
}

func TestNewS3Uploader_NotConfigured(t *testing.T) {
	_, err := NewS3Uploader(&S3Config{})
	require.Error(t, err)
	assert.Equal(t, BackupErrorTypeConfiguration, ErrorClass(err))
}

func TestS3Uploader_Upload_MissingLocalFile(t *testing.T) {
	uploader, err := NewS3Uploader(&S3Config{Bucket: "backups", Region: "us-east-1", AccessKey: "key", SecretKey: "secret"})
	require.NoError(t, err)

	err = uploader.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.sql.gz"))
	require.Error(t, err)
	assert.Equal(t, BackupErrorTypeUpload, ErrorClass(err))
	assert.False(t, IsFatal(err))
}

func TestNewAzureUploader_NotConfigured(t *testing.T) {
	_, err := NewAzureUploader(&AzureConfig{AccountName: "acct"})
	require.Error(t, err)
	assert.Equal(t, BackupErrorTypeConfiguration, ErrorClass(err))
}

func TestNewGCSUploader_NotConfigured(t *testing.T) {
	_, err := NewGCSUploader(context.Background(), &GCSConfig{})
	require.Error(t, err)
	assert.Equal(t, BackupErrorTypeConfiguration, ErrorClass(err))
}
