package backup

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureUploader replicates artifacts to an Azure Blob Storage container
type AzureUploader struct {
	containerURL azblob.ContainerURL
	container    string
}

// NewAzureUploader creates a new AzureUploader instance
func NewAzureUploader(config *AzureConfig) (*AzureUploader, error) {
	if config == nil || !config.Enabled() {
		return nil, NewConfigurationError("Azure storage account or container is not configured", nil)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, NewUploadError("failed to create Azure credentials", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})
	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, NewUploadError("failed to parse Azure service URL", err)
	}

	return &AzureUploader{
		containerURL: azblob.NewServiceURL(*serviceURL, pipeline).NewContainerURL(config.ContainerName),
		container:    config.ContainerName,
	}, nil
}

// Name returns the provider name
func (au *AzureUploader) Name() string {
	return "azure"
}

// Upload pushes the file to the container under its basename
func (au *AzureUploader) Upload(ctx context.Context, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return NewUploadError(fmt.Sprintf("failed to open %s for upload", localPath), err)
	}
	defer file.Close()

	key := filepath.Base(localPath)
	blobURL := au.containerURL.NewBlockBlobURL(key)

	_, err = azblob.UploadFileToBlockBlob(ctx, file, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   4 * 1024 * 1024,
		Parallelism: 16,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: "application/gzip",
		},
	})
	if err != nil {
		return NewUploadError(fmt.Sprintf("failed to upload %s to azure://%s/%s", localPath, au.container, key), err)
	}

	return nil
}
