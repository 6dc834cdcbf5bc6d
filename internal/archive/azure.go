package archive

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"github.com/sfextract/sf-attachments/internal/config"
	"github.com/sfextract/sf-attachments/internal/http"
)

// AzureArchiver uploads block blobs into one container.
type AzureArchiver struct {
	client    *azblob.Client
	container string
}

// NewAzureArchiver authenticates with a SAS token when one is configured,
// otherwise with the account's shared key.
func NewAzureArchiver(cfg *config.Config) (*AzureArchiver, error) {
	if cfg.ArchiveBucket == "" {
		return nil, fmt.Errorf("archive container is required for azure")
	}
	if cfg.AzureAccountURL == "" {
		return nil, fmt.Errorf("azure storage URL is required")
	}

	httpClient, err := http.CreateTransferClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	clientOpts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: httpClient,
		},
	}

	serviceURL := strings.TrimRight(cfg.AzureAccountURL, "/") + "/"

	var client *azblob.Client
	switch {
	case cfg.AzureSASToken != "":
		sasURL := serviceURL + "?" + strings.TrimPrefix(cfg.AzureSASToken, "?")
		client, err = azblob.NewClientWithNoCredential(sasURL, clientOpts)
	case cfg.AzureAccountKey != "":
		account, accErr := accountName(cfg.AzureAccountURL)
		if accErr != nil {
			return nil, accErr
		}
		cred, credErr := azblob.NewSharedKeyCredential(account, cfg.AzureAccountKey)
		if credErr != nil {
			return nil, fmt.Errorf("invalid azure account key: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, clientOpts)
	default:
		return nil, fmt.Errorf("azure archive needs AZURE_STORAGE_SAS_TOKEN or AZURE_STORAGE_KEY")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	return &AzureArchiver{client: client, container: cfg.ArchiveBucket}, nil
}

// accountName extracts "acct" from https://acct.blob.core.windows.net
func accountName(accountURL string) (string, error) {
	u, err := url.Parse(accountURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid azure storage URL: %s", accountURL)
	}
	name, _, _ := strings.Cut(u.Hostname(), ".")
	if name == "" {
		return "", fmt.Errorf("invalid azure storage URL: %s", accountURL)
	}
	return name, nil
}

// Name implements Archiver.
func (a *AzureArchiver) Name() string {
	return "azure://" + a.container
}

// Upload implements Archiver.
func (a *AzureArchiver) Upload(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	ct := contentType(localPath)
	_, err = a.client.UploadFile(ctx, a.container, key, file, &azblob.UploadFileOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &ct},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to Azure: %w", err)
	}
	return nil
}
