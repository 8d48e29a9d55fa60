package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureBlobs opens azblob://container/path/to/blob locations from one
// storage account.
type AzureBlobs struct {
	client *azblob.Client
}

// NewAzureBlobs authenticates against accountName with a shared key.
func NewAzureBlobs(accountName, accountKey string) (*AzureBlobs, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}
	return &AzureBlobs{client: client}, nil
}

func (s *AzureBlobs) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	container, blob, err := ParseBlobURL(location)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	return resp.Body, nil
}

// ParseBlobURL splits azblob://container/path/to/blob into its container and
// blob name.
func ParseBlobURL(location string) (container, blob string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}
	if u.Scheme != "azblob" {
		return "", "", fmt.Errorf("invalid blob URL %q: scheme must be azblob", location)
	}
	blob = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || blob == "" {
		return "", "", fmt.Errorf("invalid blob URL %q: want azblob://container/blob", location)
	}
	return u.Host, blob, nil
}
