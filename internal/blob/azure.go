package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	sdkblob "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

var _ ObjectStore = (*AzureStore)(nil)

// AzureStore implements ObjectStore on Azure Blob Storage.
type AzureStore struct {
	client *azblob.Client
}

// NewAzureStore builds a client from a storage-account connection string.
func NewAzureStore(connectionString string) (*AzureStore, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure blob client: %w", err)
	}
	return &AzureStore{client: client}, nil
}

func (s *AzureStore) blobClient(container, name string) *sdkblob.Client {
	return s.client.ServiceClient().NewContainerClient(container).NewBlobClient(name)
}

func (s *AzureStore) EnsureContainer(ctx context.Context, container string) error {
	_, err := s.client.CreateContainer(ctx, container, nil)
	if err == nil {
		slog.Info("[AzureStore] Created container", "container", container)
		return nil
	}
	if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil
	}
	return fmt.Errorf("create container %s: %w", container, err)
}

func (s *AzureStore) List(ctx context.Context, container string) ([]Object, error) {
	var objects []Object

	pager := s.client.NewListBlobsFlatPager(container, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("list %s: %w", container, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			obj := Object{Name: *item.Name}
			if props := item.Properties; props != nil {
				if props.LastModified != nil {
					obj.LastModified = *props.LastModified
				}
				if props.ContentLength != nil {
					obj.Size = *props.ContentLength
				}
			}
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

func (s *AzureStore) Get(ctx context.Context, container, name string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download %s/%s: %w", container, name, err)
	}
	return resp.Body, nil
}

func (s *AzureStore) Exists(ctx context.Context, container, name string) (bool, error) {
	_, err := s.blobClient(container, name).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("properties %s/%s: %w", container, name, err)
	}
	return true, nil
}

func (s *AzureStore) StartCopy(ctx context.Context, srcContainer, srcName, dstContainer, dstName string) (string, error) {
	src := s.blobClient(srcContainer, srcName)
	dst := s.blobClient(dstContainer, dstName)

	resp, err := dst.StartCopyFromURL(ctx, src.URL(), nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("start copy %s/%s -> %s/%s: %w", srcContainer, srcName, dstContainer, dstName, err)
	}

	var copyID string
	if resp.CopyID != nil {
		copyID = *resp.CopyID
	}
	slog.Debug("[AzureStore] Copy started", "copy_id", copyID, "destination", dstName)
	return copyID, nil
}

// AbortCopy stops a pending copy. A copy that already finished, or a
// destination that no longer exists, is not an error.
func (s *AzureStore) AbortCopy(ctx context.Context, container, name, copyID string) error {
	if copyID == "" {
		return nil
	}
	_, err := s.blobClient(container, name).AbortCopyFromURL(ctx, copyID, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.NoPendingCopyOperation, bloberror.BlobNotFound) {
			return nil
		}
		return fmt.Errorf("abort copy %s/%s: %w", container, name, err)
	}
	return nil
}

func (s *AzureStore) CopyStatus(ctx context.Context, container, name string) (CopyStatus, error) {
	props, err := s.blobClient(container, name).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("copy status %s/%s: %w", container, name, err)
	}
	if props.CopyStatus == nil {
		return CopyPending, nil
	}
	switch *props.CopyStatus {
	case sdkblob.CopyStatusTypeSuccess:
		return CopySuccess, nil
	case sdkblob.CopyStatusTypeFailed:
		return CopyFailed, nil
	case sdkblob.CopyStatusTypeAborted:
		return CopyAborted, nil
	default:
		return CopyPending, nil
	}
}

func (s *AzureStore) Delete(ctx context.Context, container, name string) error {
	_, err := s.blobClient(container, name).Delete(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s/%s: %w", container, name, err)
	}
	return nil
}
