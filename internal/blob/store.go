package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by an ObjectStore when the container or object does not exist.
var ErrNotFound = errors.New("blob: object not found")

// CopyStatus is the state of a server-side copy as reported by the destination object.
type CopyStatus string

const (
	CopyPending CopyStatus = "pending"
	CopySuccess CopyStatus = "success"
	CopyFailed  CopyStatus = "failed"
	CopyAborted CopyStatus = "aborted"
)

// Object describes one stored file.
type Object struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStore is the minimal object-storage surface the gateway needs.
// Copies are asynchronous: StartCopy returns a copy id once accepted,
// CopyStatus reports progress on the destination and AbortCopy stops a
// pending copy so its destination can be deleted.
type ObjectStore interface {
	EnsureContainer(ctx context.Context, container string) error
	List(ctx context.Context, container string) ([]Object, error)
	Get(ctx context.Context, container, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, container, name string) (bool, error)
	StartCopy(ctx context.Context, srcContainer, srcName, dstContainer, dstName string) (string, error)
	CopyStatus(ctx context.Context, container, name string) (CopyStatus, error)
	AbortCopy(ctx context.Context, container, name, copyID string) error
	Delete(ctx context.Context, container, name string) error
}
