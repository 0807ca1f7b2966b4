package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var _ ObjectStore = (*DirStore)(nil)

// DirStore implements ObjectStore on a local directory tree: root/{container}/{name}.
// Copies complete synchronously, so CopyStatus reports success once the
// destination exists. Used for local runs and tests.
type DirStore struct {
	root string

	mu     sync.Mutex
	copies map[string]CopyStatus
}

// NewDirStore creates a DirStore rooted at root.
func NewDirStore(root string) *DirStore {
	return &DirStore{root: root, copies: make(map[string]CopyStatus)}
}

func (s *DirStore) path(container, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return filepath.Join(s.root, container, clean), nil
}

func (s *DirStore) EnsureContainer(_ context.Context, container string) error {
	return os.MkdirAll(filepath.Join(s.root, container), 0o755)
}

func (s *DirStore) List(_ context.Context, container string) ([]Object, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, container))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("list %s: %w", container, err)
	}

	objects := make([]Object, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		objects = append(objects, Object{
			Name:         entry.Name(),
			Size:         info.Size(),
			LastModified: info.ModTime().UTC(),
		})
	}
	return objects, nil
}

func (s *DirStore) Get(_ context.Context, container, name string) (io.ReadCloser, error) {
	p, err := s.path(container, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *DirStore) Exists(_ context.Context, container, name string) (bool, error) {
	p, err := s.path(container, name)
	if err != nil {
		return false, err
	}
	return fileExists(p), nil
}

func (s *DirStore) StartCopy(_ context.Context, srcContainer, srcName, dstContainer, dstName string) (string, error) {
	src, err := s.path(srcContainer, srcName)
	if err != nil {
		return "", err
	}
	dst, err := s.path(dstContainer, dstName)
	if err != nil {
		return "", err
	}
	if !fileExists(src) {
		return "", ErrNotFound
	}

	status := CopySuccess
	if err := copyFile(src, dst); err != nil {
		status = CopyFailed
	}

	s.mu.Lock()
	s.copies[dstContainer+"/"+dstName] = status
	s.mu.Unlock()
	return uuid.NewString(), nil
}

// AbortCopy is a no-op for finished copies; DirStore copies finish inside StartCopy.
func (s *DirStore) AbortCopy(_ context.Context, container, name, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.copies[container+"/"+name] == CopyPending {
		s.copies[container+"/"+name] = CopyAborted
	}
	return nil
}

func (s *DirStore) CopyStatus(_ context.Context, container, name string) (CopyStatus, error) {
	s.mu.Lock()
	status, ok := s.copies[container+"/"+name]
	s.mu.Unlock()
	if ok {
		return status, nil
	}

	p, err := s.path(container, name)
	if err != nil {
		return "", err
	}
	if fileExists(p) {
		return CopySuccess, nil
	}
	return "", ErrNotFound
}

func (s *DirStore) Delete(_ context.Context, container, name string) error {
	p, err := s.path(container, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// copyFile writes src to a hidden temp file beside dst, then renames it into place.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".copy-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
