package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	manifestFile    = "manifest.yaml"
	manifestVersion = 1
)

// Meta describes one persisted artifact. Retention orders artifacts by
// (Date, Seq) rather than by file system timestamps.
type Meta struct {
	ID             string    `yaml:"id" json:"id"`
	FileName       string    `yaml:"file_name" json:"file_name"`
	Date           time.Time `yaml:"date" json:"date"`
	Seq            int       `yaml:"seq" json:"seq"`
	Source         string    `yaml:"source,omitempty" json:"source,omitempty"`
	Rows           int       `yaml:"rows" json:"rows"`
	TotalSales     int64     `yaml:"total_sales" json:"total_sales"`
	TotalPurchases int64     `yaml:"total_purchases" json:"total_purchases"`
	CreatedAt      time.Time `yaml:"created_at" json:"created_at"`
	Legacy         bool      `yaml:"legacy,omitempty" json:"legacy,omitempty"`
}

type manifest struct {
	Version   int    `yaml:"version"`
	Artifacts []Meta `yaml:"artifacts"`
}

func (m *manifest) find(name string) int {
	for i, a := range m.Artifacts {
		if a.FileName == name {
			return i
		}
	}
	return -1
}

// sortMetas orders oldest first.
func sortMetas(metas []Meta) {
	sort.SliceStable(metas, func(i, j int) bool {
		if !metas[i].Date.Equal(metas[j].Date) {
			return metas[i].Date.Before(metas[j].Date)
		}
		if metas[i].Seq != metas[j].Seq {
			return metas[i].Seq < metas[j].Seq
		}
		return metas[i].FileName < metas[j].FileName
	})
}

func loadManifest(dir string) (*manifest, error) {
	body, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &manifest{Version: manifestVersion}, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Version == 0 {
		m.Version = manifestVersion
	}
	return &m, nil
}

func saveManifest(dir string, m *manifest) error {
	sortMetas(m.Artifacts)

	body, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, manifestFile)); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
