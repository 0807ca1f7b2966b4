package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/google/uuid"
)

const (
	// FilePrefix starts every artifact file name.
	FilePrefix = "salesninventory_"

	// DefaultKeep is the number of artifacts retention preserves.
	DefaultKeep = 7

	nameLayout = "060102_150405"
)

// ErrNotFound is returned when an artifact name is unknown.
var ErrNotFound = errors.New("artifact not found")

var artifactNamePattern = regexp.MustCompile(`^salesninventory_(\d{6}_\d{6})(?:_(\d+))?\.xlsx$`)

// RetentionResult reports one retention pass.
type RetentionResult struct {
	Kept    []string `json:"kept"`
	Deleted []string `json:"deleted"`
	Skipped []string `json:"skipped"`
}

// Store persists cleaned batches as xlsx artifacts in one directory and
// tracks them in manifest.yaml.
type Store struct {
	dir  string
	keep int

	mu sync.Mutex
}

// NewStore creates the artifact directory if needed.
func NewStore(dir string, keep int) (*Store, error) {
	if keep <= 0 {
		keep = DefaultKeep
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{dir: dir, keep: keep}, nil
}

// Dir returns the artifact directory.
func (s *Store) Dir() string { return s.dir }

// FileName returns the artifact name for a batch ingested at at.
// seq values above 1 disambiguate batches within the same second.
func FileName(at time.Time, seq int) string {
	if seq <= 1 {
		return FilePrefix + at.Format(nameLayout) + ".xlsx"
	}
	return fmt.Sprintf("%s%s_%d.xlsx", FilePrefix, at.Format(nameLayout), seq)
}

// ParseFileName recovers the encoded date and sequence from an artifact name.
func ParseFileName(name string) (time.Time, int, bool) {
	m := artifactNamePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, 0, false
	}
	at, err := time.Parse(nameLayout, m[1])
	if err != nil {
		return time.Time{}, 0, false
	}
	seq := 1
	if m[2] != "" {
		seq, _ = strconv.Atoi(m[2])
	}
	return at, seq, true
}

// Save writes records as a new artifact stamped at at and records it in the manifest.
func (s *Store) Save(records []inventory.Record, at time.Time, source string) (Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := loadManifest(s.dir)
	if err != nil {
		return Meta{}, err
	}

	seq := 1
	name := FileName(at, seq)
	for m.find(name) >= 0 || fileExists(filepath.Join(s.dir, name)) {
		seq++
		name = FileName(at, seq)
	}

	if err := WriteWorkbook(filepath.Join(s.dir, name), records); err != nil {
		return Meta{}, fmt.Errorf("write artifact %s: %w", name, err)
	}

	sales, purchases := inventory.Totals(records)
	meta := Meta{
		ID:             uuid.NewString(),
		FileName:       name,
		Date:           at,
		Seq:            seq,
		Source:         source,
		Rows:           len(records),
		TotalSales:     sales,
		TotalPurchases: purchases,
		CreatedAt:      time.Now().UTC(),
	}
	m.Artifacts = append(m.Artifacts, meta)

	if err := saveManifest(s.dir, m); err != nil {
		return Meta{}, err
	}

	slog.Info("[ArtifactStore] Saved artifact",
		"file", name,
		"rows", meta.Rows,
		"total_sales", sales,
		"total_purchases", purchases)
	return meta, nil
}

// List returns every tracked artifact, newest first.
func (s *Store) List() ([]Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := loadManifest(s.dir)
	if err != nil {
		return nil, err
	}
	metas := append([]Meta(nil), m.Artifacts...)
	sortMetas(metas)
	for i, j := 0, len(metas)-1; i < j; i, j = i+1, j-1 {
		metas[i], metas[j] = metas[j], metas[i]
	}
	return metas, nil
}

// Load reads the records of one artifact.
func (s *Store) Load(name string) (Meta, []inventory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := loadManifest(s.dir)
	if err != nil {
		return Meta{}, nil, err
	}
	i := m.find(name)
	if i < 0 {
		return Meta{}, nil, ErrNotFound
	}

	records, err := ReadWorkbook(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Meta{}, nil, ErrNotFound
		}
		return Meta{}, nil, err
	}
	return m.Artifacts[i], records, nil
}

// Enforce keeps the most recent artifacts and deletes the rest. Files that
// carry the artifact prefix but not a parseable date are skipped with a
// warning. Matching files missing from the manifest are adopted first.
func (s *Store) Enforce() (RetentionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := RetentionResult{Kept: []string{}, Deleted: []string{}, Skipped: []string{}}

	m, err := loadManifest(s.dir)
	if err != nil {
		return result, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return result, fmt.Errorf("read artifact dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, FilePrefix) || m.find(name) >= 0 {
			continue
		}
		at, seq, ok := ParseFileName(name)
		if !ok {
			slog.Warn("[ArtifactStore] Skipping file with unparseable date", "file", name)
			result.Skipped = append(result.Skipped, name)
			continue
		}
		m.Artifacts = append(m.Artifacts, Meta{
			ID:       uuid.NewString(),
			FileName: name,
			Date:     at,
			Seq:      seq,
			Legacy:   true,
		})
	}

	sortMetas(m.Artifacts)
	excess := len(m.Artifacts) - s.keep
	var failed []Meta
	for i := 0; i < excess; i++ {
		meta := m.Artifacts[i]
		err := os.Remove(filepath.Join(s.dir, meta.FileName))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("[ArtifactStore] Failed to delete artifact", "file", meta.FileName, "error", err)
			failed = append(failed, meta)
			continue
		}
		result.Deleted = append(result.Deleted, meta.FileName)
	}
	if excess > 0 {
		m.Artifacts = append(failed, m.Artifacts[excess:]...)
	}
	for _, meta := range m.Artifacts {
		result.Kept = append(result.Kept, meta.FileName)
	}

	if err := saveManifest(s.dir, m); err != nil {
		return result, err
	}

	slog.Info("[ArtifactStore] Retention applied",
		"kept", len(result.Kept),
		"deleted", len(result.Deleted),
		"skipped", len(result.Skipped))
	return result, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
