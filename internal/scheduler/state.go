package scheduler

import (
	"sort"
	"sync"
	"time"

	coreerrors "github.com/aevon-lab/stockpile/internal/core/errors"
)

// FileState is the lifecycle state of one source file.
type FileState string

const (
	StatePending      FileState = "pending"
	StateInFlight     FileState = "in_flight"
	StateProcessed    FileState = "processed"
	StatePendingRetry FileState = "pending_retry"
	StateRejected     FileState = "rejected"
)

// processedTTL bounds how long processed entries stay visible in Status.
const processedTTL = 24 * time.Hour

// FileStatus is a point-in-time copy of one tracked file.
type FileStatus struct {
	Name         string
	State        FileState
	Attempts     int
	LastError    string
	LastModified time.Time
	UpdatedAt    time.Time
}

type fileEntry struct {
	state        FileState
	attempts     int
	lastErr      string
	lastModified time.Time
	updatedAt    time.Time
}

type claimResult int

const (
	claimed claimResult = iota
	claimInFlight
	claimRejected
)

// tracker holds the per-file state machine:
//
//	pending -> in_flight -> processed | pending_retry | rejected
//
// pending_retry files are claimed again by the next scan. Rejected files
// are claimed again only when the object changes or on a manual run.
type tracker struct {
	mu    sync.Mutex
	files map[string]*fileEntry
	nowFn func() time.Time
}

func newTracker(nowFn func() time.Time) *tracker {
	return &tracker{files: make(map[string]*fileEntry), nowFn: nowFn}
}

// observe records that name is waiting in the source.
func (t *tracker) observe(name string, lastModified time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.files[name]
	if !ok || e.state == StateProcessed {
		t.files[name] = &fileEntry{state: StatePending, lastModified: lastModified, updatedAt: t.nowFn()}
	}
}

// claim moves name to in_flight. force skips the rejected check.
func (t *tracker) claim(name string, lastModified time.Time, force bool) claimResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.files[name]
	if !ok {
		e = &fileEntry{}
		t.files[name] = e
	}
	switch {
	case e.state == StateInFlight:
		return claimInFlight
	case e.state == StateRejected && !force && lastModified.Equal(e.lastModified):
		return claimRejected
	}

	e.state = StateInFlight
	e.attempts++
	if !lastModified.IsZero() {
		e.lastModified = lastModified
	}
	e.updatedAt = t.nowFn()
	return claimed
}

// release records the outcome of an in-flight attempt.
func (t *tracker) release(name string, err error) FileState {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.files[name]
	if !ok {
		e = &fileEntry{}
		t.files[name] = e
	}
	switch {
	case err == nil:
		e.state = StateProcessed
		e.lastErr = ""
	case coreerrors.IsValidation(err):
		e.state = StateRejected
		e.lastErr = err.Error()
	default:
		e.state = StatePendingRetry
		e.lastErr = err.Error()
	}
	e.updatedAt = t.nowFn()
	return e.state
}

func (t *tracker) inFlight() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := []string{}
	for name, e := range t.files {
		if e.state == StateInFlight {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// snapshot returns every tracked file sorted by name and forgets processed
// entries older than processedTTL.
func (t *tracker) snapshot() []FileStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFn()
	out := make([]FileStatus, 0, len(t.files))
	for name, e := range t.files {
		if e.state == StateProcessed && now.Sub(e.updatedAt) > processedTTL {
			delete(t.files, name)
			continue
		}
		out = append(out, FileStatus{
			Name:         name,
			State:        e.state,
			Attempts:     e.attempts,
			LastError:    e.lastErr,
			LastModified: e.lastModified,
			UpdatedAt:    e.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
