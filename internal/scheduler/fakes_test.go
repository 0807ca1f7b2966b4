package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aevon-lab/stockpile/internal/artifact"
	"github.com/aevon-lab/stockpile/internal/blob"
	"github.com/aevon-lab/stockpile/internal/ingestion"
)

type fakeLister struct {
	mu      sync.Mutex
	objects []blob.Object
	err     error
	calls   int
}

func (f *fakeLister) ListUnprocessed(context.Context) ([]blob.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]blob.Object(nil), f.objects...), nil
}

func (f *fakeLister) set(objects ...blob.Object) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects = objects
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeProcessor returns the error registered for a name. When gate is set,
// each call announces itself on started and waits for gate to close.
type fakeProcessor struct {
	mu      sync.Mutex
	errs    map[string]error
	calls   map[string]int
	started chan string
	gate    chan struct{}

	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeProcessor) ProcessRemote(_ context.Context, name string) (ingestion.Result, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[name]++
	err := f.errs[name]
	started, gate := f.started, f.gate
	f.mu.Unlock()

	if started != nil {
		started <- name
	}
	if gate != nil {
		<-gate
	} else {
		time.Sleep(5 * time.Millisecond)
	}

	if err != nil {
		return ingestion.Result{FileName: name}, err
	}
	return ingestion.Result{
		FileName:      name,
		Artifact:      artifact.Meta{FileName: "salesninventory_250602_103000.xlsx"},
		UniqueRecords: 3,
		Moved:         true,
	}, nil
}

func (f *fakeProcessor) setErr(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[name] = err
}

func (f *fakeProcessor) callsFor(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

type fakeBlobStatus struct {
	status blob.Status
	err    error
}

func (f *fakeBlobStatus) Status(context.Context) (blob.Status, error) {
	return f.status, f.err
}

func object(name string, modified time.Time) blob.Object {
	return blob.Object{Name: name, Size: 1024, LastModified: modified}
}
