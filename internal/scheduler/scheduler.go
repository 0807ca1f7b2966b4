package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aevon-lab/stockpile/internal/blob"
	coreerrors "github.com/aevon-lab/stockpile/internal/core/errors"
	"github.com/aevon-lab/stockpile/internal/ingestion"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Mode selects how scans are triggered.
type Mode string

const (
	ModeInterval Mode = "interval"
	ModeCron     Mode = "cron"
)

const (
	defaultInterval    = 30 * time.Second
	defaultCronSpec    = "15 0 * * *"
	defaultWorkerCount = 1

	scanKey = "scan"
)

// Lister lists source files that still need processing.
type Lister interface {
	ListUnprocessed(ctx context.Context) ([]blob.Object, error)
}

// Processor ingests one remote file end to end.
type Processor interface {
	ProcessRemote(ctx context.Context, name string) (ingestion.Result, error)
}

// Options configures the Scheduler.
type Options struct {
	Mode        Mode
	Interval    time.Duration
	CronSpec    string
	Location    *time.Location
	WorkerCount int
}

func (o Options) normalized() Options {
	n := o
	if n.Mode == "" {
		n.Mode = ModeInterval
	}
	if n.Interval <= 0 {
		n.Interval = defaultInterval
	}
	if n.CronSpec == "" {
		n.CronSpec = defaultCronSpec
	}
	if n.Location == nil {
		n.Location = time.Local
	}
	if n.WorkerCount <= 0 {
		n.WorkerCount = defaultWorkerCount
	}
	return n
}

// Outcome is the result of one file attempt.
type Outcome struct {
	Name        string
	State       FileState
	Result      ingestion.Result
	Err         error
	CompletedAt time.Time
}

// ScanReport summarizes one scan.
type ScanReport struct {
	Found     int
	Processed int
	Failed    int
	Skipped   int
	Outcomes  []Outcome
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Mode     Mode
	Running  bool
	LastScan time.Time
	NextRun  time.Time
	InFlight []string
	Files    []FileStatus
}

// Scheduler scans the source on a timer and hands each unprocessed file to
// the pipeline. One scan runs at a time and one attempt runs per file.
// Scans run under the scheduler's own context, which ends only when the
// context given to Start does, so callers that stop waiting never cut a
// shared scan short.
type Scheduler struct {
	lister    Lister
	processor Processor
	opts      Options
	files     *tracker
	scans     singleflight.Group
	scanning  sync.Mutex // held while a scan runs
	runCtx    context.Context
	stopRun   context.CancelFunc
	nowFn     func() time.Time

	mu       sync.Mutex
	running  bool
	lastScan time.Time
	nextRun  time.Time
	cron     *cron.Cron
	entryID  cron.EntryID
}

// NewScheduler creates a Scheduler. Call Start to begin triggering scans.
func NewScheduler(lister Lister, processor Processor, opts Options) *Scheduler {
	nowFn := func() time.Time { return time.Now().UTC() }
	runCtx, stopRun := context.WithCancel(context.Background())
	return &Scheduler{
		lister:    lister,
		processor: processor,
		opts:      opts.normalized(),
		files:     newTracker(nowFn),
		runCtx:    runCtx,
		stopRun:   stopRun,
		nowFn:     nowFn,
	}
}

// Mode returns the trigger mode fixed at construction.
func (s *Scheduler) Mode() Mode { return s.opts.Mode }

// Start triggers scans until ctx is cancelled. Interval mode scans once
// immediately. Cancelling ctx stops every scan from starting further files;
// files already being processed are finished before Start returns.
func (s *Scheduler) Start(ctx context.Context) error {
	var err error
	switch s.opts.Mode {
	case ModeCron:
		err = s.runCron(ctx)
	case ModeInterval:
		err = s.runInterval(ctx)
	default:
		return fmt.Errorf("scheduler: unknown mode %q", s.opts.Mode)
	}

	s.stopRun()
	s.scanning.Lock()
	s.scanning.Unlock() //nolint:staticcheck
	return err
}

func (s *Scheduler) runInterval(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.stopRun)
	defer stop()

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] Starting interval scheduler",
		"interval", s.opts.Interval,
		"workers", s.opts.WorkerCount,
	)

	s.tick()
	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")
			return nil
		}
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	s.nextRun = s.nowFn().Add(s.opts.Interval)
	s.mu.Unlock()

	s.trigger()
}

// trigger runs or joins a scan and waits for it to finish.
func (s *Scheduler) trigger() {
	_, err, _ := s.scans.Do(scanKey, s.sharedScan)
	if err != nil {
		slog.Error("[Scheduler] Scan failed", "error", err)
	}
}

func (s *Scheduler) runCron(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.stopRun)
	defer stop()

	c := cron.New(cron.WithLocation(s.opts.Location))
	id, err := c.AddFunc(s.opts.CronSpec, s.trigger)
	if err != nil {
		return fmt.Errorf("scheduler: invalid cron spec %q: %w", s.opts.CronSpec, err)
	}

	s.mu.Lock()
	s.cron, s.entryID = c, id
	s.mu.Unlock()

	c.Start()
	slog.Info("[Scheduler] Starting cron scheduler",
		"spec", s.opts.CronSpec,
		"location", s.opts.Location.String(),
		"next_run", c.Entry(id).Next,
		"workers", s.opts.WorkerCount,
	)

	<-ctx.Done()
	slog.Info("[Scheduler] Stopping (context cancelled)")
	<-c.Stop().Done()
	return nil
}

// Scan lists the source and processes every file that is not already in
// flight. Concurrent calls share the scan already running; shared reports
// whether the report went to more than one caller. Cancelling ctx only stops
// this caller from waiting; the scan itself carries on.
func (s *Scheduler) Scan(ctx context.Context) (report ScanReport, shared bool, err error) {
	ch := s.scans.DoChan(scanKey, s.sharedScan)
	select {
	case res := <-ch:
		if res.Val != nil {
			report = res.Val.(ScanReport)
		}
		return report, res.Shared, res.Err
	case <-ctx.Done():
		slog.Info("[Scheduler] Caller stopped waiting for scan", "error", ctx.Err())
		return ScanReport{}, false, ctx.Err()
	}
}

func (s *Scheduler) sharedScan() (interface{}, error) {
	s.scanning.Lock()
	defer s.scanning.Unlock()
	return s.scan(s.runCtx)
}

func (s *Scheduler) scan(ctx context.Context) (ScanReport, error) {
	started := s.nowFn()
	s.setRunning(true, started)
	defer s.setRunning(false, time.Time{})

	var report ScanReport
	objects, err := s.lister.ListUnprocessed(ctx)
	if err != nil {
		return report, err
	}
	report.Found = len(objects)
	if len(objects) == 0 {
		slog.Debug("[Scheduler] No unprocessed files")
		return report, nil
	}

	slog.Info("[Scheduler] Found unprocessed files", "count", len(objects))
	for _, obj := range objects {
		s.files.observe(obj.Name, obj.LastModified)
	}

	var (
		mu       sync.Mutex
		outcomes []Outcome
	)
	g := new(errgroup.Group)
	g.SetLimit(s.opts.WorkerCount)

	for i, obj := range objects {
		if ctx.Err() != nil {
			left := len(objects) - i
			slog.Info("[Scheduler] Stopping scan, leaving files for next run", "remaining", left)
			mu.Lock()
			report.Skipped += left
			mu.Unlock()
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				return nil
			}
			switch s.files.claim(obj.Name, obj.LastModified, false) {
			case claimInFlight:
				slog.Info("[Scheduler] File already in flight, skipping", "file", obj.Name)
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				return nil
			case claimRejected:
				slog.Debug("[Scheduler] File was rejected and has not changed, skipping", "file", obj.Name)
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				return nil
			}

			out := s.process(ctx, obj.Name)
			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Name < outcomes[j].Name })
	for _, out := range outcomes {
		if out.Err != nil {
			report.Failed++
		} else {
			report.Processed++
		}
	}
	report.Outcomes = outcomes

	slog.Info("[Scheduler] Scan complete",
		"found", report.Found,
		"processed", report.Processed,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"duration", s.nowFn().Sub(started),
	)
	return report, nil
}

// ProcessFile runs one file outside the timer, including files that were
// rejected earlier. It returns ErrConcurrencyConflict when the file is
// already being processed.
func (s *Scheduler) ProcessFile(ctx context.Context, name string) (Outcome, error) {
	if s.files.claim(name, time.Time{}, true) == claimInFlight {
		slog.Info("[Scheduler] File already in flight, rejecting manual run", "file", name)
		return Outcome{Name: name, State: StateInFlight}, coreerrors.ErrConcurrencyConflict
	}
	out := s.process(ctx, name)
	return out, out.Err
}

// process runs a claimed file. The attempt is detached from ctx
// cancellation so shutdown never interrupts a file midway.
func (s *Scheduler) process(ctx context.Context, name string) Outcome {
	slog.Info("[Scheduler] Processing file", "file", name)

	result, err := s.processor.ProcessRemote(context.WithoutCancel(ctx), name)
	state := s.files.release(name, err)

	out := Outcome{Name: name, State: state, Result: result, Err: err, CompletedAt: s.nowFn()}
	switch {
	case err == nil:
		slog.Info("[Scheduler] File processed", "file", name, "artifact", result.Artifact.FileName)
	case state == StateRejected:
		slog.Warn("[Scheduler] File rejected, waiting for corrected upload", "file", name, "error", err)
	default:
		slog.Error("[Scheduler] File failed, will retry next scan", "file", name, "error", err)
	}
	return out
}

func (s *Scheduler) setRunning(running bool, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
	if running {
		s.lastScan = at
	}
}

// Status reports the scheduler state and every tracked file.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := Status{
		Mode:     s.opts.Mode,
		Running:  s.running,
		LastScan: s.lastScan,
		NextRun:  s.nextRun,
	}
	c, id := s.cron, s.entryID
	s.mu.Unlock()

	if c != nil {
		st.NextRun = c.Entry(id).Next
	}
	st.InFlight = s.files.inFlight()
	st.Files = s.files.snapshot()
	return st
}
