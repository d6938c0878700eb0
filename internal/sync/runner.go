package sync

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/mailmigrate/internal/model"
	"github.com/nhle/mailmigrate/internal/source"
)

// ErrAlreadyRunning is returned when a scan is requested while another
// one is still in flight.
var ErrAlreadyRunning = errors.New("scan already running")

// SyncState represents the current state of the scan runner.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// Scanner runs one scan.
type Scanner interface {
	Run(ctx context.Context) (*model.ScanResult, error)
}

// RunnerStatus is a snapshot of the runner.
type RunnerStatus struct {
	State      SyncState
	LastRun    time.Time
	LastResult *model.ScanResult
	LastError  error
}

// Runner guarantees that at most one scan is in flight. A request made
// while a scan is running is rejected, not queued.
type Runner struct {
	scanner Scanner
	logger  *log.Logger
	now     func() time.Time

	mu         gosync.Mutex
	running    bool
	lastRun    time.Time
	lastResult *model.ScanResult
	lastErr    error
}

// NewRunner creates a Runner around scanner.
func NewRunner(scanner Scanner, logger *log.Logger) *Runner {
	return &Runner{
		scanner: scanner,
		logger:  logger,
		now:     time.Now,
	}
}

// Run starts a scan unless one is already running, in which case it
// returns ErrAlreadyRunning immediately.
func (r *Runner) Run(ctx context.Context) (*model.ScanResult, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.Warn("Scan already in progress, skipping")
		return nil, ErrAlreadyRunning
	}
	r.running = true
	r.lastRun = r.now()
	r.mu.Unlock()

	var (
		res *model.ScanResult
		err error
	)
	defer func() {
		r.mu.Lock()
		r.running = false
		r.lastResult = res
		r.lastErr = err
		r.mu.Unlock()
	}()

	res, err = r.scanner.Run(ctx)
	if err != nil {
		if source.IsAuthError(err) {
			r.logger.Error("Mailbox rejected credentials, run `mailmigrate setup`", "error", err)
		} else {
			r.logger.Error("Scan failed", "error", err)
		}
	}
	return res, err
}

// Running reports whether a scan is in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Status returns a snapshot of the runner state.
func (r *Runner) Status() RunnerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := RunnerStatus{
		LastRun:    r.lastRun,
		LastResult: r.lastResult,
		LastError:  r.lastErr,
	}
	switch {
	case r.running:
		st.State = SyncRunning
	case r.lastErr != nil:
		st.State = SyncError
	default:
		st.State = SyncIdle
	}
	return st
}
