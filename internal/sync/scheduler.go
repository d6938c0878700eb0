package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/charmbracelet/log"
	crondesc "github.com/lnquy/cron"
	"github.com/robfig/cron/v3"

	"github.com/nhle/mailmigrate/internal/model"
)

// Status is what the scheduler reports to operators.
type Status struct {
	Enabled     bool
	Cron        string
	Description string
	Started     bool
	Scanning    bool
	LastRun     time.Time
	LastResult  *model.ScanResult
	LastError   string
	NextRun     time.Time
}

// Scheduler triggers scans on a cron schedule through a Runner.
type Scheduler struct {
	runner      *Runner
	logger      *log.Logger
	enabled     bool
	expr        string
	description string

	mu      gosync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	started bool
}

// NewScheduler validates the cron expression in cfg and prepares a
// scheduler.
func NewScheduler(
	runner *Runner,
	cfg model.SchedulerConfig,
	logger *log.Logger,
) (*Scheduler, error) {
	expr := cfg.Cron
	if expr == "" {
		expr = model.DefaultCron
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return nil, fmt.Errorf("parsing cron expression %q: %w", expr, err)
	}

	return &Scheduler{
		runner:      runner,
		logger:      logger,
		enabled:     cfg.Enabled,
		expr:        expr,
		description: Describe(expr),
	}, nil
}

// Describe renders a cron expression in plain English. It returns the
// expression itself when it cannot be described.
func Describe(expr string) string {
	descriptor, err := crondesc.NewDescriptor(crondesc.Use24HourTimeFormat(true))
	if err != nil {
		return expr
	}
	desc, err := descriptor.ToDescription(expr, crondesc.Locale_en)
	if err != nil {
		return expr
	}
	return desc
}

// Start registers the scan job and starts the cron loop. It is a no-op
// when scheduling is disabled or the scheduler is already started.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if !s.enabled {
		s.logger.Info("Scheduler disabled")
		return nil
	}

	c := cron.New(
		cron.WithLogger(cronLogger{s.logger}),
		cron.WithChain(cron.Recover(cronLogger{s.logger})),
	)
	id, err := c.AddFunc(s.expr, s.runScheduled)
	if err != nil {
		return fmt.Errorf("scheduling scan job: %w", err)
	}
	c.Start()

	s.cron = c
	s.entryID = id
	s.started = true

	s.logger.Info("Scheduler started", "cron", s.expr, "schedule", s.description,
		"next", c.Entry(id).Next)
	return nil
}

// Stop stops the cron loop. The returned context is done once any
// scheduled scan in progress has finished.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	s.started = false
	s.logger.Info("Scheduler stopped")
	return s.cron.Stop()
}

// TriggerNow runs a scan immediately through the same single-flight
// guard as scheduled runs.
func (s *Scheduler) TriggerNow(ctx context.Context) (*model.ScanResult, error) {
	s.logger.Info("Manual scan triggered")
	return s.runner.Run(ctx)
}

// Status returns the current scheduler state.
func (s *Scheduler) Status() Status {
	rs := s.runner.Status()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Enabled:     s.enabled,
		Cron:        s.expr,
		Description: s.description,
		Started:     s.started,
		Scanning:    rs.State == SyncRunning,
		LastRun:     rs.LastRun,
		LastResult:  rs.LastResult,
	}
	if rs.LastError != nil {
		st.LastError = rs.LastError.Error()
	}
	if s.started {
		st.NextRun = s.cron.Entry(s.entryID).Next
	}
	return st
}

func (s *Scheduler) runScheduled() {
	s.logger.Info("Scheduled scan starting")
	res, err := s.runner.Run(context.Background())
	if err != nil {
		// Already logged by the runner.
		return
	}
	s.logger.Info("Scheduled scan finished", "status", res.Status,
		"scanned", res.EmailsScanned, "services", res.ServicesFound)
}

// cronLogger adapts a charmbracelet logger to cron.Logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
