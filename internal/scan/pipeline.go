// Package scan runs one fetch, normalize, aggregate and persist pass.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/mailmigrate/internal/aggregate"
	"github.com/nhle/mailmigrate/internal/classify"
	"github.com/nhle/mailmigrate/internal/model"
	"github.com/nhle/mailmigrate/internal/normalize"
	"github.com/nhle/mailmigrate/internal/source"
	"github.com/nhle/mailmigrate/internal/store"
)

// NoEmailsMessage is reported when the fetch source returned nothing.
const NoEmailsMessage = "No emails found"

// Persister is the part of the store a scan writes to.
type Persister interface {
	UpsertServices(
		ctx context.Context,
		summaries []model.ServiceSummary,
		detections map[string]model.MigrationDetection,
	) (*store.UpsertResult, error)
	ServiceIDsByEmail(ctx context.Context) (map[string]string, error)
	ReplaceMessageMetadata(
		ctx context.Context,
		idByEmail map[string]string,
		msgs []model.NormalizedMessage,
	) (int, error)
	RecordScanRun(ctx context.Context, run model.ScanRun) (string, error)
}

// Pipeline wires a fetch source to the persistence layer. It holds no
// per-run state, so one Pipeline can serve many sequential runs.
type Pipeline struct {
	source     source.FetchSource
	persister  Persister
	normalizer *normalize.Normalizer
	aggregator *aggregate.Aggregator
	limit      int
	logger     *log.Logger
	now        func() time.Time
}

// New builds a Pipeline from an explicit configuration value.
func New(
	cfg *model.AppConfig,
	src source.FetchSource,
	persister Persister,
	logger *log.Logger,
) *Pipeline {
	classifier := classify.FromConfig(cfg)
	return &Pipeline{
		source:     src,
		persister:  persister,
		normalizer: normalize.New(logger),
		aggregator: aggregate.New(aggregate.OptionsFromConfig(cfg), classifier),
		limit:      cfg.IMAP.ScanLimit,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source, including the one used for
// messages with unparseable dates.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	p.normalizer = p.normalizer.WithClock(now)
	return p
}

// Run executes one scan. Soft failures (fetch errors, malformed
// messages, an empty mailbox) are reported in the result's Errors with
// a nil error. Persistence failures are returned as *PersistError
// together with a result whose status is failed.
func (p *Pipeline) Run(ctx context.Context) (*model.ScanResult, error) {
	res := &model.ScanResult{StartedAt: p.now()}
	defer func() { res.FinishedAt = p.now() }()

	p.logger.Info("Starting scan", "limit", p.limit)

	raws, err := p.source.Fetch(ctx, p.limit)
	if err != nil {
		msg := fmt.Sprintf("fetch: %v", err)
		if source.IsAuthError(err) {
			msg = fmt.Sprintf("authentication failed: %v", err)
		}
		p.logger.Warn("Fetch did not complete", "error", err, "fetched", len(raws))
		res.Errors = append(res.Errors, msg)
	}
	if p.limit > 0 && len(raws) > p.limit {
		raws = raws[len(raws)-p.limit:]
	}

	res.EmailsScanned = len(raws)

	if len(raws) == 0 {
		res.Status = model.ScanStatusNoEmails
		res.Errors = append(res.Errors, NoEmailsMessage)
		p.logger.Warn(NoEmailsMessage)
		if err := p.recordRun(ctx, res); err != nil {
			return p.fail(ctx, res, err)
		}
		return res, nil
	}

	msgs := p.normalizer.NormalizeAll(raws)
	for _, m := range msgs {
		if m.DateEstimated {
			res.DatesEstimated++
		}
	}
	if res.DatesEstimated > 0 {
		p.logger.Warn("Messages with unparseable dates", "count", res.DatesEstimated)
	}

	agg := p.aggregator.Aggregate(msgs)
	res.ServicesFound = len(agg.Services)
	res.RecordsSkipped = agg.Skipped
	res.Errors = append(res.Errors, agg.Issues...)

	p.logger.Info("Aggregated messages",
		"services", len(agg.Services),
		"migrations", len(agg.Migrations),
		"no_sender", agg.NoSender,
		"personal", agg.Personal,
		"skipped", agg.Skipped,
	)

	upserted, err := p.persister.UpsertServices(ctx, agg.Services, agg.Migrations)
	if err != nil {
		return p.fail(ctx, res, &PersistError{Op: "services", Err: err})
	}
	res.ServicesMigrated = upserted.Migrated

	ids, err := p.persister.ServiceIDsByEmail(ctx)
	if err != nil {
		return p.fail(ctx, res, &PersistError{Op: "service ids", Err: err})
	}

	stored, err := p.persister.ReplaceMessageMetadata(ctx, ids, msgs)
	if err != nil {
		return p.fail(ctx, res, &PersistError{Op: "message metadata", Err: err})
	}
	res.EmailsStored = stored

	res.Status = model.ScanStatusCompleted
	if err := p.recordRun(ctx, res); err != nil {
		return p.fail(ctx, res, err)
	}

	p.logger.Info("Scan completed",
		"scanned", res.EmailsScanned,
		"services", res.ServicesFound,
		"migrated", res.ServicesMigrated,
		"stored", res.EmailsStored,
	)

	return res, nil
}

// recordRun appends the scan run row for res.
func (p *Pipeline) recordRun(ctx context.Context, res *model.ScanResult) error {
	id, err := p.persister.RecordScanRun(ctx, model.ScanRun{
		RunAt:         res.StartedAt,
		EmailsScanned: res.EmailsScanned,
		ServicesFound: res.ServicesFound,
		Status:        res.Status,
	})
	if err != nil {
		return &PersistError{Op: "scan run", Err: err}
	}
	res.ScanRunID = id
	return nil
}

// fail marks res as failed and makes a best-effort attempt to record
// the failed run. The original error is always returned.
func (p *Pipeline) fail(
	ctx context.Context,
	res *model.ScanResult,
	err error,
) (*model.ScanResult, error) {
	res.Status = model.ScanStatusFailed
	res.Errors = append(res.Errors, err.Error())
	p.logger.Error("Scan failed", "error", err)

	if res.ScanRunID == "" {
		if recErr := p.recordRun(ctx, res); recErr != nil {
			p.logger.Warn("Could not record failed scan run", "error", recErr)
		}
	}
	return res, err
}
