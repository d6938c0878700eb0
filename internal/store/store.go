package store

import (
	"context"

	"github.com/nhle/mailmigrate/internal/model"
)

// ServiceFilter controls filtering and limiting for service queries.
// Results are always sorted by emails received, highest first.
type ServiceFilter struct {
	Status   *string
	Category *string
	Priority *string
	Search   *string // matches name, domain or email address
	Limit    int
}

// UpsertResult reports what UpsertServices changed.
type UpsertResult struct {
	Inserted int
	Updated  int

	// Migrated counts services that had a migration detection applied.
	Migrated int
}

// Categorizer assigns a category to a sender.
type Categorizer interface {
	Category(email, domain string) string
}

// Store defines the persistence interface for services, stored email
// metadata, scan runs and migration history.
type Store interface {
	// === Scan persistence ===

	UpsertServices(
		ctx context.Context,
		summaries []model.ServiceSummary,
		detections map[string]model.MigrationDetection,
	) (*UpsertResult, error)
	ServiceIDsByEmail(ctx context.Context) (map[string]string, error)
	ReplaceMessageMetadata(
		ctx context.Context,
		idByEmail map[string]string,
		msgs []model.NormalizedMessage,
	) (int, error)
	RecordScanRun(ctx context.Context, run model.ScanRun) (string, error)

	// === Services ===

	GetServices(ctx context.Context, filter ServiceFilter) ([]model.Service, error)
	GetServiceByID(ctx context.Context, id string) (*model.Service, error)
	GetServiceByEmail(ctx context.Context, email string) (*model.Service, error)
	UpdateService(ctx context.Context, id string, patch model.ServicePatch) (*model.Service, error)
	RecategorizeOther(ctx context.Context, c Categorizer) (int, error)
	AutoDetectCategory(ctx context.Context, id string, c Categorizer) (string, error)
	StatusCounts(ctx context.Context) (map[string]int, error)

	// === Emails ===

	GetEmailsForService(ctx context.Context, serviceID string, limit int) ([]model.EmailRecord, error)

	// === History ===

	GetScanRuns(ctx context.Context, limit int) ([]model.ScanRun, error)
	GetMigrationHistory(ctx context.Context, limit int) ([]model.StatusChange, error)
	TotalEmailsScanned(ctx context.Context) (int, error)

	Close() error
}
