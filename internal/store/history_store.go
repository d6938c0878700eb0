package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/mailmigrate/internal/model"
)

// RecordScanRun appends one scan run row and returns its id. Scan runs
// are never updated afterwards.
func (s *SQLiteStore) RecordScanRun(ctx context.Context, run model.ScanRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	runAt := s.timestamp()
	if !run.RunAt.IsZero() {
		runAt = model.FormatISO(run.RunAt)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_runs (id, run_at, emails_scanned, services_found, status)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, runAt, run.EmailsScanned, run.ServicesFound, run.Status,
	)
	if err != nil {
		return "", fmt.Errorf("recording scan run: %w", err)
	}
	return run.ID, nil
}

// GetScanRuns returns the most recent scan runs, newest first.
func (s *SQLiteStore) GetScanRuns(ctx context.Context, limit int) ([]model.ScanRun, error) {
	query := `
		SELECT id, run_at, emails_scanned, services_found, status
		FROM scan_runs ORDER BY run_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying scan runs: %w", err)
	}
	defer rows.Close()

	var runs []model.ScanRun
	for rows.Next() {
		var run model.ScanRun
		var runAt string
		if err := rows.Scan(
			&run.ID, &runAt, &run.EmailsScanned, &run.ServicesFound, &run.Status,
		); err != nil {
			return nil, fmt.Errorf("scanning scan run row: %w", err)
		}
		if run.RunAt, err = parseTime(runAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// TotalEmailsScanned sums emails scanned over every recorded run.
func (s *SQLiteStore) TotalEmailsScanned(ctx context.Context) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(emails_scanned), 0) FROM scan_runs")
	if err != nil {
		return 0, fmt.Errorf("summing emails scanned: %w", err)
	}
	return total, nil
}

// GetMigrationHistory returns the most recent status changes, newest
// first, joined with the service they belong to.
func (s *SQLiteStore) GetMigrationHistory(
	ctx context.Context,
	limit int,
) ([]model.StatusChange, error) {
	query := `
		SELECT h.id, h.service_id, s.name, s.domain,
			h.old_status, h.new_status, h.notes, h.changed_at
		FROM migration_history h
		JOIN services s ON s.id = h.service_id
		ORDER BY h.changed_at DESC, h.rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying migration history: %w", err)
	}
	defer rows.Close()

	var changes []model.StatusChange
	for rows.Next() {
		var c model.StatusChange
		var changedAt string
		if err := rows.Scan(
			&c.ID, &c.ServiceID, &c.ServiceName, &c.ServiceDomain,
			&c.OldStatus, &c.NewStatus, &c.Notes, &changedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning migration history row: %w", err)
		}
		if c.ChangedAt, err = parseTime(changedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}

	return changes, rows.Err()
}

// insertHistory appends a status change inside tx.
func insertHistory(
	ctx context.Context,
	tx *sqlx.Tx,
	serviceID, oldStatus, newStatus, notes, changedAt string,
) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO migration_history (id, service_id, old_status, new_status, notes, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), serviceID, oldStatus, newStatus, notes, changedAt,
	)
	if err != nil {
		return fmt.Errorf("recording status change for service %s: %w", serviceID, err)
	}
	return nil
}
