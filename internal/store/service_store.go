package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/mailmigrate/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const serviceColumns = `
	id, name, domain, email_address, category, priority, status,
	emails_received, first_email_date, last_email_date,
	notes, old_email, new_email, migration_date,
	created_at, updated_at`

// rowScanner is satisfied by *sqlx.Row and *sqlx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// existingService is the subset of a stored service that an upsert
// must not clobber.
type existingService struct {
	ID            string         `db:"id"`
	Status        string         `db:"status"`
	OldEmail      sql.NullString `db:"old_email"`
	NewEmail      sql.NullString `db:"new_email"`
	MigrationDate sql.NullString `db:"migration_date"`
}

// UpsertServices inserts or updates one service per summary, matched by
// email address, in a single transaction.
//
// Computed fields (name, domain, counts, dates) are always overwritten.
// Category and priority are only set on insert. A detection flips the
// status to migrated and fills old/new email and migration date only
// where those are still empty.
func (s *SQLiteStore) UpsertServices(
	ctx context.Context,
	summaries []model.ServiceSummary,
	detections map[string]model.MigrationDetection,
) (*UpsertResult, error) {
	res := &UpsertResult{}
	if len(summaries) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.timestamp()

	for _, sum := range summaries {
		det, detected := detections[sum.EmailAddress]

		var existing existingService
		err := tx.GetContext(ctx, &existing, `
			SELECT id, status, old_email, new_email, migration_date
			FROM services WHERE email_address = ?`, sum.EmailAddress)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			id, err := s.insertService(ctx, tx, sum, det, detected, now)
			if err != nil {
				return nil, err
			}
			res.Inserted++
			if detected {
				res.Migrated++
				if err := insertHistory(ctx, tx, id, model.StatusPending,
					model.StatusMigrated, detectionNote(det), now); err != nil {
					return nil, err
				}
			}

		case err != nil:
			return nil, fmt.Errorf("looking up service %s: %w", sum.EmailAddress, err)

		default:
			if err := s.updateService(ctx, tx, existing, sum, det, detected, now); err != nil {
				return nil, err
			}
			res.Updated++
			if detected {
				res.Migrated++
				if existing.Status != model.StatusMigrated {
					if err := insertHistory(ctx, tx, existing.ID, existing.Status,
						model.StatusMigrated, detectionNote(det), now); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing service upsert: %w", err)
	}
	return res, nil
}

func (s *SQLiteStore) insertService(
	ctx context.Context,
	tx *sqlx.Tx,
	sum model.ServiceSummary,
	det model.MigrationDetection,
	detected bool,
	now string,
) (string, error) {
	id := uuid.New().String()

	status := model.StatusPending
	var oldEmail, newEmail, migrationDate sql.NullString
	if detected {
		status = model.StatusMigrated
		oldEmail = textOrNull(det.OldEmail)
		newEmail = textOrNull(det.NewEmail)
		migrationDate = isoOrNull(&det.MigrationDate)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO services (
			id, name, domain, email_address, category, priority, status,
			emails_received, first_email_date, last_email_date,
			old_email, new_email, migration_date,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sum.Name, sum.Domain, sum.EmailAddress, sum.Category, sum.Priority, status,
		sum.EmailsReceived, isoOrNull(&sum.FirstEmailDate), isoOrNull(&sum.LastEmailDate),
		oldEmail, newEmail, migrationDate,
		now, now,
	)
	if err != nil {
		return "", fmt.Errorf("inserting service %s: %w", sum.EmailAddress, err)
	}
	return id, nil
}

func (s *SQLiteStore) updateService(
	ctx context.Context,
	tx *sqlx.Tx,
	existing existingService,
	sum model.ServiceSummary,
	det model.MigrationDetection,
	detected bool,
	now string,
) error {
	status := existing.Status
	oldEmail, newEmail, migrationDate := existing.OldEmail, existing.NewEmail, existing.MigrationDate
	if detected {
		status = model.StatusMigrated
		if oldEmail.String == "" {
			oldEmail = textOrNull(det.OldEmail)
		}
		if newEmail.String == "" {
			newEmail = textOrNull(det.NewEmail)
		}
		if migrationDate.String == "" {
			migrationDate = isoOrNull(&det.MigrationDate)
		}
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE services SET
			name = ?, domain = ?, emails_received = ?,
			first_email_date = ?, last_email_date = ?,
			status = ?, old_email = ?, new_email = ?, migration_date = ?,
			updated_at = ?
		WHERE id = ?`,
		sum.Name, sum.Domain, sum.EmailsReceived,
		isoOrNull(&sum.FirstEmailDate), isoOrNull(&sum.LastEmailDate),
		status, oldEmail, newEmail, migrationDate,
		now,
		existing.ID,
	)
	if err != nil {
		return fmt.Errorf("updating service %s: %w", sum.EmailAddress, err)
	}
	return nil
}

func detectionNote(det model.MigrationDetection) string {
	return "detected mail to " + det.NewEmail
}

// ServiceIDsByEmail maps every stored email address to its service id.
func (s *SQLiteStore) ServiceIDsByEmail(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT id, email_address FROM services")
	if err != nil {
		return nil, fmt.Errorf("querying service ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]string)
	for rows.Next() {
		var id, email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, fmt.Errorf("scanning service id row: %w", err)
		}
		ids[strings.ToLower(email)] = id
	}

	return ids, rows.Err()
}

// GetServices retrieves services matching the provided filter options.
func (s *SQLiteStore) GetServices(
	ctx context.Context,
	filter ServiceFilter,
) ([]model.Service, error) {
	var conditions []string
	var args []any

	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Category != nil {
		conditions = append(conditions, "category = ?")
		args = append(args, *filter.Category)
	}
	if filter.Priority != nil {
		conditions = append(conditions, "priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions,
			"(name LIKE ? OR domain LIKE ? OR email_address LIKE ?)")
		q := "%" + *filter.Search + "%"
		args = append(args, q, q, q)
	}

	query := "SELECT " + serviceColumns + " FROM services"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY emails_received DESC, email_address ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying services: %w", err)
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}

	return services, rows.Err()
}

// GetServiceByID retrieves a single service by its ID.
func (s *SQLiteStore) GetServiceByID(
	ctx context.Context,
	id string,
) (*model.Service, error) {
	return s.getService(ctx, "id", id)
}

// GetServiceByEmail retrieves a single service by its sender address.
func (s *SQLiteStore) GetServiceByEmail(
	ctx context.Context,
	email string,
) (*model.Service, error) {
	return s.getService(ctx, "email_address", strings.ToLower(strings.TrimSpace(email)))
}

func (s *SQLiteStore) getService(
	ctx context.Context,
	column, value string,
) (*model.Service, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT "+serviceColumns+" FROM services WHERE "+column+" = ?", value)

	svc, err := scanService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("service %s: %w", value, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting service %s: %w", value, err)
	}
	return &svc, nil
}

// UpdateService applies a manual edit. A status change is logged to the
// migration history, and moving to migrated stamps the migration date
// when none is set yet.
func (s *SQLiteStore) UpdateService(
	ctx context.Context,
	id string,
	patch model.ServicePatch,
) (*model.Service, error) {
	if patch.Status != nil && !model.ValidStatus(*patch.Status) {
		return nil, fmt.Errorf("invalid status %q", *patch.Status)
	}
	if patch.Priority != nil && !model.ValidPriority(*patch.Priority) {
		return nil, fmt.Errorf("invalid priority %q", *patch.Priority)
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) == "" {
		return nil, fmt.Errorf("category must not be empty")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current existingService
	err = tx.GetContext(ctx, &current, `
		SELECT id, status, old_email, new_email, migration_date
		FROM services WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("service %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting service %s: %w", id, err)
	}

	now := s.timestamp()
	updates := []string{"updated_at = ?"}
	args := []any{now}

	if patch.Status != nil {
		updates = append(updates, "status = ?")
		args = append(args, *patch.Status)
		if *patch.Status == model.StatusMigrated && current.MigrationDate.String == "" {
			updates = append(updates, "migration_date = ?")
			args = append(args, now)
		}
	}
	if patch.Priority != nil {
		updates = append(updates, "priority = ?")
		args = append(args, *patch.Priority)
	}
	if patch.Category != nil {
		updates = append(updates, "category = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(*patch.Category)))
	}
	if patch.Notes != nil {
		updates = append(updates, "notes = ?")
		args = append(args, *patch.Notes)
	}
	args = append(args, id)

	if _, err := tx.ExecContext(ctx,
		"UPDATE services SET "+strings.Join(updates, ", ")+" WHERE id = ?",
		args...,
	); err != nil {
		return nil, fmt.Errorf("updating service %s: %w", id, err)
	}

	if patch.Status != nil && *patch.Status != current.Status {
		notes := ""
		if patch.Notes != nil {
			notes = *patch.Notes
		}
		if err := insertHistory(ctx, tx, id, current.Status, *patch.Status, notes, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing service update: %w", err)
	}

	return s.GetServiceByID(ctx, id)
}

// RecategorizeOther re-runs categorization for every service currently
// in the fallback category and returns how many moved elsewhere.
func (s *SQLiteStore) RecategorizeOther(ctx context.Context, c Categorizer) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var candidates []struct {
		ID     string `db:"id"`
		Email  string `db:"email_address"`
		Domain string `db:"domain"`
	}
	if err := tx.SelectContext(ctx, &candidates, `
		SELECT id, email_address, domain FROM services WHERE category = ?`,
		model.CategoryOther,
	); err != nil {
		return 0, fmt.Errorf("querying uncategorized services: %w", err)
	}

	now := s.timestamp()
	updated := 0
	for _, svc := range candidates {
		category := c.Category(svc.Email, svc.Domain)
		if category == model.CategoryOther {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE services SET category = ?, updated_at = ? WHERE id = ?",
			category, now, svc.ID,
		); err != nil {
			return 0, fmt.Errorf("recategorizing service %s: %w", svc.ID, err)
		}
		updated++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing recategorization: %w", err)
	}
	return updated, nil
}

// AutoDetectCategory recomputes and stores the category of one service.
func (s *SQLiteStore) AutoDetectCategory(
	ctx context.Context,
	id string,
	c Categorizer,
) (string, error) {
	svc, err := s.GetServiceByID(ctx, id)
	if err != nil {
		return "", err
	}

	category := c.Category(svc.EmailAddress, svc.Domain)
	if _, err := s.db.ExecContext(ctx,
		"UPDATE services SET category = ?, updated_at = ? WHERE id = ?",
		category, s.timestamp(), id,
	); err != nil {
		return "", fmt.Errorf("updating category for service %s: %w", id, err)
	}
	return category, nil
}

// StatusCounts returns the number of services per status. Every known
// status is present, possibly with zero.
func (s *SQLiteStore) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT status, COUNT(*) FROM services GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("counting services by status: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{
		model.StatusPending:    0,
		model.StatusInProgress: 0,
		model.StatusMigrated:   0,
		model.StatusSkipped:    0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[status] = n
	}

	return counts, rows.Err()
}

// scanService scans a service row selected with serviceColumns.
func scanService(row rowScanner) (model.Service, error) {
	var (
		svc                  model.Service
		firstDate, lastDate  sql.NullString
		oldEmail, newEmail   sql.NullString
		migrationDate        sql.NullString
		createdAt, updatedAt string
	)

	err := row.Scan(
		&svc.ID, &svc.Name, &svc.Domain, &svc.EmailAddress,
		&svc.Category, &svc.Priority, &svc.Status,
		&svc.EmailsReceived, &firstDate, &lastDate,
		&svc.Notes, &oldEmail, &newEmail, &migrationDate,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Service{}, err
		}
		return model.Service{}, fmt.Errorf("scanning service row: %w", err)
	}

	svc.FirstEmailDate = parseNullTime(firstDate)
	svc.LastEmailDate = parseNullTime(lastDate)
	svc.MigrationDate = parseNullTime(migrationDate)
	svc.OldEmail = oldEmail.String
	svc.NewEmail = newEmail.String

	if svc.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Service{}, err
	}
	if svc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Service{}, err
	}

	return svc, nil
}
