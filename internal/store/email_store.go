package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/mailmigrate/internal/header"
	"github.com/nhle/mailmigrate/internal/model"
	"github.com/nhle/mailmigrate/internal/normalize"
)

// Stored column limits for per-message metadata.
const (
	maxSubjectLen = 500
	maxSenderLen  = 200
)

// ReplaceMessageMetadata deletes all stored message metadata and
// inserts one row per message whose sender maps to a service id in
// idByEmail. Messages without a matching service are dropped. It
// returns the number of rows stored.
func (s *SQLiteStore) ReplaceMessageMetadata(
	ctx context.Context,
	idByEmail map[string]string,
	msgs []model.NormalizedMessage,
) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM emails"); err != nil {
		return 0, fmt.Errorf("clearing emails: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO emails (
			id, service_id, subject, sender, sender_email,
			recipient_email, received_at, is_read, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing email insert: %w", err)
	}
	defer stmt.Close()

	now := s.timestamp()
	stored := 0
	for _, m := range msgs {
		sender := m.SenderEmail
		if sender == "" {
			continue
		}
		serviceID, ok := idByEmail[strings.ToLower(sender)]
		if !ok {
			continue
		}

		subject := m.Subject
		if subject == "" {
			subject = normalize.NoSubject
		}

		_, err := stmt.ExecContext(ctx,
			uuid.New().String(), serviceID,
			normalize.Truncate(subject, maxSubjectLen),
			normalize.Truncate(m.SenderName, maxSenderLen),
			sender,
			header.ExtractSenderEmail(m.PrimaryRecipient()),
			model.FormatISO(m.Date),
			boolToInt(m.IsRead),
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting email %s: %w", m.ID, err)
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing emails: %w", err)
	}
	return stored, nil
}

// GetEmailsForService returns the stored messages of one service,
// newest first. A limit of zero returns all of them.
func (s *SQLiteStore) GetEmailsForService(
	ctx context.Context,
	serviceID string,
	limit int,
) ([]model.EmailRecord, error) {
	query := `
		SELECT id, service_id, subject, sender, sender_email,
			recipient_email, received_at, is_read
		FROM emails WHERE service_id = ?
		ORDER BY received_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, serviceID)
	if err != nil {
		return nil, fmt.Errorf("querying emails for service %s: %w", serviceID, err)
	}
	defer rows.Close()

	var records []model.EmailRecord
	for rows.Next() {
		var (
			rec        model.EmailRecord
			receivedAt string
			isRead     int
		)
		if err := rows.Scan(
			&rec.ID, &rec.ServiceID, &rec.Subject, &rec.Sender, &rec.SenderEmail,
			&rec.RecipientEmail, &receivedAt, &isRead,
		); err != nil {
			return nil, fmt.Errorf("scanning email row: %w", err)
		}
		if rec.ReceivedAt, err = parseTime(receivedAt); err != nil {
			return nil, err
		}
		rec.IsRead = isRead != 0
		records = append(records, rec)
	}

	return records, rows.Err()
}
