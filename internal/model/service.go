package model

import "time"

// Migration status constants.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusMigrated   = "migrated"
	StatusSkipped    = "skipped"
)

// Priority labels. The classifier only ever produces high or medium;
// low is assigned manually or through configuration.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// CategoryOther is the fallback when no category keyword matches.
const CategoryOther = "other"

// ValidStatus reports whether s is a known migration status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusMigrated, StatusSkipped:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority label.
func ValidPriority(p string) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Service is a persisted sender being tracked for migration.
type Service struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Domain         string     `json:"domain"`
	EmailAddress   string     `json:"email_address"`
	Category       string     `json:"category"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	EmailsReceived int        `json:"emails_received"`
	FirstEmailDate *time.Time `json:"first_email_date,omitempty"`
	LastEmailDate  *time.Time `json:"last_email_date,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	OldEmail       string     `json:"old_email,omitempty"`
	NewEmail       string     `json:"new_email,omitempty"`
	MigrationDate  *time.Time `json:"migration_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ServicePatch carries a manual edit. Nil fields are left unchanged.
type ServicePatch struct {
	Status   *string
	Priority *string
	Category *string
	Notes    *string
}

// StatusChange is one row of the migration history log.
type StatusChange struct {
	ID            string    `json:"id"`
	ServiceID     string    `json:"service_id"`
	ServiceName   string    `json:"service_name"`
	ServiceDomain string    `json:"service_domain"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	Notes         string    `json:"notes,omitempty"`
	ChangedAt     time.Time `json:"changed_at"`
}

// EmailRecord is stored per-message metadata joined to a service.
type EmailRecord struct {
	ID             string    `json:"id"`
	ServiceID      string    `json:"service_id"`
	Subject        string    `json:"subject"`
	Sender         string    `json:"sender"`
	SenderEmail    string    `json:"sender_email"`
	RecipientEmail string    `json:"recipient_email"`
	ReceivedAt     time.Time `json:"received_at"`
	IsRead         bool      `json:"is_read"`
}
