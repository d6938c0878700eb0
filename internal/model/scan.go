package model

import "time"

// Scan run status values.
const (
	ScanStatusCompleted = "completed"
	ScanStatusNoEmails  = "no_emails"
	ScanStatusFailed    = "failed"
)

// ScanRun is one append-only audit row.
type ScanRun struct {
	ID            string    `json:"id"`
	RunAt         time.Time `json:"run_at"`
	EmailsScanned int       `json:"emails_scanned"`
	ServicesFound int       `json:"services_found"`
	Status        string    `json:"status"`
}

// ScanResult is what one pipeline execution reports to its caller.
type ScanResult struct {
	ScanRunID        string    `json:"scan_run_id"`
	Status           string    `json:"status"`
	EmailsScanned    int       `json:"emails_scanned"`
	ServicesFound    int       `json:"services_found"`
	ServicesMigrated int       `json:"services_migrated"`
	EmailsStored     int       `json:"emails_stored"`
	DatesEstimated   int       `json:"dates_estimated"`
	RecordsSkipped   int       `json:"records_skipped"`
	Errors           []string  `json:"errors"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}
