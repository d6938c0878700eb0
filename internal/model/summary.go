package model

import "time"

// ServiceSummary is the per-sender aggregate produced by one scan.
type ServiceSummary struct {
	EmailAddress   string
	Name           string
	Domain         string
	Category       string
	Priority       string
	EmailsReceived int
	FirstEmailDate time.Time
	LastEmailDate  time.Time

	// Recipients holds distinct primary recipient addresses in
	// first-seen order.
	Recipients []string
}

// MigrationDetection records that a service already mails a new-domain
// address.
type MigrationDetection struct {
	OldEmail      string
	NewEmail      string
	MigrationDate time.Time
}
