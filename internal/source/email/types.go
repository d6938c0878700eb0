package email

import "time"

// DefaultTimeout is used when the configuration does not set one.
const DefaultTimeout = 60 * time.Second

// Config holds the IMAP connection settings for a fetch source.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
	Mailbox  string

	// Timeout bounds a whole fetch. Messages collected before the
	// deadline are still returned.
	Timeout time.Duration

	// BodyBytes caps how many bytes of each message body are fetched.
	BodyBytes int64
}

// MailboxInfo describes the selected mailbox after a connection check.
type MailboxInfo struct {
	Username string
	Mailbox  string
	Messages uint32
}

// headerFields are the header lines fetched for each message. The
// content headers are needed to decode the body, not by the pipeline.
var headerFields = []string{
	"From", "To", "Subject", "Date",
	"Content-Type", "Content-Transfer-Encoding",
}
