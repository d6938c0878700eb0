package model

import "time"

// ISOLayout is the ISO-8601 UTC layout used for every stored date.
// Fixed millisecond precision keeps lexicographic and chronological
// order identical.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatISO renders t in UTC using ISOLayout.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseISO parses a value produced by FormatISO. RFC 3339 input
// without milliseconds is accepted too.
func ParseISO(s string) (time.Time, error) {
	if t, err := time.Parse(ISOLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// RawMessage is one message as delivered by a fetch source.
type RawMessage struct {
	// ID is the mailbox sequence number, as a string.
	ID string

	// Header is the raw header block containing From, To, Subject and
	// Date lines.
	Header string

	// Body is decoded body text, possibly truncated.
	Body string

	// Seen mirrors the \Seen flag.
	Seen bool
}

// NormalizedMessage is a RawMessage after header decoding.
type NormalizedMessage struct {
	ID string

	// FromRaw is the original From header value.
	FromRaw string

	// SenderEmail is lowercase, or empty when unparseable.
	SenderEmail string

	SenderName string

	// Recipients holds raw To values. Only the first is used
	// downstream.
	Recipients []string

	Subject string

	// Date is always set. DateEstimated is true when the Date header
	// was missing or unparseable and Date holds the processing time.
	Date          time.Time
	DateEstimated bool

	IsRead      bool
	BodyPreview string
}

// PrimaryRecipient returns the first raw To value, or "".
func (m NormalizedMessage) PrimaryRecipient() string {
	if len(m.Recipients) == 0 {
		return ""
	}
	return m.Recipients[0]
}
