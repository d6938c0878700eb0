// Package normalize turns raw fetched messages into NormalizedMessage
// records.
package normalize

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	dps "github.com/markusmobius/go-dateparser"

	"github.com/nhle/mailmigrate/internal/header"
	"github.com/nhle/mailmigrate/internal/model"
)

const (
	// NoSubject replaces an empty or missing subject.
	NoSubject = "(No Subject)"

	// PreviewLength is the number of characters kept from the body.
	PreviewLength = 200
)

// Single-line header matchers. The first occurrence wins.
var (
	fromPattern    = regexp.MustCompile(`(?im)^from:[ \t]*(.*)$`)
	toPattern      = regexp.MustCompile(`(?im)^to:[ \t]*(.*)$`)
	subjectPattern = regexp.MustCompile(`(?im)^subject:[ \t]*(.*)$`)
	datePattern    = regexp.MustCompile(`(?im)^date:[ \t]*(.*)$`)
)

// Normalizer converts RawMessage values. It never fails: anything it
// cannot parse is replaced with a safe default.
type Normalizer struct {
	logger *log.Logger
	now    func() time.Time
}

// New creates a Normalizer that uses the wall clock for missing dates.
func New(logger *log.Logger) *Normalizer {
	return &Normalizer{
		logger: logger,
		now:    time.Now,
	}
}

// WithClock returns a copy of n that reads the current time from now.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	c := *n
	c.now = now
	return &c
}

// NormalizeAll normalizes raws in order.
func (n *Normalizer) NormalizeAll(raws []model.RawMessage) []model.NormalizedMessage {
	out := make([]model.NormalizedMessage, 0, len(raws))
	for _, raw := range raws {
		out = append(out, n.Normalize(raw))
	}
	return out
}

// Normalize extracts and decodes the From, To, Subject and Date headers
// of raw. A message without a From header yields an empty SenderEmail;
// it is up to the caller to drop it.
func (n *Normalizer) Normalize(raw model.RawMessage) model.NormalizedMessage {
	from := firstHeader(fromPattern, raw.Header)
	to := firstHeader(toPattern, raw.Header)
	subject := firstHeader(subjectPattern, raw.Header)
	dateStr := firstHeader(datePattern, raw.Header)

	msg := model.NormalizedMessage{
		ID:          raw.ID,
		FromRaw:     from,
		SenderEmail: header.ExtractSenderEmail(from),
		SenderName:  header.ExtractSenderName(from),
		Subject:     DecodeSubject(subject),
		IsRead:      raw.Seen,
		BodyPreview: Truncate(raw.Body, PreviewLength),
	}
	if to != "" {
		msg.Recipients = []string{to}
	}

	date, ok := ParseDate(dateStr, n.now())
	if !ok {
		// Treated as "now"; this can distort first/last date ranges.
		date = n.now().UTC()
		msg.DateEstimated = true
		if n.logger != nil {
			n.logger.Debug("Unparseable message date, using processing time",
				"id", raw.ID, "date", dateStr)
		}
	}
	msg.Date = date

	return msg
}

// DecodeSubject decodes encoded-words, repairs mojibake, and substitutes
// NoSubject for an empty result.
func DecodeSubject(subject string) string {
	decoded := strings.TrimSpace(header.RepairMojibake(header.DecodeEncodedWords(subject)))
	if decoded == "" {
		return NoSubject
	}
	return decoded
}

// ParseDate parses an RFC 5322 date, falling back to a lenient parser
// for the many malformed variants seen in the wild. The result is UTC.
// ok is false when neither parser accepts the input.
func ParseDate(value string, now time.Time) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if t, err := mail.ParseDate(value); err == nil {
		return t.UTC(), true
	}

	cfg := &dps.Configuration{
		CurrentTime:     now,
		DefaultTimezone: time.UTC,
	}
	parsed, err := dps.Parse(cfg, value)
	if err != nil || parsed.Time.IsZero() {
		return time.Time{}, false
	}
	return parsed.Time.UTC(), true
}

// Truncate returns the first n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func firstHeader(pattern *regexp.Regexp, block string) string {
	m := pattern.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
