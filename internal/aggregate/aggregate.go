// Package aggregate folds normalized messages into per-sender service
// summaries and detects services that already mail a new domain.
//
// Aggregation is order-sensitive: the first message seen for a sender
// fixes its name, category and priority, and the first matching
// recipient becomes the detected new address. Callers must pass
// messages in delivery order.
package aggregate

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/nhle/mailmigrate/internal/classify"
	"github.com/nhle/mailmigrate/internal/header"
	"github.com/nhle/mailmigrate/internal/model"
)

// Options carries the address configuration the aggregator needs.
type Options struct {
	OldAddress      string
	NewDomains      []string
	PersonalDomains []string
}

// OptionsFromConfig extracts Options from the application config.
func OptionsFromConfig(cfg *model.AppConfig) Options {
	return Options{
		OldAddress:      cfg.Emails.OldAddress,
		NewDomains:      cfg.Emails.NewDomains,
		PersonalDomains: cfg.Emails.PersonalDomains,
	}
}

// Result is the output of one aggregation pass.
type Result struct {
	// Services is sorted by EmailsReceived descending; ties keep
	// first-seen order.
	Services []model.ServiceSummary

	// Migrations is keyed by sender email.
	Migrations map[string]model.MigrationDetection

	// NoSender counts messages dropped for lacking a sender address.
	NoSender int

	// Personal counts messages dropped because the sender is on a
	// personal domain.
	Personal int

	// Skipped counts messages rejected as malformed; Issues explains
	// each one.
	Skipped int
	Issues  []string
}

// Aggregator is stateless between calls.
type Aggregator struct {
	opts       Options
	classifier *classify.Classifier
}

// New creates an Aggregator.
func New(opts Options, classifier *classify.Classifier) *Aggregator {
	return &Aggregator{opts: opts, classifier: classifier}
}

// entry tracks one service while messages are folded in.
type entry struct {
	summary model.ServiceSummary
	seen    map[string]struct{}
}

// Aggregate groups msgs by sender email.
func (a *Aggregator) Aggregate(msgs []model.NormalizedMessage) *Result {
	res := &Result{Migrations: make(map[string]model.MigrationDetection)}

	var order []*entry
	bySender := make(map[string]*entry)

	for _, m := range msgs {
		sender := header.ExtractSenderEmail(m.FromRaw)
		if sender == "" {
			res.NoSender++
			continue
		}

		domain := header.ExtractDomain(sender)
		if IsPersonalDomain(domain, a.opts.PersonalDomains) {
			res.Personal++
			continue
		}

		if m.Date.IsZero() {
			res.Skipped++
			res.Issues = append(res.Issues,
				fmt.Sprintf("message %s from %s has no date", m.ID, sender))
			continue
		}

		e, ok := bySender[sender]
		if !ok {
			e = &entry{
				summary: model.ServiceSummary{
					EmailAddress:   sender,
					Name:           header.ExtractSenderName(m.FromRaw),
					Domain:         domain,
					Category:       a.classifier.Category(sender, domain),
					Priority:       a.classifier.Priority(domain),
					FirstEmailDate: m.Date,
					LastEmailDate:  m.Date,
				},
				seen: make(map[string]struct{}),
			}
			bySender[sender] = e
			order = append(order, e)
		}

		e.summary.EmailsReceived++

		if rcpt := header.ExtractSenderEmail(m.PrimaryRecipient()); rcpt != "" {
			if _, dup := e.seen[rcpt]; !dup {
				e.seen[rcpt] = struct{}{}
				e.summary.Recipients = append(e.summary.Recipients, rcpt)
			}
		}

		if m.Date.After(e.summary.LastEmailDate) {
			e.summary.LastEmailDate = m.Date
		}
		if m.Date.Before(e.summary.FirstEmailDate) {
			e.summary.FirstEmailDate = m.Date
		}
	}

	res.Services = make([]model.ServiceSummary, 0, len(order))
	for _, e := range order {
		s := e.summary
		if newEmail, ok := a.firstNewDomainRecipient(s.Recipients); ok {
			res.Migrations[s.EmailAddress] = model.MigrationDetection{
				OldEmail:      a.opts.OldAddress,
				NewEmail:      newEmail,
				MigrationDate: s.LastEmailDate,
			}
		}
		res.Services = append(res.Services, s)
	}

	slices.SortStableFunc(res.Services, func(x, y model.ServiceSummary) int {
		return cmp.Compare(y.EmailsReceived, x.EmailsReceived)
	})

	return res
}

func (a *Aggregator) firstNewDomainRecipient(recipients []string) (string, bool) {
	for _, r := range recipients {
		if MatchesNewDomain(r, a.opts.NewDomains) {
			return r, true
		}
	}
	return "", false
}

// IsPersonalDomain reports whether domain equals, or is a subdomain of,
// any of personal.
func IsPersonalDomain(domain string, personal []string) bool {
	domain = strings.ToLower(domain)
	for _, d := range personal {
		d = strings.ToLower(d)
		if d == "" {
			continue
		}
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// MatchesNewDomain reports whether addr contains "@domain" or ends with
// ".domain" for any of newDomains, ignoring case.
func MatchesNewDomain(addr string, newDomains []string) bool {
	addr = strings.ToLower(addr)
	for _, d := range newDomains {
		d = strings.ToLower(d)
		if d == "" {
			continue
		}
		if strings.Contains(addr, "@"+d) || strings.HasSuffix(addr, "."+d) {
			return true
		}
	}
	return false
}
