// Package classify assigns category and priority labels to senders with
// a keyword-scoring heuristic driven by configuration.
package classify

import (
	"strings"

	"github.com/samber/lo"

	"github.com/nhle/mailmigrate/internal/model"
)

// Scores awarded per matching keyword.
const (
	scoreDomainMatch = 3
	scoreEmailMatch  = 2
	scoreOtherMatch  = 1
)

type category struct {
	name     string
	keywords []string
	high     bool
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	categories  []category
	highDomains []string
}

// New builds a Classifier from category definitions, evaluated in the
// given order, and global high-priority domain substrings.
func New(categories []model.CategoryConfig, highDomains []string) *Classifier {
	c := &Classifier{
		categories:  make([]category, 0, len(categories)),
		highDomains: lowerNonEmpty(highDomains),
	}
	for _, cat := range categories {
		c.categories = append(c.categories, category{
			name:     cat.Name,
			keywords: lowerNonEmpty(cat.Keywords),
			high:     strings.EqualFold(cat.Priority, model.PriorityHigh),
		})
	}
	return c
}

// FromConfig builds a Classifier from the application configuration.
func FromConfig(cfg *model.AppConfig) *Classifier {
	return New(cfg.Categories, cfg.Priority.HighDomains)
}

// Category returns the best-scoring category name for the sender, or
// model.CategoryOther when nothing matches. Each keyword found in
// "email domain" scores 3 when the domain is the keyword or ends with
// ".keyword", 2 when the email contains it, and 1 otherwise. Ties go
// to the category declared first.
func (c *Classifier) Category(email, domain string) string {
	emailLower := strings.ToLower(email)
	domainLower := strings.ToLower(domain)
	combined := emailLower + " " + domainLower

	best := model.CategoryOther
	bestScore := 0

	for _, cat := range c.categories {
		score := 0
		for _, kw := range cat.keywords {
			if !strings.Contains(combined, kw) {
				continue
			}
			switch {
			case domainLower == kw || strings.HasSuffix(domainLower, "."+kw):
				score += scoreDomainMatch
			case strings.Contains(emailLower, kw):
				score += scoreEmailMatch
			default:
				score += scoreOtherMatch
			}
		}
		if score > bestScore {
			bestScore = score
			best = cat.name
		}
	}

	return best
}

// Priority returns model.PriorityHigh when the domain contains a keyword
// of a high-priority category or a configured high-priority domain
// substring, and model.PriorityMedium otherwise. It never returns low.
func (c *Classifier) Priority(domain string) string {
	domainLower := strings.ToLower(domain)

	for _, cat := range c.categories {
		if !cat.high {
			continue
		}
		for _, kw := range cat.keywords {
			if strings.Contains(domainLower, kw) {
				return model.PriorityHigh
			}
		}
	}

	for _, d := range c.highDomains {
		if strings.Contains(domainLower, d) {
			return model.PriorityHigh
		}
	}

	return model.PriorityMedium
}

// lowerNonEmpty drops empty entries since "" is a substring of
// everything.
func lowerNonEmpty(in []string) []string {
	return lo.Compact(lo.Map(in, func(s string, _ int) string {
		return strings.ToLower(strings.TrimSpace(s))
	}))
}
