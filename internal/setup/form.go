// Package setup implements the interactive configuration wizard.
package setup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/samber/lo"

	"github.com/nhle/mailmigrate/internal/model"
)

// Form binds huh inputs to an editable copy of the configuration.
type Form struct {
	// Form field values (huh binds to these)
	oldAddress      string
	newDomains      string
	personalDomains string

	imapHost  string
	imapPort  string
	username  string
	password  string
	tls       bool
	scanLimit string

	schedulerEnabled bool
	cron             string
}

// NewForm pre-fills the form from cfg.
func NewForm(cfg *model.AppConfig) *Form {
	return &Form{
		oldAddress:       cfg.Emails.OldAddress,
		newDomains:       strings.Join(cfg.Emails.NewDomains, ", "),
		personalDomains:  strings.Join(cfg.Emails.PersonalDomains, ", "),
		imapHost:         cfg.IMAP.Host,
		imapPort:         cfg.IMAP.Port,
		username:         cfg.IMAP.Username,
		tls:              cfg.IMAP.TLS,
		scanLimit:        strconv.Itoa(cfg.IMAP.ScanLimit),
		schedulerEnabled: cfg.Scheduler.Enabled,
		cron:             cfg.Scheduler.Cron,
	}
}

// Build returns the huh form. Run it, then call Apply.
func (f *Form) Build() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Old address").
				Description("The address you are migrating away from").
				Placeholder("yourname@gmail.com").
				Value(&f.oldAddress).
				Validate(validateEmail),
			huh.NewInput().
				Title("New domains").
				Description("Comma-separated domains you are migrating to").
				Placeholder("yourdomain.com").
				Value(&f.newDomains).
				Validate(validateRequired("New domains")),
			huh.NewInput().
				Title("Personal domains").
				Description("Comma-separated domains never tracked as services").
				Placeholder("gmail.com, yourdomain.com").
				Value(&f.personalDomains),
		).Title("Addresses"),
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP Host").
				Description("IMAP server hostname").
				Placeholder("127.0.0.1").
				Value(&f.imapHost).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Description("IMAP server port (e.g., 993, or 1143 for Proton Bridge)").
				Placeholder("993").
				Value(&f.imapPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Description("Mailbox username").
				Placeholder("user@example.com").
				Value(&f.username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description("Stored in the system keyring; leave empty to keep the current one").
				EchoMode(huh.EchoModePassword).
				Value(&f.password),
			huh.NewConfirm().
				Title("Use TLS").
				Description("Implicit TLS; otherwise STARTTLS is used").
				Affirmative("Yes").
				Negative("No").
				Value(&f.tls),
			huh.NewInput().
				Title("Scan limit").
				Description("How many of the most recent messages to scan").
				Value(&f.scanLimit).
				Validate(validatePositive("Scan limit")),
		).Title("Mailbox"),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Scheduled scans").
				Description("Run scans on a schedule in serve mode").
				Value(&f.schedulerEnabled),
			huh.NewInput().
				Title("Cron expression").
				Description("Standard five-field cron schedule").
				Placeholder(model.DefaultCron).
				Value(&f.cron),
		).Title("Scheduler"),
	)
}

// Apply writes the form values into cfg and returns the entered
// password, which is empty when the user left it blank.
func (f *Form) Apply(cfg *model.AppConfig) (string, error) {
	limit, err := strconv.Atoi(strings.TrimSpace(f.scanLimit))
	if err != nil || limit <= 0 {
		return "", fmt.Errorf("invalid scan limit %q", f.scanLimit)
	}

	cfg.Emails.OldAddress = strings.TrimSpace(f.oldAddress)
	cfg.Emails.NewDomains = splitList(f.newDomains)
	cfg.Emails.PersonalDomains = splitList(f.personalDomains)
	cfg.IMAP.Host = strings.TrimSpace(f.imapHost)
	cfg.IMAP.Port = strings.TrimSpace(f.imapPort)
	cfg.IMAP.Username = strings.TrimSpace(f.username)
	cfg.IMAP.TLS = f.tls
	cfg.IMAP.ScanLimit = limit
	cfg.Scheduler.Enabled = f.schedulerEnabled
	cfg.Scheduler.Cron = strings.TrimSpace(f.cron)
	cfg.Normalize()

	return f.password, nil
}

// splitList splits a comma-separated value into trimmed, non-empty
// items.
func splitList(s string) []string {
	return lo.Compact(lo.Map(strings.Split(s, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("address is required")
	}
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || domain == "" {
		return fmt.Errorf("%q is not an email address", s)
	}
	return nil
}

func validatePort(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("port is required")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return fmt.Errorf("port must be a number")
		}
	}
	return nil
}

func validatePositive(fieldName string) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive number", fieldName)
		}
		return nil
	}
}
