package app

import (
	"fmt"
	"time"

	"github.com/nhle/mailmigrate/internal/credential"
	"github.com/nhle/mailmigrate/internal/model"
	"github.com/nhle/mailmigrate/internal/source/email"
)

// IMAPSource builds the IMAP fetch source, loading the password from
// the environment or the system keyring.
func (a *App) IMAPSource() (*email.IMAPClient, error) {
	password, err := credential.IMAPPassword(a.Config.IMAP.Username)
	if err != nil {
		return nil, fmt.Errorf(
			"loading IMAP password for %q (run `mailmigrate setup`): %w",
			a.Config.IMAP.Username, err,
		)
	}
	return email.NewIMAPClient(IMAPConfig(a.Config, password), a.Logger), nil
}

// IMAPConfig maps the application configuration onto the fetch
// source settings.
func IMAPConfig(cfg *model.AppConfig, password string) email.Config {
	timeout := time.Duration(cfg.IMAP.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = email.DefaultTimeout
	}

	return email.Config{
		Host:      cfg.IMAP.Host,
		Port:      cfg.IMAP.Port,
		Username:  cfg.IMAP.Username,
		Password:  password,
		TLS:       cfg.IMAP.TLS,
		Mailbox:   cfg.IMAP.Mailbox,
		Timeout:   timeout,
		BodyBytes: cfg.IMAP.BodyBytes,
	}
}
