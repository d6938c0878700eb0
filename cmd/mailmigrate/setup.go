package main

import (
	"fmt"

	"github.com/nhle/mailmigrate/internal/credential"
	"github.com/nhle/mailmigrate/internal/model"
	"github.com/nhle/mailmigrate/internal/setup"
)

type setupCommand struct{}

func (c *setupCommand) Execute([]string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	form := setup.NewForm(cfg)
	if err := form.Build().Run(); err != nil {
		return fmt.Errorf("running setup form: %w", err)
	}

	password, err := form.Apply(cfg)
	if err != nil {
		return err
	}

	path := configPath()
	if err := model.SaveConfig(path, cfg); err != nil {
		return err
	}
	logger.Info("Configuration saved", "path", path)

	if password != "" {
		if err := credential.SetIMAPPassword(cfg.IMAP.Username, password); err != nil {
			return fmt.Errorf("storing IMAP password: %w", err)
		}
		logger.Info("IMAP password stored in keyring", "key", credential.IMAPPasswordKey(cfg.IMAP.Username))
	}

	fmt.Println("Run `mailmigrate check` to verify the connection.")
	return nil
}
