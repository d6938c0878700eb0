// Command mailmigrate scans a mailbox for the services that email an
// old address and tracks their migration to new domains.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"github.com/nhle/mailmigrate/internal/app"
	"github.com/nhle/mailmigrate/internal/logging"
	"github.com/nhle/mailmigrate/internal/model"
)

// Options are the global flags shared by every command.
type Options struct {
	Config   string `short:"c" long:"config" description:"Path to the YAML config file (default: config.local.yml or config.yaml)"`
	LogLevel string `short:"l" long:"log-level" description:"Log level: debug, info, warn, error"`
}

var opts Options

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "mailmigrate"
	parser.LongDescription = "Find the services that email your old address and track their migration."

	mustAdd(parser, "scan", "Scan the mailbox once", &scanCommand{})
	mustAdd(parser, "serve", "Run scheduled scans until interrupted", &serveCommand{})
	mustAdd(parser, "check", "Check the IMAP connection", &checkCommand{})
	mustAdd(parser, "setup", "Interactive configuration", &setupCommand{})
	mustAdd(parser, "services", "List tracked services", &servicesCommand{})
	mustAdd(parser, "emails", "List stored messages of a service", &emailsCommand{})
	mustAdd(parser, "update", "Update a service", &updateCommand{})
	mustAdd(parser, "recategorize", "Re-run categorization", &recategorizeCommand{})
	mustAdd(parser, "history", "Show scan runs and migration history", &historyCommand{})

	if _, err := parser.Parse(); err != nil {
		var fe *flags.Error
		if errors.As(err, &fe) && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		// go-flags already printed parse errors.
		if fe == nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func mustAdd(parser *flags.Parser, name, short string, cmd any) {
	if _, err := parser.AddCommand(name, short, short, cmd); err != nil {
		panic(err)
	}
}

// configPath returns the config file selected by flags or defaults.
func configPath() string {
	if opts.Config != "" {
		return opts.Config
	}
	return model.DefaultConfigPath()
}

// loadConfig reads the configuration and builds the logger.
func loadConfig() (*model.AppConfig, *log.Logger, error) {
	cfg, err := model.LoadConfig(configPath())
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(level, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

// openApp loads the configuration and opens the store.
func openApp() (*app.App, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded", "path", configPath(), "db", cfg.Database.Path)

	return app.Open(cfg, logger)
}
