// Package app wires configuration, storage, the fetch source and the
// scan pipeline together for the command-line entry points.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/nhle/mailmigrate/internal/classify"
	"github.com/nhle/mailmigrate/internal/model"
	"github.com/nhle/mailmigrate/internal/scan"
	"github.com/nhle/mailmigrate/internal/source"
	"github.com/nhle/mailmigrate/internal/store"
	appsync "github.com/nhle/mailmigrate/internal/sync"
)

// App holds the long-lived components of one process. The
// configuration is loaded once by the caller and never re-read; a
// changed configuration means building a new App.
type App struct {
	Config *model.AppConfig
	Logger *log.Logger
	Store  *store.SQLiteStore
}

// Open creates the database directory if needed and opens the store.
func Open(cfg *model.AppConfig, logger *log.Logger) (*App, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", cfg.Database.Path, err)
	}

	return &App{Config: cfg, Logger: logger, Store: s}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// Classifier returns a classifier for the current configuration.
func (a *App) Classifier() *classify.Classifier {
	return classify.FromConfig(a.Config)
}

// Pipeline builds a scan pipeline reading from src.
func (a *App) Pipeline(src source.FetchSource) *scan.Pipeline {
	return scan.New(a.Config, src, a.Store, a.Logger)
}

// Runner builds a single-flight runner around a pipeline over the
// configured mailbox.
func (a *App) Runner() (*appsync.Runner, error) {
	src, err := a.IMAPSource()
	if err != nil {
		return nil, err
	}
	return appsync.NewRunner(a.Pipeline(src), a.Logger), nil
}

// Scheduler builds the cron scheduler for serve mode.
func (a *App) Scheduler(runner *appsync.Runner) (*appsync.Scheduler, error) {
	return appsync.NewScheduler(runner, a.Config.Scheduler, a.Logger)
}
