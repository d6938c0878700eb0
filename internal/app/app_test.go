package app

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailmigrate/internal/model"
	"github.com/nhle/mailmigrate/internal/source"
	"github.com/nhle/mailmigrate/internal/source/email"
	"github.com/nhle/mailmigrate/internal/store"
)

func TestOpen_CreatesDatabaseDirectory(t *testing.T) {
	cfg := model.DefaultAppConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "migration.db")

	a, err := Open(cfg, log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.FileExists(t, cfg.Database.Path)
}

func TestPipeline_UsesStore(t *testing.T) {
	cfg := model.DefaultAppConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "migration.db")
	cfg.Emails.PersonalDomains = nil

	a, err := Open(cfg, log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	src := source.Static{{
		ID:     "1",
		Header: "From: alerts@bank.com\r\nDate: Mon, 01 Jan 2024 10:00:00 +0000\r\n\r\n",
	}}
	res, err := a.Pipeline(src).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.ServicesFound)

	services, err := a.Store.GetServices(context.Background(), store.ServiceFilter{})
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "financial", services[0].Category)
}

func TestIMAPConfig(t *testing.T) {
	cfg := model.DefaultAppConfig()
	cfg.IMAP.Username = "me@proton.me"
	cfg.IMAP.TimeoutSec = 0

	got := IMAPConfig(cfg, "pw")
	assert.Equal(t, email.Config{
		Host:      "127.0.0.1",
		Port:      "1143",
		Username:  "me@proton.me",
		Password:  "pw",
		Mailbox:   "INBOX",
		Timeout:   email.DefaultTimeout,
		BodyBytes: 16 * 1024,
	}, got)

	cfg.IMAP.TimeoutSec = 5
	assert.Equal(t, 5*time.Second, IMAPConfig(cfg, "").Timeout)
}

func TestIMAPSource_PasswordFromEnv(t *testing.T) {
	t.Setenv("MAILMIGRATE_IMAP_PASSWORD", "pw")
	cfg := model.DefaultAppConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "migration.db")

	a, err := Open(cfg, log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	src, err := a.IMAPSource()
	require.NoError(t, err)
	assert.NotNil(t, src)
}
