package scan

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailmigrate/internal/model"
	"github.com/nhle/mailmigrate/internal/source"
	"github.com/nhle/mailmigrate/internal/store"
	"github.com/nhle/mailmigrate/tests/testutil"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *model.AppConfig {
	cfg := model.DefaultAppConfig()
	cfg.Emails.OldAddress = "me@gmail.com"
	cfg.Emails.NewDomains = []string{"newco.com"}
	cfg.Emails.PersonalDomains = []string{"gmail.com"}
	cfg.IMAP.ScanLimit = 100
	return cfg
}

func raw(id, from, to, subject, date string) model.RawMessage {
	h := "From: " + from + "\r\n"
	if to != "" {
		h += "To: " + to + "\r\n"
	}
	h += "Subject: " + subject + "\r\n"
	if date != "" {
		h += "Date: " + date + "\r\n"
	}
	return model.RawMessage{ID: id, Header: h + "\r\n", Body: "hello"}
}

func scenarioMessages() source.Static {
	return source.Static{
		raw("1", `"Bank" <billing@bank.com>`, "me@gmail.com", "Statement", "Mon, 01 Jan 2024 10:00:00 +0000"),
		raw("2", "notify@shop.com", "me@gmail.com", "Order", "Tue, 02 Jan 2024 10:00:00 +0000"),
		raw("3", `"Bank" <billing@bank.com>`, "me@gmail.com", "Statement", "Thu, 01 Feb 2024 10:00:00 +0000"),
		raw("4", "notify@shop.com", "user@newco.com", "Order", "Fri, 02 Feb 2024 10:00:00 +0000"),
		raw("5", `"Bank" <billing@bank.com>`, "me@gmail.com", "Statement", "Fri, 01 Mar 2024 10:00:00 +0000"),
	}
}

func newPipeline(src source.FetchSource, p Persister) *Pipeline {
	return New(testConfig(), src, p, log.New(io.Discard)).
		WithClock(func() time.Time { return fixedNow })
}

func TestRun_EndToEnd(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	res, err := newPipeline(scenarioMessages(), s).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, model.ScanStatusCompleted, res.Status)
	assert.Equal(t, 5, res.EmailsScanned)
	assert.Equal(t, 2, res.ServicesFound)
	assert.Equal(t, 1, res.ServicesMigrated)
	assert.Equal(t, 5, res.EmailsStored)
	assert.Empty(t, res.Errors)
	assert.NotEmpty(t, res.ScanRunID)

	bank, err := s.GetServiceByEmail(ctx, "billing@bank.com")
	require.NoError(t, err)
	assert.Equal(t, "financial", bank.Category)
	assert.Equal(t, model.PriorityHigh, bank.Priority)
	assert.Equal(t, model.StatusPending, bank.Status)
	assert.Equal(t, 3, bank.EmailsReceived)
	assert.Equal(t, "Bank", bank.Name)

	shop, err := s.GetServiceByEmail(ctx, "notify@shop.com")
	require.NoError(t, err)
	assert.Equal(t, model.StatusMigrated, shop.Status)
	assert.Equal(t, "user@newco.com", shop.NewEmail)
	assert.Equal(t, "me@gmail.com", shop.OldEmail)
	require.NotNil(t, shop.MigrationDate)
	assert.True(t, time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC).Equal(*shop.MigrationDate))

	runs, err := s.GetScanRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 5, runs[0].EmailsScanned)
	assert.Equal(t, 2, runs[0].ServicesFound)

	emails, err := s.GetEmailsForService(ctx, shop.ID, 0)
	require.NoError(t, err)
	assert.Len(t, emails, 2)
}

func TestRun_RescanIsStable(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	p := newPipeline(scenarioMessages(), s)

	_, err := p.Run(ctx)
	require.NoError(t, err)
	res, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.EmailsStored)

	services, err := s.GetServices(ctx, store.ServiceFilter{})
	require.NoError(t, err)
	assert.Len(t, services, 2)

	history, err := s.GetMigrationHistory(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	total, err := s.TotalEmailsScanned(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
}

func TestRun_NoEmails(t *testing.T) {
	s := testutil.NewTestStore(t)

	res, err := newPipeline(source.Static(nil), s).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusNoEmails, res.Status)
	assert.Equal(t, []string{NoEmailsMessage}, res.Errors)

	runs, err := s.GetScanRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.ScanStatusNoEmails, runs[0].Status)
}

func TestRun_ConnectionFailureIsSoft(t *testing.T) {
	s := testutil.NewTestStore(t)
	src := source.FetchFunc(func(context.Context, int) ([]model.RawMessage, error) {
		return nil, &source.AuthError{Username: "me", Message: "bad password"}
	})

	res, err := newPipeline(src, s).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusNoEmails, res.Status)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "authentication failed")
	assert.Equal(t, NoEmailsMessage, res.Errors[1])
}

func TestRun_PartialFetchKeepsMessages(t *testing.T) {
	s := testutil.NewTestStore(t)
	src := source.FetchFunc(func(context.Context, int) ([]model.RawMessage, error) {
		return scenarioMessages()[:2], context.DeadlineExceeded
	})

	res, err := newPipeline(src, s).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusCompleted, res.Status)
	assert.Equal(t, 2, res.EmailsScanned)
	assert.Equal(t, 2, res.ServicesFound)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "deadline")
}

func TestRun_HonorsLimit(t *testing.T) {
	s := testutil.NewTestStore(t)
	var asked int
	src := source.FetchFunc(func(_ context.Context, limit int) ([]model.RawMessage, error) {
		asked = limit
		// A misbehaving source that ignores the limit.
		return scenarioMessages(), nil
	})

	cfg := testConfig()
	cfg.IMAP.ScanLimit = 2
	res, err := New(cfg, src, s, log.New(io.Discard)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, asked)
	assert.Equal(t, 2, res.EmailsScanned)
}

func TestRun_MalformedMessagesAreCounted(t *testing.T) {
	s := testutil.NewTestStore(t)
	src := source.Static{
		raw("1", "", "", "no sender", "Mon, 01 Jan 2024 10:00:00 +0000"),
		raw("2", "friend@gmail.com", "", "personal", "Mon, 01 Jan 2024 10:00:00 +0000"),
		raw("3", "alerts@bank.com", "", "undated", ""),
		raw("4", "alerts@bank.com", "", "garbage date", "xyzzy"),
	}

	res, err := newPipeline(src, s).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.EmailsScanned)
	assert.Equal(t, 1, res.ServicesFound)
	assert.Equal(t, 2, res.DatesEstimated)

	bank, err := s.GetServiceByEmail(context.Background(), "alerts@bank.com")
	require.NoError(t, err)
	require.NotNil(t, bank.LastEmailDate)
	assert.True(t, fixedNow.Equal(*bank.LastEmailDate))
}

// failingPersister fails at a chosen step.
type failingPersister struct {
	store.Store
	failUpsert bool
	recorded   []model.ScanRun
}

func (f *failingPersister) UpsertServices(
	ctx context.Context,
	summaries []model.ServiceSummary,
	detections map[string]model.MigrationDetection,
) (*store.UpsertResult, error) {
	if f.failUpsert {
		return nil, errors.New("disk full")
	}
	return f.Store.UpsertServices(ctx, summaries, detections)
}

func (f *failingPersister) RecordScanRun(ctx context.Context, run model.ScanRun) (string, error) {
	f.recorded = append(f.recorded, run)
	return f.Store.RecordScanRun(ctx, run)
}

func TestRun_PersistenceFailureIsHard(t *testing.T) {
	p := &failingPersister{Store: testutil.NewTestStore(t), failUpsert: true}

	res, err := newPipeline(scenarioMessages(), p).Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsPersistError(err))
	assert.ErrorContains(t, err, "disk full")

	require.NotNil(t, res)
	assert.Equal(t, model.ScanStatusFailed, res.Status)
	assert.Equal(t, 5, res.EmailsScanned)

	require.Len(t, p.recorded, 1)
	assert.Equal(t, model.ScanStatusFailed, p.recorded[0].Status)
}

func TestIsPersistError(t *testing.T) {
	base := &PersistError{Op: "services", Err: errors.New("boom")}

	assert.True(t, IsPersistError(base))
	assert.True(t, IsPersistError(errors.Join(errors.New("wrapped"), base)))
	assert.False(t, IsPersistError(errors.New("boom")))
	assert.Equal(t, "persisting services: boom", base.Error())
}
