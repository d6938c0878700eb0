package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailmigrate/internal/model"
)

func okScanner() scanFunc {
	return func(context.Context) (*model.ScanResult, error) {
		return &model.ScanResult{Status: model.ScanStatusCompleted, EmailsScanned: 3}, nil
	}
}

func TestNewScheduler_InvalidCron(t *testing.T) {
	_, err := NewScheduler(NewRunner(okScanner(), discard()),
		model.SchedulerConfig{Enabled: true, Cron: "not a cron"}, discard())
	assert.Error(t, err)
}

func TestNewScheduler_DefaultCron(t *testing.T) {
	s, err := NewScheduler(NewRunner(okScanner(), discard()),
		model.SchedulerConfig{}, discard())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCron, s.Status().Cron)
}

func TestScheduler_Disabled(t *testing.T) {
	s, err := NewScheduler(NewRunner(okScanner(), discard()),
		model.SchedulerConfig{Enabled: false, Cron: "*/5 * * * *"}, discard())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	st := s.Status()
	assert.False(t, st.Enabled)
	assert.False(t, st.Started)
	assert.True(t, st.NextRun.IsZero())

	<-s.Stop().Done()
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := NewScheduler(NewRunner(okScanner(), discard()),
		model.SchedulerConfig{Enabled: true, Cron: "0 6 * * *"}, discard())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())

	st := s.Status()
	assert.True(t, st.Started)
	assert.False(t, st.Scanning)
	require.False(t, st.NextRun.IsZero())
	assert.True(t, st.NextRun.After(time.Now()))
	assert.Equal(t, 6, st.NextRun.Hour())

	select {
	case <-s.Stop().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.False(t, s.Status().Started)
}

func TestScheduler_TriggerNow(t *testing.T) {
	s, err := NewScheduler(NewRunner(okScanner(), discard()),
		model.SchedulerConfig{}, discard())
	require.NoError(t, err)

	res, err := s.TriggerNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.EmailsScanned)

	st := s.Status()
	require.NotNil(t, st.LastResult)
	assert.Empty(t, st.LastError)
	assert.False(t, st.LastRun.IsZero())
}

func TestDescribe(t *testing.T) {
	assert.Contains(t, Describe("0 6 * * *"), "06:00")
	assert.Equal(t, "garbage", Describe("garbage"))
}
