package sync

import (
	"context"
	"errors"
	"io"
	gosync "sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailmigrate/internal/model"
)

type scanFunc func(ctx context.Context) (*model.ScanResult, error)

func (f scanFunc) Run(ctx context.Context) (*model.ScanResult, error) { return f(ctx) }

func discard() *log.Logger { return log.New(io.Discard) }

func TestRunner_RejectsConcurrentRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	scanner := scanFunc(func(context.Context) (*model.ScanResult, error) {
		close(started)
		<-release
		return &model.ScanResult{Status: model.ScanStatusCompleted}, nil
	})
	r := NewRunner(scanner, discard())

	var wg gosync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = r.Run(context.Background())
	}()

	<-started
	assert.True(t, r.Running())
	assert.Equal(t, SyncRunning, r.Status().State)

	res, err := r.Run(context.Background())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)

	assert.False(t, r.Running())
	st := r.Status()
	assert.Equal(t, SyncIdle, st.State)
	require.NotNil(t, st.LastResult)
	assert.Equal(t, model.ScanStatusCompleted, st.LastResult.Status)
	assert.False(t, st.LastRun.IsZero())
}

func TestRunner_ClearsFlagAfterFailure(t *testing.T) {
	calls := 0
	scanner := scanFunc(func(context.Context) (*model.ScanResult, error) {
		calls++
		if calls == 1 {
			return &model.ScanResult{Status: model.ScanStatusFailed}, errors.New("boom")
		}
		return &model.ScanResult{Status: model.ScanStatusCompleted}, nil
	})
	r := NewRunner(scanner, discard())

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.False(t, r.Running())
	assert.Equal(t, SyncError, r.Status().State)
	assert.EqualError(t, r.Status().LastError, "boom")

	_, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncIdle, r.Status().State)
	assert.Equal(t, 2, calls)
}

func TestSyncState_String(t *testing.T) {
	assert.Equal(t, "idle", SyncIdle.String())
	assert.Equal(t, "running", SyncRunning.String())
	assert.Equal(t, "error", SyncError.String())
}
