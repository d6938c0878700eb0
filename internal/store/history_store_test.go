package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailmigrate/internal/model"
	"github.com/nhle/mailmigrate/tests/testutil"
)

func TestScanRuns(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)

	for i, scanned := range []int{100, 0, 250} {
		status := model.ScanStatusCompleted
		if scanned == 0 {
			status = model.ScanStatusNoEmails
		}
		id, err := s.RecordScanRun(ctx, model.ScanRun{
			RunAt:         base.Add(time.Duration(i) * time.Hour),
			EmailsScanned: scanned,
			ServicesFound: scanned / 10,
			Status:        status,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}

	runs, err := s.GetScanRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 250, runs[0].EmailsScanned)
	assert.Equal(t, 25, runs[0].ServicesFound)
	assert.True(t, base.Add(2*time.Hour).Equal(runs[0].RunAt))
	assert.Equal(t, model.ScanStatusNoEmails, runs[1].Status)

	total, err := s.TotalEmailsScanned(ctx)
	require.NoError(t, err)
	assert.Equal(t, 350, total)
}

func TestTotalEmailsScanned_Empty(t *testing.T) {
	s := testutil.NewTestStore(t)

	total, err := s.TotalEmailsScanned(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}
