package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailmigrate/internal/model"
	"github.com/nhle/mailmigrate/tests/testutil"
)

func normalized(id, sender, to, subject, date string) model.NormalizedMessage {
	m := model.NormalizedMessage{
		ID:          id,
		FromRaw:     sender,
		SenderEmail: sender,
		SenderName:  "Sender",
		Subject:     subject,
		Date:        day(date),
	}
	if to != "" {
		m.Recipients = []string{to}
	}
	return m
}

func TestReplaceMessageMetadata(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertServices(ctx, []model.ServiceSummary{
		summary("notify@shop.com", "shop.com", 2, "2024-01-01", "2024-02-01"),
	}, nil)
	require.NoError(t, err)

	ids, err := s.ServiceIDsByEmail(ctx)
	require.NoError(t, err)
	require.Contains(t, ids, "notify@shop.com")

	long := strings.Repeat("x", 600)
	read := normalized("1", "notify@shop.com", "Me <me@gmail.com>", long, "2024-01-01")
	read.IsRead = true

	stored, err := s.ReplaceMessageMetadata(ctx, ids, []model.NormalizedMessage{
		read,
		normalized("2", "notify@shop.com", "user@newco.com", "", "2024-02-01"),
		normalized("3", "stranger@else.com", "", "ignored", "2024-02-01"),
		normalized("4", "", "", "no sender", "2024-02-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stored)

	records, err := s.GetEmailsForService(ctx, ids["notify@shop.com"], 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "(No Subject)", records[0].Subject)
	assert.Equal(t, "user@newco.com", records[0].RecipientEmail)
	assert.True(t, day("2024-02-01").Equal(records[0].ReceivedAt))
	assert.False(t, records[0].IsRead)

	assert.Len(t, []rune(records[1].Subject), 500)
	assert.Equal(t, "me@gmail.com", records[1].RecipientEmail)
	assert.True(t, records[1].IsRead)

	// A second scan replaces everything.
	stored, err = s.ReplaceMessageMetadata(ctx, ids, []model.NormalizedMessage{
		normalized("9", "notify@shop.com", "", "latest", "2024-03-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stored)

	records, err = s.GetEmailsForService(ctx, ids["notify@shop.com"], 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "latest", records[0].Subject)
}
