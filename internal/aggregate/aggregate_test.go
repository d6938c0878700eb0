package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailmigrate/internal/classify"
	"github.com/nhle/mailmigrate/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func msg(from, to, date string) model.NormalizedMessage {
	m := model.NormalizedMessage{FromRaw: from, Date: day(date)}
	if to != "" {
		m.Recipients = []string{to}
	}
	return m
}

func newTestAggregator() *Aggregator {
	classifier := classify.New([]model.CategoryConfig{
		{Name: "financial", Keywords: []string{"bank", "paypal"}, Priority: "high"},
		{Name: "shopping", Keywords: []string{"shop"}},
	}, nil)

	return New(Options{
		OldAddress:      "me@gmail.com",
		NewDomains:      []string{"newco.com"},
		PersonalDomains: []string{"gmail.com"},
	}, classifier)
}

func TestAggregate_CountsAndOrder(t *testing.T) {
	a := newTestAggregator()

	res := a.Aggregate([]model.NormalizedMessage{
		msg("b@y.com", "", "2024-01-01"),
		msg("a@x.com", "", "2024-01-02"),
		msg("a@x.com", "", "2024-01-03"),
		msg("", "", "2024-01-03"),
		msg("b@y.com", "", "2024-01-04"),
		msg("a@x.com", "", "2024-01-05"),
	})

	require.Len(t, res.Services, 2)
	assert.Equal(t, "a@x.com", res.Services[0].EmailAddress)
	assert.Equal(t, 3, res.Services[0].EmailsReceived)
	assert.Equal(t, "b@y.com", res.Services[1].EmailAddress)
	assert.Equal(t, 2, res.Services[1].EmailsReceived)
	assert.Equal(t, 1, res.NoSender)
}

func TestAggregate_TiesKeepFirstSeenOrder(t *testing.T) {
	a := newTestAggregator()

	res := a.Aggregate([]model.NormalizedMessage{
		msg("z@z.com", "", "2024-01-01"),
		msg("m@m.com", "", "2024-01-01"),
		msg("a@a.com", "", "2024-01-01"),
	})

	require.Len(t, res.Services, 3)
	assert.Equal(t, "z@z.com", res.Services[0].EmailAddress)
	assert.Equal(t, "m@m.com", res.Services[1].EmailAddress)
	assert.Equal(t, "a@a.com", res.Services[2].EmailAddress)
}

func TestAggregate_DateRange(t *testing.T) {
	a := newTestAggregator()

	res := a.Aggregate([]model.NormalizedMessage{
		msg("a@x.com", "", "2024-03-01"),
		msg("a@x.com", "", "2024-01-15"),
		msg("a@x.com", "", "2024-02-10"),
	})

	require.Len(t, res.Services, 1)
	assert.Equal(t, day("2024-01-15"), res.Services[0].FirstEmailDate)
	assert.Equal(t, day("2024-03-01"), res.Services[0].LastEmailDate)
}

func TestAggregate_PersonalDomains(t *testing.T) {
	a := newTestAggregator()

	res := a.Aggregate([]model.NormalizedMessage{
		msg("x@gmail.com", "", "2024-01-01"),
		msg("x@mail.gmail.com", "", "2024-01-01"),
		msg("x@notgmail.com", "", "2024-01-01"),
	})

	require.Len(t, res.Services, 1)
	assert.Equal(t, "x@notgmail.com", res.Services[0].EmailAddress)
	assert.Equal(t, 2, res.Personal)
}

func TestAggregate_FirstMessageFixesIdentity(t *testing.T) {
	a := newTestAggregator()

	res := a.Aggregate([]model.NormalizedMessage{
		msg(`"Bank Alerts" <alerts@bank.com>`, "", "2024-01-01"),
		msg(`"Renamed" <Alerts@Bank.com>`, "", "2024-01-02"),
	})

	require.Len(t, res.Services, 1)
	s := res.Services[0]
	assert.Equal(t, "Bank Alerts", s.Name)
	assert.Equal(t, "bank.com", s.Domain)
	assert.Equal(t, "financial", s.Category)
	assert.Equal(t, model.PriorityHigh, s.Priority)
	assert.Equal(t, 2, s.EmailsReceived)
}

func TestAggregate_RecipientsAreDistinctInFirstSeenOrder(t *testing.T) {
	a := newTestAggregator()

	res := a.Aggregate([]model.NormalizedMessage{
		msg("a@x.com", "Me <me@gmail.com>", "2024-01-01"),
		msg("a@x.com", "other@work.com", "2024-01-02"),
		msg("a@x.com", "ME@gmail.com", "2024-01-03"),
		msg("a@x.com", "", "2024-01-04"),
	})

	require.Len(t, res.Services, 1)
	assert.Equal(t, []string{"me@gmail.com", "other@work.com"}, res.Services[0].Recipients)
}

func TestAggregate_MigrationDetection(t *testing.T) {
	a := newTestAggregator()

	res := a.Aggregate([]model.NormalizedMessage{
		msg("notify@shop.com", "me@gmail.com", "2024-01-01"),
		msg("notify@shop.com", "someone@newco.com", "2024-02-01"),
		msg("notify@shop.com", "other@newco.com", "2024-01-20"),
		msg("billing@bank.com", "me@gmail.com", "2024-01-01"),
	})

	require.Len(t, res.Migrations, 1)
	det, ok := res.Migrations["notify@shop.com"]
	require.True(t, ok)
	assert.Equal(t, "me@gmail.com", det.OldEmail)
	assert.Equal(t, "someone@newco.com", det.NewEmail)
	assert.Equal(t, day("2024-02-01"), det.MigrationDate)

	_, ok = res.Migrations["billing@bank.com"]
	assert.False(t, ok)
}

func TestAggregate_SkipsMessagesWithoutDate(t *testing.T) {
	a := newTestAggregator()

	res := a.Aggregate([]model.NormalizedMessage{
		{ID: "7", FromRaw: "a@x.com"},
		msg("a@x.com", "", "2024-01-01"),
	})

	require.Len(t, res.Services, 1)
	assert.Equal(t, 1, res.Services[0].EmailsReceived)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Issues, 1)
	assert.Contains(t, res.Issues[0], "message 7")
}

func TestAggregate_Empty(t *testing.T) {
	res := newTestAggregator().Aggregate(nil)

	assert.Empty(t, res.Services)
	assert.Empty(t, res.Migrations)
}

func TestMatchesNewDomain(t *testing.T) {
	domains := []string{"newco.com"}

	assert.True(t, MatchesNewDomain("user@newco.com", domains))
	assert.True(t, MatchesNewDomain("USER@NEWCO.COM", domains))
	assert.True(t, MatchesNewDomain("user@mail.newco.com", domains))
	assert.False(t, MatchesNewDomain("user@notnewco.com", domains))
	assert.False(t, MatchesNewDomain("user@newco.org", domains))
	assert.False(t, MatchesNewDomain("user@newco.com", nil))
}

func TestIsPersonalDomain(t *testing.T) {
	personal := []string{"gmail.com"}

	assert.True(t, IsPersonalDomain("gmail.com", personal))
	assert.True(t, IsPersonalDomain("Mail.Gmail.com", personal))
	assert.False(t, IsPersonalDomain("notgmail.com", personal))
	assert.False(t, IsPersonalDomain("gmail.com", []string{""}))
}
