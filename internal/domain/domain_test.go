package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to EntryStatus
		want     bool
	}{
		{EntryStatusActive, EntryStatusOffered, true},
		{EntryStatusActive, EntryStatusPaused, true},
		{EntryStatusActive, EntryStatusAccepted, false},
		{EntryStatusPaused, EntryStatusActive, true},
		{EntryStatusPaused, EntryStatusOffered, false},
		{EntryStatusOffered, EntryStatusActive, true},
		{EntryStatusOffered, EntryStatusAccepted, true},
		{EntryStatusOffered, EntryStatusWithdrawn, false},
		{EntryStatusAccepted, EntryStatusEnrolled, true},
		{EntryStatusEnrolled, EntryStatusActive, false},
		{EntryStatusWithdrawn, EntryStatusActive, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCampaignStatusTransitions(t *testing.T) {
	assert.True(t, CampaignStatusDraft.CanTransitionTo(CampaignStatusActive))
	assert.True(t, CampaignStatusDraft.CanTransitionTo(CampaignStatusCancelled))
	assert.False(t, CampaignStatusDraft.CanTransitionTo(CampaignStatusCompleted))
	assert.True(t, CampaignStatusActive.CanTransitionTo(CampaignStatusCompleted))
	assert.False(t, CampaignStatusCompleted.CanTransitionTo(CampaignStatusActive))
	assert.False(t, CampaignStatusCancelled.CanTransitionTo(CampaignStatusActive))
	assert.True(t, CampaignStatusCancelled.IsTerminal())
}

func TestScopeEquality(t *testing.T) {
	daycare := uuid.New()
	p1 := uuid.New()
	p1Copy := p1
	p2 := uuid.New()

	assert.True(t, NewScope(daycare, nil).Equal(NewScope(daycare, nil)))
	assert.True(t, NewScope(daycare, &p1).Equal(NewScope(daycare, &p1Copy)))
	assert.False(t, NewScope(daycare, &p1).Equal(NewScope(daycare, &p2)))
	assert.False(t, NewScope(daycare, nil).Equal(NewScope(daycare, &p1)))
	assert.NotEqual(t, NewScope(daycare, nil).Key(), NewScope(daycare, &p1).Key())
}

func TestOfferOutstanding(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	offer := &WaitlistOffer{Response: OfferResponsePending, OfferExpiresAt: now.Add(time.Hour)}
	assert.True(t, offer.IsOutstanding(now))
	assert.False(t, offer.IsOutstanding(now.Add(time.Hour)), "expiry instant is already expired")

	offer.Response = OfferResponseDeclined
	assert.False(t, offer.IsOutstanding(now))
}

func TestDaysOnWaitlist(t *testing.T) {
	joined := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	e := &WaitlistEntry{JoinedAt: joined}
	assert.Equal(t, 0, e.DaysOnWaitlist(joined.Add(-time.Hour)))
	assert.Equal(t, 0, e.DaysOnWaitlist(joined.Add(23*time.Hour)))
	assert.Equal(t, 45, e.DaysOnWaitlist(joined.AddDate(0, 0, 45)))
}

func TestJSONColumns(t *testing.T) {
	t.Run("string list scans text and bytes", func(t *testing.T) {
		var s StringList
		require.NoError(t, s.Scan(`["a","b"]`))
		assert.Equal(t, StringList{"a", "b"}, s)
		require.NoError(t, s.Scan([]byte(`["c"]`)))
		assert.Equal(t, StringList{"c"}, s)
		assert.Error(t, s.Scan(42))
	})

	t.Run("empty conditions scan to zero value", func(t *testing.T) {
		c := RuleConditions{RequiredTags: []string{"x"}}
		require.NoError(t, c.Scan(nil))
		assert.Nil(t, c.RequiredTags)
	})

	t.Run("snapshot flattens structs", func(t *testing.T) {
		snap := Snapshot(struct {
			Status string `json:"status"`
		}{Status: "ACTIVE"})
		assert.Equal(t, "ACTIVE", snap["status"])
	})
}
