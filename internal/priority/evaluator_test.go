package priority

import (
	"testing"
	"time"

	"carequeue/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func rule(t domain.RuleType, points, order int, cond domain.RuleConditions) *domain.PriorityRule {
	return &domain.PriorityRule{
		ID:         uuid.New(),
		Name:       string(t),
		RuleType:   t,
		Points:     points,
		IsActive:   true,
		SortOrder:  order,
		Conditions: cond,
	}
}

func TestEvaluateFlagRules(t *testing.T) {
	entry := &domain.WaitlistEntry{
		ID:                 uuid.New(),
		PriorityScore:      7,
		HasSiblingEnrolled: true,
		InServiceArea:      true,
		JoinedAt:           now.AddDate(0, 0, -10),
	}
	rules := []*domain.PriorityRule{
		rule(domain.RuleTypeSiblingEnrolled, 20, 1, domain.RuleConditions{}),
		rule(domain.RuleTypeStaffChild, 15, 2, domain.RuleConditions{}),
		rule(domain.RuleTypeInServiceArea, 5, 3, domain.RuleConditions{}),
	}

	eval := NewEvaluator().Evaluate(entry, rules, now)

	assert.Equal(t, 25, eval.TotalScore)
	assert.Equal(t, 7, eval.PreviousScore)
	assert.True(t, eval.Changed())
	require.Len(t, eval.Breakdown, 3)
	assert.True(t, eval.Breakdown[0].Applied)
	assert.False(t, eval.Breakdown[1].Applied)
	assert.Equal(t, 0, eval.Breakdown[1].Points)
	assert.Equal(t, 5, eval.Breakdown[2].Points)
}

func TestEvaluateTimeOnList(t *testing.T) {
	tests := []struct {
		name    string
		days    int
		cond    domain.RuleConditions
		applied bool
		errored bool
	}{
		{name: "below default window", days: 29, applied: false},
		{name: "at default lower bound", days: 30, applied: true},
		{name: "at default upper bound", days: 365, applied: true},
		{name: "above default window", days: 366, applied: false},
		{name: "custom window", days: 10, cond: domain.RuleConditions{MinDays: intPtr(7), MaxDays: intPtr(14)}, applied: true},
		{name: "inverted window is an error", days: 10, cond: domain.RuleConditions{MinDays: intPtr(20), MaxDays: intPtr(5)}, errored: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &domain.WaitlistEntry{ID: uuid.New(), JoinedAt: now.AddDate(0, 0, -tt.days)}
			eval := NewEvaluator().Evaluate(entry, []*domain.PriorityRule{rule(domain.RuleTypeTimeOnList, 10, 0, tt.cond)}, now)

			require.Len(t, eval.Breakdown, 1)
			assert.Equal(t, tt.applied, eval.Breakdown[0].Applied)
			if tt.errored {
				assert.Contains(t, eval.Breakdown[0].Reason, "evaluation error")
			}
		})
	}
}

func TestEvaluateProviderCustom(t *testing.T) {
	entry := &domain.WaitlistEntry{ID: uuid.New(), ProviderTags: domain.StringList{" Bilingual ", "alumni"}, JoinedAt: now}

	matching := rule(domain.RuleTypeProviderCustom, 8, 0, domain.RuleConditions{RequiredTags: []string{"bilingual", "ALUMNI"}})
	missing := rule(domain.RuleTypeProviderCustom, 8, 1, domain.RuleConditions{RequiredTags: []string{"bilingual", "twins"}})
	empty := rule(domain.RuleTypeProviderCustom, 8, 2, domain.RuleConditions{})

	eval := NewEvaluator().Evaluate(entry, []*domain.PriorityRule{empty, missing, matching}, now)

	require.Len(t, eval.Breakdown, 3)
	assert.Equal(t, 8, eval.TotalScore)
	assert.True(t, eval.Breakdown[0].Applied)
	assert.Contains(t, eval.Breakdown[1].Reason, "twins")
	assert.Contains(t, eval.Breakdown[2].Reason, "evaluation error")
}

func TestEvaluateInertAndUnknownTypes(t *testing.T) {
	entry := &domain.WaitlistEntry{ID: uuid.New(), JoinedAt: now}
	rules := []*domain.PriorityRule{
		rule(domain.RuleTypeFirstTimeParent, 10, 0, domain.RuleConditions{}),
		rule(domain.RuleTypeMilitaryFamily, 10, 1, domain.RuleConditions{}),
		rule(domain.RuleType("LOTTERY"), 10, 2, domain.RuleConditions{}),
	}

	eval := NewEvaluator().Evaluate(entry, rules, now)

	assert.Equal(t, 0, eval.TotalScore)
	for _, line := range eval.Breakdown {
		assert.False(t, line.Applied)
		assert.NotEmpty(t, line.Reason)
	}
	assert.Contains(t, eval.Breakdown[2].Reason, "unknown rule type")
}

func TestEvaluateOrderingAndInactive(t *testing.T) {
	entry := &domain.WaitlistEntry{ID: uuid.New(), IsStaffChild: true, JoinedAt: now}
	b := rule(domain.RuleTypeStaffChild, 1, 5, domain.RuleConditions{})
	b.Name = "b"
	a := rule(domain.RuleTypeStaffChild, 1, 5, domain.RuleConditions{})
	a.Name = "a"
	first := rule(domain.RuleTypeStaffChild, 1, 0, domain.RuleConditions{})
	first.Name = "z"
	inactive := rule(domain.RuleTypeStaffChild, 100, 0, domain.RuleConditions{})
	inactive.IsActive = false

	eval := NewEvaluator().Evaluate(entry, []*domain.PriorityRule{b, inactive, a, first, nil}, now)

	require.Len(t, eval.Breakdown, 3)
	assert.Equal(t, []string{"z", "a", "b"}, []string{eval.Breakdown[0].RuleName, eval.Breakdown[1].RuleName, eval.Breakdown[2].RuleName})
	assert.Equal(t, 3, eval.TotalScore)
}

func TestEvaluateNegativePoints(t *testing.T) {
	entry := &domain.WaitlistEntry{ID: uuid.New(), HasSpecialNeeds: true, JoinedAt: now}
	eval := NewEvaluator().Evaluate(entry, []*domain.PriorityRule{rule(domain.RuleTypeSpecialNeeds, -4, 0, domain.RuleConditions{})}, now)
	assert.Equal(t, -4, eval.TotalScore)
}

func TestParseConditions(t *testing.T) {
	cond, err := ParseConditions(nil)
	require.NoError(t, err)
	assert.Nil(t, cond.MinDays)

	cond, err = ParseConditions([]byte(" null "))
	require.NoError(t, err)
	assert.Empty(t, cond.RequiredTags)

	cond, err = ParseConditions([]byte(`{"minDays":10,"maxDays":20,"requiredTags":["a"]}`))
	require.NoError(t, err)
	assert.Equal(t, 10, *cond.MinDays)
	assert.Equal(t, 20, *cond.MaxDays)
	assert.Equal(t, []string{"a"}, cond.RequiredTags)

	_, err = ParseConditions([]byte(`{"minDays":"ten"}`))
	assert.Error(t, err)
	_, err = ParseConditions([]byte(`{"bogus":1}`))
	assert.Error(t, err)
	_, err = ParseConditions([]byte(`{"minDays":1} {}`))
	assert.Error(t, err)
}

func TestValidateConditions(t *testing.T) {
	assert.NoError(t, ValidateConditions(domain.RuleTypeTimeOnList, domain.RuleConditions{}))
	assert.Error(t, ValidateConditions(domain.RuleTypeTimeOnList, domain.RuleConditions{MinDays: intPtr(400)}))
	assert.Error(t, ValidateConditions(domain.RuleTypeTimeOnList, domain.RuleConditions{MinDays: intPtr(-1)}))
	assert.Error(t, ValidateConditions(domain.RuleTypeProviderCustom, domain.RuleConditions{RequiredTags: []string{"  "}}))
	assert.NoError(t, ValidateConditions(domain.RuleTypeProviderCustom, domain.RuleConditions{RequiredTags: []string{"x"}}))
	assert.NoError(t, ValidateConditions(domain.RuleTypeStaffChild, domain.RuleConditions{}))
}
