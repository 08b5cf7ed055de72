// Package priority scores waitlist entries against a cohort's priority rules.
package priority

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"carequeue/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// RuleResult is one line of an evaluation breakdown.
type RuleResult struct {
	RuleID   uuid.UUID       `json:"rule_id"`
	RuleName string          `json:"rule_name"`
	RuleType domain.RuleType `json:"rule_type"`
	Points   int             `json:"points"`
	Applied  bool            `json:"applied"`
	Reason   string          `json:"reason"`
}

// Evaluation is an entry's score under a rule set.
type Evaluation struct {
	EntryID       uuid.UUID    `json:"entry_id"`
	TotalScore    int          `json:"total_score"`
	PreviousScore int          `json:"previous_score"`
	Breakdown     []RuleResult `json:"breakdown"`
}

// Changed reports whether the score differs from the stored one.
func (e Evaluation) Changed() bool {
	return e.TotalScore != e.PreviousScore
}

// Evaluator is stateless and safe for concurrent use.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate applies the active rules in sortOrder. A rule awards its full points or
// nothing; a rule that fails to evaluate is reported as not applied.
func (e *Evaluator) Evaluate(entry *domain.WaitlistEntry, rules []*domain.PriorityRule, now time.Time) Evaluation {
	result := Evaluation{
		EntryID:       entry.ID,
		PreviousScore: entry.PriorityScore,
		Breakdown:     make([]RuleResult, 0, len(rules)),
	}

	for _, rule := range SortRules(rules) {
		if !rule.IsActive {
			continue
		}
		applied, reason := evaluateSafely(entry, rule, now)
		line := RuleResult{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			RuleType: rule.RuleType,
			Points:   rule.Points,
			Applied:  applied,
			Reason:   reason,
		}
		if applied {
			result.TotalScore += rule.Points
		} else {
			line.Points = 0
		}
		result.Breakdown = append(result.Breakdown, line)
	}
	return result
}

// SortRules returns rules ordered by sortOrder, then name, then ID.
func SortRules(rules []*domain.PriorityRule) []*domain.PriorityRule {
	sorted := lo.Filter(rules, func(r *domain.PriorityRule, _ int) bool { return r != nil })
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID.String() < b.ID.String()
	})
	return sorted
}

func evaluateSafely(entry *domain.WaitlistEntry, rule *domain.PriorityRule, now time.Time) (applied bool, reason string) {
	defer func() {
		if r := recover(); r != nil {
			applied = false
			reason = fmt.Sprintf("evaluation error: %v", r)
		}
	}()

	ok, why, err := evaluateRule(entry, rule, now)
	if err != nil {
		return false, "evaluation error: " + err.Error()
	}
	return ok, why
}

func evaluateRule(entry *domain.WaitlistEntry, rule *domain.PriorityRule, now time.Time) (bool, string, error) {
	switch rule.RuleType {
	case domain.RuleTypeSiblingEnrolled:
		return flag(entry.HasSiblingEnrolled, "sibling enrolled")
	case domain.RuleTypeStaffChild:
		return flag(entry.IsStaffChild, "child of staff member")
	case domain.RuleTypeInServiceArea:
		return flag(entry.InServiceArea, "inside service area")
	case domain.RuleTypeSubsidyApproved:
		return flag(entry.HasSubsidyApproval, "subsidy approved")
	case domain.RuleTypeCorporatePartnership:
		return flag(entry.HasCorporatePartnership, "corporate partnership")
	case domain.RuleTypeSpecialNeeds:
		return flag(entry.HasSpecialNeeds, "special needs")

	case domain.RuleTypeTimeOnList:
		minDays, maxDays, err := dayBounds(rule.Conditions)
		if err != nil {
			return false, "", err
		}
		days := entry.DaysOnWaitlist(now)
		if days >= minDays && days <= maxDays {
			return true, fmt.Sprintf("%d days on waitlist within %d-%d", days, minDays, maxDays), nil
		}
		return false, fmt.Sprintf("%d days on waitlist outside %d-%d", days, minDays, maxDays), nil

	case domain.RuleTypeProviderCustom:
		required := normalizeTags(rule.Conditions.RequiredTags)
		if len(required) == 0 {
			return false, "", errors.New("rule has no required tags")
		}
		have := normalizeTags(entry.ProviderTags)
		if missing, _ := lo.Difference(required, have); len(missing) > 0 {
			return false, "missing tags: " + strings.Join(missing, ", "), nil
		}
		return true, "has tags: " + strings.Join(required, ", "), nil

	case domain.RuleTypeFirstTimeParent, domain.RuleTypeMilitaryFamily:
		return false, fmt.Sprintf("%s is not evaluated: no supporting data is collected yet", rule.RuleType), nil
	default:
		return false, fmt.Sprintf("unknown rule type %q", rule.RuleType), nil
	}
}

func flag(set bool, label string) (bool, string, error) {
	if set {
		return true, label, nil
	}
	return false, "not " + label, nil
}
