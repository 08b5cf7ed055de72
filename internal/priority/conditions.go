package priority

import (
	"bytes"
	"encoding/json"
	"strings"

	"carequeue/internal/domain"
	ierr "carequeue/internal/shared/errors"

	"github.com/samber/lo"
)

// Defaults for TIME_ON_LIST when a bound is omitted.
const (
	DefaultMinDays = 30
	DefaultMaxDays = 365
)

// ParseConditions decodes a rule's raw JSON conditions. Empty input and JSON null
// yield zero conditions; unknown keys are rejected.
func ParseConditions(raw []byte) (domain.RuleConditions, error) {
	var cond domain.RuleConditions
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return cond, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cond); err != nil {
		return domain.RuleConditions{}, ierr.WithError(err).
			WithMessage("invalid rule conditions").
			WithHint("Conditions must be a JSON object with minDays, maxDays or requiredTags").
			Mark(ierr.ErrValidation)
	}
	if dec.More() {
		return domain.RuleConditions{}, ierr.NewError("invalid rule conditions: trailing data").
			WithHint("Conditions must be a single JSON object").
			Mark(ierr.ErrValidation)
	}
	return cond, nil
}

// ValidateConditions checks the conditions make sense for the rule type.
func ValidateConditions(ruleType domain.RuleType, cond domain.RuleConditions) error {
	switch ruleType {
	case domain.RuleTypeTimeOnList:
		_, _, err := dayBounds(cond)
		if err != nil {
			return ierr.WithError(err).Mark(ierr.ErrValidation)
		}
	case domain.RuleTypeProviderCustom:
		if len(normalizeTags(cond.RequiredTags)) == 0 {
			return ierr.NewError("PROVIDER_CUSTOM rules need at least one required tag").
				WithHint("Add requiredTags to the rule conditions").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// dayBounds resolves the TIME_ON_LIST window with defaults applied.
func dayBounds(cond domain.RuleConditions) (int, int, error) {
	minDays, maxDays := DefaultMinDays, DefaultMaxDays
	if cond.MinDays != nil {
		minDays = *cond.MinDays
	}
	if cond.MaxDays != nil {
		maxDays = *cond.MaxDays
	}
	if minDays < 0 || maxDays < 0 {
		return 0, 0, ierr.NewErrorf("day bounds must not be negative (minDays=%d, maxDays=%d)", minDays, maxDays).
			Mark(ierr.ErrValidation)
	}
	if minDays > maxDays {
		return 0, 0, ierr.NewErrorf("minDays %d is greater than maxDays %d", minDays, maxDays).
			Mark(ierr.ErrValidation)
	}
	return minDays, maxDays, nil
}

func normalizeTags(tags []string) []string {
	normalized := lo.Map(tags, func(tag string, _ int) string {
		return strings.ToLower(strings.TrimSpace(tag))
	})
	return lo.Uniq(lo.Compact(normalized))
}
