package priority

import (
	"context"
	"strings"
	"time"

	"carequeue/internal/audit"
	"carequeue/internal/domain"
	"carequeue/internal/repository"
	"carequeue/internal/shared/constants"
	ierr "carequeue/internal/shared/errors"
	"carequeue/pkg/cache"
	"carequeue/pkg/clock"
	"carequeue/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	SetCacheService(cacheService cache.Service, ttl time.Duration)
	CreateRule(ctx context.Context, req CreateRuleRequest, createdBy uuid.UUID) (*domain.PriorityRule, error)
	UpdateRule(ctx context.Context, id uuid.UUID, req UpdateRuleRequest, updatedBy uuid.UUID) (*domain.PriorityRule, error)
	// ListRules returns every rule of the scope, inactive included, daycare-wide rules merged in.
	ListRules(ctx context.Context, scope domain.Scope) ([]*domain.PriorityRule, error)
	// ActiveRules is the rule set used for scoring, read through the cache.
	ActiveRules(ctx context.Context, scope domain.Scope) ([]*domain.PriorityRule, error)
	// PreviewEntry scores an entry against its cohort's active rules without saving.
	PreviewEntry(ctx context.Context, entryID uuid.UUID) (*Evaluation, error)
}

type service struct {
	tx        repository.Transactor
	rules     repository.RuleRepository
	entries   repository.EntryRepository
	recorder  *audit.Recorder
	evaluator *Evaluator
	clock     clock.Clock
	log       *logger.Logger

	cacheService cache.Service
	cacheTTL     time.Duration
}

func NewService(store repository.Store, recorder *audit.Recorder, c clock.Clock, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		tx:        store.Tx,
		rules:     store.Rules,
		entries:   store.Entries,
		recorder:  recorder,
		evaluator: NewEvaluator(),
		clock:     c,
		log:       log,
		cacheTTL:  constants.TTL_RULES_ACTIVE,
	}
}

// SetCacheService enables the active-rule cache. A zero ttl keeps the default.
func (s *service) SetCacheService(cacheService cache.Service, ttl time.Duration) {
	s.cacheService = cacheService
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

func (s *service) CreateRule(ctx context.Context, req CreateRuleRequest, createdBy uuid.UUID) (*domain.PriorityRule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ierr.NewError("rule name is required").
			WithHint("Give the rule a name").
			Mark(ierr.ErrValidation)
	}
	if !req.RuleType.IsKnown() {
		return nil, unknownType(req.RuleType)
	}
	cond, err := ParseConditions(req.Conditions)
	if err != nil {
		return nil, err
	}
	if err := ValidateConditions(req.RuleType, cond); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rule := &domain.PriorityRule{
		ID:          uuid.New(),
		DaycareID:   req.DaycareID,
		ProgramID:   req.ProgramID,
		Name:        name,
		Description: req.Description,
		RuleType:    req.RuleType,
		Points:      req.Points,
		IsActive:    req.IsActive == nil || *req.IsActive,
		SortOrder:   req.SortOrder,
		Conditions:  cond,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.rules.Create(ctx, rule); err != nil {
			return err
		}
		return s.recorder.Record(ctx, audit.Event{
			Action:      domain.AuditRuleCreated,
			EntityType:  domain.EntityRule,
			EntityID:    rule.ID,
			DaycareID:   rule.DaycareID,
			PerformedBy: audit.Actor(createdBy),
			After:       rule,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, rule.DaycareID)
	return rule, nil
}

func (s *service) UpdateRule(ctx context.Context, id uuid.UUID, req UpdateRuleRequest, updatedBy uuid.UUID) (*domain.PriorityRule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.PriorityRule
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		rule, err := s.rules.Get(ctx, id)
		if err != nil {
			return err
		}
		before := *rule

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return ierr.NewError("rule name must not be empty").
					WithHint("Give the rule a name").
					Mark(ierr.ErrValidation)
			}
			rule.Name = name
		}
		if req.Description != nil {
			rule.Description = *req.Description
		}
		if req.RuleType != nil {
			if !req.RuleType.IsKnown() {
				return unknownType(*req.RuleType)
			}
			rule.RuleType = *req.RuleType
		}
		if req.Points != nil {
			rule.Points = *req.Points
		}
		if req.IsActive != nil {
			rule.IsActive = *req.IsActive
		}
		if req.SortOrder != nil {
			rule.SortOrder = *req.SortOrder
		}
		if req.Conditions != nil {
			cond, err := ParseConditions(req.Conditions)
			if err != nil {
				return err
			}
			rule.Conditions = cond
		}
		if err := ValidateConditions(rule.RuleType, rule.Conditions); err != nil {
			return err
		}
		rule.UpdatedAt = s.clock.Now()

		if err := s.rules.Update(ctx, rule); err != nil {
			return err
		}
		updated = rule
		return s.recorder.Record(ctx, audit.Event{
			Action:      domain.AuditRuleUpdated,
			EntityType:  domain.EntityRule,
			EntityID:    rule.ID,
			DaycareID:   rule.DaycareID,
			PerformedBy: audit.Actor(updatedBy),
			Before:      before,
			After:       rule,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, updated.DaycareID)
	return updated, nil
}

func (s *service) ListRules(ctx context.Context, scope domain.Scope) ([]*domain.PriorityRule, error) {
	rules, err := s.rules.List(ctx, repository.RuleFilter{Scope: scope, IncludeDaycareWide: true})
	if err != nil {
		return nil, err
	}
	return SortRules(rules), nil
}

func (s *service) ActiveRules(ctx context.Context, scope domain.Scope) ([]*domain.PriorityRule, error) {
	fetch := func() (interface{}, error) {
		rules, err := s.rules.List(ctx, repository.RuleFilter{Scope: scope, IncludeDaycareWide: true, ActiveOnly: true})
		if err != nil {
			return nil, err
		}
		return SortRules(rules), nil
	}

	if s.cacheService == nil {
		data, err := fetch()
		if err != nil {
			return nil, err
		}
		return data.([]*domain.PriorityRule), nil
	}

	var rules []*domain.PriorityRule
	if err := s.cacheService.GetOrSet(ctx, activeRulesKey(scope), s.cacheTTL, fetch, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *service) PreviewEntry(ctx context.Context, entryID uuid.UUID) (*Evaluation, error) {
	entry, err := s.entries.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	rules, err := s.ActiveRules(ctx, entry.Scope())
	if err != nil {
		return nil, err
	}
	eval := s.evaluator.Evaluate(entry, rules, s.clock.Now())
	return &eval, nil
}

// invalidate drops every cached rule set of the daycare; daycare-wide rules feed all its programs.
func (s *service) invalidate(ctx context.Context, daycareID uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.DeletePattern(ctx, constants.BuildDaycareRulesPattern(daycareID.String())); err != nil {
		s.log.WarnContext(ctx, "failed to invalidate rule cache", "daycare_id", daycareID, "error", err)
	}
}

func activeRulesKey(scope domain.Scope) string {
	program := ""
	if scope.ProgramID != nil {
		program = scope.ProgramID.String()
	}
	return constants.BuildActiveRulesKey(scope.DaycareID.String(), program)
}

func unknownType(t domain.RuleType) error {
	return ierr.NewErrorf("unknown rule type %q", t).
		WithHint("Use one of the supported rule types").
		WithReportableDetails(map[string]interface{}{"rule_type": t}).
		Mark(ierr.ErrValidation)
}
