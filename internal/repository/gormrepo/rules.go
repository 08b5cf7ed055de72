package gormrepo

import (
	"context"

	"carequeue/internal/domain"
	"carequeue/internal/repository"
	"carequeue/internal/shared/database"

	"github.com/google/uuid"
)

type ruleRepository struct {
	db *database.DB
}

func NewRuleRepository(db *database.DB) repository.RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) Create(ctx context.Context, rule *domain.PriorityRule) error {
	ensureID(&rule.ID)
	return translate(r.db.Conn(ctx).Create(rule).Error, "priority rule", rule.ID)
}

func (r *ruleRepository) Get(ctx context.Context, id uuid.UUID) (*domain.PriorityRule, error) {
	var rule domain.PriorityRule
	if err := r.db.Conn(ctx).Where("id = ?", id).First(&rule).Error; err != nil {
		return nil, translate(err, "priority rule", id)
	}
	return &rule, nil
}

func (r *ruleRepository) Update(ctx context.Context, rule *domain.PriorityRule) error {
	return updateAll(r.db.Conn(ctx), rule, "priority rule", rule.ID)
}

func (r *ruleRepository) List(ctx context.Context, filter repository.RuleFilter) ([]*domain.PriorityRule, error) {
	q := r.db.Conn(ctx).Model(&domain.PriorityRule{}).Where("daycare_id = ?", filter.Scope.DaycareID)
	switch {
	case filter.Scope.ProgramID == nil:
		q = q.Where("program_id IS NULL")
	case filter.IncludeDaycareWide:
		q = q.Where("program_id IS NULL OR program_id = ?", *filter.Scope.ProgramID)
	default:
		q = q.Where("program_id = ?", *filter.Scope.ProgramID)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}

	var rules []*domain.PriorityRule
	if err := q.Order("sort_order ASC, name ASC, id ASC").Find(&rules).Error; err != nil {
		return nil, translate(err, "priority rule", nil)
	}
	return rules, nil
}
