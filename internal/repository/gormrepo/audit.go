package gormrepo

import (
	"context"

	"carequeue/internal/domain"
	"carequeue/internal/repository"
	"carequeue/internal/shared/database"
)

type auditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, log *domain.AuditLog) error {
	ensureID(&log.ID)
	return translate(r.db.Conn(ctx).Create(log).Error, "audit log", log.ID)
}

func (r *auditRepository) List(ctx context.Context, filter repository.AuditFilter) ([]*domain.AuditLog, error) {
	q := r.db.Conn(ctx).Model(&domain.AuditLog{})
	if filter.DaycareID != nil {
		q = q.Where("daycare_id = ?", *filter.DaycareID)
	}
	if filter.EntityID != nil {
		q = q.Where("entity_id = ?", *filter.EntityID)
	}
	if len(filter.Actions) > 0 {
		q = q.Where("action IN ?", filter.Actions)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var logs []*domain.AuditLog
	if err := q.Order("created_at ASC, id ASC").Find(&logs).Error; err != nil {
		return nil, translate(err, "audit log", nil)
	}
	return logs, nil
}
