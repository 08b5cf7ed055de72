package gormrepo

import (
	"context"

	"carequeue/internal/domain"
	"carequeue/internal/repository"
	"carequeue/internal/shared/database"

	"github.com/google/uuid"
)

type entryRepository struct {
	db *database.DB
}

// NewEntryRepository creates a new waitlist entry repository
func NewEntryRepository(db *database.DB) repository.EntryRepository {
	return &entryRepository{db: db}
}

func (r *entryRepository) Create(ctx context.Context, entry *domain.WaitlistEntry) error {
	ensureID(&entry.ID)
	return translate(r.db.Conn(ctx).Create(entry).Error, "waitlist entry", entry.ID)
}

func (r *entryRepository) Get(ctx context.Context, id uuid.UUID) (*domain.WaitlistEntry, error) {
	var entry domain.WaitlistEntry
	if err := r.db.Conn(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, translate(err, "waitlist entry", id)
	}
	return &entry, nil
}

func (r *entryRepository) Update(ctx context.Context, entry *domain.WaitlistEntry) error {
	return updateAll(r.db.Conn(ctx), entry, "waitlist entry", entry.ID)
}

func (r *entryRepository) List(ctx context.Context, filter repository.EntryFilter) ([]*domain.WaitlistEntry, error) {
	q := r.db.Conn(ctx).Model(&domain.WaitlistEntry{})
	if filter.Scope != nil {
		q = whereScope(q, *filter.Scope)
	}
	if filter.DaycareID != nil {
		q = q.Where("daycare_id = ?", *filter.DaycareID)
	}
	if filter.ParentID != nil {
		q = q.Where("parent_id = ?", *filter.ParentID)
	}
	if filter.ChildID != nil {
		q = q.Where("child_id = ?", *filter.ChildID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var entries []*domain.WaitlistEntry
	if err := q.Order("position ASC, joined_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, translate(err, "waitlist entry", nil)
	}
	return entries, nil
}

func (r *entryRepository) ListScopes(ctx context.Context, statuses []domain.EntryStatus) ([]domain.Scope, error) {
	var rows []struct {
		DaycareID uuid.UUID
		ProgramID *uuid.UUID
	}
	q := r.db.Conn(ctx).Model(&domain.WaitlistEntry{}).Distinct("daycare_id", "program_id")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, translate(err, "waitlist entry", nil)
	}

	scopes := make([]domain.Scope, 0, len(rows))
	for _, row := range rows {
		scopes = append(scopes, domain.NewScope(row.DaycareID, row.ProgramID))
	}
	return scopes, nil
}
