// Package gormrepo implements the repository ports on gorm.
package gormrepo

import (
	"carequeue/internal/domain"
	"carequeue/internal/repository"
	"carequeue/internal/shared/database"
	ierr "carequeue/internal/shared/errors"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewStore wires every gorm repository against db.
func NewStore(db *database.DB) repository.Store {
	return repository.Store{
		Tx:        db,
		Entries:   NewEntryRepository(db),
		Rules:     NewRuleRepository(db),
		Offers:    NewOfferRepository(db),
		Campaigns: NewCampaignRepository(db),
		Capacity:  NewCapacityRepository(db),
		Audit:     NewAuditRepository(db),
	}
}

func whereScope(q *gorm.DB, s domain.Scope) *gorm.DB {
	q = q.Where("daycare_id = ?", s.DaycareID)
	if s.ProgramID == nil {
		return q.Where("program_id IS NULL")
	}
	return q.Where("program_id = ?", *s.ProgramID)
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// translate maps driver errors onto the shared taxonomy.
func translate(err error, entity string, id interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ierr.NewErrorf("%s not found", entity).
			WithReportableDetails(map[string]interface{}{"entity": entity, "id": id}).
			Mark(ierr.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ierr.WithError(err).
			WithMessagef("%s conflicts with an existing record", entity).
			Mark(ierr.ErrInvalidState)
	default:
		return ierr.WithError(err).
			WithMessagef("%s query failed", entity).
			Mark(ierr.ErrTransient)
	}
}

// updateAll writes every column of model and reports a missing row as not found.
func updateAll(db *gorm.DB, model interface{}, entity string, id uuid.UUID) error {
	res := db.Model(model).Select("*").Updates(model)
	if res.Error != nil {
		return translate(res.Error, entity, id)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, entity, id)
	}
	return nil
}
