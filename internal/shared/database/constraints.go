package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the PostgreSQL-only indexes that back the concurrency rules.
func MigrateConstraints(db *gorm.DB) error {
	// One capacity row per cohort; NULL program is its own cohort.
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_daycare_capacity_scope
		ON daycare_capacities (daycare_id, COALESCE(program_id, '00000000-0000-0000-0000-000000000000'::uuid));
	`).Error
	if err != nil {
		return err
	}

	// At most one pending offer per entry.
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_pending_offer_per_entry
		ON waitlist_offers (entry_id)
		WHERE response = 'PENDING';
	`).Error
	if err != nil {
		return err
	}

	// Sweep scans pending offers by expiry.
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_waitlist_offers_pending_expiry
		ON waitlist_offers (offer_expires_at)
		WHERE response = 'PENDING';
	`).Error
	if err != nil {
		return err
	}

	return nil
}
