package database

import (
	"carequeue/internal/domain"

	"gorm.io/gorm"
)

// Models lists every table the service owns.
func Models() []interface{} {
	return []interface{}{
		&domain.WaitlistEntry{},
		&domain.PriorityRule{},
		&domain.WaitlistOffer{},
		&domain.WaitlistCampaign{},
		&domain.DaycareCapacity{},
		&domain.CapacityReservation{},
		&domain.Enrollment{},
		&domain.AuditLog{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
