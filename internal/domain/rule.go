package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RuleType is the kind of criterion a priority rule checks.
type RuleType string

const (
	RuleTypeSiblingEnrolled      RuleType = "SIBLING_ENROLLED"
	RuleTypeStaffChild           RuleType = "STAFF_CHILD"
	RuleTypeInServiceArea        RuleType = "IN_SERVICE_AREA"
	RuleTypeSubsidyApproved      RuleType = "SUBSIDY_APPROVED"
	RuleTypeCorporatePartnership RuleType = "CORPORATE_PARTNERSHIP"
	RuleTypeSpecialNeeds         RuleType = "SPECIAL_NEEDS"
	RuleTypeTimeOnList           RuleType = "TIME_ON_LIST"
	RuleTypeProviderCustom       RuleType = "PROVIDER_CUSTOM"
	RuleTypeFirstTimeParent      RuleType = "FIRST_TIME_PARENT"
	RuleTypeMilitaryFamily       RuleType = "MILITARY_FAMILY"
)

// IsKnown reports whether the rule type is one the service accepts on write.
func (t RuleType) IsKnown() bool {
	switch t {
	case RuleTypeSiblingEnrolled, RuleTypeStaffChild, RuleTypeInServiceArea,
		RuleTypeSubsidyApproved, RuleTypeCorporatePartnership, RuleTypeSpecialNeeds,
		RuleTypeTimeOnList, RuleTypeProviderCustom, RuleTypeFirstTimeParent, RuleTypeMilitaryFamily:
		return true
	default:
		return false
	}
}

// RuleConditions holds the typed per-rule parameters.
type RuleConditions struct {
	MinDays      *int     `json:"minDays,omitempty"`
	MaxDays      *int     `json:"maxDays,omitempty"`
	RequiredTags []string `json:"requiredTags,omitempty"`
}

func (c RuleConditions) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *RuleConditions) Scan(value interface{}) error {
	if value == nil {
		*c = RuleConditions{}
		return nil
	}
	bytes, err := columnBytes(value)
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		*c = RuleConditions{}
		return nil
	}
	return json.Unmarshal(bytes, c)
}

func (RuleConditions) GormDataType() string {
	return "jsonb"
}

// PriorityRule awards points to entries that meet a criterion.
type PriorityRule struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	DaycareID   uuid.UUID      `json:"daycare_id" gorm:"type:uuid;not null;index:idx_rule_scope"`
	ProgramID   *uuid.UUID     `json:"program_id,omitempty" gorm:"type:uuid;index:idx_rule_scope"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	RuleType    RuleType       `json:"rule_type" gorm:"type:varchar(40);not null"`
	Points      int            `json:"points" gorm:"not null"`
	IsActive    bool           `json:"is_active" gorm:"not null"`
	SortOrder   int            `json:"sort_order" gorm:"not null"`
	Conditions  RuleConditions `json:"conditions" gorm:"type:jsonb"`
	CreatedBy   uuid.UUID      `json:"created_by" gorm:"type:uuid"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (PriorityRule) TableName() string { return "waitlist_priority_rules" }
