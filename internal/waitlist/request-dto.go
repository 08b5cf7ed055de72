package waitlist

import (
	"time"

	"carequeue/internal/shared/validator"

	"github.com/google/uuid"
)

type JoinWaitlistRequest struct {
	DaycareID          uuid.UUID  `json:"daycare_id" validate:"required"`
	ProgramID          *uuid.UUID `json:"program_id,omitempty"`
	ChildID            uuid.UUID  `json:"child_id" validate:"required"`
	PreferredStartDate *time.Time `json:"preferred_start_date,omitempty"`

	HasSiblingEnrolled      bool `json:"has_sibling_enrolled"`
	IsStaffChild            bool `json:"is_staff_child"`
	InServiceArea           bool `json:"in_service_area"`
	HasSubsidyApproval      bool `json:"has_subsidy_approval"`
	HasCorporatePartnership bool `json:"has_corporate_partnership"`
	HasSpecialNeeds         bool `json:"has_special_needs"`
}

func (r *JoinWaitlistRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// UpdateEntryRequest is the provider's edit of priority attributes. Nil fields are left alone.
type UpdateEntryRequest struct {
	HasSiblingEnrolled      *bool      `json:"has_sibling_enrolled,omitempty"`
	IsStaffChild            *bool      `json:"is_staff_child,omitempty"`
	InServiceArea           *bool      `json:"in_service_area,omitempty"`
	HasSubsidyApproval      *bool      `json:"has_subsidy_approval,omitempty"`
	HasCorporatePartnership *bool      `json:"has_corporate_partnership,omitempty"`
	HasSpecialNeeds         *bool      `json:"has_special_needs,omitempty"`
	ProviderTags            []string   `json:"provider_tags,omitempty" validate:"omitempty,max=20,dive,required,max=50"`
	PreferredStartDate      *time.Time `json:"preferred_start_date,omitempty"`
}

func (r *UpdateEntryRequest) Validate() error {
	return validator.ValidateRequest(r)
}
