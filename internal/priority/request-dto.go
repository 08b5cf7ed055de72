package priority

import (
	"encoding/json"

	"carequeue/internal/domain"
	"carequeue/internal/shared/validator"

	"github.com/google/uuid"
)

type CreateRuleRequest struct {
	DaycareID   uuid.UUID       `json:"daycare_id" validate:"required"`
	ProgramID   *uuid.UUID      `json:"program_id,omitempty"`
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	RuleType    domain.RuleType `json:"rule_type" validate:"required"`
	Points      int             `json:"points"`
	IsActive    *bool           `json:"is_active,omitempty"`
	SortOrder   int             `json:"sort_order" validate:"min=0"`
	Conditions  json.RawMessage `json:"conditions,omitempty"`
}

func (r *CreateRuleRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// UpdateRuleRequest changes only the fields that are set.
type UpdateRuleRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	Description *string          `json:"description,omitempty"`
	RuleType    *domain.RuleType `json:"rule_type,omitempty"`
	Points      *int             `json:"points,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
	SortOrder   *int             `json:"sort_order,omitempty" validate:"omitempty,min=0"`
	Conditions  json.RawMessage  `json:"conditions,omitempty"`
}

func (r *UpdateRuleRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// PreviewRequest scores an entry without persisting anything.
type PreviewRequest struct {
	EntryID uuid.UUID `json:"entry_id" validate:"required"`
}
