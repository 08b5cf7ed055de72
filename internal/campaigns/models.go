package campaigns

import (
	"time"

	"carequeue/internal/domain"
	"carequeue/internal/shared/validator"

	"github.com/google/uuid"
)

type CreateCampaignRequest struct {
	DaycareID        uuid.UUID  `json:"daycare_id" validate:"required"`
	ProgramID        *uuid.UUID `json:"program_id,omitempty"`
	Name             string     `json:"name" validate:"required,max=255"`
	Description      string     `json:"description"`
	SpotsAvailable   int        `json:"spots_available" validate:"min=1"`
	OfferWindowHours int        `json:"offer_window_hours" validate:"omitempty,min=1,max=720"`
	MaxOfferAttempts int        `json:"max_offer_attempts" validate:"omitempty,min=1,max=10"`
	SpotStartDate    time.Time  `json:"spot_start_date" validate:"required"`
}

func (r *CreateCampaignRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type ExecuteOptions struct {
	PerformedBy uuid.UUID
	DryRun      bool
}

type ExecuteRequest struct {
	DryRun bool `json:"dry_run"`
}

// Plan is what an execution would do with the cohort as it stands.
type Plan struct {
	AvailableSlots  int                     `json:"available_slots"`
	EligibleCount   int                     `json:"eligible_count"`
	MaxOffersToSend int                     `json:"max_offers_to_send"`
	Candidates      []*domain.WaitlistEntry `json:"candidates"`
}

// CandidateError is an offer that could not be created during execution.
type CandidateError struct {
	EntryID uuid.UUID `json:"entry_id"`
	Error   string    `json:"error"`
	Kind    string    `json:"kind"`
}

type ExecuteResult struct {
	DryRun        bool                     `json:"dry_run"`
	Plan          Plan                     `json:"plan"`
	OffersCreated int                      `json:"offers_created"`
	TotalErrors   int                      `json:"total_errors"`
	Offers        []*domain.WaitlistOffer  `json:"offers"`
	Errors        []CandidateError         `json:"errors,omitempty"`
	Campaign      *domain.WaitlistCampaign `json:"campaign"`
}

type RespondToOfferRequest struct {
	Response    domain.OfferResponse `json:"response" validate:"required,oneof=ACCEPTED DECLINED"`
	Notes       *string              `json:"notes,omitempty" validate:"omitempty,max=2000"`
	DepositPaid bool                 `json:"deposit_paid"`
}

func (r *RespondToOfferRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type RespondResult struct {
	Offer            *domain.WaitlistOffer    `json:"offer"`
	Entry            *domain.WaitlistEntry    `json:"entry"`
	Enrollment       *domain.Enrollment       `json:"enrollment,omitempty"`
	Campaign         *domain.WaitlistCampaign `json:"campaign,omitempty"`
	CampaignComplete bool                     `json:"campaign_complete"`
}

// CampaignDetail is a campaign with the offers it sent.
type CampaignDetail struct {
	*domain.WaitlistCampaign
	Offers []*domain.WaitlistOffer `json:"offers"`
}
