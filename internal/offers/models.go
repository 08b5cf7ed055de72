package offers

import (
	"time"

	"carequeue/internal/capacity"
	"carequeue/internal/domain"
	"carequeue/internal/shared/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOfferOptions tune a single offer. Zero values take the configured defaults.
type CreateOfferOptions struct {
	OfferWindowHours int
	CampaignID       *uuid.UUID
	DepositRequired  bool
	DepositAmount    *decimal.Decimal
	// SkipRecalculate leaves the cohort ranking to the caller, for batches.
	SkipRecalculate bool
}

type RespondRequest struct {
	OfferID     uuid.UUID
	Response    domain.OfferResponse
	Notes       *string
	DepositPaid bool
	PerformedBy uuid.UUID
}

// ResponseResult is the state after a response was applied.
type ResponseResult struct {
	Offer      *domain.WaitlistOffer `json:"offer"`
	Entry      *domain.WaitlistEntry `json:"entry"`
	Enrollment *domain.Enrollment    `json:"enrollment,omitempty"`
}

// ExpirationResult reports one HandleExpiredOffers run.
type ExpirationResult struct {
	Cleanup             *capacity.CleanupResult `json:"cleanup"`
	CampaignsUpdated    int                     `json:"campaigns_updated"`
	CohortsRecalculated int                     `json:"cohorts_recalculated"`
	FollowUpsTriggered  int                     `json:"follow_ups_triggered"`
	Errors              []capacity.ItemError    `json:"errors,omitempty"`
}

// ReminderResult reports one SendOfferReminders run.
type ReminderResult struct {
	Sent   int                  `json:"sent"`
	Errors []capacity.ItemError `json:"errors,omitempty"`
}

type CreateOfferRequest struct {
	EntryID          uuid.UUID        `json:"entry_id" validate:"required"`
	SpotStartDate    time.Time        `json:"spot_start_date" validate:"required"`
	OfferWindowHours int              `json:"offer_window_hours" validate:"omitempty,min=1,max=720"`
	DepositRequired  bool             `json:"deposit_required"`
	DepositAmount    *decimal.Decimal `json:"deposit_amount,omitempty"`
}

func (r *CreateOfferRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *CreateOfferRequest) Options() CreateOfferOptions {
	return CreateOfferOptions{
		OfferWindowHours: r.OfferWindowHours,
		DepositRequired:  r.DepositRequired,
		DepositAmount:    r.DepositAmount,
	}
}
