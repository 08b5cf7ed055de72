// Package campaigns batches offers across a ranked cohort and tracks how
// the released spots get taken.
package campaigns

import (
	"context"

	"carequeue/internal/audit"
	"carequeue/internal/capacity"
	"carequeue/internal/domain"
	"carequeue/internal/offers"
	"carequeue/internal/repository"
	ierr "carequeue/internal/shared/errors"
	"carequeue/pkg/clock"
	"carequeue/pkg/logger"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const defaultMaxOfferAttempts = 1

type Service interface {
	CreateCampaign(ctx context.Context, req CreateCampaignRequest, createdBy uuid.UUID) (*domain.WaitlistCampaign, error)
	ExecuteCampaign(ctx context.Context, id uuid.UUID, opts ExecuteOptions) (*ExecuteResult, error)
	RespondToOffer(ctx context.Context, offerID uuid.UUID, req RespondToOfferRequest, performedBy uuid.UUID) (*RespondResult, error)
	CancelCampaign(ctx context.Context, id uuid.UUID, performedBy uuid.UUID) (*domain.WaitlistCampaign, error)
	GetCampaign(ctx context.Context, id uuid.UUID) (*CampaignDetail, error)
	ListCampaigns(ctx context.Context, filter repository.CampaignFilter) ([]*domain.WaitlistCampaign, error)

	// ContinueCampaign runs a follow-up round for an ACTIVE campaign.
	ContinueCampaign(ctx context.Context, id uuid.UUID) error
}

type Options struct {
	DefaultOfferWindowHours int
}

type service struct {
	tx        repository.Transactor
	campaigns repository.CampaignRepository
	offers    offers.Service
	capacity  capacity.Service
	ranking   offers.Recalculator
	recorder  *audit.Recorder
	clock     clock.Clock
	log       *logger.Logger
	opts      Options
}

// NewService also registers the orchestrator as the offer manager's follow-up handler.
func NewService(store repository.Store, offerSvc offers.Service, capacitySvc capacity.Service, recalculator offers.Recalculator,
	recorder *audit.Recorder, c clock.Clock, log *logger.Logger, opts Options) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	if opts.DefaultOfferWindowHours <= 0 {
		opts.DefaultOfferWindowHours = 48
	}
	s := &service{
		tx:        store.Tx,
		campaigns: store.Campaigns,
		offers:    offerSvc,
		capacity:  capacitySvc,
		ranking:   recalculator,
		recorder:  recorder,
		clock:     c,
		log:       log,
		opts:      opts,
	}
	offerSvc.SetFollowUpHandler(s)
	return s
}

func (s *service) CreateCampaign(ctx context.Context, req CreateCampaignRequest, createdBy uuid.UUID) (*domain.WaitlistCampaign, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.OfferWindowHours == 0 {
		req.OfferWindowHours = s.opts.DefaultOfferWindowHours
	}
	if req.MaxOfferAttempts == 0 {
		req.MaxOfferAttempts = defaultMaxOfferAttempts
	}

	now := s.clock.Now()
	campaign := &domain.WaitlistCampaign{
		ID:               uuid.New(),
		DaycareID:        req.DaycareID,
		ProgramID:        req.ProgramID,
		Name:             req.Name,
		Description:      req.Description,
		Status:           domain.CampaignStatusDraft,
		SpotsAvailable:   req.SpotsAvailable,
		SpotsRemaining:   req.SpotsAvailable,
		OfferWindowHours: req.OfferWindowHours,
		MaxOfferAttempts: req.MaxOfferAttempts,
		SpotStartDate:    req.SpotStartDate,
		CreatedBy:        createdBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.campaigns.Create(ctx, campaign); err != nil {
			return err
		}
		return s.recorder.Record(ctx, audit.Event{
			Action:      domain.AuditCampaignCreated,
			EntityType:  domain.EntityCampaign,
			EntityID:    campaign.ID,
			DaycareID:   campaign.DaycareID,
			PerformedBy: audit.Actor(createdBy),
			After:       campaign,
		})
	})
	if err != nil {
		return nil, err
	}
	return campaign, nil
}

func (s *service) ExecuteCampaign(ctx context.Context, id uuid.UUID, opts ExecuteOptions) (*ExecuteResult, error) {
	campaign, err := s.campaigns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkExecutable(campaign); err != nil {
		return nil, err
	}

	plan, err := s.plan(ctx, campaign)
	if err != nil {
		return nil, err
	}
	result := &ExecuteResult{DryRun: opts.DryRun, Plan: *plan, Campaign: campaign}
	if opts.DryRun {
		s.log.LogCampaignExecuted(ctx, id.String(), 0, 0, true)
		return result, nil
	}

	if campaign.Status == domain.CampaignStatusDraft {
		if campaign, err = s.activate(ctx, id, plan, opts.PerformedBy); err != nil {
			return nil, err
		}
	}

	// sequential so reservations follow rank order
	for _, candidate := range plan.Candidates {
		offer, err := s.offers.CreateOffer(ctx, candidate.ID, campaign.SpotStartDate, offers.CreateOfferOptions{
			OfferWindowHours: campaign.OfferWindowHours,
			CampaignID:       &campaign.ID,
			SkipRecalculate:  true,
		}, opts.PerformedBy)
		if err != nil {
			s.log.WarnContext(ctx, "campaign offer failed", "campaign_id", id, "entry_id", candidate.ID, "error", err)
			result.Errors = append(result.Errors, CandidateError{EntryID: candidate.ID, Error: err.Error(), Kind: ierr.Kind(err)})
			continue
		}
		result.Offers = append(result.Offers, offer)
	}
	result.OffersCreated = len(result.Offers)
	result.TotalErrors = len(result.Errors)
	if result.OffersCreated > 0 {
		if _, err := s.ranking.RecalculatePositions(ctx, campaign.Scope(), audit.Actor(opts.PerformedBy)); err != nil {
			s.log.WarnContext(ctx, "recalculation after campaign round failed", "campaign_id", id, "error", err)
		}
	}

	if result.Campaign, err = s.campaigns.Get(ctx, id); err != nil {
		return nil, err
	}
	s.log.LogCampaignExecuted(ctx, id.String(), result.OffersCreated, result.TotalErrors, false)
	return result, nil
}

func checkExecutable(campaign *domain.WaitlistCampaign) error {
	switch {
	case campaign.Status == domain.CampaignStatusDraft:
		return nil
	case campaign.Status == domain.CampaignStatusActive && campaign.SpotsRemaining > 0:
		return nil
	case campaign.Status == domain.CampaignStatusActive:
		return ierr.NewError("campaign has no spots remaining").
			WithReportableDetails(map[string]interface{}{"campaign_id": campaign.ID}).
			Mark(ierr.ErrInvalidState)
	default:
		return ierr.NewErrorf("campaign is %s", campaign.Status).
			WithReportableDetails(map[string]interface{}{"campaign_id": campaign.ID, "status": campaign.Status}).
			Mark(ierr.ErrInvalidState)
	}
}

// plan picks candidates in rank order, skipping entries this campaign already offered to.
func (s *service) plan(ctx context.Context, campaign *domain.WaitlistCampaign) (*Plan, error) {
	status, err := s.capacity.CheckCapacity(ctx, campaign.Scope(), 1)
	if err != nil {
		return nil, err
	}
	candidates, err := s.offers.RankWaitlistCandidates(ctx, campaign.Scope(), s.clock.Now())
	if err != nil {
		return nil, err
	}
	sent, err := s.offers.ListOffers(ctx, repository.OfferFilter{CampaignID: &campaign.ID})
	if err != nil {
		return nil, err
	}
	offered := lo.SliceToMap(sent, func(o *domain.WaitlistOffer) (uuid.UUID, struct{}) {
		return o.EntryID, struct{}{}
	})
	eligible := lo.Reject(candidates, func(e *domain.WaitlistEntry, _ int) bool {
		_, ok := offered[e.ID]
		return ok
	})

	n := lo.Min([]int{
		status.AvailableSlots * campaign.MaxOfferAttempts,
		len(eligible),
		campaign.SpotsRemaining * campaign.MaxOfferAttempts,
	})
	if n < 0 {
		n = 0
	}
	return &Plan{
		AvailableSlots:  status.AvailableSlots,
		EligibleCount:   len(eligible),
		MaxOffersToSend: n,
		Candidates:      eligible[:n],
	}, nil
}

func (s *service) activate(ctx context.Context, id uuid.UUID, plan *Plan, performedBy uuid.UUID) (*domain.WaitlistCampaign, error) {
	var campaign *domain.WaitlistCampaign
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if campaign, err = s.lockCampaign(ctx, id); err != nil {
			return err
		}
		if !campaign.Status.CanTransitionTo(domain.CampaignStatusActive) {
			return ierr.NewErrorf("campaign is %s", campaign.Status).Mark(ierr.ErrInvalidState)
		}
		before := *campaign
		now := s.clock.Now()
		campaign.Status = domain.CampaignStatusActive
		campaign.ExecutedAt = &now
		campaign.ExecutedBy = audit.Actor(performedBy)
		campaign.UpdatedAt = now
		if err := s.campaigns.Update(ctx, campaign); err != nil {
			return err
		}
		return s.recorder.Record(ctx, audit.Event{
			Action:      domain.AuditCampaignExecuted,
			EntityType:  domain.EntityCampaign,
			EntityID:    campaign.ID,
			DaycareID:   campaign.DaycareID,
			PerformedBy: audit.Actor(performedBy),
			Before:      before,
			After: map[string]interface{}{
				"campaign":           campaign,
				"max_offers_to_send": plan.MaxOffersToSend,
				"eligible_count":     plan.EligibleCount,
			},
		})
	})
	return campaign, err
}

// lockCampaign reads the campaign under its cohort lock. Must run inside WithTx.
func (s *service) lockCampaign(ctx context.Context, id uuid.UUID) (*domain.WaitlistCampaign, error) {
	campaign, err := s.campaigns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.capacity.LockScope(ctx, campaign.Scope()); err != nil {
		return nil, err
	}
	return s.campaigns.Get(ctx, id)
}

func (s *service) RespondToOffer(ctx context.Context, offerID uuid.UUID, req RespondToOfferRequest, performedBy uuid.UUID) (*RespondResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		applied *offers.ResponseResult
		result  *RespondResult
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		applied, err = s.offers.ApplyResponse(ctx, offers.RespondRequest{
			OfferID:     offerID,
			Response:    req.Response,
			Notes:       req.Notes,
			DepositPaid: req.DepositPaid,
			PerformedBy: performedBy,
		})
		if err != nil {
			return err
		}
		result = &RespondResult{Offer: applied.Offer, Entry: applied.Entry, Enrollment: applied.Enrollment}
		if applied.Offer.CampaignID == nil {
			return nil
		}
		result.Campaign, result.CampaignComplete, err = s.countResponse(ctx, *applied.Offer.CampaignID, req.Response, performedBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.offers.PublishResponse(ctx, applied)
	return result, nil
}

// countResponse updates the campaign tallies and completes it when the last spot is taken.
func (s *service) countResponse(ctx context.Context, campaignID uuid.UUID, response domain.OfferResponse, performedBy uuid.UUID) (*domain.WaitlistCampaign, bool, error) {
	campaign, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, false, err
	}
	if campaign.Status.IsTerminal() {
		return campaign, false, nil
	}
	before := *campaign
	now := s.clock.Now()
	completed := false

	switch response {
	case domain.OfferResponseAccepted:
		campaign.TotalAccepted++
		if campaign.SpotsRemaining > 0 {
			campaign.SpotsRemaining--
		}
		if campaign.SpotsRemaining == 0 && campaign.Status.CanTransitionTo(domain.CampaignStatusCompleted) {
			campaign.Status = domain.CampaignStatusCompleted
			campaign.CompletedAt = &now
			completed = true
		}
	case domain.OfferResponseDeclined:
		campaign.TotalDeclined++
	}
	campaign.UpdatedAt = now
	if err := s.campaigns.Update(ctx, campaign); err != nil {
		return nil, false, err
	}

	if completed {
		if err := s.recorder.Record(ctx, audit.Event{
			Action:      domain.AuditCampaignCompleted,
			EntityType:  domain.EntityCampaign,
			EntityID:    campaign.ID,
			DaycareID:   campaign.DaycareID,
			PerformedBy: audit.Actor(performedBy),
			Before:      before,
			After:       campaign,
		}); err != nil {
			return nil, false, err
		}
	}
	return campaign, completed, nil
}

// CancelCampaign stops further rounds. Offers already sent stay answerable.
func (s *service) CancelCampaign(ctx context.Context, id uuid.UUID, performedBy uuid.UUID) (*domain.WaitlistCampaign, error) {
	var campaign *domain.WaitlistCampaign
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if campaign, err = s.lockCampaign(ctx, id); err != nil {
			return err
		}
		if !campaign.Status.CanTransitionTo(domain.CampaignStatusCancelled) {
			return ierr.NewErrorf("campaign is %s and can not be cancelled", campaign.Status).Mark(ierr.ErrInvalidState)
		}
		before := *campaign
		now := s.clock.Now()
		campaign.Status = domain.CampaignStatusCancelled
		campaign.CancelledAt = &now
		campaign.UpdatedAt = now
		if err := s.campaigns.Update(ctx, campaign); err != nil {
			return err
		}
		return s.recorder.Record(ctx, audit.Event{
			Action:      domain.AuditCampaignCancelled,
			EntityType:  domain.EntityCampaign,
			EntityID:    campaign.ID,
			DaycareID:   campaign.DaycareID,
			PerformedBy: audit.Actor(performedBy),
			Before:      before,
			After:       campaign,
		})
	})
	if err != nil {
		return nil, err
	}
	return campaign, nil
}

func (s *service) GetCampaign(ctx context.Context, id uuid.UUID) (*CampaignDetail, error) {
	campaign, err := s.campaigns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sent, err := s.offers.ListOffers(ctx, repository.OfferFilter{CampaignID: &id})
	if err != nil {
		return nil, err
	}
	return &CampaignDetail{WaitlistCampaign: campaign, Offers: sent}, nil
}

func (s *service) ListCampaigns(ctx context.Context, filter repository.CampaignFilter) ([]*domain.WaitlistCampaign, error) {
	return s.campaigns.List(ctx, filter)
}

func (s *service) ContinueCampaign(ctx context.Context, id uuid.UUID) error {
	result, err := s.ExecuteCampaign(ctx, id, ExecuteOptions{})
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "campaign follow-up round", "campaign_id", id, "offers_created", result.OffersCreated)
	return nil
}
