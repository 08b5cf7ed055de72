// Package offers runs the offer lifecycle: candidate selection, creation,
// responses, expiry and reminders.
package offers

import (
	"context"
	"time"

	"carequeue/internal/audit"
	"carequeue/internal/capacity"
	"carequeue/internal/domain"
	"carequeue/internal/notifications"
	"carequeue/internal/ranking"
	"carequeue/internal/repository"
	ierr "carequeue/internal/shared/errors"
	"carequeue/pkg/clock"
	"carequeue/pkg/logger"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const maxOfferWindowHours = 720

// FollowUpHandler runs another offer round for a campaign after offers lapse.
type FollowUpHandler interface {
	ContinueCampaign(ctx context.Context, campaignID uuid.UUID) error
}

// Recalculator reranks a cohort.
type Recalculator interface {
	RecalculatePositions(ctx context.Context, scope domain.Scope, performedBy *uuid.UUID) (*ranking.Result, error)
}

type Service interface {
	SetFollowUpHandler(handler FollowUpHandler)

	RankWaitlistCandidates(ctx context.Context, scope domain.Scope, asOf time.Time) ([]*domain.WaitlistEntry, error)
	CreateOffer(ctx context.Context, entryID uuid.UUID, spotStartDate time.Time, opts CreateOfferOptions, createdBy uuid.UUID) (*domain.WaitlistOffer, error)
	GetOffer(ctx context.Context, id uuid.UUID) (*domain.WaitlistOffer, error)
	ListOffers(ctx context.Context, filter repository.OfferFilter) ([]*domain.WaitlistOffer, error)

	// ProcessOfferResponse applies a response in its own transaction, then reranks and notifies.
	ProcessOfferResponse(ctx context.Context, req RespondRequest) (*ResponseResult, error)
	// ApplyResponse is the transactional half of ProcessOfferResponse; callers must
	// run it inside WithTx and call PublishResponse after commit.
	ApplyResponse(ctx context.Context, req RespondRequest) (*ResponseResult, error)
	PublishResponse(ctx context.Context, result *ResponseResult)

	HandleExpiredOffers(ctx context.Context) (*ExpirationResult, error)
	SendOfferReminders(ctx context.Context) (*ReminderResult, error)
}

type Options struct {
	DefaultOfferWindowHours int
	ReminderLeadTime        time.Duration
	SweepBatchSize          int
	DefaultDepositAmount    decimal.Decimal
}

type service struct {
	tx        repository.Transactor
	entries   repository.EntryRepository
	offers    repository.OfferRepository
	campaigns repository.CampaignRepository
	capacity  capacity.Service
	ranking   Recalculator
	recorder  *audit.Recorder
	notifier  *notifications.Notifier
	clock     clock.Clock
	log       *logger.Logger
	opts      Options

	followUp FollowUpHandler
}

func NewService(store repository.Store, capacitySvc capacity.Service, recalculator Recalculator, recorder *audit.Recorder,
	notifier *notifications.Notifier, c clock.Clock, log *logger.Logger, opts Options) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	if notifier == nil {
		notifier = notifications.NewNotifier(nil, c, log)
	}
	if opts.DefaultOfferWindowHours <= 0 {
		opts.DefaultOfferWindowHours = 48
	}
	if opts.ReminderLeadTime <= 0 {
		opts.ReminderLeadTime = 12 * time.Hour
	}
	if opts.SweepBatchSize <= 0 {
		opts.SweepBatchSize = 200
	}
	return &service{
		tx:        store.Tx,
		entries:   store.Entries,
		offers:    store.Offers,
		campaigns: store.Campaigns,
		capacity:  capacitySvc,
		ranking:   recalculator,
		recorder:  recorder,
		notifier:  notifier,
		clock:     c,
		log:       log,
		opts:      opts,
	}
}

func (s *service) SetFollowUpHandler(handler FollowUpHandler) {
	s.followUp = handler
}

// RankWaitlistCandidates returns ACTIVE entries with no outstanding offer at asOf, best first.
func (s *service) RankWaitlistCandidates(ctx context.Context, scope domain.Scope, asOf time.Time) ([]*domain.WaitlistEntry, error) {
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	entries, err := s.entries.List(ctx, repository.EntryFilter{
		Scope:    &scope,
		Statuses: []domain.EntryStatus{domain.EntryStatusActive},
	})
	if err != nil {
		return nil, err
	}
	outstanding, err := s.offers.List(ctx, repository.OfferFilter{
		Scope:        &scope,
		Responses:    []domain.OfferResponse{domain.OfferResponsePending},
		ExpiresAfter: &asOf,
	})
	if err != nil {
		return nil, err
	}

	offered := lo.SliceToMap(outstanding, func(o *domain.WaitlistOffer) (uuid.UUID, struct{}) {
		return o.EntryID, struct{}{}
	})
	eligible := lo.Reject(entries, func(e *domain.WaitlistEntry, _ int) bool {
		_, ok := offered[e.ID]
		return ok
	})
	return ranking.SortEntries(eligible), nil
}

func (s *service) CreateOffer(ctx context.Context, entryID uuid.UUID, spotStartDate time.Time, opts CreateOfferOptions, createdBy uuid.UUID) (*domain.WaitlistOffer, error) {
	window, deposit, err := s.resolveOptions(spotStartDate, opts)
	if err != nil {
		return nil, err
	}

	var offer *domain.WaitlistOffer
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		entry, err := s.entries.Get(ctx, entryID)
		if err != nil {
			return err
		}
		if _, err := s.capacity.LockScope(ctx, entry.Scope()); err != nil {
			return err
		}
		// re-read under the cohort lock
		entry, err = s.entries.Get(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Status != domain.EntryStatusActive {
			return ierr.NewErrorf("entry is %s, only ACTIVE entries can receive offers", entry.Status).
				WithReportableDetails(map[string]interface{}{"entry_id": entry.ID, "status": entry.Status}).
				Mark(ierr.ErrInvalidState)
		}

		now := s.clock.Now()
		outstanding, err := s.offers.List(ctx, repository.OfferFilter{
			EntryID:      &entry.ID,
			Responses:    []domain.OfferResponse{domain.OfferResponsePending},
			ExpiresAfter: &now,
		})
		if err != nil {
			return err
		}
		if len(outstanding) > 0 {
			return ierr.NewError("entry already has an outstanding offer").
				WithReportableDetails(map[string]interface{}{"offer_id": outstanding[0].ID}).
				Mark(ierr.ErrInvalidState)
		}

		if opts.CampaignID != nil {
			if err := s.countCampaignOffer(ctx, *opts.CampaignID, entry.Scope()); err != nil {
				return err
			}
		}

		offer = &domain.WaitlistOffer{
			ID:                uuid.New(),
			EntryID:           entry.ID,
			CampaignID:        opts.CampaignID,
			DaycareID:         entry.DaycareID,
			ProgramID:         entry.ProgramID,
			ParentID:          entry.ParentID,
			SpotAvailableDate: spotStartDate,
			OfferExpiresAt:    now.Add(window),
			Response:          domain.OfferResponsePending,
			PriorityAtOffer:   entry.PriorityScore,
			PositionAtOffer:   entry.Position,
			DepositRequired:   opts.DepositRequired,
			DepositAmount:     deposit,
			CreatedBy:         createdBy,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.offers.Create(ctx, offer); err != nil {
			return err
		}
		if _, err := s.capacity.ReserveCapacity(ctx, capacity.ReserveRequest{
			Scope:     entry.Scope(),
			Slots:     1,
			OfferID:   offer.ID,
			ExpiresAt: offer.OfferExpiresAt,
			UserID:    createdBy,
		}); err != nil {
			return err
		}

		before := *entry
		entry.Status = domain.EntryStatusOffered
		entry.OfferAttempts++
		entry.LastOfferedAt = &now
		entry.UpdatedAt = now
		if err := s.entries.Update(ctx, entry); err != nil {
			return err
		}

		return s.recorder.Record(ctx, audit.Event{
			Action:      domain.AuditOfferSent,
			EntityType:  domain.EntityOffer,
			EntityID:    offer.ID,
			DaycareID:   offer.DaycareID,
			PerformedBy: audit.Actor(createdBy),
			Before:      map[string]interface{}{"entry": before},
			After:       map[string]interface{}{"entry": entry, "offer": offer},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.LogOfferCreated(ctx, offer.ID.String(), offer.EntryID.String(), offer.OfferExpiresAt)
	if !opts.SkipRecalculate {
		if _, err := s.ranking.RecalculatePositions(ctx, offer.Scope(), audit.Actor(createdBy)); err != nil {
			s.log.WarnContext(ctx, "recalculation after offer failed", "offer_id", offer.ID, "error", err)
		}
	}
	s.notifier.OfferSent(ctx, offer)
	return offer, nil
}

func (s *service) resolveOptions(spotStartDate time.Time, opts CreateOfferOptions) (time.Duration, decimal.Decimal, error) {
	if spotStartDate.IsZero() {
		return 0, decimal.Zero, ierr.NewError("spot start date is required").Mark(ierr.ErrValidation)
	}
	hours := opts.OfferWindowHours
	if hours == 0 {
		hours = s.opts.DefaultOfferWindowHours
	}
	if hours < 1 || hours > maxOfferWindowHours {
		return 0, decimal.Zero, ierr.NewErrorf("offer window must be between 1 and %d hours", maxOfferWindowHours).
			Mark(ierr.ErrValidation)
	}

	deposit := decimal.Zero
	if opts.DepositRequired {
		deposit = s.opts.DefaultDepositAmount
		if opts.DepositAmount != nil {
			deposit = *opts.DepositAmount
		}
		if deposit.IsNegative() {
			return 0, decimal.Zero, ierr.NewError("deposit amount must not be negative").Mark(ierr.ErrValidation)
		}
	}
	return time.Duration(hours) * time.Hour, deposit, nil
}

// countCampaignOffer bumps the campaign's sent counter; the offer must belong to an ACTIVE campaign of the same cohort.
func (s *service) countCampaignOffer(ctx context.Context, campaignID uuid.UUID, scope domain.Scope) error {
	campaign, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return err
	}
	if campaign.Status != domain.CampaignStatusActive {
		return ierr.NewErrorf("campaign is %s", campaign.Status).Mark(ierr.ErrInvalidState)
	}
	if !campaign.Scope().Equal(scope) {
		return ierr.NewError("entry is not in the campaign's cohort").Mark(ierr.ErrInvalidState)
	}
	campaign.TotalOffersSent++
	campaign.UpdatedAt = s.clock.Now()
	return s.campaigns.Update(ctx, campaign)
}

func (s *service) GetOffer(ctx context.Context, id uuid.UUID) (*domain.WaitlistOffer, error) {
	return s.offers.Get(ctx, id)
}

func (s *service) ListOffers(ctx context.Context, filter repository.OfferFilter) ([]*domain.WaitlistOffer, error) {
	return s.offers.List(ctx, filter)
}
