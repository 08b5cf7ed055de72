package offers

import (
	"context"
	"time"

	"carequeue/internal/capacity"
	"carequeue/internal/domain"
	"carequeue/internal/repository"
	ierr "carequeue/internal/shared/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// HandleExpiredOffers expires lapsed offers, then settles what depends on them:
// campaign counters, cohort positions, family notices and campaign follow-ups.
func (s *service) HandleExpiredOffers(ctx context.Context) (*ExpirationResult, error) {
	cleanup, err := s.capacity.CleanupExpiredOffers(ctx)
	if err != nil && cleanup == nil {
		return nil, err
	}
	result := &ExpirationResult{Cleanup: cleanup}
	if err != nil {
		s.log.ErrorWithContext(ctx, "expiration sweep ended early", err, nil)
	}

	for _, offer := range cleanup.Expired {
		s.notifier.OfferExpired(ctx, offer)
	}

	byCampaign := lo.GroupBy(lo.Filter(cleanup.Expired, func(o *domain.WaitlistOffer, _ int) bool {
		return o.CampaignID != nil
	}), func(o *domain.WaitlistOffer) uuid.UUID {
		return *o.CampaignID
	})
	for campaignID, expired := range byCampaign {
		if err := s.countExpired(ctx, campaignID, len(expired)); err != nil {
			result.Errors = append(result.Errors, itemError(campaignID, err))
			continue
		}
		result.CampaignsUpdated++
	}

	scopes := lo.UniqBy(lo.Map(cleanup.Expired, func(o *domain.WaitlistOffer, _ int) domain.Scope {
		return o.Scope()
	}), domain.Scope.Key)
	if s.ranking != nil {
		for _, scope := range scopes {
			if _, err := s.ranking.RecalculatePositions(ctx, scope, nil); err != nil {
				s.log.ErrorWithContext(ctx, "recalculation after expiry failed", err, map[string]interface{}{"scope": scope.String()})
				result.Errors = append(result.Errors, itemError(scope.DaycareID, err))
				continue
			}
			result.CohortsRecalculated++
		}
	}

	if s.followUp != nil {
		for campaignID := range byCampaign {
			campaign, err := s.campaigns.Get(ctx, campaignID)
			if err != nil {
				result.Errors = append(result.Errors, itemError(campaignID, err))
				continue
			}
			if campaign.Status != domain.CampaignStatusActive || campaign.SpotsRemaining <= 0 {
				continue
			}
			if err := s.followUp.ContinueCampaign(ctx, campaignID); err != nil {
				s.log.ErrorWithContext(ctx, "campaign follow-up failed", err, map[string]interface{}{"campaign_id": campaignID})
				result.Errors = append(result.Errors, itemError(campaignID, err))
				continue
			}
			result.FollowUpsTriggered++
		}
	}

	return result, nil
}

func (s *service) countExpired(ctx context.Context, campaignID uuid.UUID, n int) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		campaign, err := s.campaigns.Get(ctx, campaignID)
		if err != nil {
			return err
		}
		campaign.TotalExpired += n
		campaign.UpdatedAt = s.clock.Now()
		return s.campaigns.Update(ctx, campaign)
	})
}

// SendOfferReminders nudges families whose pending offer closes within the lead time.
// An offer is marked reminded only after its notification went out.
func (s *service) SendOfferReminders(ctx context.Context) (*ReminderResult, error) {
	start := s.clock.Now()
	horizon := start.Add(s.opts.ReminderLeadTime)

	due, err := s.offers.List(ctx, repository.OfferFilter{
		Responses:         []domain.OfferResponse{domain.OfferResponsePending},
		ExpiresAfter:      &start,
		ExpiresAtOrBefore: &horizon,
		WithoutReminder:   true,
		Limit:             s.opts.SweepBatchSize,
	})
	if err != nil {
		return nil, err
	}

	result := &ReminderResult{}
	for _, offer := range due {
		if err := s.notifier.OfferReminder(ctx, offer); err != nil {
			result.Errors = append(result.Errors, itemError(offer.ID, err))
			continue
		}
		if err := s.markReminded(ctx, offer.ID); err != nil {
			result.Errors = append(result.Errors, itemError(offer.ID, err))
			continue
		}
		result.Sent++
	}

	s.log.LogSweep(ctx, "send_offer_reminders", result.Sent, time.Since(start), nil)
	return result, nil
}

func (s *service) markReminded(ctx context.Context, offerID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		offer, err := s.offers.Get(ctx, offerID)
		if err != nil {
			return err
		}
		if offer.Response != domain.OfferResponsePending || offer.ReminderSentAt != nil {
			return nil
		}
		now := s.clock.Now()
		offer.ReminderSentAt = &now
		offer.UpdatedAt = now
		return s.offers.Update(ctx, offer)
	})
}

func itemError(id uuid.UUID, err error) capacity.ItemError {
	return capacity.ItemError{ID: id, Error: err.Error(), Kind: ierr.Kind(err)}
}
