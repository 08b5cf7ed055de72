package offers

import (
	"context"

	"carequeue/internal/audit"
	"carequeue/internal/capacity"
	"carequeue/internal/domain"
	ierr "carequeue/internal/shared/errors"
)

func (s *service) ProcessOfferResponse(ctx context.Context, req RespondRequest) (*ResponseResult, error) {
	var result *ResponseResult
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.ApplyResponse(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.PublishResponse(ctx, result)
	return result, nil
}

func (s *service) ApplyResponse(ctx context.Context, req RespondRequest) (*ResponseResult, error) {
	if req.Response != domain.OfferResponseAccepted && req.Response != domain.OfferResponseDeclined {
		return nil, ierr.NewErrorf("response must be ACCEPTED or DECLINED, got %q", req.Response).
			WithHint("Use ACCEPTED or DECLINED").
			Mark(ierr.ErrValidation)
	}

	offer, err := s.offers.Get(ctx, req.OfferID)
	if err != nil {
		return nil, err
	}
	if _, err := s.capacity.LockScope(ctx, offer.Scope()); err != nil {
		return nil, err
	}
	offer, err = s.offers.Get(ctx, req.OfferID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if offer.Response != domain.OfferResponsePending {
		return nil, ierr.NewErrorf("offer was already %s", offer.Response).
			WithReportableDetails(map[string]interface{}{"offer_id": offer.ID, "response": offer.Response}).
			Mark(ierr.ErrInvalidState)
	}
	if offer.IsExpired(now) {
		return nil, ierr.NewError("offer has expired").
			WithReportableDetails(map[string]interface{}{"offer_id": offer.ID, "offer_expires_at": offer.OfferExpiresAt}).
			Mark(ierr.ErrInvalidState)
	}

	entry, err := s.entries.Get(ctx, offer.EntryID)
	if err != nil {
		return nil, err
	}
	beforeOffer, beforeEntry := *offer, *entry
	result := &ResponseResult{Offer: offer, Entry: entry}

	if req.DepositPaid {
		offer.DepositPaid = true
	}

	var action domain.AuditAction
	switch req.Response {
	case domain.OfferResponseAccepted:
		if offer.DepositRequired && !offer.DepositPaid {
			return nil, ierr.NewError("deposit must be paid before accepting").
				WithReportableDetails(map[string]interface{}{"deposit_amount": offer.DepositAmount.StringFixed(2)}).
				Mark(ierr.ErrInvalidState)
		}
		if err := transition(entry, domain.EntryStatusAccepted); err != nil {
			return nil, err
		}
		enrollment, err := s.capacity.ConvertToEnrollment(ctx, offer.ID, capacity.ConvertParams{})
		if err != nil {
			return nil, err
		}
		result.Enrollment = enrollment
		action = domain.AuditOfferAccepted

	case domain.OfferResponseDeclined:
		if err := transition(entry, domain.EntryStatusActive); err != nil {
			return nil, err
		}
		if err := s.capacity.ReleaseCapacity(ctx, offer.ID); err != nil {
			return nil, err
		}
		action = domain.AuditOfferDeclined
	}

	offer.Response = req.Response
	offer.RespondedAt = &now
	offer.ResponseNotes = req.Notes
	offer.UpdatedAt = now
	if err := s.offers.Update(ctx, offer); err != nil {
		return nil, err
	}
	entry.UpdatedAt = now
	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.recorder.Record(ctx, audit.Event{
		Action:      action,
		EntityType:  domain.EntityOffer,
		EntityID:    offer.ID,
		DaycareID:   offer.DaycareID,
		PerformedBy: audit.Actor(req.PerformedBy),
		Before:      map[string]interface{}{"offer": beforeOffer, "entry": beforeEntry},
		After:       map[string]interface{}{"offer": offer, "entry": entry},
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// PublishResponse reranks the cohort and notifies the family. Failures are logged only.
func (s *service) PublishResponse(ctx context.Context, result *ResponseResult) {
	if result == nil {
		return
	}
	offer := result.Offer
	s.log.LogOfferResponded(ctx, offer.ID.String(), string(offer.Response))

	if s.ranking != nil {
		if _, err := s.ranking.RecalculatePositions(ctx, offer.Scope(), nil); err != nil {
			s.log.ErrorWithContext(ctx, "recalculation after offer response failed", err, map[string]interface{}{
				"offer_id": offer.ID,
				"scope":    offer.Scope().String(),
			})
		}
	}
	s.notifier.OfferResponded(ctx, offer)
}

func transition(entry *domain.WaitlistEntry, target domain.EntryStatus) error {
	if !entry.Status.CanTransitionTo(target) {
		return ierr.NewErrorf("entry cannot move from %s to %s", entry.Status, target).
			WithReportableDetails(map[string]interface{}{"entry_id": entry.ID}).
			Mark(ierr.ErrInvalidState)
	}
	entry.Status = target
	return nil
}
