package capacity

import (
	"context"
	"time"

	"carequeue/internal/audit"
	"carequeue/internal/domain"
	"carequeue/internal/repository"
	ierr "carequeue/internal/shared/errors"

	"github.com/google/uuid"
)

// CleanupExpiredOffers expires pending offers past their deadline and frees
// reservations that outlived their offer. Each offer is handled in its own
// transaction and re-read under the cohort lock, so overlapping sweeps never
// process an offer twice.
func (s *service) CleanupExpiredOffers(ctx context.Context) (*CleanupResult, error) {
	start := s.clock.Now()
	result := &CleanupResult{}

	due, err := s.offers.List(ctx, repository.OfferFilter{
		Responses:         []domain.OfferResponse{domain.OfferResponsePending},
		ExpiresAtOrBefore: &start,
		Limit:             s.opts.SweepBatchSize,
	})
	if err != nil {
		return nil, err
	}

	for _, candidate := range due {
		expired, err := s.expireOffer(ctx, candidate.ID)
		if err != nil {
			s.log.ErrorWithContext(ctx, "failed to expire offer", err, map[string]interface{}{"offer_id": candidate.ID})
			result.Errors = append(result.Errors, itemError(candidate.ID, err))
			continue
		}
		if expired != nil {
			result.ReleasedCount++
			result.Expired = append(result.Expired, expired)
		}
	}

	stale, err := s.capacity.ListReservations(ctx, repository.ReservationFilter{
		Statuses:          []domain.ReservationStatus{domain.ReservationStatusReserved},
		ExpiresAtOrBefore: &start,
		Limit:             s.opts.SweepBatchSize,
	})
	if err != nil {
		return result, err
	}
	for _, res := range stale {
		released, err := s.releaseOrphan(ctx, res)
		if err != nil {
			result.Errors = append(result.Errors, itemError(res.OfferID, err))
			continue
		}
		if released {
			result.StaleReservationsReleased++
		}
	}

	s.log.LogSweep(ctx, "cleanup_expired_offers", result.ReleasedCount+result.StaleReservationsReleased, time.Since(start), nil)
	return result, nil
}

// expireOffer returns the expired offer, or nil when another sweep or a response got there first.
func (s *service) expireOffer(ctx context.Context, offerID uuid.UUID) (*domain.WaitlistOffer, error) {
	var expired *domain.WaitlistOffer
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		offer, err := s.offers.Get(ctx, offerID)
		if err != nil {
			return err
		}
		if _, err := s.LockScope(ctx, offer.Scope()); err != nil {
			return err
		}
		offer, err = s.offers.Get(ctx, offerID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if offer.Response != domain.OfferResponsePending || !offer.IsExpired(now) {
			return nil
		}

		before := *offer
		offer.Response = domain.OfferResponseExpired
		offer.UpdatedAt = now
		if err := s.offers.Update(ctx, offer); err != nil {
			return err
		}
		if _, err := s.release(ctx, offer.ID); err != nil {
			return err
		}

		entry, err := s.entries.Get(ctx, offer.EntryID)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if entry != nil && entry.Status == domain.EntryStatusOffered {
			entry.Status = domain.EntryStatusActive
			entry.UpdatedAt = now
			if err := s.entries.Update(ctx, entry); err != nil {
				return err
			}
		}

		if err := s.recorder.Record(ctx, audit.Event{
			Action:     domain.AuditOfferExpired,
			EntityType: domain.EntityOffer,
			EntityID:   offer.ID,
			DaycareID:  offer.DaycareID,
			Before:     before,
			After:      offer,
		}); err != nil {
			return err
		}
		expired = offer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// releaseOrphan frees a lapsed reservation whose offer is no longer pending.
// Pending offers are left to expireOffer so the entry is reverted with them.
func (s *service) releaseOrphan(ctx context.Context, res *domain.CapacityReservation) (bool, error) {
	offer, err := s.offers.Get(ctx, res.OfferID)
	if err != nil && !ierr.IsNotFound(err) {
		return false, err
	}
	if offer != nil && offer.Response == domain.OfferResponsePending {
		return false, nil
	}
	return s.release(ctx, res.OfferID)
}

func itemError(id uuid.UUID, err error) ItemError {
	return ItemError{ID: id, Error: err.Error(), Kind: ierr.Kind(err)}
}
