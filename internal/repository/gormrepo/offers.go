package gormrepo

import (
	"context"

	"carequeue/internal/domain"
	"carequeue/internal/repository"
	"carequeue/internal/shared/database"

	"github.com/google/uuid"
)

type offerRepository struct {
	db *database.DB
}

func NewOfferRepository(db *database.DB) repository.OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Create(ctx context.Context, offer *domain.WaitlistOffer) error {
	ensureID(&offer.ID)
	return translate(r.db.Conn(ctx).Create(offer).Error, "waitlist offer", offer.ID)
}

func (r *offerRepository) Get(ctx context.Context, id uuid.UUID) (*domain.WaitlistOffer, error) {
	var offer domain.WaitlistOffer
	if err := r.db.Conn(ctx).Where("id = ?", id).First(&offer).Error; err != nil {
		return nil, translate(err, "waitlist offer", id)
	}
	return &offer, nil
}

func (r *offerRepository) Update(ctx context.Context, offer *domain.WaitlistOffer) error {
	return updateAll(r.db.Conn(ctx), offer, "waitlist offer", offer.ID)
}

func (r *offerRepository) List(ctx context.Context, filter repository.OfferFilter) ([]*domain.WaitlistOffer, error) {
	q := r.db.Conn(ctx).Model(&domain.WaitlistOffer{})
	if filter.Scope != nil {
		q = whereScope(q, *filter.Scope)
	}
	if filter.EntryID != nil {
		q = q.Where("entry_id = ?", *filter.EntryID)
	}
	if filter.CampaignID != nil {
		q = q.Where("campaign_id = ?", *filter.CampaignID)
	}
	if len(filter.Responses) > 0 {
		q = q.Where("response IN ?", filter.Responses)
	}
	if filter.ExpiresAtOrBefore != nil {
		q = q.Where("offer_expires_at <= ?", *filter.ExpiresAtOrBefore)
	}
	if filter.ExpiresAfter != nil {
		q = q.Where("offer_expires_at > ?", *filter.ExpiresAfter)
	}
	if filter.CreatedAfter != nil {
		q = q.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.WithoutReminder {
		q = q.Where("reminder_sent_at IS NULL")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var offers []*domain.WaitlistOffer
	if err := q.Order("offer_expires_at ASC, id ASC").Find(&offers).Error; err != nil {
		return nil, translate(err, "waitlist offer", nil)
	}
	return offers, nil
}
