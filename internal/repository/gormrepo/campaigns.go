package gormrepo

import (
	"context"

	"carequeue/internal/domain"
	"carequeue/internal/repository"
	"carequeue/internal/shared/database"

	"github.com/google/uuid"
)

type campaignRepository struct {
	db *database.DB
}

func NewCampaignRepository(db *database.DB) repository.CampaignRepository {
	return &campaignRepository{db: db}
}

func (r *campaignRepository) Create(ctx context.Context, campaign *domain.WaitlistCampaign) error {
	ensureID(&campaign.ID)
	return translate(r.db.Conn(ctx).Create(campaign).Error, "campaign", campaign.ID)
}

func (r *campaignRepository) Get(ctx context.Context, id uuid.UUID) (*domain.WaitlistCampaign, error) {
	var campaign domain.WaitlistCampaign
	if err := r.db.Conn(ctx).Where("id = ?", id).First(&campaign).Error; err != nil {
		return nil, translate(err, "campaign", id)
	}
	return &campaign, nil
}

func (r *campaignRepository) Update(ctx context.Context, campaign *domain.WaitlistCampaign) error {
	return updateAll(r.db.Conn(ctx), campaign, "campaign", campaign.ID)
}

func (r *campaignRepository) List(ctx context.Context, filter repository.CampaignFilter) ([]*domain.WaitlistCampaign, error) {
	q := r.db.Conn(ctx).Model(&domain.WaitlistCampaign{})
	if filter.Scope != nil {
		q = whereScope(q, *filter.Scope)
	}
	if filter.DaycareID != nil {
		q = q.Where("daycare_id = ?", *filter.DaycareID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var campaigns []*domain.WaitlistCampaign
	if err := q.Order("created_at DESC, id ASC").Find(&campaigns).Error; err != nil {
		return nil, translate(err, "campaign", nil)
	}
	return campaigns, nil
}
