package campaigns

import (
	"context"
	"net/http"

	"carequeue/internal/domain"
	"carequeue/internal/repository"
	ierr "carequeue/internal/shared/errors"
	"carequeue/internal/shared/middleware"
	"carequeue/internal/shared/utils/request"
	"carequeue/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OfferReader resolves an offer's owner for parent-facing routes.
type OfferReader interface {
	GetOffer(ctx context.Context, id uuid.UUID) (*domain.WaitlistOffer, error)
}

type Controller struct {
	service Service
	offers  OfferReader
}

func NewController(service Service, offers OfferReader) *Controller {
	return &Controller{
		service: service,
		offers:  offers,
	}
}

func (c *Controller) CreateCampaign(ctx *gin.Context) {
	var req CreateCampaignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondValidation(ctx, err)
		return
	}

	actorID, _ := middleware.ActorID(ctx)
	campaign, err := c.service.CreateCampaign(ctx.Request.Context(), req, actorID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusCreated, "Campaign created", campaign)
}

// ExecuteCampaign handles POST /provider/campaigns/:campaign_id/execute. The body is optional.
func (c *Controller) ExecuteCampaign(ctx *gin.Context) {
	id, err := request.UUIDParam(ctx, "campaign_id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	var req ExecuteRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondValidation(ctx, err)
			return
		}
	}
	if dryRun, err := request.BoolQuery(ctx, "dry_run", false); err != nil {
		response.RespondError(ctx, err)
		return
	} else if dryRun {
		req.DryRun = true
	}

	actorID, _ := middleware.ActorID(ctx)
	result, err := c.service.ExecuteCampaign(ctx.Request.Context(), id, ExecuteOptions{PerformedBy: actorID, DryRun: req.DryRun})
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	message := "Campaign executed"
	if result.DryRun {
		message = "Campaign dry run"
	}
	response.RespondSuccess(ctx, http.StatusOK, message, result)
}

func (c *Controller) CancelCampaign(ctx *gin.Context) {
	id, err := request.UUIDParam(ctx, "campaign_id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	actorID, _ := middleware.ActorID(ctx)
	campaign, err := c.service.CancelCampaign(ctx.Request.Context(), id, actorID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Campaign cancelled", campaign)
}

func (c *Controller) GetCampaign(ctx *gin.Context) {
	id, err := request.UUIDParam(ctx, "campaign_id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	detail, err := c.service.GetCampaign(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Campaign retrieved", detail)
}

// ListCampaigns handles GET /provider/campaigns?daycare_id=&program_id=&status=&limit=&offset=
func (c *Controller) ListCampaigns(ctx *gin.Context) {
	scope, err := request.ScopeFromQuery(ctx)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	limit, err := request.IntQuery(ctx, "limit", 50)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	offset, err := request.IntQuery(ctx, "offset", 0)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	filter := repository.CampaignFilter{Limit: limit, Offset: offset}
	if scope.ProgramID != nil {
		filter.Scope = &scope
	} else {
		filter.DaycareID = &scope.DaycareID
	}
	if status := domain.CampaignStatus(ctx.Query("status")); status != "" {
		if !status.IsValid() {
			response.RespondError(ctx, ierr.NewErrorf("invalid status %q", status).Mark(ierr.ErrValidation))
			return
		}
		filter.Statuses = []domain.CampaignStatus{status}
	}

	list, err := c.service.ListCampaigns(ctx.Request.Context(), filter)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Campaigns retrieved", list)
}

// RespondToOffer lets a parent answer their own offer. Providers and admins may answer on their behalf.
func (c *Controller) RespondToOffer(ctx *gin.Context) {
	offerID, err := request.UUIDParam(ctx, "offer_id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	var req RespondToOfferRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondValidation(ctx, err)
		return
	}

	actorID, _ := middleware.ActorID(ctx)
	if role, _ := middleware.ActorRole(ctx); role == middleware.RoleParent {
		offer, err := c.offers.GetOffer(ctx.Request.Context(), offerID)
		if err != nil {
			response.RespondError(ctx, err)
			return
		}
		if offer.ParentID != actorID {
			response.RespondError(ctx, ierr.NewError("offer not found").Mark(ierr.ErrNotFound))
			return
		}
	}

	result, err := c.service.RespondToOffer(ctx.Request.Context(), offerID, req, actorID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Response recorded", result)
}
