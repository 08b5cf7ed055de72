package offers

import (
	"net/http"
	"time"

	ierr "carequeue/internal/shared/errors"
	"carequeue/internal/shared/middleware"
	"carequeue/internal/shared/utils/request"
	"carequeue/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{
		service: service,
	}
}

// ListCandidates handles GET /provider/waitlist/candidates?daycare_id=&program_id=&as_of=
func (c *Controller) ListCandidates(ctx *gin.Context) {
	scope, err := request.ScopeFromQuery(ctx)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	var asOf time.Time
	if raw := ctx.Query("as_of"); raw != "" {
		asOf, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			response.RespondError(ctx, ierr.NewError("invalid as_of").
				WithHint("Use an RFC 3339 timestamp").
				Mark(ierr.ErrValidation))
			return
		}
	}

	candidates, err := c.service.RankWaitlistCandidates(ctx.Request.Context(), scope, asOf)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Candidates retrieved", candidates)
}

func (c *Controller) CreateOffer(ctx *gin.Context) {
	var req CreateOfferRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondValidation(ctx, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.RespondError(ctx, err)
		return
	}

	actorID, _ := middleware.ActorID(ctx)
	offer, err := c.service.CreateOffer(ctx.Request.Context(), req.EntryID, req.SpotStartDate, req.Options(), actorID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusCreated, "Offer sent", offer)
}

// GetOffer lets a parent read their own offer; providers and admins read any.
func (c *Controller) GetOffer(ctx *gin.Context) {
	offerID, err := request.UUIDParam(ctx, "offer_id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	offer, err := c.service.GetOffer(ctx.Request.Context(), offerID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	if role, _ := middleware.ActorRole(ctx); role == middleware.RoleParent {
		if actorID, _ := middleware.ActorID(ctx); actorID != offer.ParentID {
			response.RespondError(ctx, ierr.NewError("offer not found").Mark(ierr.ErrNotFound))
			return
		}
	}

	response.RespondSuccess(ctx, http.StatusOK, "Offer retrieved", offer)
}

func (c *Controller) CleanupExpired(ctx *gin.Context) {
	result, err := c.service.HandleExpiredOffers(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Expired offers processed", result)
}

func (c *Controller) SendReminders(ctx *gin.Context) {
	result, err := c.service.SendOfferReminders(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Reminders sent", result)
}
