package audit

import (
	"net/http"

	"carequeue/internal/domain"
	"carequeue/internal/repository"
	ierr "carequeue/internal/shared/errors"
	"carequeue/internal/shared/middleware"
	"carequeue/internal/shared/utils/request"
	"carequeue/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const maxListLimit = 500

type Controller struct {
	recorder *Recorder
}

func NewController(recorder *Recorder) *Controller {
	return &Controller{recorder: recorder}
}

// ListLogs handles GET /provider/audit?daycare_id=&entity_id=&action=&limit=
func (c *Controller) ListLogs(ctx *gin.Context) {
	daycareID, err := request.OptionalUUIDQuery(ctx, "daycare_id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	entityID, err := request.OptionalUUIDQuery(ctx, "entity_id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	if daycareID == nil && entityID == nil {
		response.RespondError(ctx, ierr.NewError("daycare_id or entity_id is required").
			WithHint("Filter the audit trail by daycare or by entity").
			Mark(ierr.ErrValidation))
		return
	}
	limit, err := request.IntQuery(ctx, "limit", 100)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	filter := repository.AuditFilter{
		DaycareID: daycareID,
		EntityID:  entityID,
		Limit:     lo.Clamp(limit, 1, maxListLimit),
		Actions: lo.Map(ctx.QueryArray("action"), func(a string, _ int) domain.AuditAction {
			return domain.AuditAction(a)
		}),
	}

	logs, err := c.recorder.List(ctx.Request.Context(), filter)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Audit logs retrieved", logs)
}

func SetupAuditRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	provider := rg.Group("/provider/audit")
	provider.Use(auth, middleware.RequireRoles(middleware.RoleProvider, middleware.RoleAdmin))
	{
		provider.GET("", controller.ListLogs)
	}
}
