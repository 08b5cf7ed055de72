package capacity

import (
	"net/http"

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

// CheckCapacity handles GET /provider/capacity?daycare_id=&program_id=&required_slots=
func (c *Controller) CheckCapacity(ctx *gin.Context) {
	scope, err := request.ScopeFromQuery(ctx)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	required, err := request.IntQuery(ctx, "required_slots", 1)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	status, err := c.service.CheckCapacity(ctx.Request.Context(), scope, required)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Capacity retrieved", status)
}

func (c *Controller) SetCapacity(ctx *gin.Context) {
	var req SetCapacityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondValidation(ctx, err)
		return
	}

	actorID, _ := middleware.ActorID(ctx)
	row, err := c.service.SetCapacity(ctx.Request.Context(), req, actorID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Capacity updated", row)
}
