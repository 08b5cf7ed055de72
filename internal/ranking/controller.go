package ranking

import (
	"net/http"

	"carequeue/internal/audit"
	"carequeue/internal/domain"
	"carequeue/internal/shared/middleware"
	"carequeue/internal/shared/utils/response"
	"carequeue/internal/shared/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RecalculateRequest struct {
	DaycareID uuid.UUID  `json:"daycare_id" validate:"required"`
	ProgramID *uuid.UUID `json:"program_id,omitempty"`
}

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{
		service: service,
	}
}

func (c *Controller) Recalculate(ctx *gin.Context) {
	var req RecalculateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondValidation(ctx, err)
		return
	}
	if err := validator.ValidateRequest(&req); err != nil {
		response.RespondError(ctx, err)
		return
	}

	actorID, _ := middleware.ActorID(ctx)
	result, err := c.service.RecalculatePositions(ctx.Request.Context(), domain.NewScope(req.DaycareID, req.ProgramID), audit.Actor(actorID))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Positions recalculated", result)
}
