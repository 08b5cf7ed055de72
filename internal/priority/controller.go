package priority

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

func (c *Controller) CreateRule(ctx *gin.Context) {
	var req CreateRuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondValidation(ctx, err)
		return
	}

	actorID, _ := middleware.ActorID(ctx)
	rule, err := c.service.CreateRule(ctx.Request.Context(), req, actorID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusCreated, "Priority rule created", rule)
}

func (c *Controller) UpdateRule(ctx *gin.Context) {
	ruleID, err := request.UUIDParam(ctx, "rule_id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	var req UpdateRuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondValidation(ctx, err)
		return
	}

	actorID, _ := middleware.ActorID(ctx)
	rule, err := c.service.UpdateRule(ctx.Request.Context(), ruleID, req, actorID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Priority rule updated", rule)
}

// ListRules handles GET /provider/priority-rules?daycare_id=&program_id=&active_only=
func (c *Controller) ListRules(ctx *gin.Context) {
	scope, err := request.ScopeFromQuery(ctx)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	activeOnly, err := request.BoolQuery(ctx, "active_only", false)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	list := c.service.ListRules
	if activeOnly {
		list = c.service.ActiveRules
	}
	rules, err := list(ctx.Request.Context(), scope)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Priority rules retrieved", rules)
}

func (c *Controller) PreviewEntry(ctx *gin.Context) {
	var req PreviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondValidation(ctx, err)
		return
	}

	eval, err := c.service.PreviewEntry(ctx.Request.Context(), req.EntryID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Score preview", eval)
}
