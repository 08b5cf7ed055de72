package waitlist

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

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{
		service: service,
	}
}

func (c *Controller) JoinWaitlist(ctx *gin.Context) {
	var req JoinWaitlistRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondValidation(ctx, err)
		return
	}

	parentID, _ := middleware.ActorID(ctx)
	status, err := c.service.JoinWaitlist(ctx.Request.Context(), parentID, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusCreated, "Successfully joined waitlist", status)
}

func (c *Controller) GetEntryStatus(ctx *gin.Context) {
	entryID, ok := c.authorizeEntry(ctx)
	if !ok {
		return
	}

	status, err := c.service.GetEntryStatus(ctx.Request.Context(), entryID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Waitlist status retrieved", status)
}

func (c *Controller) PauseEntry(ctx *gin.Context) {
	c.transition(ctx, c.service.PauseEntry, "Entry paused")
}

func (c *Controller) ResumeEntry(ctx *gin.Context) {
	c.transition(ctx, c.service.ResumeEntry, "Entry resumed")
}

func (c *Controller) WithdrawEntry(ctx *gin.Context) {
	c.transition(ctx, c.service.WithdrawEntry, "Entry withdrawn")
}

type transitionFunc func(ctx context.Context, entryID, performedBy uuid.UUID) (*domain.WaitlistEntry, error)

func (c *Controller) transition(ctx *gin.Context, fn transitionFunc, message string) {
	entryID, ok := c.authorizeEntry(ctx)
	if !ok {
		return
	}

	actorID, _ := middleware.ActorID(ctx)
	entry, err := fn(ctx.Request.Context(), entryID, actorID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, message, entry)
}

func (c *Controller) MyEntries(ctx *gin.Context) {
	parentID, _ := middleware.ActorID(ctx)
	entries, err := c.service.ListEntries(ctx.Request.Context(), repository.EntryFilter{ParentID: &parentID})
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Waitlist entries retrieved", entries)
}

// ListEntries handles GET /provider/waitlist?daycare_id=&program_id=&status=&limit=&offset=
func (c *Controller) ListEntries(ctx *gin.Context) {
	scope, err := request.ScopeFromQuery(ctx)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	limit, err := request.IntQuery(ctx, "limit", 100)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	offset, err := request.IntQuery(ctx, "offset", 0)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	filter := repository.EntryFilter{Limit: limit, Offset: offset}
	if scope.ProgramID != nil {
		filter.Scope = &scope
	} else {
		filter.DaycareID = &scope.DaycareID
	}
	for _, raw := range ctx.QueryArray("status") {
		status := domain.EntryStatus(raw)
		if !status.IsValid() {
			response.RespondError(ctx, ierr.NewErrorf("invalid status %q", raw).Mark(ierr.ErrValidation))
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	entries, err := c.service.ListEntries(ctx.Request.Context(), filter)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Waitlist entries retrieved", entries)
}

func (c *Controller) UpdateEntry(ctx *gin.Context) {
	entryID, err := request.UUIDParam(ctx, "entry_id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	var req UpdateEntryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondValidation(ctx, err)
		return
	}

	actorID, _ := middleware.ActorID(ctx)
	entry, err := c.service.UpdateEntry(ctx.Request.Context(), entryID, req, actorID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Entry updated", entry)
}

// authorizeEntry resolves :entry_id; parents only see their own entries.
func (c *Controller) authorizeEntry(ctx *gin.Context) (uuid.UUID, bool) {
	entryID, err := request.UUIDParam(ctx, "entry_id")
	if err != nil {
		response.RespondError(ctx, err)
		return uuid.Nil, false
	}
	if role, _ := middleware.ActorRole(ctx); role != middleware.RoleParent {
		return entryID, true
	}

	entry, err := c.service.GetEntry(ctx.Request.Context(), entryID)
	if err != nil {
		response.RespondError(ctx, err)
		return uuid.Nil, false
	}
	if actorID, _ := middleware.ActorID(ctx); entry.ParentID != actorID {
		response.RespondError(ctx, ierr.NewError("waitlist entry not found").Mark(ierr.ErrNotFound))
		return uuid.Nil, false
	}
	return entryID, true
}
