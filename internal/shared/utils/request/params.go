// Package request parses path and query parameters shared by the controllers.
package request

import (
	"strconv"
	"strings"

	"carequeue/internal/domain"
	ierr "carequeue/internal/shared/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UUIDParam parses the named path parameter.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, ierr.NewErrorf("invalid %s", name).
			WithHint("Path parameter must be a UUID").
			Mark(ierr.ErrValidation)
	}
	return id, nil
}

// OptionalUUIDQuery parses the named query parameter, nil when absent.
func OptionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, ierr.NewErrorf("invalid %s", name).
			WithHint("Query parameter must be a UUID").
			Mark(ierr.ErrValidation)
	}
	return &id, nil
}

// ScopeFromQuery reads daycare_id (required) and program_id (optional).
func ScopeFromQuery(c *gin.Context) (domain.Scope, error) {
	daycareID, err := OptionalUUIDQuery(c, "daycare_id")
	if err != nil {
		return domain.Scope{}, err
	}
	if daycareID == nil {
		return domain.Scope{}, ierr.NewError("daycare_id is required").
			WithHint("Pass daycare_id as a query parameter").
			Mark(ierr.ErrValidation)
	}
	programID, err := OptionalUUIDQuery(c, "program_id")
	if err != nil {
		return domain.Scope{}, err
	}
	return domain.NewScope(*daycareID, programID), nil
}

// IntQuery parses the named query parameter, def when absent.
func IntQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ierr.NewErrorf("invalid %s", name).
			WithHint("Query parameter must be an integer").
			Mark(ierr.ErrValidation)
	}
	return v, nil
}

// BoolQuery parses the named query parameter, def when absent.
func BoolQuery(c *gin.Context, name string, def bool) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, ierr.NewErrorf("invalid %s", name).
			WithHint("Query parameter must be true or false").
			Mark(ierr.ErrValidation)
	}
	return v, nil
}
