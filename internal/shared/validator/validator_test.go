package validator

import (
	"testing"

	ierr "carequeue/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Spots int    `json:"spots_available" validate:"min=1"`
}

func TestValidateRequest(t *testing.T) {
	require.NoError(t, ValidateRequest(&sample{Name: "x", Spots: 1}))

	err := ValidateRequest(&sample{})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	details := ierr.Details(err)
	assert.Equal(t, "is required", details["name"])
	assert.Equal(t, "must be at least 1", details["spots_available"])
}
