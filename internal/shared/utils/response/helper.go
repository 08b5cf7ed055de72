package response

import (
	"net/http"

	ierr "carequeue/internal/shared/errors"
	"carequeue/pkg/logger"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

func RespondSuccess(c *gin.Context, code int, message string, data interface{}) {
	RespondJSON(c, "success", code, message, data, nil)
}

// RespondError maps err onto its HTTP status and writes the error envelope.
func RespondError(c *gin.Context, err error) {
	code := ierr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		logger.GetDefault().LogHTTPError(c, err, code)
	}

	details := ErrorDetails{Kind: ierr.Kind(err), Hint: ierr.Hint(err), Details: ierr.Details(err)}
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "Internal server error"
	}
	RespondJSON(c, "error", code, message, nil, details)
}

// RespondValidation reports a request binding failure.
func RespondValidation(c *gin.Context, err error) {
	RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, ErrorDetails{
		Kind: "validation",
		Hint: err.Error(),
	})
}
