// Package validator runs go-playground struct validation and reports failures
// as ierr validation errors.
package validator

import (
	"reflect"
	"strings"
	"sync"

	ierr "carequeue/internal/shared/errors"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// ValidateRequest validates req against its `validate` tags.
func ValidateRequest(req interface{}) error {
	err := instance().Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ierr.WithError(err).
			WithHint("Request could not be validated").
			Mark(ierr.ErrValidation)
	}

	details := make(map[string]interface{}, len(fieldErrs))
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = describe(fe)
		fields = append(fields, fe.Field())
	}
	return ierr.NewErrorf("invalid request: %s", strings.Join(fields, ", ")).
		WithHint("Check the highlighted fields and try again").
		WithReportableDetails(details).
		Mark(ierr.ErrValidation)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid", "uuid4":
		return "must be a valid UUID"
	default:
		return "failed on " + fe.Tag()
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
