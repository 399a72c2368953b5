package middleware

import (
	"github.com/go-playground/validator/v10"

	"github.com/emre/eventhub/internal/app/models/dto"
)

// FormatValidationErrors converts validator errors from request binding
// into the standard error detail, naming the first offending field.
func FormatValidationErrors(err error) *dto.ErrorDetail {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		first := validationErrs[0]
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, formatValidationError(first))
		return errorDetail.WithField(first.Field())
	}

	errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid request format")
	return errorDetail.WithDetails(err.Error())
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return e.Field() + " must be a valid email address"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "gt":
		return e.Field() + " must be greater than " + e.Param()
	default:
		return e.Field() + " is invalid"
	}
}
