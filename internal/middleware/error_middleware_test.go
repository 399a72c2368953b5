package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emre/eventhub/internal/app/models/dto"
	"github.com/emre/eventhub/internal/pkg/apperrors"
)

func respond(t *testing.T, err error) (int, *dto.ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleAPIError(ctx, err)

	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return recorder.Code, &body
}

func TestHandleAPIError(t *testing.T) {
	t.Run("eligibility denial surfaces the reason", func(t *testing.T) {
		code, body := respond(t, apperrors.NewEligibilityError(apperrors.ReasonEventFull))

		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, body.Error)
		assert.Equal(t, dto.ErrorCodeEligibilityDenied, body.Error.Code)
		assert.Equal(t, string(apperrors.ReasonEventFull), body.Error.Reason)
	})

	t.Run("validation error carries the field", func(t *testing.T) {
		code, body := respond(t, apperrors.NewValidationError("time", "time must be in HH:MM format"))

		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, body.Error)
		assert.Equal(t, dto.ErrorCodeValidationFailed, body.Error.Code)
		assert.Equal(t, "time", body.Error.Field)
	})

	t.Run("not found", func(t *testing.T) {
		code, body := respond(t, apperrors.NewResourceNotFoundError("Event not found"))

		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, dto.ErrorCodeResourceNotFound, body.Error.Code)
	})

	t.Run("permission denied", func(t *testing.T) {
		code, body := respond(t, apperrors.ErrPermissionDenied)

		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, dto.ErrorCodeForbidden, body.Error.Code)
	})

	t.Run("conflict", func(t *testing.T) {
		code, body := respond(t, apperrors.ErrConflict)

		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, dto.ErrorCodeConflict, body.Error.Code)
	})

	t.Run("unknown errors stay opaque", func(t *testing.T) {
		code, body := respond(t, errors.New("pool exhausted"))

		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, dto.ErrorCodeInternalServer, body.Error.Code)
		assert.NotContains(t, body.Error.Message, "pool")
	})
}
