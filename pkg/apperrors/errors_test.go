package apperrors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_UnwrapAndMessage(t *testing.T) {
	root := errors.New("boom")
	err := NewExternalError("store unavailable", root)
	assert.ErrorIs(t, err, root)
	assert.Contains(t, err.Error(), "store unavailable")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, http.StatusBadGateway, err.StatusCode)
}

func TestAs_WrapsUnknownErrors(t *testing.T) {
	ae := As(errors.New("plain"))
	assert.Equal(t, ErrorTypeInternal, ae.Type)
	assert.Equal(t, http.StatusInternalServerError, ae.StatusCode)

	orig := NewConflictError("already verified", nil)
	assert.Same(t, orig, As(orig))
}

func TestWrite_RendersBody(t *testing.T) {
	g := gin.New()
	g.GET("/", func(c *gin.Context) {
		c.Set(RequestIDKey, "req-1")
		Write(c, NewValidationError("email is required", map[string]interface{}{"field": "email"}))
	})

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var got ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, ErrorTypeValidation, got.Error.Type)
	assert.Equal(t, "email is required", got.Error.Message)
	assert.Equal(t, "req-1", got.Error.RequestID)
	assert.Equal(t, "email", got.Error.Details["field"])
	assert.NotEmpty(t, got.Error.Timestamp)
}
