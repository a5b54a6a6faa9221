package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := map[Kind]int{
		KindContractViolation: http.StatusBadRequest,
		KindDomainValidation:  http.StatusUnprocessableEntity,
		KindUnauthorized:      http.StatusUnauthorized,
		KindPermissionDenied:  http.StatusForbidden,
		KindNotFound:          http.StatusNotFound,
		KindConflict:          http.StatusConflict,
		KindInternal:          http.StatusInternalServerError,
		Kind("bogus"):         http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, StatusFor(kind), kind)
	}
}

func TestWrapKeepsSentinelIdentity(t *testing.T) {
	sentinel := NewDomainError(KindConflict, "duplicate entry")
	err := fmt.Errorf("create entry: %w", Wrap(sentinel, "date %s", "2026-01-15"))

	assert.True(t, stderrors.Is(err, sentinel))
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindConflict, kind)
	assert.Contains(t, err.Error(), "duplicate entry: date 2026-01-15")
}

func TestRespondWithServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("domain error uses mapped status", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		RespondWithServiceError(c, nil, NewDomainError(KindPermissionDenied, "not yours"))

		require.Equal(t, http.StatusForbidden, w.Code)
		var body APIError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, ErrCodeForbidden, body.Code)
		assert.Equal(t, "not yours", body.Message)
	})

	t.Run("unexpected error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		RespondWithServiceError(c, nil, stderrors.New("boom"))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Internal server error", body["error"])
		assert.NotNil(t, body["details"])
	})
}
