package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/interacthq/interaction-server-go/internal/errors"
	"github.com/interacthq/interaction-server-go/internal/httputil"
)

// Scoped handlers answer 401 instead of panicking when a route is
// mounted outside the auth middleware.
func TestHandlersRequireScope(t *testing.T) {
	assertUnauthorized := func(t *testing.T, rec *httptest.ResponseRecorder) {
		t.Helper()
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var body httputil.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, apperrors.ErrCodeUnauthorized, body.Error.Code)
	}

	t.Run("site create", func(t *testing.T) {
		h := NewSiteHandler(nil)
		req := httptest.NewRequest(http.MethodPost, "/sites", strings.NewReader(`{"name":"North"}`))
		rec := httptest.NewRecorder()

		h.Create(rec, req)
		assertUnauthorized(t, rec)
	})

	t.Run("interaction create", func(t *testing.T) {
		h := NewInteractionHandler(nil)
		req := httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		h.Create(rec, req)
		assertUnauthorized(t, rec)
	})

	t.Run("current user", func(t *testing.T) {
		h := NewAuthHandler(nil, 0, false)
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		rec := httptest.NewRecorder()

		h.Me(rec, req)
		assertUnauthorized(t, rec)
	})
}
