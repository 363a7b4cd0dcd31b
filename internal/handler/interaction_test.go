package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/interacthq/interaction-server-go/internal/errors"
	"github.com/interacthq/interaction-server-go/internal/service"
)

func TestParseFilters(t *testing.T) {
	t.Run("reads all query filters", func(t *testing.T) {
		r := httptest.NewRequest("GET",
			"/interactions?title=review&type=Meeting&lead=Alice&search=budget"+
				"&start_after=2026-03-01T00:00:00Z&start_before=2026-04-01T00:00:00Z", nil)

		filters, err := parseFilters(r)
		require.NoError(t, err)
		assert.Equal(t, "review", filters.Title)
		assert.Equal(t, "Meeting", filters.Type)
		assert.Equal(t, "Alice", filters.Lead)
		assert.Equal(t, "budget", filters.Search)
		require.NotNil(t, filters.StartAfter)
		require.NotNil(t, filters.StartBefore)
		assert.True(t, filters.StartAfter.Before(*filters.StartBefore))
	})

	t.Run("rejects malformed timestamp", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/interactions?start_after=yesterday", nil)

		_, err := parseFilters(r)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("empty query yields empty filters", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/interactions", nil)

		filters, err := parseFilters(r)
		require.NoError(t, err)
		assert.Nil(t, filters.StartAfter)
		assert.Nil(t, filters.StartBefore)
		assert.Empty(t, filters.Search)
	})
}

func TestInteractionTypes(t *testing.T) {
	h := NewInteractionHandler(service.NewInteractionService(nil))

	r := httptest.NewRequest("GET", "/interactions/types", nil)
	rec := httptest.NewRecorder()
	h.Types(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Types []string `json:"types"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Types, "Meeting")
	assert.Contains(t, body.Types, "Other")
	assert.Len(t, body.Types, 10)
}
