package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/interacthq/interaction-server-go/internal/config"
)

func TestBodyLimitMiddleware(t *testing.T) {
	t.Run("rejects oversized declared length", func(t *testing.T) {
		m := NewBodyLimitMiddleware(16)
		h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not run")
		}))

		req := httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(strings.Repeat("x", 64)))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("passes bodies within the cap", func(t *testing.T) {
		m := NewBodyLimitMiddleware(64)
		called := false
		h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		req := httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(`{"title":"ok"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("zero falls back to the configured cap", func(t *testing.T) {
		m := NewBodyLimitMiddleware(0)
		assert.Equal(t, config.MaxRequestBodyBytes, m.maxSize)
	})
}
