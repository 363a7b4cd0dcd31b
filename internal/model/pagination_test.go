package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPage(t *testing.T) {
	t.Run("empty result", func(t *testing.T) {
		p := NewPage[string](nil, 0, 1, 25)

		assert.Equal(t, []string{}, p.Items)
		assert.Equal(t, 0, p.Total)
		assert.Equal(t, 0, p.TotalPages)
		assert.False(t, p.HasNext)
		assert.False(t, p.HasPrev)
	})

	t.Run("total is an exact multiple of page size", func(t *testing.T) {
		p := NewPage([]string{"a", "b"}, 50, 2, 25)

		assert.Equal(t, 2, p.TotalPages)
		assert.False(t, p.HasNext)
		assert.True(t, p.HasPrev)
	})

	t.Run("partial last page rounds up", func(t *testing.T) {
		p := NewPage([]string{"a"}, 26, 1, 25)

		assert.Equal(t, 2, p.TotalPages)
		assert.True(t, p.HasNext)
		assert.False(t, p.HasPrev)
	})

	t.Run("page past the end", func(t *testing.T) {
		p := NewPage[string](nil, 30, 5, 25)

		assert.Equal(t, []string{}, p.Items)
		assert.Equal(t, 30, p.Total)
		assert.Equal(t, 2, p.TotalPages)
		assert.Equal(t, 5, p.Page)
		assert.False(t, p.HasNext)
		assert.True(t, p.HasPrev)
	})

	t.Run("middle page", func(t *testing.T) {
		p := NewPage([]string{"a"}, 75, 2, 25)

		assert.True(t, p.HasNext)
		assert.True(t, p.HasPrev)
	})
}
