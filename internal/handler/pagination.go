package handler

import (
	"net/http"
	"strconv"

	"github.com/interacthq/interaction-server-go/internal/config"
)

type PaginationParams struct {
	Page     int
	PageSize int
}

// ParsePagination reads page and page_size from the query string.
// Out-of-range values are clamped, never rejected.
func ParsePagination(r *http.Request) PaginationParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	if page < 1 {
		page = config.DefaultPage
	}
	if pageSize <= 0 {
		pageSize = config.DefaultPageSize
	}
	if pageSize > config.MaxPageSize {
		pageSize = config.MaxPageSize
	}

	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
	}
}
