package utils

import (
	"math"
	"net/http"
	"strconv"

	"github.com/kelydev/apiProyectos/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// GetPaginationParams parses page and limit query parameters from a request.
// Returns page (default 1) and limit (default 20, max 100).
func GetPaginationParams(r *http.Request) (page, limit int) {
	pageStr := r.URL.Query().Get("page")
	limitStr := r.URL.Query().Get("limit")

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}

	limit, err = strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// Paginate wraps one page of results with its metadata.
func Paginate(data interface{}, totalItems, page, limit int) models.PaginatedResponse {
	totalPages := 0
	if totalItems > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(limit)))
	}
	return models.PaginatedResponse{
		Data: data,
		Pagination: models.PaginationMetadata{
			TotalItems:  totalItems,
			TotalPages:  totalPages,
			CurrentPage: page,
			Limit:       limit,
		},
	}
}
