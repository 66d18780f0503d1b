package utils

import "strconv"

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// PageParams holds validated pagination input.
type PageParams struct {
	Page   int64
	Limit  int64
	Offset int64
}

// ParsePageParams clamps raw page/limit query values to sane bounds.
func ParsePageParams(pageStr, limitStr string) PageParams {
	page, err := strconv.ParseInt(pageStr, 10, 64)
	if err != nil || page < 1 {
		page = defaultPage
	}
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return PageParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Pagination is the metadata block attached to paginated responses.
type Pagination struct {
	Total       int64 `json:"total"`
	Page        int64 `json:"page"`
	Limit       int64 `json:"limit"`
	TotalPages  int64 `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// BuildPagination computes the metadata for a page over total items.
func BuildPagination(total int64, p PageParams) Pagination {
	totalPages := (total + p.Limit - 1) / p.Limit
	return Pagination{
		Total:       total,
		Page:        p.Page,
		Limit:       p.Limit,
		TotalPages:  totalPages,
		HasNextPage: p.Page < totalPages,
		HasPrevPage: p.Page > 1,
	}
}
