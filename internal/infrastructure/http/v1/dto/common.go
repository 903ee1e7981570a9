// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"shoplist/internal/core/id"
	"shoplist/internal/domain"
)

// ListQuery contains common query parameters for list endpoints.
type ListQuery struct {
	Search  string `form:"search"`
	OrderBy string `form:"orderBy"`
	Limit   int    `form:"limit"`
	Offset  int    `form:"offset"`
}

// ToFilter converts query parameters to a domain filter.
func (q ListQuery) ToFilter() domain.ListFilter {
	filter := domain.DefaultListFilter()
	filter.Search = q.Search
	filter.OrderBy = q.OrderBy
	if q.Limit > 0 && q.Limit <= 100 {
		filter.Limit = q.Limit
	}
	if q.Offset > 0 {
		filter.Offset = q.Offset
	}
	return filter
}

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse converts a domain result.
func NewListResponse[T any](res domain.ListResult[T], convert func(T) any) ListResponse {
	items := make([]any, 0, len(res.Items))
	for _, item := range res.Items {
		items = append(items, convert(item))
	}
	return ListResponse{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CountResponse for bulk operations.
type CountResponse struct {
	Count int64 `json:"count"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
