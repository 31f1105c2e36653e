package search

import "math"

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Pagination is a zero-based page window over a result list
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// NewPagination clamps page to >= 0 and pageSize to [1, MaxPageSize].
// A non-positive pageSize falls back to DefaultPageSize. Pages too large to
// address are capped to the last one whose offset fits in an int, which is
// past the end of any real list.
func NewPagination(page, pageSize int) Pagination {
	if page < 0 {
		page = 0
	}
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	if maxPage := math.MaxInt/pageSize - 1; page > maxPage {
		page = maxPage
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// Offset is the index of the first item on the page
func (p Pagination) Offset() int {
	return p.Page * p.PageSize
}

// HasMore reports whether items remain after this page
func (p Pagination) HasMore(total int) bool {
	if total <= 0 || p.PageSize <= 0 || p.Page < 0 {
		return false
	}
	return p.Page < (total-1)/p.PageSize
}

// PageOf returns the slice of items covered by p. Out-of-range pages are empty.
func PageOf[T any](items []T, p Pagination) []T {
	if len(items) == 0 || p.Page < 0 || p.PageSize <= 0 || p.Page > (len(items)-1)/p.PageSize {
		return []T{}
	}
	start := p.Offset()
	end := start + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
