package handlers

import (
	"net/http"
	"strconv"

	"github.com/medtravel/directory/internal/search"
)

// parsePagination reads page and pageSize. Garbage values fall back to the
// defaults rather than failing the request.
func parsePagination(r *http.Request) search.Pagination {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	return search.NewPagination(page, pageSize)
}
