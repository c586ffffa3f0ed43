package request

import (
	"net/http"
	"strconv"
)

// Pagination is the paging window of a listing request. Deployment listings
// are newest-first, so Cursor carries the ID of the last deployment of the
// previous page.
type Pagination struct {
	Limit  int
	Cursor string
}

// Deployments are created a few times a day at most, so pages stay small.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ParsePagination extracts limit and cursor from query parameters. Invalid
// or out-of-range limits fall back rather than erroring: a bad limit never
// fails a listing.
func ParsePagination(r *http.Request) Pagination {
	p := Pagination{
		Limit:  DefaultLimit,
		Cursor: r.URL.Query().Get("cursor"),
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			p.Limit = limit
		}
	}

	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	return p
}
