// Package pagination implements page-number pagination shared by list
// endpoints and the reporting queries.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Page     int
	PageSize int
}

// FromContext extracts pagination parameters from the echo context, applying
// defaults and the size cap. Values below 1 fall back to defaults.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}

	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	return Params{Page: page, PageSize: size}
}

// Offset returns the row offset for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Valid reports whether the parameters satisfy page >= 1 and pageSize >= 1.
func (p Params) Valid() bool {
	return p.Page >= 1 && p.PageSize >= 1
}

// Meta describes a page of a larger result set.
type Meta struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewMeta computes pagination metadata. TotalPages is ceil(total/pageSize);
// an empty result set has zero pages.
func NewMeta(p Params, total int) Meta {
	pages := 0
	if total > 0 {
		pages = (total + p.PageSize - 1) / p.PageSize
	}
	return Meta{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: pages,
	}
}

// Response wraps a paginated API response.
type Response struct {
	Data       interface{} `json:"data"`
	Pagination Meta        `json:"pagination"`
}

func NewResponse(data interface{}, p Params, total int) *Response {
	return &Response{Data: data, Pagination: NewMeta(p, total)}
}

// Slice returns the window of n items covered by the current page as
// [start, end) indexes. Out-of-range pages yield an empty window.
func (p Params) Slice(n int) (int, int) {
	start := p.Offset()
	if start >= n {
		return 0, 0
	}
	end := start + p.PageSize
	if end > n {
		end = n
	}
	return start, end
}
