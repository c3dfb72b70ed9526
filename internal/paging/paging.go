// Package paging parses list parameters and shapes paginated responses.
package paging

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrInvalid is returned for non-numeric or out-of-range parameters.
var ErrInvalid = errors.New("invalid pagination parameters")

// Params selects one page of a listing.
type Params struct {
	Page     int
	PageSize int
	Search   string
}

// Offset is the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit is the maximum number of rows to return.
func (p Params) Limit() int {
	return p.PageSize
}

// Pattern returns the ILIKE pattern for Search, or empty when no search was requested.
func (p Params) Pattern() string {
	if p.Search == "" {
		return ""
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(p.Search) + "%"
}

// New validates explicit values. Zero values select the defaults.
func New(page, pageSize int, search string) (Params, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return Params{}, ErrInvalid
	}
	return Params{Page: page, PageSize: pageSize, Search: strings.TrimSpace(search)}, nil
}

// FromQuery reads ?page, ?page_size and ?q.
func FromQuery(c *gin.Context) (Params, error) {
	page, err := intQuery(c, "page")
	if err != nil {
		return Params{}, err
	}
	size, err := intQuery(c, "page_size")
	if err != nil {
		return Params{}, err
	}
	return New(page, size, c.Query("q"))
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v == 0 {
		return 0, ErrInvalid
	}
	return v, nil
}

// Page is one slice of a listing together with the total row count.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPage assembles a page, never returning a nil Items slice.
func NewPage[T any](items []T, p Params, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.PageSize > 0 {
		pages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return Page[T]{
		Items:      items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: pages,
	}
}
