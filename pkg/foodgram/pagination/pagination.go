// Package pagination implements page/limit pagination with the
// {count, next, previous, results} response envelope.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// MaxLimit caps the page size a client may request
const MaxLimit = 100

// Params holds a validated page request. Page is 1-based.
type Params struct {
	Page  int
	Limit int
}

// FromRequest reads ?page= and ?limit= from the query string.
// Missing or invalid values fall back to page 1 and defaultLimit.
func FromRequest(c *gin.Context, defaultLimit int) Params {
	p := Params{Page: 1, Limit: defaultLimit}
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		p.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		p.Limit = limit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the number of rows to skip
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Scope applies limit and offset to a query
func (p Params) Scope(db *gorm.DB) *gorm.DB {
	return db.Offset(p.Offset()).Limit(p.Limit)
}

// Page is the paginated response envelope
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NewPage builds the envelope, deriving next/previous links from the current request URL
func NewPage[T any](c *gin.Context, p Params, count int64, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	page := Page[T]{Count: count, Results: results}

	if int64(p.Page*p.Limit) < count {
		next := pageURL(c, p.Page+1)
		page.Next = &next
	}
	if p.Page > 1 {
		prev := pageURL(c, p.Page-1)
		page.Previous = &prev
	}
	return page
}

func pageURL(c *gin.Context, page int) string {
	u := *c.Request.URL
	u.Host = c.Request.Host
	u.Scheme = "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}

	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
