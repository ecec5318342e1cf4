package pagination

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Defaults used when the router does not configure its own.
const (
	DefaultSize = 20
	MaxSize     = 100
)

// ErrInvalidPage is returned for non-numeric or negative page parameters.
var ErrInvalidPage = errors.New("Invalid pagination parameters")

// Request is a zero-based page request.
type Request struct {
	Page int
	Size int
}

// Offset is the number of rows to skip.
func (r Request) Offset() int {
	return r.Page * r.Size
}

// Normalize clamps Size into [1, max] and Page to >= 0.
func (r Request) Normalize(def, max int) Request {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Size <= 0 {
		r.Size = def
	}
	if r.Size > max {
		r.Size = max
	}
	return r
}

// Parse reads ?page=&size= from the request. Missing values fall back to defaults,
// oversized pages are capped, garbage is an error.
func Parse(c *fiber.Ctx, def, max int) (Request, error) {
	req := Request{Page: 0, Size: def}
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Request{}, fmt.Errorf("%w: page must be a non-negative integer", ErrInvalidPage)
		}
		req.Page = n
	}
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Request{}, fmt.Errorf("%w: size must be a positive integer", ErrInvalidPage)
		}
		req.Size = n
	}
	req = req.Normalize(def, max)
	if req.Page > math.MaxInt32/req.Size {
		return Request{}, fmt.Errorf("%w: page is out of range", ErrInvalidPage)
	}
	return req, nil
}

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

func NewPage[T any](items []T, req Request, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{Items: items, Page: req.Page, Size: req.Size, TotalItems: total, TotalPages: pages}
}

// Metadata is the response envelope metadata for a page.
func (p Page[T]) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"page":       p.Page,
		"size":       p.Size,
		"totalItems": p.TotalItems,
		"totalPages": p.TotalPages,
	}
}
