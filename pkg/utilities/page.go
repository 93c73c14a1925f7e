package utilities

import (
	"errors"
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var ErrInvalidPage = errors.New("limit and offset must be non-negative integers")

// Page is a limit/offset window over a listing.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads limit and offset from query values. Missing values take
// defaults and limit is capped at MaxPageSize.
func ParsePage(q url.Values) (Page, error) {
	p := Page{Limit: DefaultPageSize}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Page{}, ErrInvalidPage
		}
		if n > 0 {
			p.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Page{}, ErrInvalidPage
		}
		p.Offset = n
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p, nil
}

// Window returns the [start, end) slice bounds of p over n items.
func (p Page) Window(n int) (int, int) {
	start := p.Offset
	if start > n {
		start = n
	}
	end := start + p.Limit
	if p.Limit <= 0 || end > n {
		end = n
	}
	return start, end
}

// Excerpt shortens s to at most n runes, marking the cut with an ellipsis.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
