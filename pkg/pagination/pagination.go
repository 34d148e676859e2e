package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a normalized page window. Limit stays in [1, MaxLimit] and
// Offset is never negative, so repositories can bind both directly.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads the limit and offset query parameters. Missing,
// malformed or out-of-range values fall back to sane defaults rather than
// erroring; a list endpoint should not 400 over a bad page size.
func FromContext(c echo.Context) Params {
	p := Params{
		Limit:  queryInt(c, "limit", DefaultLimit),
		Offset: queryInt(c, "offset", 0),
	}
	return p.normalized()
}

func (p Params) normalized() Params {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	} else if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// Response is the envelope for list endpoints.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

// NewResponse builds the envelope. Total is the unpaged match count, which
// is how clients know to keep paging when HasMore is set.
func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}
