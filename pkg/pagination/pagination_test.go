package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	return FromContext(c)
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"no params", "", DefaultLimit, 0},
		{"explicit window", "limit=50&offset=10", 50, 10},
		{"limit above cap", "limit=500", MaxLimit, 0},
		{"zero limit", "limit=0", DefaultLimit, 0},
		{"negative limit", "limit=-3", DefaultLimit, 0},
		{"negative offset", "offset=-5", DefaultLimit, 0},
		{"garbage values", "limit=abc&offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paramsFor(t, tt.query)
			if p.Limit != tt.wantLimit {
				t.Errorf("limit: got %d, want %d", p.Limit, tt.wantLimit)
			}
			if p.Offset != tt.wantOffset {
				t.Errorf("offset: got %d, want %d", p.Offset, tt.wantOffset)
			}
		})
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	tests := []struct {
		name         string
		total, limit int
		offset       int
		wantHasMore  bool
	}{
		{"middle of results", 10, 3, 0, true},
		{"last full page", 3, 3, 0, false},
		{"past the end", 25, 10, 30, false},
		{"boundary page", 25, 10, 15, false},
		{"empty result set", 0, 10, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResponse([]string{}, tt.total, tt.limit, tt.offset)
			if r.HasMore != tt.wantHasMore {
				t.Errorf("has_more: got %v, want %v", r.HasMore, tt.wantHasMore)
			}
			if r.Total != tt.total {
				t.Errorf("total: got %d, want %d", r.Total, tt.total)
			}
		})
	}
}

func TestNewResponse_CarriesData(t *testing.T) {
	data := []int{1, 2, 3}
	r := NewResponse(data, 3, 20, 0)
	got, ok := r.Data.([]int)
	if !ok {
		t.Fatalf("expected []int data, got %T", r.Data)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 items, got %d", len(got))
	}
}
