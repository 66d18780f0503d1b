package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name       string
		page       string
		limit      string
		wantPage   int64
		wantLimit  int64
		wantOffset int64
	}{
		{"defaults on empty", "", "", 1, 10, 0},
		{"valid values", "3", "20", 3, 20, 40},
		{"negative page clamps", "-1", "10", 1, 10, 0},
		{"limit capped at 100", "1", "500", 1, 100, 0},
		{"garbage falls back", "abc", "xyz", 1, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParsePageParams(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestBuildPagination(t *testing.T) {
	p := BuildPagination(25, PageParams{Page: 2, Limit: 10, Offset: 10})
	assert.Equal(t, int64(3), p.TotalPages)
	assert.True(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)

	last := BuildPagination(25, PageParams{Page: 3, Limit: 10, Offset: 20})
	assert.False(t, last.HasNextPage)

	empty := BuildPagination(0, PageParams{Page: 1, Limit: 10})
	assert.Equal(t, int64(0), empty.TotalPages)
	assert.False(t, empty.HasNextPage)
	assert.False(t, empty.HasPrevPage)
}
