package search

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination_Clamps(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		size     int
		expected Pagination
	}{
		{"defaults", 0, 0, Pagination{Page: 0, PageSize: 50}},
		{"negative page", -3, 10, Pagination{Page: 0, PageSize: 10}},
		{"too large", 2, 500, Pagination{Page: 2, PageSize: 100}},
		{"minimum", 1, 1, Pagination{Page: 1, PageSize: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewPagination(tt.page, tt.size))
		})
	}
}

func TestPagination_HasMoreBoundary(t *testing.T) {
	const total = 125
	assert.True(t, NewPagination(0, 50).HasMore(total))
	assert.True(t, NewPagination(1, 50).HasMore(total))
	assert.False(t, NewPagination(2, 50).HasMore(total))
}

func TestPageOf(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2}, PageOf(items, Pagination{Page: 0, PageSize: 2}))
	assert.Equal(t, []int{5}, PageOf(items, Pagination{Page: 2, PageSize: 2}))
	assert.Empty(t, PageOf(items, Pagination{Page: 3, PageSize: 2}))
	assert.NotNil(t, PageOf([]int(nil), Pagination{Page: 0, PageSize: 2}))
}

func TestPagination_HugePageIsPastTheEnd(t *testing.T) {
	items := make([]int, 125)

	p := NewPagination(math.MaxInt, 50)
	assert.GreaterOrEqual(t, p.Offset(), 0)
	assert.False(t, p.HasMore(len(items)))
	assert.Empty(t, PageOf(items, p))

	raw := Pagination{Page: math.MaxInt, PageSize: 50}
	assert.False(t, raw.HasMore(len(items)))
	assert.NotPanics(t, func() { assert.Empty(t, PageOf(items, raw)) })
	assert.Empty(t, PageOf(items, Pagination{Page: -1, PageSize: 50}))
}
