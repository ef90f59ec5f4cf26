package query

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPage(t *testing.T) {
	cases := []struct {
		name            string
		size, number    any
		max             int
		wantSize, wantN int
	}{
		{"defaults", nil, nil, 0, DefaultPerPage, 1},
		{"strings", "10", "3", 0, 10, 3},
		{"zero clamps", "0", "0", 0, 1, 1},
		{"negative clamps", "-5", "-2", 0, 1, 1},
		{"garbage falls back", "abc", "x", 0, DefaultPerPage, 1},
		{"decimal truncates", "2.7", 4.9, 0, 2, 4},
		{"max caps", 500, 1, 100, 100, 1},
		{"huge page stays addressable", "2", "9223372036854775807", 0, 2, math.MaxInt/2 + 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPage(tc.size, tc.number, DefaultPerPage, tc.max)
			assert.Equal(t, tc.wantSize, p.Size)
			assert.Equal(t, tc.wantN, p.Number)
			assert.GreaterOrEqual(t, p.Offset(), 0)
		})
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(Page{Number: 3, Size: 10}, 23)
	assert.Equal(t, 3, p.TotalPages)
	assert.Nil(t, p.NextPage)
	if assert.NotNil(t, p.PrevPage) {
		assert.Equal(t, 2, *p.PrevPage)
	}

	p = NewPagination(Page{Number: 1, Size: 10}, 0)
	assert.Equal(t, 1, p.TotalPages)
	assert.Nil(t, p.NextPage)
	assert.Nil(t, p.PrevPage)

	// Pages past the end still report navigation relative to the total
	p = NewPagination(Page{Number: 5, Size: 10}, 23)
	assert.Nil(t, p.NextPage)
	if assert.NotNil(t, p.PrevPage) {
		assert.Equal(t, 4, *p.PrevPage)
	}

	assert.Equal(t, 20, Page{Number: 3, Size: 10}.Offset())
}
