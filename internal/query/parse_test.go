package query

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
)

func TestParseFiltersEncodings(t *testing.T) {
	want := []Clause{
		{Field: "status", Operator: OpEqual, Value: "active"},
		{Field: "age", Operator: OpGreater, Value: "18"},
	}
	raw := `[["status","==","active"],["age",">","18"]]`

	cases := map[string]any{
		"json string":       raw,
		"url encoded":       url.QueryEscape(raw),
		"quoted":            `"` + raw + `"`,
		"single quoted":     "'" + raw + "'",
		"double encoded":    `"[[\"status\",\"==\",\"active\"],[\"age\",\">\",\"18\"]]"`,
		"decoded tuples":    []any{[]any{"status", "==", "active"}, []any{"age", ">", "18"}},
		"repeated once":     []string{raw},
		"structured object": `[{"field":"status","operator":"==","value":"active"},{"field":"age","operator":">","value":"18"}]`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseFilters(input, nil, ParseOptions{})
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseFiltersSingleTuple(t *testing.T) {
	got, err := ParseFilters(`["name","contains","ali"]`, nil, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Clause{{Field: "name", Operator: OpContains, Value: "ali"}}, got)
}

func TestParseFiltersLenient(t *testing.T) {
	fallback := []Clause{Where("status", OpEqual, "published")}

	got, err := ParseFilters("[[not json", fallback, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, fallback, got)

	got, err = ParseFilters("[[not json", nil, ParseOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)

	// Malformed members are dropped without triggering the fallback
	got, err = ParseFilters(`[["a","==","1"],["", "==", "x"],["b"],42]`, fallback, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Clause{{Field: "a", Operator: OpEqual, Value: "1"}}, got)

	got, err = ParseFilters(nil, fallback, ParseOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseFiltersStrict(t *testing.T) {
	_, err := ParseFilters("[[not json", nil, ParseOptions{Strict: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.KindInvalidFilter))

	_, err = ParseFilters(`[["a","==","1"],["b"]]`, nil, ParseOptions{Strict: true})
	assert.True(t, errors.Is(err, apperr.KindInvalidFilter))
}

func TestParseSort(t *testing.T) {
	cases := map[string]struct {
		in   any
		want []Sort
	}{
		"tuple list": {
			in:   `[["createdAt","desc"],["name","asc"]]`,
			want: []Sort{{Field: "createdAt", Direction: Desc}, {Field: "name", Direction: Asc}},
		},
		"single tuple": {
			in:   `["price","-1"]`,
			want: []Sort{{Field: "price", Direction: Desc}},
		},
		"objects": {
			in:   `[{"field":"rating","direction":"descending"}]`,
			want: []Sort{{Field: "rating", Direction: Desc}},
		},
		"numeric direction": {
			in:   []any{[]any{"rating", float64(-1)}},
			want: []Sort{{Field: "rating", Direction: Desc}},
		},
		"missing direction": {
			in:   `[["name"]]`,
			want: []Sort{{Field: "name", Direction: Asc}},
		},
		"malformed": {
			in:   "{{",
			want: []Sort{},
		},
		"absent": {
			in:   nil,
			want: []Sort{},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseSort(tc.in))
		})
	}
}

func TestSortSpellingsAreEquivalent(t *testing.T) {
	a := ParseSort(`[["createdAt","desc"]]`)
	b := ParseSort(`[{"field":"createdAt","direction":"DESC"}]`)
	c := ParseSort(`["createdAt",-1]`)
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}
