package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RockaiDev/bariqe-dashboard/internal/query"
)

func compileSQL(t *testing.T, clauses ...query.Clause) ([]string, []any) {
	t.Helper()
	b := newSQLBuilder()
	where, err := buildWhere(query.MustCompile(clauses...), b)
	require.NoError(t, err)
	return where, b.args
}

func TestBuildWhereDataFields(t *testing.T) {
	where, args := compileSQL(t,
		query.Where("status", query.OpEqual, "active"),
		query.Where("age", query.OpGreater, "18"),
		query.Where("address.city", query.OpContains, "riy"),
	)
	require.Len(t, where, 3)

	assert.Equal(t, "((data #> $1::text[]) IS NOT NULL AND (data #> $1::text[]) = ($2::text)::jsonb)", where[0])
	assert.Contains(t, where[1], "jsonb_typeof((data #> $3::text[])) = 'number'")
	assert.Contains(t, where[1], "> $4::numeric")
	assert.Contains(t, where[2], "~* $6::text")

	assert.Equal(t, []string{"status"}, args[0])
	assert.Equal(t, `"active"`, args[1])
	assert.Equal(t, float64(18), args[3])
	assert.Equal(t, []string{"address", "city"}, args[4])
	assert.Equal(t, "riy", args[5])
}

func TestBuildWhereNullAndNegation(t *testing.T) {
	where, _ := compileSQL(t,
		query.Where("email", query.OpEqual, "null"),
		query.Where("email", query.OpNotEqual, "x"),
		query.Where("tag", query.OpIn, []any{"a", "null"}),
	)
	assert.Equal(t, "((data #> $1::text[]) IS NULL OR (data #> $1::text[]) = 'null'::jsonb)", where[0])
	assert.True(t, strings.HasPrefix(where[1], "NOT ("))
	assert.Contains(t, where[2], "jsonb_array_elements")
	assert.Contains(t, where[2], "IS NULL OR")
}

func TestBuildWhereSystemColumns(t *testing.T) {
	ts := "2024-03-01T00:00:00Z"
	where, args := compileSQL(t,
		query.Where("createdAt", query.OpGreaterOrEqual, ts),
		query.Where("_id", query.OpIn, []any{"a", "b"}),
		query.Where("updatedAt", query.OpExists, true),
	)
	assert.Equal(t, "created_at >= $1::timestamptz", where[0])
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), args[0])
	assert.Equal(t, "id::text = ANY($2::text[])", where[1])
	assert.Equal(t, "TRUE", where[2])
}

func TestBuildWhereComposite(t *testing.T) {
	where, args := compileSQL(t,
		query.Where(query.OrField, query.OpCustom, []any{
			[]any{"name", "regex", "ali"},
			[]any{"email", "==", "a@b.c"},
		}),
		query.Where("any", query.OpText, "hello world"),
	)
	assert.True(t, strings.HasPrefix(where[0], "("))
	assert.Contains(t, where[0], " OR ")
	assert.Contains(t, where[1], "to_tsquery('simple', $5::text)")
	assert.Equal(t, "hello | world", args[4])
}

func TestBuildOrderClause(t *testing.T) {
	b := newSQLBuilder()
	order := buildOrderClause([]query.Sort{
		{Field: "price", Direction: query.Desc},
		{Field: "createdAt", Direction: query.Asc},
	}, b)
	assert.Equal(t, "ORDER BY data #> $1::text[] DESC NULLS LAST, created_at ASC NULLS FIRST, created_at ASC, id ASC", order)

	assert.Equal(t, "ORDER BY created_at ASC, id ASC", buildOrderClause(nil, newSQLBuilder()))
}
