package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
)

func TestCompileRejectsUnknownOperator(t *testing.T) {
	_, err := Compile([]Clause{
		Where("status", OpEqual, "active"),
		Where("age", "between", "1,2"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.KindUnsupportedOperator))
}

func TestCompilePatternOperators(t *testing.T) {
	filter, err := Compile([]Clause{
		Where("name", OpContains, "a.b"),
		Where("name", OpStartsWith, "a.b"),
		Where("name", OpEndsWith, "(x)"),
		Where("name", OpRegex, "[unclosed"),
		Where("name", OpNotContains, "spam"),
	})
	require.NoError(t, err)
	require.Len(t, filter.Conditions, 5)

	assert.Equal(t, Condition{Field: "name", Op: OpRegex, Pattern: "a.b"}, filter.Conditions[0])
	assert.Equal(t, `^a\.b`, filter.Conditions[1].Pattern)
	assert.Equal(t, `\(x\)$`, filter.Conditions[2].Pattern)
	assert.Equal(t, `\[unclosed`, filter.Conditions[3].Pattern)
	assert.Equal(t, OpNotContains, filter.Conditions[4].Op)
}

func TestCompileDropsUndefinedAndBlank(t *testing.T) {
	filter, err := Compile([]Clause{
		Where("status", OpEqual, "undefined"),
		Where(" ", OpEqual, "x"),
		Where("any", OpText, "   "),
		Where("tag", OpIn, []any{"a", "undefined"}),
	})
	require.NoError(t, err)
	require.Len(t, filter.Conditions, 1)
	assert.Equal(t, []any{"a"}, filter.Conditions[0].Values)
}

func TestCompileExists(t *testing.T) {
	filter := MustCompile(
		Where("email", OpExists, "true"),
		Where("phone", OpExists, "false"),
		Where("notes", OpNotExists, true),
	)
	assert.Equal(t, []Condition{
		{Field: "email", Op: OpExists, Exists: true},
		{Field: "phone", Op: OpExists, Exists: false},
		{Field: "notes", Op: OpExists, Exists: false},
	}, filter.Conditions)
}

func TestCompileOr(t *testing.T) {
	filter := MustCompile(Where(OrField, OpCustom, []any{
		[]any{"name", "regex", "ali"},
		[]any{"email", "==", "ali@example.com"},
		[]any{"rating", ">", "4"},
		"junk",
	}))
	require.Len(t, filter.Conditions, 1)
	or := filter.Conditions[0]
	assert.Equal(t, OpOr, or.Op)
	assert.Equal(t, []Condition{
		{Field: "name", Op: OpRegex, Pattern: "ali"},
		{Field: "email", Op: OpEqual, Value: "ali@example.com"},
		{Field: "rating", Op: OpEqual, Value: float64(4)},
	}, or.Any)

	empty, err := Compile([]Clause{Where(OrField, OpCustom, "nope"), Where("other", OpCustom, []any{})})
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

func TestCompileCoercesScalarsAndLists(t *testing.T) {
	filter := MustCompile(
		Where("quantity", OpGreaterOrEqual, "10"),
		Where("status", OpNotIn, []any{"draft", "null"}),
		Where("tags", OpArrayContainsAny, "featured"),
	)
	assert.Equal(t, float64(10), filter.Conditions[0].Value)
	assert.Equal(t, []any{"draft", nil}, filter.Conditions[1].Values)
	assert.Equal(t, []any{"featured"}, filter.Conditions[2].Values)
}

func TestCompileWithFieldTypes(t *testing.T) {
	def := domain.EntityDefinition{Fields: []domain.FieldDefinition{
		{Name: "phone", Type: domain.FieldTypeString},
		{Name: "tags", Type: domain.FieldTypeStrings},
		{Name: "total", Type: domain.FieldTypeFloat},
	}}

	filter, err := CompileWith([]Clause{
		Where("phone", OpEqual, "0123"),
		Where("phone", OpNotEqual, "null"),
		Where("tags", OpArrayContainsAny, []any{"2024", 7.0}),
		Where("total", OpEqual, "0123"),
		Where("unknown", OpEqual, "42"),
		Where(OrField, OpCustom, []any{[]any{"phone", "==", "555"}}),
	}, def.FieldType)
	require.NoError(t, err)
	require.Len(t, filter.Conditions, 6)

	assert.Equal(t, "0123", filter.Conditions[0].Value)
	assert.Nil(t, filter.Conditions[1].Value)
	assert.Equal(t, []any{"2024", "7"}, filter.Conditions[2].Values)
	assert.Equal(t, 123.0, filter.Conditions[3].Value)
	assert.Equal(t, 42.0, filter.Conditions[4].Value)
	assert.Equal(t, "555", filter.Conditions[5].Any[0].Value)
}

func TestSearchTerms(t *testing.T) {
	assert.Equal(t, []string{"hello", "world", "42"}, SearchTerms("Hello, world! hello 42"))
	assert.Empty(t, SearchTerms(" ,. "))
}
