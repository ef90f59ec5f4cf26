package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
)

type sqlBuilder struct {
	args []any
}

func newSQLBuilder() *sqlBuilder {
	return &sqlBuilder{args: make([]any, 0)}
}

func (b *sqlBuilder) addArg(value any) int {
	b.args = append(b.args, value)
	return len(b.args)
}

func (b *sqlBuilder) placeholder(idx int) string {
	return fmt.Sprintf("$%d", idx)
}

func (b *sqlBuilder) arg(value any) string {
	return b.placeholder(b.addArg(value))
}

// jsonArg adds value as JSON text and returns a jsonb expression for it.
func (b *sqlBuilder) jsonArg(value any) (string, error) {
	encoded, err := json.Marshal(query.StoredValue(value))
	if err != nil {
		return "", fmt.Errorf("failed to encode filter value: %w", err)
	}
	return fmt.Sprintf("(%s::text)::jsonb", b.arg(string(encoded))), nil
}

// systemColumns maps record metadata fields onto table columns.
var systemColumns = map[string]string{
	domain.FieldID:            "id",
	domain.FieldIDAlias:       "id",
	domain.FieldCorrelationID: "correlation_id",
	domain.FieldCreatedAt:     "created_at",
	domain.FieldUpdatedAt:     "updated_at",
}

func isTimestampColumn(column string) bool {
	return column == "created_at" || column == "updated_at"
}

// systemTextExpr renders a metadata column in the same text form Record.Value exposes.
func systemTextExpr(column string) string {
	if isTimestampColumn(column) {
		return fmt.Sprintf(`to_char(%s AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS.MS"Z"')`, column)
	}
	return column + "::text"
}

// buildWhere compiles a filter into SQL predicates over the records table.
func buildWhere(filter query.Filter, b *sqlBuilder) ([]string, error) {
	where := make([]string, 0, len(filter.Conditions))
	for _, cond := range filter.Conditions {
		clause, err := compileSQLCondition(cond, b)
		if err != nil {
			return nil, err
		}
		where = append(where, clause)
	}
	return where, nil
}

func compileSQLCondition(cond query.Condition, b *sqlBuilder) (string, error) {
	switch cond.Op {
	case query.OpOr:
		parts := make([]string, 0, len(cond.Any))
		for _, sub := range cond.Any {
			part, err := compileSQLCondition(sub, b)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil

	case query.OpText:
		text, _ := cond.Value.(string)
		terms := query.SearchTerms(text)
		if len(terms) == 0 {
			return "TRUE", nil
		}
		return fmt.Sprintf(`jsonb_to_tsvector('simple', data, '["string"]') @@ to_tsquery('simple', %s::text)`,
			b.arg(strings.Join(terms, " | "))), nil
	}

	if column, ok := systemColumns[cond.Field]; ok {
		return compileSystemCondition(cond, column, b)
	}
	return compileDataCondition(cond, b)
}

func compileDataCondition(cond query.Condition, b *sqlBuilder) (string, error) {
	pathPH := b.arg(strings.Split(cond.Field, "."))
	j := fmt.Sprintf("(data #> %s::text[])", pathPH)
	t := fmt.Sprintf("(data #>> %s::text[])", pathPH)

	switch cond.Op {
	case query.OpExists:
		if cond.Exists {
			return j + " IS NOT NULL", nil
		}
		return j + " IS NULL", nil

	case query.OpEqual, query.OpNotEqual:
		var expr string
		if cond.Value == nil {
			expr = fmt.Sprintf("(%s IS NULL OR %s = 'null'::jsonb)", j, j)
		} else {
			v, err := b.jsonArg(cond.Value)
			if err != nil {
				return "", err
			}
			expr = fmt.Sprintf("(%s IS NOT NULL AND %s = %s)", j, j, v)
		}
		if cond.Op == query.OpNotEqual {
			return "NOT " + expr, nil
		}
		return expr, nil

	case query.OpGreater, query.OpGreaterOrEqual, query.OpLess, query.OpLessOrEqual:
		sqlOp := string(cond.Op)
		switch v := query.StoredValue(cond.Value).(type) {
		case float64:
			return fmt.Sprintf("(CASE WHEN jsonb_typeof(%s) = 'number' THEN %s::numeric %s %s::numeric ELSE FALSE END)",
				j, t, sqlOp, b.arg(v)), nil
		case string:
			return fmt.Sprintf(`(CASE WHEN jsonb_typeof(%s) = 'string' THEN %s COLLATE "C" %s %s::text ELSE FALSE END)`,
				j, t, sqlOp, b.arg(v)), nil
		case bool:
			return fmt.Sprintf("(CASE WHEN jsonb_typeof(%s) = 'boolean' THEN %s::boolean %s %s::boolean ELSE FALSE END)",
				j, t, sqlOp, b.arg(v)), nil
		default:
			return "FALSE", nil
		}

	case query.OpIn, query.OpNotIn:
		expr, err := inExpr(j, cond.Values, b)
		if err != nil {
			return "", err
		}
		if cond.Op == query.OpNotIn {
			return "NOT " + expr, nil
		}
		return expr, nil

	case query.OpRegex, query.OpNotContains:
		expr := fmt.Sprintf("(CASE WHEN jsonb_typeof(%s) = 'string' THEN %s ~* %s::text ELSE FALSE END)", j, t, b.arg(cond.Pattern))
		if cond.Op == query.OpNotContains {
			return "NOT " + expr, nil
		}
		return expr, nil

	case query.OpArrayContains:
		v, err := b.jsonArg([]any{cond.Value})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(CASE WHEN jsonb_typeof(%s) = 'array' THEN %s @> %s ELSE FALSE END)", j, j, v), nil

	case query.OpArrayContainsAny:
		if len(cond.Values) == 0 {
			return "FALSE", nil
		}
		v, err := b.jsonArg(cond.Values)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(CASE WHEN jsonb_typeof(%s) = 'array' THEN EXISTS (SELECT 1 FROM jsonb_array_elements(%s) AS v(elem) WHERE %s @> jsonb_build_array(v.elem)) ELSE FALSE END)",
			j, v, j), nil
	}

	return "", fmt.Errorf("operator %q cannot be translated to SQL", cond.Op)
}

func inExpr(j string, values []any, b *sqlBuilder) (string, error) {
	if len(values) == 0 {
		return "FALSE", nil
	}
	nonNull := make([]any, 0, len(values))
	hasNull := false
	for _, value := range values {
		if value == nil {
			hasNull = true
			continue
		}
		nonNull = append(nonNull, value)
	}

	parts := make([]string, 0, 2)
	if len(nonNull) > 0 {
		v, err := b.jsonArg(nonNull)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("EXISTS (SELECT 1 FROM jsonb_array_elements(%s) AS v(elem) WHERE %s = v.elem)", v, j))
	}
	if hasNull {
		parts = append(parts, fmt.Sprintf("(%s IS NULL OR %s = 'null'::jsonb)", j, j))
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

// compileSystemCondition handles conditions on metadata columns, which are never null.
func compileSystemCondition(cond query.Condition, column string, b *sqlBuilder) (string, error) {
	text := systemTextExpr(column)

	switch cond.Op {
	case query.OpExists:
		if cond.Exists {
			return "TRUE", nil
		}
		return "FALSE", nil

	case query.OpEqual, query.OpNotEqual:
		if cond.Value == nil {
			if cond.Op == query.OpEqual {
				return "FALSE", nil
			}
			return "TRUE", nil
		}
		sqlOp := "="
		if cond.Op == query.OpNotEqual {
			sqlOp = "<>"
		}
		return fmt.Sprintf("%s %s %s::text", text, sqlOp, b.arg(fmt.Sprint(query.StoredValue(cond.Value)))), nil

	case query.OpGreater, query.OpGreaterOrEqual, query.OpLess, query.OpLessOrEqual:
		if ts, ok := cond.Value.(time.Time); ok && isTimestampColumn(column) {
			return fmt.Sprintf("%s %s %s::timestamptz", column, cond.Op, b.arg(ts)), nil
		}
		s, ok := query.StoredValue(cond.Value).(string)
		if !ok {
			return "FALSE", nil
		}
		return fmt.Sprintf(`%s COLLATE "C" %s %s::text`, text, cond.Op, b.arg(s)), nil

	case query.OpIn, query.OpNotIn:
		values := make([]string, 0, len(cond.Values))
		for _, value := range cond.Values {
			if value == nil {
				continue
			}
			values = append(values, fmt.Sprint(query.StoredValue(value)))
		}
		expr := fmt.Sprintf("%s = ANY(%s::text[])", text, b.arg(values))
		if cond.Op == query.OpNotIn {
			return "NOT (" + expr + ")", nil
		}
		return expr, nil

	case query.OpRegex:
		return fmt.Sprintf("%s ~* %s::text", text, b.arg(cond.Pattern)), nil

	case query.OpNotContains:
		return fmt.Sprintf("%s !~* %s::text", text, b.arg(cond.Pattern)), nil

	case query.OpArrayContains, query.OpArrayContainsAny:
		return "FALSE", nil
	}

	return "", fmt.Errorf("operator %q cannot be translated to SQL", cond.Op)
}

// buildOrderClause renders the ORDER BY. Missing values sort first ascending and
// last descending; created_at then id break ties.
func buildOrderClause(sorts []query.Sort, b *sqlBuilder) string {
	parts := make([]string, 0, len(sorts)+2)
	for _, s := range sorts {
		dir := "ASC NULLS FIRST"
		if s.Descending() {
			dir = "DESC NULLS LAST"
		}
		if column, ok := systemColumns[s.Field]; ok {
			parts = append(parts, fmt.Sprintf("%s %s", column, dir))
			continue
		}
		parts = append(parts, fmt.Sprintf("data #> %s::text[] %s", b.arg(strings.Split(s.Field, ".")), dir))
	}
	parts = append(parts, "created_at ASC", "id ASC")
	return "ORDER BY " + strings.Join(parts, ", ")
}
