package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
)

// Clause is one (field, operator, value) filter tuple as received from a client.
type Clause struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// Condition is a validated, coerced clause in the form store backends translate.
//
// Pattern-based operators (regex, contains, starts-with, ends-with) compile to OpRegex
// and not-contains to OpNotContains; patterns always match case-insensitively.
// exists/not-exists compile to OpExists with Exists holding the wanted presence.
type Condition struct {
	Field   string      `json:"field,omitempty"`
	Op      Operator    `json:"op"`
	Value   any         `json:"value,omitempty"`
	Values  []any       `json:"values,omitempty"`
	Pattern string      `json:"pattern,omitempty"`
	Exists  bool        `json:"exists,omitempty"`
	Any     []Condition `json:"any,omitempty"`
}

// Filter is a conjunction of conditions. The zero Filter matches every record.
type Filter struct {
	Conditions []Condition `json:"conditions"`
}

func (f Filter) IsEmpty() bool { return len(f.Conditions) == 0 }

// FieldTypes reports the declared type of a field. Compile uses it to keep values
// of text fields as text after coercion.
type FieldTypes func(field string) (domain.FieldType, bool)

// Compile validates operators and coerces values. Any unknown operator fails the
// whole filter, even when other clauses are valid.
func Compile(clauses []Clause) (Filter, error) {
	return CompileWith(clauses, nil)
}

// CompileWith is Compile with field types: values compared against string, string
// list and reference fields keep their raw text, so "0123" stays "0123".
func CompileWith(clauses []Clause, types FieldTypes) (Filter, error) {
	for _, clause := range clauses {
		if !clause.Operator.IsValid() {
			return Filter{}, apperr.UnsupportedOperator(string(clause.Operator))
		}
	}

	filter := Filter{Conditions: make([]Condition, 0, len(clauses))}
	for _, clause := range clauses {
		cond, ok := compileClause(clause, types)
		if !ok {
			continue
		}
		filter.Conditions = append(filter.Conditions, cond)
	}
	return filter, nil
}

// MustCompile is Compile for statically known clauses.
func MustCompile(clauses ...Clause) Filter {
	filter, err := Compile(clauses)
	if err != nil {
		panic(err)
	}
	return filter
}

// Where is shorthand for building a clause in code.
func Where(field string, op Operator, value any) Clause {
	return Clause{Field: field, Operator: op, Value: value}
}

func compileClause(clause Clause, types FieldTypes) (Condition, bool) {
	field := strings.TrimSpace(clause.Field)
	if field == "" {
		return Condition{}, false
	}

	switch clause.Operator {
	case OpCustom:
		if field != OrField {
			return Condition{}, false
		}
		return compileOr(clause.Value, types)

	case OpRegex, OpContains:
		return Condition{Field: field, Op: OpRegex, Pattern: safePattern(stringify(clause.Value))}, true

	case OpStartsWith:
		return Condition{Field: field, Op: OpRegex, Pattern: "^" + regexp.QuoteMeta(stringify(clause.Value))}, true

	case OpEndsWith:
		return Condition{Field: field, Op: OpRegex, Pattern: regexp.QuoteMeta(stringify(clause.Value)) + "$"}, true

	case OpNotContains:
		return Condition{Field: field, Op: OpNotContains, Pattern: safePattern(stringify(clause.Value))}, true

	case OpText:
		text := strings.TrimSpace(stringify(clause.Value))
		if text == "" {
			return Condition{}, false
		}
		return Condition{Op: OpText, Value: text}, true

	case OpExists:
		return Condition{Field: field, Op: OpExists, Exists: Truthy(Coerce(clause.Value))}, true

	case OpNotExists:
		return Condition{Field: field, Op: OpExists, Exists: !Truthy(Coerce(clause.Value))}, true

	case OpIn, OpNotIn, OpArrayContainsAny:
		return Condition{Field: field, Op: clause.Operator, Values: coerceList(clause.Value, types.textual(field))}, true

	default:
		value := coerceFor(clause.Value, types.textual(field))
		if IsUndefined(value) {
			return Condition{}, false
		}
		return Condition{Field: field, Op: clause.Operator, Value: value}, true
	}
}

// compileOr builds the composite OR from sub-tuples. regex and contains match by
// pattern; every other sub-operator is treated as equality.
func compileOr(raw any, types FieldTypes) (Condition, bool) {
	items, ok := raw.([]any)
	if !ok {
		return Condition{}, false
	}

	or := Condition{Op: OpOr}
	for _, item := range items {
		sub, ok := tupleToClause(item)
		if !ok {
			continue
		}
		switch sub.Operator {
		case OpRegex, OpContains:
			or.Any = append(or.Any, Condition{Field: sub.Field, Op: OpRegex, Pattern: safePattern(stringify(sub.Value))})
		default:
			value := coerceFor(sub.Value, types.textual(sub.Field))
			if IsUndefined(value) {
				continue
			}
			or.Any = append(or.Any, Condition{Field: sub.Field, Op: OpEqual, Value: value})
		}
	}
	if len(or.Any) == 0 {
		return Condition{}, false
	}
	return or, true
}

func coerceList(raw any, textual bool) []any {
	items, ok := raw.([]any)
	if !ok {
		items = []any{raw}
	}
	values := make([]any, 0, len(items))
	for _, item := range items {
		value := coerceFor(item, textual)
		if IsUndefined(value) {
			continue
		}
		values = append(values, value)
	}
	return values
}

func (t FieldTypes) textual(field string) bool {
	if t == nil {
		return false
	}
	fieldType, ok := t(field)
	if !ok {
		return false
	}
	switch fieldType {
	case domain.FieldTypeString, domain.FieldTypeStrings, domain.FieldTypeReference:
		return true
	}
	return false
}

// coerceFor coerces raw, then puts text back for textual fields. The null and
// undefined literals keep their meaning.
func coerceFor(raw any, textual bool) any {
	value := Coerce(raw)
	if !textual || value == nil || IsUndefined(value) {
		return value
	}
	switch raw.(type) {
	case string:
		return raw
	case float64, int, int64, bool:
		return stringify(raw)
	}
	return value
}

// safePattern returns the pattern when it compiles and its escaped literal form otherwise.
func safePattern(pattern string) string {
	if _, err := regexp.Compile("(?i)" + pattern); err != nil {
		return regexp.QuoteMeta(pattern)
	}
	return pattern
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// StoredValue converts a coerced filter value into the form record fields are stored in.
func StoredValue(v any) any {
	return domain.NormalizeValue(v)
}
