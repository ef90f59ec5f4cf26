package query

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
)

// ParseOptions controls how tolerant filter decoding is.
type ParseOptions struct {
	// Strict rejects malformed input instead of dropping it.
	Strict bool
}

var errEmptyParam = errors.New("empty parameter")

// ParseFilters decodes the filters parameter. It accepts decoded tuple lists, structured
// {field, operator, value} objects, or a string that is URL-decoded, quote-unwrapped and
// JSON-parsed. In lenient mode malformed clauses are dropped and an unparseable whole
// yields the fallback.
func ParseFilters(raw any, fallback []Clause, opts ParseOptions) ([]Clause, error) {
	items, err := decodeList(raw)
	if err != nil {
		if opts.Strict {
			return nil, apperr.InvalidFilter(err.Error())
		}
		if fallback == nil {
			return []Clause{}, nil
		}
		return fallback, nil
	}

	if len(items) > 0 {
		if _, ok := tupleToClause(items); ok {
			items = []any{items}
		}
	}

	clauses := make([]Clause, 0, len(items))
	for idx, item := range items {
		clause, ok := toClause(item)
		if !ok {
			if opts.Strict {
				return nil, apperr.InvalidFilter(fmt.Sprintf("clause %d is malformed", idx))
			}
			continue
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

// ParseSort decodes the sort parameter into an ordered list of sort keys. Entries that
// are neither {field, direction} objects nor [field, direction] tuples are dropped.
func ParseSort(raw any) []Sort {
	items, err := decodeList(raw)
	if err != nil {
		return []Sort{}
	}

	if len(items) > 0 {
		if _, isString := items[0].(string); isString {
			items = []any{items}
		}
	}

	sorts := make([]Sort, 0, len(items))
	for _, item := range items {
		sort, ok := toSort(item)
		if !ok {
			continue
		}
		sorts = append(sorts, sort)
	}
	return sorts
}

func decodeList(raw any) ([]any, error) {
	switch v := raw.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return v, nil
	case map[string]any:
		return []any{v}, nil
	case []string:
		switch len(v) {
		case 0:
			return []any{}, nil
		case 1:
			return decodeList(v[0])
		default:
			return nil, fmt.Errorf("parameter given %d times", len(v))
		}
	case string:
		if strings.TrimSpace(v) == "" {
			return []any{}, nil
		}
		decoded, err := decodeParam(v)
		if err != nil {
			return nil, err
		}
		switch d := decoded.(type) {
		case []any:
			return d, nil
		case map[string]any:
			return []any{d}, nil
		default:
			return nil, fmt.Errorf("expected a list, got %T", decoded)
		}
	default:
		return nil, fmt.Errorf("unsupported parameter type %T", raw)
	}
}

// decodeParam unwraps a string parameter until it yields a JSON list or object.
func decodeParam(s string) (any, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for attempt := 0; attempt < 4; attempt++ {
		if s == "" {
			return nil, errEmptyParam
		}
		if strings.Contains(s, "%") {
			if unescaped, err := url.PathUnescape(s); err == nil {
				s = unescaped
			}
		}

		var decoded any
		err := json.Unmarshal([]byte(s), &decoded)
		if err == nil {
			if inner, isString := decoded.(string); isString {
				s = strings.TrimSpace(inner)
				continue
			}
			return decoded, nil
		}
		lastErr = err

		inner, ok := unwrapQuotes(s)
		if !ok {
			break
		}
		s = inner
	}
	if lastErr == nil {
		lastErr = errors.New("too deeply encoded")
	}
	return nil, fmt.Errorf("failed to decode parameter: %w", lastErr)
}

func unwrapQuotes(s string) (string, bool) {
	if len(s) < 2 {
		return s, false
	}
	first, last := s[0], s[len(s)-1]
	if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
		inner := s[1 : len(s)-1]
		return strings.TrimSpace(strings.ReplaceAll(inner, `\"`, `"`)), true
	}
	return s, false
}

func toClause(item any) (Clause, bool) {
	if obj, ok := item.(map[string]any); ok {
		field, _ := obj["field"].(string)
		op, ok := obj["operator"].(string)
		if !ok {
			op, _ = obj["op"].(string)
		}
		value, hasValue := obj["value"]
		if strings.TrimSpace(field) == "" || op == "" || !hasValue {
			return Clause{}, false
		}
		return Clause{Field: field, Operator: Operator(op), Value: value}, true
	}
	return tupleToClause(item)
}

// tupleToClause accepts lists of at least three elements whose first element is a
// non-empty field name and whose second is the operator tag.
func tupleToClause(item any) (Clause, bool) {
	tuple, ok := item.([]any)
	if !ok || len(tuple) < 3 {
		return Clause{}, false
	}
	field, ok := tuple[0].(string)
	if !ok || strings.TrimSpace(field) == "" {
		return Clause{}, false
	}
	op, ok := tuple[1].(string)
	if !ok {
		return Clause{}, false
	}
	return Clause{Field: field, Operator: Operator(op), Value: tuple[2]}, true
}

func toSort(item any) (Sort, bool) {
	switch v := item.(type) {
	case map[string]any:
		field, _ := v["field"].(string)
		if strings.TrimSpace(field) == "" {
			return Sort{}, false
		}
		return Sort{Field: field, Direction: ParseDirection(v["direction"])}, true
	case []any:
		if len(v) == 0 || len(v) > 2 {
			return Sort{}, false
		}
		field, ok := v[0].(string)
		if !ok || strings.TrimSpace(field) == "" {
			return Sort{}, false
		}
		var dir any
		if len(v) == 2 {
			dir = v[1]
		}
		return Sort{Field: field, Direction: ParseDirection(dir)}, true
	default:
		return Sort{}, false
	}
}
