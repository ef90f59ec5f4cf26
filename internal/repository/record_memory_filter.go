package repository

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
)

var patternCache sync.Map // string -> *regexp.Regexp

func matchesFilter(record domain.Record, filter query.Filter) bool {
	for _, cond := range filter.Conditions {
		if !matchesCondition(record, cond) {
			return false
		}
	}
	return true
}

func matchesCondition(record domain.Record, cond query.Condition) bool {
	switch cond.Op {
	case query.OpOr:
		for _, sub := range cond.Any {
			if matchesCondition(record, sub) {
				return true
			}
		}
		return false

	case query.OpText:
		text, _ := cond.Value.(string)
		return matchesText(record, query.SearchTerms(text))

	case query.OpExists:
		_, present := record.Value(cond.Field)
		return present == cond.Exists
	}

	value, present := record.Value(cond.Field)

	switch cond.Op {
	case query.OpEqual:
		return equalsOrMissing(value, present, query.StoredValue(cond.Value))

	case query.OpNotEqual:
		return !equalsOrMissing(value, present, query.StoredValue(cond.Value))

	case query.OpGreater, query.OpGreaterOrEqual, query.OpLess, query.OpLessOrEqual:
		if !present {
			return false
		}
		c, ok := compareValues(value, query.StoredValue(cond.Value))
		if !ok {
			return false
		}
		switch cond.Op {
		case query.OpGreater:
			return c > 0
		case query.OpGreaterOrEqual:
			return c >= 0
		case query.OpLess:
			return c < 0
		default:
			return c <= 0
		}

	case query.OpIn:
		return inValues(value, present, cond.Values)

	case query.OpNotIn:
		return !inValues(value, present, cond.Values)

	case query.OpRegex:
		return matchesPattern(value, present, cond.Pattern)

	case query.OpNotContains:
		return !matchesPattern(value, present, cond.Pattern)

	case query.OpArrayContains:
		items, ok := value.([]any)
		if !ok {
			return false
		}
		target := query.StoredValue(cond.Value)
		for _, item := range items {
			if valuesEqual(item, target) {
				return true
			}
		}
		return false

	case query.OpArrayContainsAny:
		items, ok := value.([]any)
		if !ok {
			return false
		}
		for _, item := range items {
			for _, candidate := range cond.Values {
				if valuesEqual(item, query.StoredValue(candidate)) {
					return true
				}
			}
		}
		return false
	}

	return false
}

// equalsOrMissing treats a null target as matching both null and absent fields.
func equalsOrMissing(value any, present bool, target any) bool {
	if target == nil {
		return !present || value == nil
	}
	if !present {
		return false
	}
	return valuesEqual(value, target)
}

func inValues(value any, present bool, candidates []any) bool {
	for _, candidate := range candidates {
		if equalsOrMissing(value, present, query.StoredValue(candidate)) {
			return true
		}
	}
	return false
}

func matchesPattern(value any, present bool, pattern string) bool {
	if !present {
		return false
	}
	s, ok := value.(string)
	if !ok {
		return false
	}
	re := compilePattern(pattern)
	if re == nil {
		return false
	}
	return re.MatchString(s)
}

func compilePattern(pattern string) *regexp.Regexp {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil
	}
	patternCache.Store(pattern, re)
	return re
}

func matchesText(record domain.Record, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	words := make(map[string]struct{})
	collectWords(record.Fields, words)
	for _, term := range terms {
		if _, ok := words[term]; ok {
			return true
		}
	}
	return false
}

func collectWords(value any, words map[string]struct{}) {
	switch v := value.(type) {
	case string:
		for _, word := range query.SearchTerms(v) {
			words[word] = struct{}{}
		}
	case map[string]any:
		for _, item := range v {
			collectWords(item, words)
		}
	case []any:
		for _, item := range v {
			collectWords(item, words)
		}
	}
}

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(domain.NormalizeValue(a), domain.NormalizeValue(b))
}

// compareValues orders two values of the same kind. Values of different kinds
// are not comparable.
func compareValues(a, b any) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// sortRank brackets mixed types: missing and null first, then numbers, strings,
// objects, arrays and booleans.
func sortRank(v any, present bool) int {
	if !present || v == nil {
		return 0
	}
	switch v.(type) {
	case float64:
		return 1
	case string:
		return 2
	case map[string]any:
		return 3
	case []any:
		return 4
	case bool:
		return 5
	}
	return 6
}

func compareForSort(a any, aok bool, b any, bok bool) int {
	ra, rb := sortRank(a, aok), sortRank(b, bok)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if c, ok := compareValues(a, b); ok {
		return c
	}
	return 0
}
