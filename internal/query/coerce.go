package query

import (
	"regexp"
	"strconv"
	"time"
)

type undefinedValue struct{}

func (undefinedValue) String() string { return "undefined" }

// Undefined is the coerced form of the literal "undefined". Clauses carrying it are ignored.
var Undefined any = undefinedValue{}

var (
	numberPattern  = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)
)

// Coerce converts a raw filter value into its typed form. Non-strings are returned
// unchanged and strings that match no rule are returned as-is; it never fails.
func Coerce(raw any) any {
	s, ok := raw.(string)
	if !ok {
		return raw
	}

	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	case "undefined":
		return Undefined
	}

	if numberPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	}

	if isoDatePattern.MatchString(s) {
		if ts, ok := parseISODate(s); ok {
			return ts
		}
	}

	return s
}

func parseISODate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// IsUndefined reports whether v is the Undefined marker.
func IsUndefined(v any) bool {
	_, ok := v.(undefinedValue)
	return ok
}

// Truthy follows the loose truthiness used by the exists operators.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case undefinedValue:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
