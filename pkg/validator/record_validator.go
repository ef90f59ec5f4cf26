package validator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
)

// timestampLayouts are tried in order when a timestamp field arrives as text.
var timestampLayouts = []string{
	domain.TimeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"02-01-2006",
}

// ParseTimestamp parses the accepted textual timestamp forms.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format %q", raw)
}

// Mode selects which required-field rules apply.
type Mode int

const (
	// ModeCreate requires every required field to be present.
	ModeCreate Mode = iota
	// ModePatch only checks the fields that are present.
	ModePatch
)

// RecordValidator checks record fields against an entity definition and converts
// them into their stored representation.
type RecordValidator struct{}

func NewRecordValidator() *RecordValidator {
	return &RecordValidator{}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}

// Error joins the messages of every failed field.
func (r ValidationResult) Error() string {
	messages := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		messages[i] = e.Message
	}
	return strings.Join(messages, "; ")
}

func (r *ValidationResult) fail(field, message string, value any) {
	r.IsValid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Value: value})
}

// Normalize validates properties and returns them converted to their stored form.
// System fields are ignored; fields the definition does not know are rejected.
// Blank optional values are dropped on create and cleared on patch.
func (v *RecordValidator) Normalize(properties map[string]any, def domain.EntityDefinition, mode Mode) (map[string]any, ValidationResult) {
	result := ValidationResult{IsValid: true, Errors: []ValidationError{}}
	out := make(map[string]any, len(properties))

	for _, field := range def.Fields {
		value, exists := properties[field.Name]
		blank := !exists || isBlank(value)

		if blank {
			if field.Required && (mode == ModeCreate || exists) {
				result.fail(field.Name, fmt.Sprintf("required field '%s' is missing", field.Name), nil)
			} else if exists && mode == ModePatch {
				out[field.Name] = nil
			}
			continue
		}

		converted, err := convert(field, value)
		if err != nil {
			result.fail(field.Name, err.Error(), value)
			continue
		}
		out[field.Name] = converted
	}

	for name, value := range properties {
		if domain.IsSystemField(name) {
			continue
		}
		if _, ok := def.Field(name); !ok {
			result.fail(name, fmt.Sprintf("property '%s' is not defined for %s", name, def.Name), value)
		}
	}

	return out, result
}

func isBlank(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// convert checks a single value against its field type.
func convert(field domain.FieldDefinition, value any) (any, error) {
	name := field.Name
	switch field.Type {
	case domain.FieldTypeString:
		var s string
		switch v := value.(type) {
		case string:
			s = strings.TrimSpace(v)
		case float64, int, int64, bool:
			s = fmt.Sprint(v)
		default:
			return nil, fmt.Errorf("field '%s' must be a string, got %T", name, value)
		}
		if !field.AllowsValue(s) {
			return nil, fmt.Errorf("field '%s' must be one of [%s], got '%s'", name, strings.Join(field.Enum, ", "), s)
		}
		return s, nil

	case domain.FieldTypeInteger:
		f, ok := toFloat(value)
		if !ok || f != float64(int64(f)) {
			return nil, fmt.Errorf("field '%s' must be an integer, got %v", name, value)
		}
		return f, nil

	case domain.FieldTypeFloat:
		f, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("field '%s' must be a number, got %v", name, value)
		}
		return f, nil

	case domain.FieldTypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("field '%s' must be a boolean, got '%s'", name, v)
			}
			return b, nil
		}
		return nil, fmt.Errorf("field '%s' must be a boolean, got %T", name, value)

	case domain.FieldTypeTimestamp:
		switch v := value.(type) {
		case time.Time:
			return v.UTC().Format(domain.TimeLayout), nil
		case string:
			ts, err := ParseTimestamp(v)
			if err != nil {
				return nil, fmt.Errorf("field '%s' must be a valid timestamp: %v", name, err)
			}
			return ts.Format(domain.TimeLayout), nil
		}
		return nil, fmt.Errorf("field '%s' must be a timestamp string, got %T", name, value)

	case domain.FieldTypeJSON:
		if s, ok := value.(string); ok {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err != nil {
				return nil, fmt.Errorf("field '%s' contains invalid JSON: %v", name, err)
			}
			return domain.NormalizeValue(decoded), nil
		}
		return domain.NormalizeValue(value), nil

	case domain.FieldTypeStrings:
		return toStringList(name, value)

	case domain.FieldTypeReference:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field '%s' must be a reference string, got %T", name, value)
		}
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("field '%s' must be a valid record id: %v", name, err)
		}
		return id.String(), nil
	}

	return nil, fmt.Errorf("unknown field type: %s", field.Type)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// toStringList accepts a list or a comma separated string.
func toStringList(name string, value any) ([]any, error) {
	switch v := value.(type) {
	case string:
		items := []any{}
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		return items, nil
	case []string:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = item
		}
		return items, nil
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field '%s' values must be strings, got %T", name, item)
			}
			items[i] = s
		}
		return items, nil
	}
	return nil, fmt.Errorf("field '%s' must be a list of strings, got %T", name, value)
}
