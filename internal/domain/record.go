package domain

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/xid"
)

// TimeLayout is the canonical encoding for timestamps stored inside record fields.
// It is fixed width in UTC so that stored values order lexicographically.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// System field names resolved from record metadata rather than the field map.
const (
	FieldID            = "_id"
	FieldIDAlias       = "id"
	FieldCorrelationID = "correlationId"
	FieldCreatedAt     = "createdAt"
	FieldUpdatedAt     = "updatedAt"
)

// Record is a schema-agnostic document belonging to one tenant collection.
type Record struct {
	ID            uuid.UUID      `json:"_id"`
	TenantID      uuid.UUID      `json:"-"`
	Collection    string         `json:"-"`
	CorrelationID string         `json:"correlationId"`
	Fields        map[string]any `json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// NewRecord creates a record with a fresh primary key and correlation id.
func NewRecord(tenantID uuid.UUID, collection string, fields map[string]any, now time.Time) Record {
	now = now.UTC()
	return Record{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Collection:    collection,
		CorrelationID: xid.New().String(),
		Fields:        NormalizeFields(fields),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// WithFields returns a copy with the given fields merged over the existing ones.
// Fields not present in the patch are left untouched.
func (r Record) WithFields(patch map[string]any, now time.Time) Record {
	merged := CopyFields(r.Fields)
	for key, value := range NormalizeFields(patch) {
		if IsSystemField(key) {
			continue
		}
		merged[key] = value
	}
	r.Fields = merged
	r.UpdatedAt = now.UTC()
	return r
}

// Value resolves a field path, including the system fields and dotted paths into nested maps.
func (r Record) Value(path string) (any, bool) {
	switch path {
	case FieldID, FieldIDAlias:
		return r.ID.String(), true
	case FieldCorrelationID:
		return r.CorrelationID, true
	case FieldCreatedAt:
		return r.CreatedAt.UTC().Format(TimeLayout), true
	case FieldUpdatedAt:
		return r.UpdatedAt.UTC().Format(TimeLayout), true
	}

	var current any = r.Fields
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// MarshalJSON flattens the field map next to the system fields.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+4)
	for key, value := range r.Fields {
		out[key] = value
	}
	out[FieldID] = r.ID
	out[FieldCorrelationID] = r.CorrelationID
	out[FieldCreatedAt] = r.CreatedAt.UTC().Format(TimeLayout)
	out[FieldUpdatedAt] = r.UpdatedAt.UTC().Format(TimeLayout)
	return json.Marshal(out)
}

// GetFieldsAsJSONB encodes the field map for storage.
func (r Record) GetFieldsAsJSONB() ([]byte, error) {
	if r.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.Fields)
}

// FromJSONBFields decodes a stored field map.
func FromJSONBFields(raw []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func IsSystemField(name string) bool {
	switch name {
	case FieldID, FieldIDAlias, FieldCorrelationID, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return false
}

// NormalizeFields converts values into the shapes a JSON store returns them in,
// so every backend observes identical field values.
func NormalizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		out[key] = NormalizeValue(value)
	}
	return out
}

func NormalizeValue(value any) any {
	switch v := value.(type) {
	case nil, string, bool, float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	case uint:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case time.Time:
		return v.UTC().Format(TimeLayout)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.UTC().Format(TimeLayout)
	case uuid.UUID:
		return v.String()
	case []string:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = item
		}
		return items
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = NormalizeValue(item)
		}
		return items
	case map[string]any:
		return NormalizeFields(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return v
		}
		var decoded any
		if err := json.Unmarshal(encoded, &decoded); err != nil {
			return v
		}
		return decoded
	}
}

// CopyFields deep copies a field map.
func CopyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		out[key] = copyValue(value)
	}
	return out
}

func copyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return CopyFields(v)
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = copyValue(item)
		}
		return items
	default:
		return v
	}
}

// Ack acknowledges a delete.
type Ack struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

// AsMap returns the flat representation used when a record is embedded in another.
func (r Record) AsMap() map[string]any {
	out := CopyFields(r.Fields)
	out[FieldID] = r.ID.String()
	out[FieldCorrelationID] = r.CorrelationID
	out[FieldCreatedAt] = r.CreatedAt.UTC().Format(TimeLayout)
	out[FieldUpdatedAt] = r.UpdatedAt.UTC().Format(TimeLayout)
	return out
}
