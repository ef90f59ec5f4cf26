package domain

import (
	"fmt"
	"slices"
	"strings"
)

// FieldType represents the type of a field in an entity definition
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeInteger   FieldType = "integer"
	FieldTypeFloat     FieldType = "float"
	FieldTypeBoolean   FieldType = "boolean"
	FieldTypeTimestamp FieldType = "timestamp"
	FieldTypeJSON      FieldType = "json"
	FieldTypeStrings   FieldType = "string_list"
	// FieldTypeReference holds the id of a record in ReferenceCollection.
	FieldTypeReference FieldType = "reference"
)

// FieldDefinition describes one field of an entity, in worksheet column order.
type FieldDefinition struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Enum     []string  `json:"enum,omitempty"`
	// ReferenceCollection names the collection a reference field points at.
	ReferenceCollection string `json:"referenceCollection,omitempty"`
}

// Header returns the spreadsheet column header.
func (f FieldDefinition) Header() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// AllowsValue reports whether value is acceptable for an enum field.
func (f FieldDefinition) AllowsValue(value string) bool {
	if len(f.Enum) == 0 {
		return true
	}
	return slices.Contains(f.Enum, value)
}

// EntityDefinition describes how an entity is stored, imported and exported.
type EntityDefinition struct {
	Name       string            `json:"name"`
	Collection string            `json:"collection"`
	Slug       string            `json:"slug"`
	Worksheet  string            `json:"worksheet"`
	Fields     []FieldDefinition `json:"fields"`
	NaturalKey []string          `json:"naturalKey"`
}

// Field returns the named field definition.
func (d EntityDefinition) Field(name string) (FieldDefinition, bool) {
	for _, field := range d.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldDefinition{}, false
}

// FieldType returns the declared type of the named field.
func (d EntityDefinition) FieldType(name string) (FieldType, bool) {
	field, ok := d.Field(name)
	return field.Type, ok
}

// Headers returns the worksheet header row.
func (d EntityDefinition) Headers() []string {
	headers := make([]string, len(d.Fields))
	for i, field := range d.Fields {
		headers[i] = field.Header()
	}
	return headers
}

// References maps reference field names to the collection they point at.
func (d EntityDefinition) References() map[string]string {
	refs := make(map[string]string)
	for _, field := range d.Fields {
		if field.Type == FieldTypeReference && field.ReferenceCollection != "" {
			refs[field.Name] = field.ReferenceCollection
		}
	}
	return refs
}

// NaturalKeyOf extracts the natural key values from a field map. Missing or blank
// components are nil so they match records that lack the field. The second return
// is false when every component is missing.
func (d EntityDefinition) NaturalKeyOf(fields map[string]any) (map[string]any, bool) {
	if len(d.NaturalKey) == 0 {
		return nil, false
	}
	key := make(map[string]any, len(d.NaturalKey))
	present := false
	for _, name := range d.NaturalKey {
		value := fields[name]
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			value = nil
		}
		if value != nil {
			present = true
		}
		key[name] = value
	}
	return key, present
}

// Validate checks the definition is internally consistent.
func (d EntityDefinition) Validate() error {
	if d.Collection == "" {
		return fmt.Errorf("entity %q has no collection", d.Name)
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("entity %q has no fields", d.Name)
	}
	seen := make(map[string]struct{}, len(d.Fields))
	for _, field := range d.Fields {
		if field.Name == "" {
			return fmt.Errorf("entity %q has a field without a name", d.Name)
		}
		if IsSystemField(field.Name) {
			return fmt.Errorf("entity %q redefines system field %q", d.Name, field.Name)
		}
		if _, dup := seen[field.Name]; dup {
			return fmt.Errorf("entity %q defines field %q twice", d.Name, field.Name)
		}
		seen[field.Name] = struct{}{}
	}
	for _, name := range d.NaturalKey {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("entity %q natural key references unknown field %q", d.Name, name)
		}
	}
	return nil
}
