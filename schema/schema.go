// Package schema declares the structured-output contract an agent must
// honor: a set of named fields with primitive types and optional defaults.
// The parser package validates parsed values against a Schema; the agent
// package renders a Schema into prompt instructions.
package schema

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// FieldType enumerates the primitive types a schema field can declare.
type FieldType string

const (
	// TypeString is a UTF-8 text field.
	TypeString FieldType = "string"
	// TypeFloat is a floating point number field.
	TypeFloat FieldType = "float"
	// TypeInteger is a whole number field.
	TypeInteger FieldType = "integer"
	// TypeBoolean is a true/false field.
	TypeBoolean FieldType = "boolean"
)

func (t FieldType) valid() bool {
	switch t {
	case TypeString, TypeFloat, TypeInteger, TypeBoolean:
		return true
	}
	return false
}

// Field describes one named schema field. A nil Default marks the field as
// required: every parsed output must supply a value for it.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Default     any
}

// Required reports whether the field has no default and must be supplied.
func (f Field) Required() bool { return f.Default == nil }

// FieldError reports a schema violation for a single field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("schema violation on field %q: %s", e.Field, e.Reason)
}

// Schema is an immutable, ordered field contract. Field names are unique;
// construction fails otherwise.
type Schema struct {
	fields []Field
	index  map[string]int
}

// New builds a Schema from the given fields, enforcing unique names, known
// types and type-correct defaults.
func New(fields ...Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema requires at least one field")
	}
	s := &Schema{fields: make([]Field, len(fields)), index: make(map[string]int, len(fields))}
	copy(s.fields, fields)
	for i, f := range s.fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema field %d has empty name", i)
		}
		if !f.Type.valid() {
			return nil, fmt.Errorf("schema field %q has unknown type %q", f.Name, f.Type)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate schema field %q", f.Name)
		}
		if f.Default != nil {
			norm, err := coerce(f.Type, f.Default)
			if err != nil {
				return nil, fmt.Errorf("default for field %q: %w", f.Name, err)
			}
			s.fields[i].Default = norm
		}
		s.index[f.Name] = i
	}
	return s, nil
}

// Fields returns a copy of the ordered field list.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Lookup returns the field with the given name.
func (s *Schema) Lookup(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Validate checks values against the schema and returns a normalized copy:
// every declared field is present (defaults fill optional gaps), every value
// is coerced to the field's canonical Go type (string, float64, int64, bool),
// and keys not declared by the schema are dropped. A missing required field
// or a type mismatch yields a *FieldError.
func (s *Schema) Validate(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		v, ok := values[f.Name]
		if !ok || v == nil {
			if f.Required() {
				return nil, &FieldError{Field: f.Name, Reason: "required field missing"}
			}
			out[f.Name] = f.Default
			continue
		}
		norm, err := coerce(f.Type, v)
		if err != nil {
			return nil, &FieldError{Field: f.Name, Reason: err.Error()}
		}
		out[f.Name] = norm
	}
	return out, nil
}

// coerce converts v to the canonical Go representation for t.
func coerce(t FieldType, v any) (any, error) {
	switch t {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case TypeInteger:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n == math.Trunc(n) {
				return int64(n), nil
			}
			return nil, fmt.Errorf("expected integer, got fractional number %v", n)
		}
	case TypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("expected %s, got %T", t, v)
}

// Instructions renders the schema as model-facing prompt text asking for a
// single JSON object with the declared fields.
func (s *Schema) Instructions() string {
	var b strings.Builder
	b.WriteString("Respond with a single JSON object containing exactly these fields:\n")
	for _, f := range s.fields {
		b.WriteString(fmt.Sprintf("- %q (%s)", f.Name, f.Type))
		if f.Description != "" {
			b.WriteString(": " + f.Description)
		}
		if !f.Required() {
			b.WriteString(fmt.Sprintf(" (optional, default %v)", f.Default))
		}
		b.WriteString("\n")
	}
	b.WriteString("Do not include any text outside the JSON object.")
	return b.String()
}

// Names returns the sorted field names, mainly for error messages and tests.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.index))
	for n := range s.index {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
