package tool

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldType is the semantic type of a tool argument.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
)

func (t FieldType) supported() bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean:
		return true
	}
	return false
}

// Field declares a single accepted argument.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Default     any
	Description string
	// NonEmpty rejects "" for string fields.
	NonEmpty bool
	Minimum  *float64
	Maximum  *float64
}

// Schema is the ordered set of arguments a tool accepts.
type Schema []Field

// Bound is a helper for Field.Minimum / Field.Maximum literals.
func Bound(v float64) *float64 { return &v }

// MaxEpochSeconds is 9999-12-31T23:59:59Z, the last instant RFC 3339 can
// express. Converted to milliseconds it stays well inside int64.
const MaxEpochSeconds = 253402300799

// check reports the first structural problem with the schema. A malformed schema
// is a programming error, so callers surface it at startup.
func (s Schema) check() error {
	seen := make(map[string]struct{}, len(s))
	for i, f := range s {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("field %d: name is empty", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("field %s: declared twice", f.Name)
		}
		seen[f.Name] = struct{}{}

		if !f.Type.supported() {
			return fmt.Errorf("field %s: unsupported type %q", f.Name, f.Type)
		}
		if f.NonEmpty && f.Type != TypeString {
			return fmt.Errorf("field %s: non-empty only applies to strings", f.Name)
		}
		if (f.Minimum != nil || f.Maximum != nil) && f.Type != TypeInteger && f.Type != TypeNumber {
			return fmt.Errorf("field %s: bounds only apply to numeric fields", f.Name)
		}
		if f.Default == nil {
			continue
		}
		if f.Required {
			return fmt.Errorf("field %s: required field cannot carry a default", f.Name)
		}
		if _, err := coerce(f, f.Default); err != nil {
			return fmt.Errorf("field %s: default %v: %w", f.Name, f.Default, err)
		}
	}
	return nil
}

// jsonSchema renders the structural JSON Schema surfaced to calling agents.
func (s Schema) jsonSchema() *JSONSchema {
	out := &JSONSchema{
		Type:       "object",
		Properties: make(map[string]*Property, len(s)),
		Required:   []string{},
	}
	for _, f := range s {
		prop := &Property{
			Type:        string(f.Type),
			Description: f.Description,
			Minimum:     f.Minimum,
			Maximum:     f.Maximum,
		}
		if f.Default != nil {
			// check() guarantees coercion succeeds.
			prop.Default, _ = coerce(f, f.Default)
		}
		if f.NonEmpty {
			one := 1
			prop.MinLength = &one
		}
		out.Properties[f.Name] = prop
		if f.Required {
			out.Required = append(out.Required, f.Name)
		}
	}
	return out
}

// JSONSchema is the subset of JSON Schema produced for tool inputs.
type JSONSchema struct {
	Type       string               `json:"type" yaml:"type"`
	Properties map[string]*Property `json:"properties" yaml:"properties"`
	Required   []string             `json:"required" yaml:"required"`
}

// Property describes a single input property.
type Property struct {
	Type        string   `json:"type" yaml:"type"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	MinLength   *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
}

func (s *JSONSchema) clone() *JSONSchema {
	if s == nil {
		return nil
	}
	dup := &JSONSchema{
		Type:       s.Type,
		Properties: make(map[string]*Property, len(s.Properties)),
		Required:   append([]string{}, s.Required...),
	}
	for k, p := range s.Properties {
		cp := *p
		dup.Properties[k] = &cp
	}
	return dup
}

// toMap converts the schema into plain JSON values, the form MCP servers expect.
func (s *JSONSchema) toMap() map[string]any {
	raw, err := json.Marshal(s)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"type": "object"}
	}
	return out
}
