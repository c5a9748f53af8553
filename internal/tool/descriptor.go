package tool

import (
	"fmt"
	"strings"
)

// Descriptor is the introspectable {name, description, inputSchema} triple a
// calling agent lists. It is immutable: accessors hand out copies.
type Descriptor struct {
	name        string
	description string
	schema      Schema
	inputSchema *JSONSchema
}

// NewDescriptor builds a descriptor whose input schema mirrors the given Schema.
func NewDescriptor(schema Schema, name, description string) (Descriptor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Descriptor{}, fmt.Errorf("tool name is empty")
	}
	if strings.TrimSpace(description) == "" {
		return Descriptor{}, fmt.Errorf("tool %s: description is empty", name)
	}
	if err := schema.check(); err != nil {
		return Descriptor{}, fmt.Errorf("tool %s: %w", name, err)
	}
	return Descriptor{
		name:        name,
		description: description,
		schema:      append(Schema(nil), schema...),
		inputSchema: schema.jsonSchema(),
	}, nil
}

// MustDescriptor is NewDescriptor for static definitions; it panics on a
// malformed schema.
func MustDescriptor(schema Schema, name, description string) Descriptor {
	d, err := NewDescriptor(schema, name, description)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Descriptor) Name() string        { return d.name }
func (d Descriptor) Description() string { return d.description }

// InputSchema returns a copy of the structural input schema.
func (d Descriptor) InputSchema() *JSONSchema { return d.inputSchema.clone() }

// InputSchemaMap returns the input schema as plain JSON values.
func (d Descriptor) InputSchemaMap() map[string]any { return d.inputSchema.toMap() }

// CatalogEntry is the serialised descriptor used by listings and exports.
type CatalogEntry struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	InputSchema *JSONSchema `json:"inputSchema" yaml:"inputSchema"`
}

// Entry converts the descriptor to its serialised form.
func (d Descriptor) Entry() CatalogEntry {
	return CatalogEntry{
		Name:        d.name,
		Description: d.description,
		InputSchema: d.InputSchema(),
	}
}
