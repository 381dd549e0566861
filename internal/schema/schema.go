// SPDX-License-Identifier: MIT

// Package schema models contract field definitions: the JSON-Schema-like
// documents that describe which fields to extract for a document type.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidSchema indicates a contract definition that cannot be used for
// extraction.
var ErrInvalidSchema = errors.New("schema: invalid contract definition")

// Property describes a single extractable field.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Definition is a contract field schema in object form.
type Definition struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// FieldDef is a single entry of the legacy list form of a contract, where the
// schema is a flat array of named fields instead of a properties object.
type FieldDef struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// FromFieldList converts the legacy list form into object form. Entries
// without a name are skipped; missing types default to string.
func FromFieldList(fields []FieldDef) Definition {
	def := Definition{
		Type:       "object",
		Properties: make(map[string]Property, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			continue
		}
		typ := f.Type
		if typ == "" {
			typ = "string"
		}
		desc := f.Description
		if desc == "" {
			desc = fmt.Sprintf("Extract the %s", f.Name)
		}
		def.Properties[f.Name] = Property{Type: typ, Description: desc}
	}
	return def
}

// Parse decodes raw JSON into a Definition, accepting both the object form
// and the legacy list form.
func Parse(raw json.RawMessage) (Definition, error) {
	var def Definition
	if err := json.Unmarshal(raw, &def); err == nil && def.Properties != nil {
		return def, nil
	}

	var fields []FieldDef
	if err := json.Unmarshal(raw, &fields); err == nil {
		return FromFieldList(fields), nil
	}
	return Definition{}, fmt.Errorf("%w: neither object nor field list", ErrInvalidSchema)
}

// Validate checks a definition for structural soundness: it must declare
// properties, and every property needs a type.
func (d Definition) Validate() error {
	if len(d.Properties) == 0 {
		return fmt.Errorf("%w: must declare at least one property", ErrInvalidSchema)
	}
	for name, prop := range d.Properties {
		if prop.Type == "" {
			return fmt.Errorf("%w: property %q has no type", ErrInvalidSchema, name)
		}
		if !validJSONType(prop.Type) {
			return fmt.Errorf("%w: property %q has unknown type %q", ErrInvalidSchema, name, prop.Type)
		}
	}
	for _, req := range d.Required {
		if _, ok := d.Properties[req]; !ok {
			return fmt.Errorf("%w: required field %q not declared", ErrInvalidSchema, req)
		}
	}
	return nil
}

// Customize returns a copy of the definition with per-field overrides applied.
// Overrides for undeclared fields are ignored.
func (d Definition) Customize(overrides map[string]Property) Definition {
	out := Definition{
		Type:       d.Type,
		Properties: make(map[string]Property, len(d.Properties)),
		Required:   append([]string(nil), d.Required...),
	}
	for name, prop := range d.Properties {
		out.Properties[name] = prop
	}
	for name, override := range overrides {
		current, ok := out.Properties[name]
		if !ok {
			continue
		}
		if override.Type != "" {
			current.Type = override.Type
		}
		if override.Description != "" {
			current.Description = override.Description
		}
		out.Properties[name] = current
	}
	return out
}

// ValidateData checks extracted data against the definition: required fields
// must be present and typed values must match their declared JSON type.
func (d Definition) ValidateData(data map[string]any) error {
	for _, req := range d.Required {
		if v, ok := data[req]; !ok || v == nil {
			return fmt.Errorf("%w: required field %q missing from extracted data", ErrInvalidSchema, req)
		}
	}
	for name, value := range data {
		prop, ok := d.Properties[name]
		if !ok || value == nil {
			continue
		}
		if !matchesJSONType(value, prop.Type) {
			return fmt.Errorf("%w: field %q is not of type %s", ErrInvalidSchema, name, prop.Type)
		}
	}
	return nil
}

func validJSONType(t string) bool {
	switch t {
	case "string", "number", "integer", "boolean", "array", "object":
		return true
	}
	return false
}

func matchesJSONType(v any, t string) bool {
	switch t {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		switch v.(type) {
		case float64, float32, int, int64, json.Number:
			return true
		}
		return false
	case "integer":
		switch n := v.(type) {
		case int, int64:
			return true
		case float64:
			return n == float64(int64(n))
		case json.Number:
			_, err := n.Int64()
			return err == nil
		}
		return false
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	}
	// Unknown declared types are not enforced.
	return true
}
