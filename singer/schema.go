package singer

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// TypeSet is a JSON-schema type declaration. On the wire it is either a
// single string ("integer") or a list (["null","integer"]).
type TypeSet []string

// MarshalJSON emits a bare string for single-type sets.
func (t TypeSet) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

// UnmarshalJSON accepts both encodings.
func (t *TypeSet) UnmarshalJSON(raw []byte) error {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		*t = TypeSet{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("parse type declaration: %w", err)
	}
	*t = TypeSet(list)
	return nil
}

// Contains reports whether typ is one of the declared types.
func (t TypeSet) Contains(typ string) bool {
	for _, v := range t {
		if v == typ {
			return true
		}
	}
	return false
}

// Nullable reports whether "null" is among the declared types.
func (t TypeSet) Nullable() bool { return t.Contains("null") }

// Schema is the JSON-schema subset used by Singer streams.
type Schema struct {
	Type       TypeSet            `json:"type,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Format     string             `json:"format,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

// Property returns the schema for the named property, or nil when the
// property is not declared.
func (s *Schema) Property(name string) *Schema {
	if s == nil || s.Properties == nil {
		return nil
	}
	return s.Properties[name]
}

// IsBoolean reports whether the schema declares a boolean type.
func (s *Schema) IsBoolean() bool {
	return s != nil && s.Type.Contains("boolean")
}

// ParseSchema decodes a JSON schema document.
func ParseSchema(raw []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &s, nil
}
