package metadata

import (
	"fmt"
	"sort"
)

// TypeRef marks a field whose raw value is the path of another resource.
const TypeRef = "ref"

// Field describes one attribute of a model.
type Field struct {
	Type  string `json:"type" yaml:"type"`
	Map   string `json:"map,omitempty" yaml:"map,omitempty"`     // remote key, defaults to the field key
	Model string `json:"model,omitempty" yaml:"model,omitempty"` // target model name, refs only
	Many  bool   `json:"many,omitempty" yaml:"many,omitempty"`   // ref resolves to a list
}

// IsRef returns true if the field references another model.
func (f Field) IsRef() bool {
	return f.Type == TypeRef
}

// RemoteKey returns the key the field is read from in a raw payload.
func (f Field) RemoteKey(key string) string {
	if f.Map != "" {
		return f.Map
	}
	return key
}

// ParseFields converts a loosely typed field mapping (as decoded from YAML or
// JSON) into field descriptors. Missing types are not checked here; Extend
// does that.
func ParseFields(raw any) (map[string]Field, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrInvalidFields
	}

	fields := make(map[string]Field, len(m))
	for key, v := range m {
		desc, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s: %w", key, ErrInvalidField)
		}
		var f Field
		f.Type, _ = desc["type"].(string)
		f.Map, _ = desc["map"].(string)
		f.Model, _ = desc["model"].(string)
		f.Many, _ = desc["many"].(bool)
		fields[key] = f
	}
	return fields, nil
}

func sortedKeys(fields map[string]Field) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
