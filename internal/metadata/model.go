package metadata

import (
	"fmt"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Options configures a model at definition time.
type Options struct {
	Endpoint     string // collection path segment on the web service, e.g. "edition"
	AuthRequired bool
	Abstract     bool
	Base         *Model
	Title        string // expr expression evaluated against a hydrated entity
}

// Model maps one resource type of the web service. A model is mutable only
// until its registry is frozen.
type Model struct {
	name         string
	endpoint     string
	authRequired bool
	abstract     bool
	base         *Model
	fields       map[string]Field
	keys         []string
	children     map[string]*Model
	title        *vm.Program
	registry     *Registry
}

func (m *Model) Name() string       { return m.name }
func (m *Model) Endpoint() string   { return m.endpoint }
func (m *Model) HasEndpoint() bool  { return m.endpoint != "" }
func (m *Model) AuthRequired() bool { return m.authRequired }
func (m *Model) Abstract() bool     { return m.abstract }
func (m *Model) Base() *Model       { return m.base }

// Field returns the descriptor for key and whether it is declared.
func (m *Model) Field(key string) (Field, bool) {
	f, ok := m.fields[key]
	return f, ok
}

// FieldKeys returns the declared field keys in sorted order.
func (m *Model) FieldKeys() []string {
	return m.keys
}

// Fields returns a copy of the declared field set.
func (m *Model) Fields() map[string]Field {
	out := make(map[string]Field, len(m.fields))
	for k, f := range m.fields {
		out[k] = f
	}
	return out
}

// Child returns the concrete model registered under the discriminator tag.
func (m *Model) Child(tag string) (*Model, bool) {
	c, ok := m.children[tag]
	return c, ok
}

// Children returns the discriminator tags of all child models.
func (m *Model) Children() []string {
	tags := make([]string, 0, len(m.children))
	for tag := range m.children {
		tags = append(tags, tag)
	}
	return tags
}

// Extend merges fields into the model's field set, incoming descriptors
// winning on key collision. Every descriptor must carry a type, and the
// model must end up with at least one field.
func (m *Model) Extend(fields map[string]Field) error {
	if fields == nil {
		return ErrInvalidFields
	}
	if m.registry != nil && m.registry.Frozen() {
		return fmt.Errorf("extend %s: %w", m.name, ErrRegistryFrozen)
	}
	if len(fields) == 0 && len(m.fields) == 0 {
		return fmt.Errorf("extend %s: %w", m.name, ErrEmptyModel)
	}

	for key, f := range fields {
		if f.Type == "" {
			return fmt.Errorf("extend %s: field %s: %w", m.name, key, ErrMissingType)
		}
	}

	for key, f := range fields {
		m.fields[key] = f
	}
	m.keys = sortedKeys(m.fields)
	return nil
}

// Project restricts data to the model's declared field keys. Undeclared keys
// are dropped; declared keys missing from data stay absent.
func (m *Model) Project(data map[string]any) map[string]any {
	out := make(map[string]any, len(m.keys))
	for _, key := range m.keys {
		if v, ok := data[key]; ok {
			out[key] = v
		}
	}
	return out
}

// Title evaluates the model's title expression against a hydrated entity.
// Models without an expression are titled by name.
func (m *Model) Title(entity map[string]any) (string, error) {
	if m.title == nil {
		return m.name, nil
	}
	out, err := expr.Run(m.title, map[string]any{
		"entity": entity,
		"model":  m.name,
	})
	if err != nil {
		return "", fmt.Errorf("evaluate title for %s: %w", m.name, err)
	}
	s, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("title for %s did not return a string", m.name)
	}
	return s, nil
}

func compileTitle(src string) (*vm.Program, error) {
	if src == "" {
		return nil, nil
	}
	prog, err := expr.Compile(src, expr.AsKind(reflect.String))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTitle, err)
	}
	return prog, nil
}
