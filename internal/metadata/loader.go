package metadata

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Declaration is one model entry of a declarations document.
type Declaration struct {
	Name         string `yaml:"name"`
	Endpoint     string `yaml:"endpoint"`
	AuthRequired bool   `yaml:"auth_required"`
	Abstract     bool   `yaml:"abstract"`
	Base         string `yaml:"base"`
	Title        string `yaml:"title"`
	Fields       any    `yaml:"fields"`
}

type declarations struct {
	Models []Declaration `yaml:"models"`
}

// LoadDeclarations reads a YAML declarations document and defines every
// model it lists, in document order. A base must be declared before the
// models that extend it.
func LoadDeclarations(reg *Registry, r io.Reader) error {
	var doc declarations
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("decode declarations: %w", err)
	}

	for _, d := range doc.Models {
		if err := Declare(reg, d); err != nil {
			return err
		}
	}
	return nil
}

// Declare defines a single model and applies its field declarations.
func Declare(reg *Registry, d Declaration) error {
	opts := Options{
		Endpoint:     d.Endpoint,
		AuthRequired: d.AuthRequired,
		Abstract:     d.Abstract,
		Title:        d.Title,
	}
	if d.Base != "" {
		opts.Base = reg.Lookup(d.Base)
		if opts.Base == nil {
			return fmt.Errorf("declare %s: base %s: %w", d.Name, d.Base, ErrInvalidBase)
		}
	}

	m, err := reg.Define(d.Name, opts)
	if err != nil {
		return err
	}

	// Children may rely on the base's fields alone.
	if d.Fields == nil && d.Base != "" {
		return nil
	}

	raw := d.Fields
	if raw == nil {
		raw = map[string]any{}
	}
	fields, err := ParseFields(raw)
	if err != nil {
		return fmt.Errorf("declare %s: %w", d.Name, err)
	}
	return m.Extend(fields)
}
