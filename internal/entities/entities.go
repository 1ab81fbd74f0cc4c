// Package entities declares the models of the BookBrainz web service.
package entities

import (
	"bytes"
	_ "embed"
	"fmt"

	"bookbrainz-site/internal/metadata"
)

//go:embed models.yaml
var declarations []byte

const (
	Entity         = "Entity"
	Creator        = "Creator"
	Edition        = "Edition"
	Publication    = "Publication"
	Publisher      = "Publisher"
	Work           = "Work"
	User           = "User"
	Revision       = "Revision"
	EditionStatus  = "EditionStatus"
	Language       = "Language"
	IdentifierType = "IdentifierType"
)

// Declare defines every BookBrainz model in reg.
func Declare(reg *metadata.Registry) error {
	if err := metadata.LoadDeclarations(reg, bytes.NewReader(declarations)); err != nil {
		return fmt.Errorf("declare entities: %w", err)
	}
	return nil
}
