// Package changeset turns submitted edition forms into the change maps the
// web service expects for create and edit revisions, and compares editions
// selected for a merge.
package changeset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// ID is a numeric row id as submitted by the edit forms. Numbers and
// numeric strings are accepted; null and "" decode to zero, which means
// unset.
type ID int

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("id %q: %w", s, err)
		}
		*id = ID(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n)
	return nil
}

// value returns the id for a change map, nil when unset.
func (id ID) value() any {
	if id == 0 {
		return nil
	}
	return int(id)
}

func (id ID) key() string {
	if id == 0 {
		return ""
	}
	return strconv.Itoa(int(id))
}

type AliasForm struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	SortName string `json:"sortName"`
	Language ID     `json:"language"`
	Primary  bool   `json:"primary"`
	Default  bool   `json:"default"`
}

func (a AliasForm) empty() bool {
	return a.Name == "" && a.SortName == ""
}

func (a AliasForm) change() map[string]any {
	return map[string]any{
		"name":        a.Name,
		"sort_name":   a.SortName,
		"language_id": a.Language.value(),
		"primary":     a.Primary,
		"default":     a.Default,
	}
}

type IdentifierForm struct {
	ID     ID     `json:"id"`
	Value  string `json:"value" validate:"required"`
	TypeID ID     `json:"typeId" validate:"required"`
}

func (i IdentifierForm) change() map[string]any {
	return map[string]any{
		"value": i.Value,
		"identifier_type": map[string]any{
			"identifier_type_id": i.TypeID.value(),
		},
	}
}

// EditionForm is the body posted by the edition create and edit forms.
type EditionForm struct {
	EditionStatusID ID               `json:"editionStatusId"`
	Publication     string           `json:"publication" validate:"omitempty,uuid"`
	Publisher       string           `json:"publisher" validate:"omitempty,uuid"`
	LanguageID      ID               `json:"languageId"`
	ReleaseDate     string           `json:"releaseDate" validate:"omitempty,datetime=2006-01-02"`
	Disambiguation  string           `json:"disambiguation"`
	Annotation      string           `json:"annotation"`
	Note            string           `json:"note"`
	Identifiers     []IdentifierForm `json:"identifiers" validate:"dive"`
	Aliases         []AliasForm      `json:"aliases" validate:"dive"`
}

var validate = validator.New()

// Validate checks the form. Failures are validator.ValidationErrors.
func (f *EditionForm) Validate() error {
	return validate.Struct(f)
}
