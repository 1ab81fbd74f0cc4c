package changeset

import (
	"slices"

	"bookbrainz-site/internal/engine"
)

// Merge levels reported on an entity page.
const (
	MergeBlocked  = 0 // the entity is the only one selected
	MergeSelect   = 1 // the entity can be added to the selection
	MergeComplete = 2 // the selection includes the entity and others
)

// MergeLevel reports what merge action is available for bbid given the
// entities selected in the session.
func MergeLevel(selection []string, bbid string) int {
	if !slices.Contains(selection, bbid) {
		return MergeSelect
	}
	if len(selection) > 1 {
		return MergeComplete
	}
	return MergeBlocked
}

// Select adds bbid to the selection unless already present.
func Select(selection []string, bbid string) []string {
	if slices.Contains(selection, bbid) {
		return selection
	}
	return append(selection, bbid)
}

// Remove drops bbid from the selection.
func Remove(selection []string, bbid string) []string {
	return slices.DeleteFunc(slices.Clone(selection), func(s string) bool { return s == bbid })
}

// FieldValues lists the distinct values one merge-relevant field takes
// across a set of editions.
type FieldValues struct {
	Field       string `json:"field"`
	Values      []any  `json:"values"`
	Conflicting bool   `json:"conflicting"`
}

var mergeFields = []struct {
	field string
	id    string // identifying key inside the referenced object; empty for scalars
}{
	{"publication", "bbid"},
	{"creator_credit", "creator_credit_id"},
	{"edition_format", "edition_format_id"},
	{"edition_status", "edition_status_id"},
	{"publisher", "bbid"},
	{"language", "language_id"},
	{"release_date", ""},
}

// ConflictingFields compares editions field by field. Empty values are
// ignored; a field conflicts when more than one distinct value remains.
func ConflictingFields(editions []engine.Entity) []FieldValues {
	out := make([]FieldValues, 0, len(mergeFields))
	for _, mf := range mergeFields {
		fv := FieldValues{Field: mf.field, Values: []any{}}
		seen := map[string]bool{}
		for _, ed := range editions {
			if ed == nil {
				continue
			}
			var v any
			if mf.id == "" {
				v = ed[mf.field]
			} else {
				v = nested(ed, mf.field, mf.id)
			}
			k := idKey(v)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			fv.Values = append(fv.Values, v)
		}
		fv.Conflicting = len(fv.Values) > 1
		out = append(out, fv)
	}
	return out
}
