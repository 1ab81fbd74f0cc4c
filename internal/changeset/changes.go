package changeset

import (
	"strconv"

	"bookbrainz-site/internal/engine"
)

// Pair is one entry of a list reconciliation: [id, value] modifies, [id, nil]
// removes and [nil, value] adds.
type Pair [2]any

// CreateChanges builds the change map for a new edition. Empty inputs are
// left out.
func CreateChanges(form EditionForm) map[string]any {
	changes := map[string]any{"bbid": nil}

	if form.EditionStatusID != 0 {
		changes["edition_status"] = map[string]any{"edition_status_id": form.EditionStatusID.value()}
	}
	if form.Publication != "" {
		changes["publication"] = form.Publication
	}
	if form.Publisher != "" {
		changes["publisher"] = form.Publisher
	}
	if form.LanguageID != 0 {
		changes["language"] = map[string]any{"language_id": form.LanguageID.value()}
	}
	if form.ReleaseDate != "" {
		changes["release_date"] = form.ReleaseDate
	}
	if form.Disambiguation != "" {
		changes["disambiguation"] = form.Disambiguation
	}
	if form.Annotation != "" {
		changes["annotation"] = form.Annotation
	}
	if form.Note != "" {
		changes["revision"] = map[string]any{"note": form.Note}
	}

	identifiers := make([]map[string]any, 0, len(form.Identifiers))
	for _, ident := range form.Identifiers {
		identifiers = append(identifiers, ident.change())
	}
	if len(identifiers) > 0 {
		changes["identifiers"] = identifiers
	}

	var aliases []map[string]any
	for _, alias := range form.Aliases {
		if alias.empty() {
			continue
		}
		aliases = append(aliases, alias.change())
	}
	if len(aliases) > 0 {
		changes["aliases"] = aliases
	}

	return changes
}

// EditChanges builds the change map for an edit of current, a hydrated
// edition with its aliases and identifiers populated. Scalar and reference
// fields appear only when they differ; clearing one sends nil.
func EditChanges(current map[string]any, form EditionForm) map[string]any {
	changes := map[string]any{"bbid": current["bbid"]}

	if idKey(nested(current, "edition_status", "edition_status_id")) != form.EditionStatusID.key() {
		changes["edition_status"] = wrapID("edition_status_id", form.EditionStatusID)
	}
	if idKey(nested(current, "publication", "bbid")) != form.Publication {
		changes["publication"] = orNil(form.Publication)
	}
	if idKey(nested(current, "publisher", "bbid")) != form.Publisher {
		changes["publisher"] = orNil(form.Publisher)
	}
	if idKey(nested(current, "language", "language_id")) != form.LanguageID.key() {
		changes["language"] = wrapID("language_id", form.LanguageID)
	}
	if idKey(current["release_date"]) != form.ReleaseDate {
		changes["release_date"] = orNil(form.ReleaseDate)
	}
	if idKey(nested(current, "disambiguation", "comment")) != form.Disambiguation {
		changes["disambiguation"] = orNil(form.Disambiguation)
	}
	if idKey(nested(current, "annotation", "content")) != form.Annotation {
		changes["annotation"] = orNil(form.Annotation)
	}
	if form.Note != "" {
		changes["revision"] = map[string]any{"note": form.Note}
	}

	submittedIdents := make(map[string]IdentifierForm, len(form.Identifiers))
	var newIdents []Pair
	for _, ident := range form.Identifiers {
		if ident.ID == 0 {
			newIdents = append(newIdents, Pair{nil, ident.change()})
			continue
		}
		submittedIdents[ident.ID.key()] = ident
	}
	identifiers := make([]Pair, 0, len(form.Identifiers))
	for _, stored := range objects(current["identifiers"]) {
		id := stored["id"]
		if ident, ok := submittedIdents[idKey(id)]; ok {
			identifiers = append(identifiers, Pair{id, ident.change()})
		} else {
			identifiers = append(identifiers, Pair{id, nil})
		}
	}
	changes["identifiers"] = append(identifiers, newIdents...)

	submittedAliases := make(map[string]AliasForm, len(form.Aliases))
	var newAliases []Pair
	for _, alias := range form.Aliases {
		if alias.ID == 0 {
			if !alias.empty() {
				newAliases = append(newAliases, Pair{nil, alias.change()})
			}
			continue
		}
		submittedAliases[alias.ID.key()] = alias
	}
	aliases := make([]Pair, 0, len(form.Aliases))
	for _, stored := range objects(current["aliases"]) {
		id := stored["id"]
		if alias, ok := submittedAliases[idKey(id)]; ok {
			aliases = append(aliases, Pair{id, alias.change()})
		} else {
			aliases = append(aliases, Pair{id, nil})
		}
	}
	changes["aliases"] = append(aliases, newAliases...)

	return changes
}

func wrapID(key string, id ID) any {
	if id == 0 {
		return nil
	}
	return map[string]any{key: id.value()}
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// object returns v as a plain map whether it came hydrated or raw.
func object(v any) map[string]any {
	switch o := v.(type) {
	case engine.Entity:
		return o
	case map[string]any:
		return o
	}
	return nil
}

func objects(v any) []map[string]any {
	var out []map[string]any
	switch list := v.(type) {
	case []engine.Entity:
		for _, e := range list {
			if e != nil {
				out = append(out, e)
			}
		}
	case []any:
		for _, item := range list {
			if o := object(item); o != nil {
				out = append(out, o)
			}
		}
	}
	return out
}

func nested(obj map[string]any, key, inner string) any {
	if o := object(obj[key]); o != nil {
		return o[inner]
	}
	return nil
}

// idKey renders an identifying value for comparison. JSON numbers decode
// as float64, form ids as int.
func idKey(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return ""
}
