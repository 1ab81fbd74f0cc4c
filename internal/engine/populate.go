package engine

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"bookbrainz-site/internal/instrument"
	"bookbrainz-site/internal/metadata"
)

// typeKey is the discriminator selecting a child of an abstract model.
const typeKey = "_type"

// hydrate turns one raw object into an entity of m. Requested references are
// fetched concurrently and joined before returning; the first failure
// cancels the others and fails the whole entity. An empty raw object
// yields a nil entity.
func (e *Engine) hydrate(ctx context.Context, m *metadata.Model, raw any, opts FindOptions) (Entity, error) {
	if raw == nil {
		return nil, nil
	}
	result, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("hydrate %s: object expected, got %T: %w", m.Name(), raw, ErrPayloadShape)
	}
	if len(result) == 0 {
		return nil, nil
	}

	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "engine", "hydrator", "model.hydrate")
	defer span.End()
	span.SetModel(m.Name(), "")

	model := m
	object := Entity{}

	if m.Abstract() {
		tag, _ := result[typeKey].(string)
		child, ok := m.Child(tag)
		if !ok {
			span.SetStatus("error")
			return nil, fmt.Errorf("hydrate %s: %q: %w", m.Name(), tag, ErrNoSuchChild)
		}
		model = child
		object[typeKey] = tag
	}

	// Every reference is validated before any fetch is issued.
	type pending struct {
		key    string
		field  metadata.Field
		target *metadata.Model
		uri    string
		value  any
	}
	var refs []*pending

	for _, key := range model.FieldKeys() {
		field, _ := model.Field(key)
		remote := field.RemoteKey(key)

		if !field.IsRef() {
			if v, ok := result[remote]; ok {
				object[key] = v
			}
			continue
		}

		if !slices.Contains(opts.Populate, key) {
			object[key] = nil
			continue
		}

		target := e.registry.Lookup(field.Model)
		if field.Model == "" || target == nil {
			span.SetStatus("error")
			return nil, fmt.Errorf("hydrate %s.%s: model %q: %w", model.Name(), key, field.Model, ErrUnresolvedModelReference)
		}

		if isFalsy(result[remote]) {
			continue
		}
		uri, ok := result[remote].(string)
		if !ok {
			span.SetStatus("error")
			return nil, fmt.Errorf("hydrate %s.%s: reference is %T: %w", model.Name(), key, result[remote], ErrPayloadShape)
		}
		refs = append(refs, &pending{key: key, field: field, target: target, uri: uri})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range refs {
		p := p
		sub := FindOptions{Path: p.uri, Session: opts.Session}
		g.Go(func() error {
			if p.field.Many {
				list, err := e.Find(gctx, p.target, sub)
				if err != nil {
					return fmt.Errorf("populate %s.%s: %w", model.Name(), p.key, err)
				}
				p.value = list
				return nil
			}
			one, err := e.FindOne(gctx, p.target, "", sub)
			if err != nil {
				return fmt.Errorf("populate %s.%s: %w", model.Name(), p.key, err)
			}
			if one != nil {
				p.value = one
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.SetStatus("error")
		return nil, err
	}

	for _, p := range refs {
		object[p.key] = p.value
	}
	return object, nil
}

// isFalsy reports whether a raw reference value counts as "no reference".
func isFalsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	}
	return false
}
