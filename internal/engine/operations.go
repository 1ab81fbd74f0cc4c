package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"bookbrainz-site/internal/instrument"
	"bookbrainz-site/internal/metadata"
	"bookbrainz-site/internal/ws"
)

// Find fetches a collection and hydrates every object. The returned list
// keeps the order of the web service response.
func (e *Engine) Find(ctx context.Context, m *metadata.Model, opts FindOptions) ([]Entity, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "engine", "model", "model.find")
	defer span.End()
	span.SetModel(m.Name(), "")

	path := opts.Path
	if path == "" {
		if !m.HasEndpoint() {
			span.SetStatus("error")
			return nil, fmt.Errorf("find %s: %w", m.Name(), ErrNoEndpoint)
		}
		path = collectionPath(m)
	}

	result, err := e.ws.Get(ctx, path, ws.RequestOptions{
		AccessToken: readToken(m, opts),
		Params:      opts.Params,
	})
	if err != nil {
		span.SetStatus("error")
		return nil, fmt.Errorf("find %s: %w", m.Name(), err)
	}

	objects, ok := result["objects"].([]any)
	if !ok {
		span.SetStatus("error")
		return nil, fmt.Errorf("find %s: list expected, but received object: %w", m.Name(), ErrPayloadShape)
	}

	entities := make([]Entity, len(objects))
	g, gctx := errgroup.WithContext(ctx)
	for i, obj := range objects {
		i, obj := i, obj
		g.Go(func() error {
			ent, err := e.hydrate(gctx, m, obj, opts)
			if err != nil {
				return err
			}
			entities[i] = ent
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetStatus("error")
		return nil, fmt.Errorf("find %s: %w", m.Name(), err)
	}

	span.SetMetadata("count", len(entities))
	span.SetStatus("ok")
	return entities, nil
}

// FindOne fetches a single object by id, or by opts.Path when id is empty,
// and hydrates it. A nil entity means the web service returned an empty
// object.
func (e *Engine) FindOne(ctx context.Context, m *metadata.Model, id string, opts FindOptions) (Entity, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "engine", "model", "model.find_one")
	defer span.End()
	span.SetModel(m.Name(), id)

	path := opts.Path
	if path == "" {
		if !m.HasEndpoint() {
			span.SetStatus("error")
			return nil, fmt.Errorf("find %s: %w", m.Name(), ErrNoEndpoint)
		}
		if id == "" {
			span.SetStatus("error")
			return nil, fmt.Errorf("find %s: %w", m.Name(), ErrNoIDOrPath)
		}
		path = objectPath(m, id)
	}

	result, err := e.ws.Get(ctx, path, ws.RequestOptions{
		AccessToken: readToken(m, opts),
		Params:      opts.Params,
	})
	if err != nil {
		span.SetStatus("error")
		return nil, fmt.Errorf("find %s %s: %w", m.Name(), path, err)
	}

	if _, isList := result["objects"].([]any); isList {
		span.SetStatus("error")
		return nil, fmt.Errorf("find %s %s: object expected, but received list: %w", m.Name(), path, ErrPayloadShape)
	}

	ent, err := e.hydrate(ctx, m, result, opts)
	if err != nil {
		span.SetStatus("error")
		return nil, err
	}
	span.SetStatus("ok")
	return ent, nil
}

// Create posts data, projected onto the model's fields, to the model's
// collection. The web service response is returned as is.
func (e *Engine) Create(ctx context.Context, m *metadata.Model, data map[string]any, opts WriteOptions) (map[string]any, error) {
	if err := checkWritable(m, "create"); err != nil {
		return nil, err
	}
	return e.write(ctx, "create", m, "", collectionPath(m), data, opts, e.ws.Post)
}

// Update puts data, projected onto the model's fields, to the object.
func (e *Engine) Update(ctx context.Context, m *metadata.Model, id string, data map[string]any, opts WriteOptions) (map[string]any, error) {
	if err := checkWritable(m, "update"); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("update %s: %w", m.Name(), ErrNoIDOrPath)
	}
	return e.write(ctx, "update", m, id, objectPath(m, id), data, opts, e.ws.Put)
}

// Delete deletes the object. The projected data travels as the request
// body and carries deletion metadata such as the revision note.
func (e *Engine) Delete(ctx context.Context, m *metadata.Model, id string, data map[string]any, opts WriteOptions) (map[string]any, error) {
	if err := checkWritable(m, "delete"); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("delete %s: %w", m.Name(), ErrNoIDOrPath)
	}
	return e.write(ctx, "delete", m, id, objectPath(m, id), data, opts, e.ws.Delete)
}

type sendFunc func(ctx context.Context, path string, body any, opts ws.RequestOptions) (map[string]any, error)

func (e *Engine) write(ctx context.Context, action string, m *metadata.Model, id, path string, data map[string]any, opts WriteOptions, send sendFunc) (map[string]any, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "engine", "model", "model."+action)
	defer span.End()
	span.SetModel(m.Name(), id)

	resp, err := send(ctx, path, m.Project(data), ws.RequestOptions{AccessToken: opts.Session.Token()})
	if err != nil {
		span.SetStatus("error")
		return nil, fmt.Errorf("%s %s: %w", action, m.Name(), err)
	}
	span.SetStatus("ok")
	return resp, nil
}

func checkWritable(m *metadata.Model, action string) error {
	if m.Abstract() {
		return fmt.Errorf("cannot %s instance of abstract model %s: %w", action, m.Name(), ErrAbstractModel)
	}
	if !m.HasEndpoint() {
		return fmt.Errorf("%s %s: %w", action, m.Name(), ErrNoEndpoint)
	}
	return nil
}
