// Package engine runs model operations against the web service: reads are
// hydrated into entities with requested references resolved, writes are
// projected onto the model's declared fields.
package engine

import (
	"context"
	"net/url"
	"strings"

	"bookbrainz-site/internal/metadata"
	"bookbrainz-site/internal/ws"
)

// Transport is the web service client the engine calls.
type Transport interface {
	Get(ctx context.Context, path string, opts ws.RequestOptions) (map[string]any, error)
	Post(ctx context.Context, path string, body any, opts ws.RequestOptions) (map[string]any, error)
	Put(ctx context.Context, path string, body any, opts ws.RequestOptions) (map[string]any, error)
	Delete(ctx context.Context, path string, body any, opts ws.RequestOptions) (map[string]any, error)
}

// Entity is one hydrated result. Keys are the model's field keys plus
// "_type" for results of abstract models. A nil value marks an unresolved
// reference.
type Entity map[string]any

// FindOptions controls a read.
type FindOptions struct {
	Path        string     // explicit resource path, overrides the model endpoint
	Params      url.Values // query parameters forwarded to the web service
	AccessToken string
	Populate    []string // reference field keys to resolve
	Session     *metadata.Session
}

// WriteOptions controls a create, update or delete.
type WriteOptions struct {
	Session *metadata.Session
}

// Populate splits a comma separated list of field keys.
func Populate(keys string) []string {
	var out []string
	for _, k := range strings.Split(keys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

type Engine struct {
	ws       Transport
	registry *metadata.Registry
}

func New(t Transport, reg *metadata.Registry) *Engine {
	return &Engine{ws: t, registry: reg}
}

// Registry returns the registry models are resolved against.
func (e *Engine) Registry() *metadata.Registry {
	return e.registry
}

// readToken picks the token for a read. An explicit access token wins;
// models that require auth fall back to the session's bearer token.
func readToken(m *metadata.Model, opts FindOptions) string {
	if opts.AccessToken != "" {
		return opts.AccessToken
	}
	if m.AuthRequired() {
		return opts.Session.Token()
	}
	return ""
}

func collectionPath(m *metadata.Model) string {
	return "/" + m.Endpoint() + "/"
}

func objectPath(m *metadata.Model, id string) string {
	return "/" + m.Endpoint() + "/" + url.PathEscape(id) + "/"
}
