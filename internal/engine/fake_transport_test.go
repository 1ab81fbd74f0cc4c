package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bookbrainz-site/internal/ws"
)

type call struct {
	Method string
	Path   string
	Body   any
	Token  string
}

// fakeTransport serves canned responses keyed by path and records calls.
type fakeTransport struct {
	mu        sync.Mutex
	responses map[string]map[string]any
	errs      map[string]error
	delays    map[string]time.Duration
	calls     []call
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		responses: map[string]map[string]any{},
		errs:      map[string]error{},
		delays:    map[string]time.Duration{},
	}
}

func (f *fakeTransport) on(path string, resp map[string]any) *fakeTransport {
	f.responses[path] = resp
	return f
}

func (f *fakeTransport) record(method, path string, body any, opts ws.RequestOptions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: method, Path: path, Body: body, Token: opts.AccessToken})
}

func (f *fakeTransport) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeTransport) respond(ctx context.Context, path string) (map[string]any, error) {
	if d := f.delays[path]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errs[path]; err != nil {
		return nil, err
	}
	resp, ok := f.responses[path]
	if !ok {
		return nil, &ws.StatusError{Method: "GET", Path: path, StatusCode: 404}
	}
	return resp, nil
}

func (f *fakeTransport) Get(ctx context.Context, path string, opts ws.RequestOptions) (map[string]any, error) {
	f.record("GET", path, nil, opts)
	return f.respond(ctx, path)
}

func (f *fakeTransport) Post(ctx context.Context, path string, body any, opts ws.RequestOptions) (map[string]any, error) {
	f.record("POST", path, body, opts)
	return map[string]any{"revision": fmt.Sprintf("created at %s", path)}, nil
}

func (f *fakeTransport) Put(ctx context.Context, path string, body any, opts ws.RequestOptions) (map[string]any, error) {
	f.record("PUT", path, body, opts)
	return map[string]any{"revision": fmt.Sprintf("updated %s", path)}, nil
}

func (f *fakeTransport) Delete(ctx context.Context, path string, body any, opts ws.RequestOptions) (map[string]any, error) {
	f.record("DELETE", path, body, opts)
	return map[string]any{"revision": fmt.Sprintf("deleted %s", path)}, nil
}
