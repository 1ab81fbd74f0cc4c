package metadata

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Registry owns every model for the lifetime of the process. Models are
// defined during initialization; Freeze ends that phase and turns the
// registry into a read-only lookup table.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Model
	frozen atomic.Bool
}

func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]*Model),
	}
}

// Define creates a model, registers it under name and, when opts.Base is
// set, copies the base's field set and registers the model as a child of
// the base keyed by name.
func (r *Registry) Define(name string, opts Options) (*Model, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return nil, fmt.Errorf("define %s: %w", name, ErrRegistryFrozen)
	}
	if _, exists := r.models[name]; exists {
		return nil, fmt.Errorf("define %s: %w", name, ErrDuplicateName)
	}

	base := opts.Base
	if base != nil && (base.registry != r || r.models[base.name] != base) {
		return nil, fmt.Errorf("define %s: %w", name, ErrInvalidBase)
	}

	title, err := compileTitle(opts.Title)
	if err != nil {
		return nil, fmt.Errorf("define %s: %w", name, err)
	}

	m := &Model{
		name:         name,
		endpoint:     opts.Endpoint,
		authRequired: opts.AuthRequired,
		abstract:     opts.Abstract,
		base:         base,
		fields:       make(map[string]Field),
		children:     make(map[string]*Model),
		title:        title,
		registry:     r,
	}
	if base != nil {
		for k, f := range base.fields {
			m.fields[k] = f
		}
		base.children[name] = m
	}
	m.keys = sortedKeys(m.fields)

	r.models[name] = m
	return m, nil
}

// Lookup returns the model registered under name, or nil.
func (r *Registry) Lookup(name string) *Model {
	if r.frozen.Load() {
		return r.models[name]
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.models[name]
}

// Models returns all registered models sorted by name.
func (r *Registry) Models() []*Model {
	if !r.frozen.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	models := make([]*Model, 0, len(r.models))
	for _, m := range r.models {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].name < models[j].name })
	return models
}

// Freeze ends the initialization phase. Later Define and Extend calls fail
// with ErrRegistryFrozen.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}
