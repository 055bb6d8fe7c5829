package assoc

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// Registry owns a set of node types keyed by name. Relations that name their
// target resolve against the registry at coercion time, so definition order
// does not matter.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
	cfg   config

	evalMu sync.Mutex

	cycleMu sync.Mutex
	cycle   uint64
	depth   int
}

// NewRegistry builds an empty registry.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		types: map[string]*Type{},
		cfg:   applyOptions(opts),
	}
}

// Define registers a new type under name.
func (r *Registry) Define(name string, opts ...TypeOption) (*Type, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyTypeName
	}
	t := &Type{
		name:     name,
		registry: r,
		idAttr:   "id",
		byKey:    map[string]int{},
		defaults: map[string]any{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	var errs error
	for i, rel := range t.relations {
		if err := rel.check(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("assoc: type %q relation %d: %w", name, i, err))
			continue
		}
		if _, dup := t.byKey[rel.Key]; dup {
			errs = multierr.Append(errs, fmt.Errorf("assoc: type %q: %w: duplicate key %q", name, ErrMalformedRelation, rel.Key))
			continue
		}
		t.byKey[rel.Key] = i
	}
	if errs != nil {
		return nil, errs
	}

	r.mu.Lock()
	if _, exists := r.types[name]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrDuplicateType, name)
	}
	r.types[name] = t
	r.mu.Unlock()

	r.cfg.logger.V(1).Info("type defined", "type", name, "relations", len(t.relations))
	return t, nil
}

// MustDefine is Define that panics on error. Intended for package-level
// schema declarations.
func (r *Registry) MustDefine(name string, opts ...TypeOption) *Type {
	t, err := r.Define(name, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (*Type, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Resolve returns the type ref points to.
func (r *Registry) Resolve(ref TypeRef) (*Type, error) {
	if ref.typ != nil {
		return ref.typ, nil
	}
	if t, ok := r.Lookup(ref.name); ok {
		return t, nil
	}
	return nil, &UnresolvedTypeError{Name: ref.name}
}

// Names returns registered type names sorted alphabetically.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Types returns registered types sorted by name.
func (r *Registry) Types() []*Type {
	names := r.Names()
	out := make([]*Type, 0, len(names))
	for _, name := range names {
		if t, ok := r.Lookup(name); ok {
			out = append(out, t)
		}
	}
	return out
}

func (r *Registry) resolveRelated(owner *Type, rel Relation) (*Type, error) {
	t, err := r.Resolve(rel.Related)
	if err != nil {
		r.cfg.logger.V(1).Info("relation unresolved", "type", owner.name, "key", rel.Key, "target", rel.Related.Name())
		return nil, &UnresolvedTypeError{Name: rel.Related.Name(), Owner: owner.name, Key: rel.Key}
	}
	return t, nil
}

// begin opens a change cycle. Nested calls share the outermost cycle.
func (r *Registry) begin() uint64 {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()
	if r.depth == 0 {
		r.cycle++
	}
	r.depth++
	return r.cycle
}

func (r *Registry) end() {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()
	if r.depth > 0 {
		r.depth--
	}
}

func (r *Registry) currentCycle() uint64 {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()
	return r.cycle
}
