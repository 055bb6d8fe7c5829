package assoc

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a callable exposed to rule expressions. Arguments arrive in
// serialized form: relations as maps and slices of maps.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions keyed by name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("assoc: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("assoc: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("assoc: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("assoc: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("assoc: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry exposes registry functions to rule expressions.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for rule expressions.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *config) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// StandardFunctions returns a registry holding helpers for serialized
// relations:
//
//	pluck(list, key)   values of key across a Many relation
//	present(value)     false for nil, empty strings, maps and slices
func StandardFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	_ = r.Register("pluck", pluck)
	_ = r.Register("present", present)
	return r
}

func pluck(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("pluck: want 2 arguments, got %d", len(args))
	}
	key, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("pluck: key must be a string, got %T", args[1])
	}
	items, ok := args[0].([]any)
	if !ok && args[0] != nil {
		return nil, fmt.Errorf("pluck: want a list, got %T", args[0])
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m[key])
		}
	}
	return out, nil
}

func present(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("present: want 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case nil:
		return false, nil
	case string:
		return strings.TrimSpace(v) != "", nil
	case []any:
		return len(v) > 0, nil
	case map[string]any:
		return len(v) > 0, nil
	default:
		return true, nil
	}
}
