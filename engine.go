package assoc

import "fmt"

// EngineOption configures any of the rule engines: expr, CEL or JS.
type EngineOption func(*engineConfig)

type engineConfig struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// EngineProgramCache stores compiled programs in cache. Each engine prefixes
// its keys so one cache can serve all of them.
func EngineProgramCache(cache ProgramCache) EngineOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// EngineFunctions exposes registry functions to expressions by name and
// through call("name", args...).
func EngineFunctions(registry *FunctionRegistry) EngineOption {
	return func(cfg *engineConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

func newEngineConfig(opts []EngineOption) engineConfig {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (cfg engineConfig) cached(key string) (any, bool) {
	if cfg.cache == nil {
		return nil, false
	}
	return cfg.cache.Get(key)
}

func (cfg engineConfig) store(key string, program any) {
	if cfg.cache != nil {
		cfg.cache.Set(key, program)
	}
}

// callables returns the registry functions keyed by the name expressions
// use, plus the generic call form. It is empty without a registry.
func (cfg engineConfig) callables() map[string]Function {
	if cfg.functions == nil {
		return nil
	}
	names := cfg.functions.Names()
	out := make(map[string]Function, len(names)+1)
	for _, name := range names {
		fn := name
		out[fn] = func(args ...any) (any, error) {
			return cfg.functions.Call(fn, args...)
		}
	}
	out["call"] = func(args ...any) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("assoc: call requires a function name")
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("assoc: call name must be a string, got %T", args[0])
		}
		return cfg.functions.Call(name, args[1:]...)
	}
	return out
}

// engineNamer is implemented by the bundled engines.
type engineNamer interface {
	engineName() string
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(engineNamer); ok {
		return named.engineName()
	}
	return "custom"
}
