package assoc

import "github.com/goliatone/go-assoc/pkg/activity"

// WithActivityHooks emits node lifecycle events to hooks after Save, Fetch
// and Destroy. Nil hooks are dropped.
func WithActivityHooks(hooks activity.Hooks, channel string) Option {
	return func(cfg *config) {
		cfg.activity = activity.NewEmitter(hooks, activity.Config{Enabled: true, Channel: channel})
	}
}

// WithActivityEmitter installs a preconfigured emitter.
func WithActivityEmitter(emitter *activity.Emitter) Option {
	return func(cfg *config) {
		cfg.activity = emitter
	}
}

// ActivityEnabled reports whether lifecycle events are emitted.
func (r *Registry) ActivityEnabled() bool {
	return r != nil && r.cfg.activity.Enabled()
}
