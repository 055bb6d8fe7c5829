package assoc

import "github.com/goliatone/go-assoc/layering"

// SetOptions is the resolved option bag of one mutation.
type SetOptions struct {
	Silent   bool
	Validate bool
	Parse    bool
	Unset    bool
	At       int
	HasAt    bool
	// Values carries caller data forwarded to nested constructions. Later
	// options win; nested maps are merged.
	Values map[string]any
}

// SetOption configures a mutation.
type SetOption func(*SetOptions)

// Silent suppresses every event for the call. Node.Change fires them later.
func Silent() SetOption {
	return func(o *SetOptions) { o.Silent = true }
}

// Validate runs the type validators before applying the mutation.
func Validate() SetOption {
	return func(o *SetOptions) { o.Validate = true }
}

// Parse runs the type parse hook over raw data before coercion.
func Parse() SetOption {
	return func(o *SetOptions) { o.Parse = true }
}

// At inserts added members at index i.
func At(i int) SetOption {
	return func(o *SetOptions) {
		o.At = i
		o.HasAt = true
	}
}

// WithValues merges values into the option bag.
func WithValues(values map[string]any) SetOption {
	return func(o *SetOptions) {
		if len(values) == 0 {
			return
		}
		o.Values = layering.MergeLayers(values, o.Values)
	}
}

func unsetOption() SetOption {
	return func(o *SetOptions) { o.Unset = true }
}

func resolveSetOptions(opts []SetOption) SetOptions {
	var o SetOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// childOptions orders relation options before call-site options and drops
// the ones that only apply to the receiver.
func childOptions(rel Relation, calls []SetOption) []SetOption {
	out := make([]SetOption, 0, len(rel.Options)+len(calls)+1)
	out = append(out, rel.Options...)
	out = append(out, calls...)
	out = append(out, func(o *SetOptions) {
		o.Unset = false
		o.HasAt = false
	})
	return out
}
