package assoc

import (
	"github.com/goliatone/go-assoc/layering"
	"github.com/google/uuid"
)

// Validator inspects candidate attributes. A non-nil error rejects the
// mutation; its message becomes the ValidationError message.
type Validator func(attrs map[string]any) error

// ParseFunc normalizes raw data before it is applied to a node.
type ParseFunc func(raw map[string]any) (map[string]any, error)

// Type is a node type definition: its relations, defaults and validation.
// Types are immutable once defined and shared by all their nodes.
type Type struct {
	name        string
	registry    *Registry
	relations   []Relation
	byKey       map[string]int
	defaults    map[string]any
	validators  []Validator
	rules       []Rule
	parse       ParseFunc
	idAttr      string
	sync        Sync
	description string
}

// TypeOption configures a Type during Define.
type TypeOption func(*Type)

// WithRelations declares relational attributes.
func WithRelations(relations ...Relation) TypeOption {
	return func(t *Type) {
		t.relations = append(t.relations, relations...)
	}
}

// WithDefaults sets the attribute defaults. Every node gets its own deep copy.
func WithDefaults(defaults map[string]any) TypeOption {
	return func(t *Type) {
		for key, value := range defaults {
			t.defaults[key] = value
		}
	}
}

// WithValidator appends a validation predicate.
func WithValidator(v Validator) TypeOption {
	return func(t *Type) {
		if v != nil {
			t.validators = append(t.validators, v)
		}
	}
}

// WithRule appends an expression rule evaluated by the registry evaluator.
// A false result rejects the mutation with message.
func WithRule(expr, message string) TypeOption {
	return func(t *Type) {
		t.rules = append(t.rules, Rule{Expr: expr, Message: message})
	}
}

// WithParse sets the parse hook applied when the Parse option is present.
func WithParse(fn ParseFunc) TypeOption {
	return func(t *Type) {
		t.parse = fn
	}
}

// WithIDAttribute overrides the identifier attribute, "id" by default.
func WithIDAttribute(key string) TypeOption {
	return func(t *Type) {
		if key != "" {
			t.idAttr = key
		}
	}
}

// WithSync sets the persistence collaborator for nodes of this type.
func WithSync(s Sync) TypeOption {
	return func(t *Type) {
		t.sync = s
	}
}

// WithDescription attaches a human readable description used by schema export.
func WithDescription(description string) TypeOption {
	return func(t *Type) {
		t.description = description
	}
}

func (t *Type) Name() string { return t.name }

func (t *Type) Registry() *Registry { return t.registry }

func (t *Type) Description() string { return t.description }

func (t *Type) IDAttribute() string { return t.idAttr }

// Relations returns the declared relations in declaration order.
func (t *Type) Relations() []Relation {
	return append([]Relation(nil), t.relations...)
}

// Relation returns the relation declared for key.
func (t *Type) Relation(key string) (Relation, bool) {
	i, ok := t.byKey[key]
	if !ok {
		return Relation{}, false
	}
	return t.relations[i], true
}

// Defaults returns a deep copy of the declared defaults.
func (t *Type) Defaults() map[string]any {
	return layering.Clone(t.defaults)
}

// New constructs a node from the type defaults overlaid with attrs. Relation
// values are coerced; no events fire.
func (t *Type) New(attrs map[string]any, opts ...SetOption) (*Node, error) {
	return t.construct(attrs, false, opts)
}

// construct builds a node. A deferred node keeps its relation values
// unlinked until it is first held, so nodes coerced for a rejected set never
// link the existing nodes they reference.
func (t *Type) construct(attrs map[string]any, deferred bool, opts []SetOption) (*Node, error) {
	o := resolveSetOptions(opts)
	n := t.blank()
	if o.Parse && t.parse != nil {
		parsed, err := t.parse(attrs)
		if err != nil {
			return nil, wrapParseError(t, err)
		}
		attrs = parsed
	}
	values := t.Defaults()
	for key, value := range attrs {
		values[key] = value
	}
	keys := sortedKeys(values)
	next, err := n.coerceAll(keys, values, o, opts)
	if err != nil {
		return nil, err
	}
	if o.Validate {
		if err := t.validate(n, next); err != nil {
			t.registry.cfg.metrics.ValidationFailed(t.name)
			return nil, err
		}
	}
	for _, key := range keys {
		n.attrs[key] = next[key]
	}
	if deferred {
		n.unlinked = true
	} else {
		n.link()
	}
	n.previous = copyAttrs(n.attrs)
	return n, nil
}

// MustNew is New that panics on error.
func (t *Type) MustNew(attrs map[string]any, opts ...SetOption) *Node {
	n, err := t.New(attrs, opts...)
	if err != nil {
		panic(err)
	}
	return n
}

// NewCollection builds a standalone collection of this type.
func (t *Type) NewCollection(values any, opts ...SetOption) (*Collection, error) {
	c := newCollection(t)
	c.live = true
	if values == nil {
		return c, nil
	}
	if _, err := c.Add(values, append([]SetOption{Silent()}, opts...)...); err != nil {
		return nil, err
	}
	return c, nil
}

func (t *Type) blank() *Node {
	return &Node{
		typ:      t,
		cid:      uuid.NewString(),
		attrs:    map[string]any{},
		previous: map[string]any{},
		changed:  map[string]any{},
		touched:  map[string]bool{},
	}
}

func (t *Type) syncer() Sync {
	if t.sync != nil {
		return t.sync
	}
	return t.registry.cfg.sync
}

// validate runs validators then rules over the candidate attributes.
func (t *Type) validate(n *Node, candidate map[string]any) error {
	for _, v := range t.validators {
		if err := v(candidate); err != nil {
			return &ValidationError{Type: t.name, Message: err.Error(), Err: err}
		}
	}
	if len(t.rules) == 0 {
		return nil
	}
	ctx := t.ruleContext(n, candidate)
	for _, rule := range t.rules {
		ok, err := t.registry.evaluateRule(rule, ctx)
		if err != nil {
			return &ValidationError{Type: t.name, Message: err.Error(), Err: err}
		}
		if !ok {
			message := rule.Message
			if message == "" {
				message = "rule failed: " + rule.Expr
			}
			return &ValidationError{Type: t.name, Message: message}
		}
	}
	return nil
}
