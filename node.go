package assoc

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// Node is an attribute map whose relation-keyed attributes hold typed child
// nodes or collections. A node may be held by any number of parents and may
// sit on reference cycles.
//
// Nodes are not safe for concurrent use.
type Node struct {
	Events
	Listener

	typ     *Type
	cid     string
	attrs   map[string]any
	holders []holder

	previous map[string]any
	changed  map[string]any
	touched  map[string]bool
	cycle    uint64
	pending  []string
	// unlinked marks a coerced node whose relation values are linked when
	// it is first held.
	unlinked bool

	validationErr error
}

// holder is one link from a child to the node or collection referencing it.
// Collection links resolve owner and key through the collection.
type holder struct {
	owner *Node
	key   string
	coll  *Collection
}

func (h holder) resolve() (*Node, string) {
	if h.coll != nil {
		return h.coll.owner, h.coll.key
	}
	return h.owner, h.key
}

// Type returns the node type.
func (n *Node) Type() *Type { return n.typ }

// CID returns the client id assigned at construction.
func (n *Node) CID() string { return n.cid }

// ID returns the value of the type's id attribute.
func (n *Node) ID() any { return n.attrs[n.typ.idAttr] }

// IsNew reports whether the node has no id yet.
func (n *Node) IsNew() bool { return n.ID() == nil }

// Get returns the attribute stored under key.
func (n *Node) Get(key string) any { return n.attrs[key] }

// Has reports whether key holds a non-nil value.
func (n *Node) Has(key string) bool { return n.attrs[key] != nil }

// One returns the child node held by a One relation.
func (n *Node) One(key string) *Node {
	child, _ := n.attrs[key].(*Node)
	return child
}

// Many returns the collection held by a Many relation.
func (n *Node) Many(key string) *Collection {
	coll, _ := n.attrs[key].(*Collection)
	return coll
}

// Keys returns attribute keys sorted alphabetically.
func (n *Node) Keys() []string {
	return sortedKeys(n.attrs)
}

// Attributes returns a shallow copy of the attribute map.
func (n *Node) Attributes() map[string]any {
	return copyAttrs(n.attrs)
}

// Set applies attrs. Relation values are coerced first; with Validate the
// candidate state is checked and a failure leaves the node untouched.
func (n *Node) Set(attrs map[string]any, opts ...SetOption) error {
	return n.set(attrs, opts)
}

// SetKey sets a single attribute.
func (n *Node) SetKey(key string, value any, opts ...SetOption) error {
	return n.set(map[string]any{key: value}, opts)
}

// Unset removes key.
func (n *Node) Unset(key string, opts ...SetOption) error {
	return n.set(map[string]any{key: nil}, append(opts, unsetOption()))
}

// Clear removes every attribute.
func (n *Node) Clear(opts ...SetOption) error {
	attrs := make(map[string]any, len(n.attrs))
	for key := range n.attrs {
		attrs[key] = nil
	}
	return n.set(attrs, append(opts, unsetOption()))
}

// Trigger fires a custom event on the node and on every collection holding
// it. Custom events are not relayed to parents.
func (n *Node) Trigger(name string, args ...any) {
	n.dispatch(Event{Name: name, Node: n, Args: args})
}

func (n *Node) set(attrs map[string]any, opts []SetOption) error {
	o := resolveSetOptions(opts)
	if o.Parse && n.typ.parse != nil {
		parsed, err := n.typ.parse(attrs)
		if err != nil {
			return wrapParseError(n.typ, err)
		}
		attrs = parsed
	}
	keys := sortedKeys(attrs)
	var next map[string]any
	if o.Unset {
		next = make(map[string]any, len(keys))
		for _, key := range keys {
			next[key] = nil
		}
	} else {
		coerced, err := n.coerceAll(keys, attrs, o, opts)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				n.invalid(verr)
			}
			return err
		}
		next = coerced
	}

	if o.Validate {
		candidate := copyAttrs(n.attrs)
		for _, key := range keys {
			if o.Unset {
				delete(candidate, key)
				continue
			}
			candidate[key] = next[key]
		}
		if err := n.typ.validate(n, candidate); err != nil {
			n.invalid(err)
			return err
		}
	}

	n.commit(keys, next, o)
	return nil
}

func (n *Node) commit(keys []string, next map[string]any, o SetOptions) {
	reg := n.typ.registry
	cycle := reg.begin()
	defer reg.end()
	n.beginCycle(cycle)

	var changes []string
	for _, key := range keys {
		value := next[key]
		current, exists := n.attrs[key]
		if o.Unset {
			if !exists {
				continue
			}
			n.detach(key, current)
			delete(n.attrs, key)
		} else {
			if exists && sameValue(current, value) {
				continue
			}
			n.detach(key, current)
			n.attrs[key] = value
			n.attach(key, value)
		}
		changes = append(changes, key)
		prev, had := n.previous[key]
		if (o.Unset && !had) || (!o.Unset && had && sameValue(prev, value)) {
			delete(n.changed, key)
		} else {
			n.changed[key] = value
		}
	}
	if len(changes) == 0 {
		return
	}
	reg.cfg.metrics.NodeChanged(n.typ.name, len(changes))
	if o.Silent {
		n.pending = appendMissing(n.pending, changes...)
		return
	}
	n.fireChanges(changes)
}

// Change fires the events suppressed by silent mutations since the last call.
func (n *Node) Change() {
	if len(n.pending) == 0 {
		return
	}
	keys := n.pending
	n.pending = nil
	reg := n.typ.registry
	n.cycle = reg.begin()
	defer reg.end()
	n.fireChanges(keys)
}

func (n *Node) fireChanges(keys []string) {
	for _, key := range keys {
		n.emitChange(Event{Name: "change:" + key, Node: n, Value: n.attrs[key]})
	}
	n.emitChange(Event{Name: "change", Node: n})
}

// dispatch delivers ev to the node's handlers and forwards it to every
// collection the node belongs to.
func (n *Node) dispatch(ev Event) {
	n.Events.emit(ev)
	for _, h := range n.holderSnapshot() {
		if h.coll != nil {
			h.coll.forward(ev)
		}
	}
}

func (n *Node) invalid(err error) {
	n.validationErr = err
	n.typ.registry.cfg.metrics.ValidationFailed(n.typ.name)
	n.dispatch(Event{Name: "invalid", Node: n, Err: err})
}

// Validate checks the current attributes.
func (n *Node) Validate() error {
	err := n.typ.validate(n, n.attrs)
	n.validationErr = err
	return err
}

// IsValid reports whether the current attributes pass validation.
func (n *Node) IsValid() bool {
	return n.Validate() == nil
}

// ValidationError returns the error of the last failed validation.
func (n *Node) ValidationError() error {
	return n.validationErr
}

func (n *Node) attach(key string, value any) {
	switch v := value.(type) {
	case *Node:
		if v != nil {
			v.addHolder(holder{owner: n, key: key})
		}
	case *Collection:
		if v != nil {
			v.activate(n, key)
		}
	}
}

func (n *Node) detach(key string, value any) {
	switch v := value.(type) {
	case *Node:
		if v != nil {
			v.removeHolder(holder{owner: n, key: key})
		}
	case *Collection:
		if v != nil && v.owner == n && v.key == key {
			v.release()
		}
	}
}

func (n *Node) addHolder(h holder) {
	n.holders = append(n.holders, h)
	if n.unlinked {
		n.unlinked = false
		n.link()
	}
}

// link attaches every relation value of n to n.
func (n *Node) link() {
	for _, key := range sortedKeys(n.attrs) {
		n.attach(key, n.attrs[key])
	}
}

func (n *Node) removeHolder(h holder) {
	for i, existing := range n.holders {
		if existing == h {
			n.holders = append(n.holders[:i:i], n.holders[i+1:]...)
			return
		}
	}
}

func (n *Node) holderSnapshot() []holder {
	if len(n.holders) == 0 {
		return nil
	}
	return append([]holder(nil), n.holders...)
}

// Holders returns the nodes currently holding n, with the relation key they
// hold it under, in link order.
func (n *Node) Holders() []HolderRef {
	out := make([]HolderRef, 0, len(n.holders))
	for _, h := range n.holders {
		owner, key := h.resolve()
		if owner == nil {
			continue
		}
		out = append(out, HolderRef{Node: owner, Key: key, Collection: h.coll})
	}
	return out
}

// HolderRef describes one parent link.
type HolderRef struct {
	Node       *Node
	Key        string
	Collection *Collection
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if id := n.ID(); id != nil {
		return fmt.Sprintf("%s(%v)", n.typ.name, id)
	}
	return fmt.Sprintf("%s(%s)", n.typ.name, n.cid)
}

func wrapParseError(t *Type, err error) error {
	return fmt.Errorf("assoc: parse %s: %w", t.name, err)
}

func sameValue(a, b any) bool {
	switch av := a.(type) {
	case *Node:
		bv, ok := b.(*Node)
		return ok && av == bv
	case *Collection:
		bv, ok := b.(*Collection)
		return ok && av == bv
	}
	switch b.(type) {
	case *Node, *Collection:
		return false
	}
	return reflect.DeepEqual(a, b)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func copyAttrs(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

func appendMissing(list []string, values ...string) []string {
	for _, value := range values {
		found := false
		for _, existing := range list {
			if existing == value {
				found = true
				break
			}
		}
		if !found {
			list = append(list, value)
		}
	}
	return list
}
