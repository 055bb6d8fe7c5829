package assoc

import (
	"fmt"
	"reflect"
)

// Collection is an ordered set of nodes of one type. A collection held by a
// Many relation knows its owner and key; events raised by members are
// forwarded to the collection handlers and composed onto the owner.
type Collection struct {
	Events

	typ    *Type
	owner  *Node
	key    string
	models []*Node
	// live is set once members carry a holder link to the collection.
	live bool
}

func newCollection(t *Type) *Collection {
	return &Collection{typ: t}
}

// Type returns the member type.
func (c *Collection) Type() *Type { return c.typ }

// Owner returns the node and relation key holding the collection.
func (c *Collection) Owner() (*Node, string) { return c.owner, c.key }

// Len returns the number of members.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.models)
}

// At returns the member at index i, or nil when out of range.
func (c *Collection) At(i int) *Node {
	if c == nil || i < 0 || i >= len(c.models) {
		return nil
	}
	return c.models[i]
}

// Models returns a copy of the member slice.
func (c *Collection) Models() []*Node {
	if c == nil {
		return nil
	}
	return append([]*Node(nil), c.models...)
}

// IndexOf returns the position of m, or -1.
func (c *Collection) IndexOf(m *Node) int {
	if c == nil || m == nil {
		return -1
	}
	for i, existing := range c.models {
		if existing == m {
			return i
		}
	}
	return -1
}

// Contains reports membership.
func (c *Collection) Contains(m *Node) bool {
	return c.IndexOf(m) >= 0
}

// Get finds a member by id or client id.
func (c *Collection) Get(id any) *Node {
	if c == nil || id == nil {
		return nil
	}
	if m, ok := id.(*Node); ok {
		if c.Contains(m) {
			return m
		}
		return nil
	}
	for _, m := range c.models {
		if mid := m.ID(); mid != nil && sameID(mid, id) {
			return m
		}
		if s, ok := id.(string); ok && m.cid == s {
			return m
		}
	}
	return nil
}

// sameID compares ids of the same dynamic type directly. Ids of different
// types never match, so 7 and "7" are distinct, while numeric ids decoded as
// float64 still match their int form.
func sameID(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == tb {
		if ta.Comparable() {
			return a == b
		}
		return reflect.DeepEqual(a, b)
	}
	x, okA := numericID(a)
	y, okB := numericID(b)
	return okA && okB && x == y
}

func numericID(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Filter returns the members fn accepts, in order.
func (c *Collection) Filter(fn func(*Node) bool) []*Node {
	if c == nil || fn == nil {
		return nil
	}
	var out []*Node
	for _, m := range c.models {
		if fn(m) {
			out = append(out, m)
		}
	}
	return out
}

// Add coerces value into members and inserts the ones not already present.
// Value may be a node, raw attributes, or a slice of either. Nothing is added
// when any element fails.
func (c *Collection) Add(value any, opts ...SetOption) ([]*Node, error) {
	o := resolveSetOptions(opts)
	incoming, err := c.coerceMembers(value, opts)
	if err != nil {
		return nil, err
	}
	var added []*Node
	for _, m := range incoming {
		if c.Contains(m) || containsNode(added, m) {
			continue
		}
		added = append(added, m)
	}
	if len(added) == 0 {
		return nil, nil
	}

	reg := c.typ.registry
	reg.begin()
	defer reg.end()

	at := len(c.models)
	if o.HasAt && o.At >= 0 && o.At < at {
		at = o.At
	}
	models := make([]*Node, 0, len(c.models)+len(added))
	models = append(models, c.models[:at]...)
	models = append(models, added...)
	models = append(models, c.models[at:]...)
	c.models = models

	if c.live {
		for _, m := range added {
			m.addHolder(holder{coll: c})
		}
	}
	if !o.Silent {
		for _, m := range added {
			c.structural("add", m)
		}
	}
	return added, nil
}

// Remove drops the members matched by value: a node, an id, a client id, or
// a slice of those. It returns the removed members.
func (c *Collection) Remove(value any, opts ...SetOption) []*Node {
	o := resolveSetOptions(opts)
	var targets []*Node
	for _, item := range flatten(value) {
		if m := c.Get(item); m != nil && !containsNode(targets, m) {
			targets = append(targets, m)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	reg := c.typ.registry
	reg.begin()
	defer reg.end()

	var removed []*Node
	for _, m := range targets {
		i := c.IndexOf(m)
		if i < 0 {
			continue
		}
		c.models = append(c.models[:i:i], c.models[i+1:]...)
		if c.live {
			m.removeHolder(holder{coll: c})
		}
		removed = append(removed, m)
		if !o.Silent {
			c.structural("remove", m)
		}
	}
	return removed
}

// Reset replaces every member with value and fires a single reset event.
func (c *Collection) Reset(value any, opts ...SetOption) error {
	o := resolveSetOptions(opts)
	incoming, err := c.coerceMembers(value, opts)
	if err != nil {
		return err
	}
	var next []*Node
	for _, m := range incoming {
		if !containsNode(next, m) {
			next = append(next, m)
		}
	}

	reg := c.typ.registry
	reg.begin()
	defer reg.end()

	if c.live {
		for _, m := range c.models {
			m.removeHolder(holder{coll: c})
		}
		for _, m := range next {
			m.addHolder(holder{coll: c})
		}
	}
	c.models = next
	if !o.Silent {
		c.structural("reset", nil)
	}
	return nil
}

// ToJSON serializes every member.
func (c *Collection) ToJSON() []any {
	if c == nil {
		return nil
	}
	out := make([]any, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m.ToJSON())
	}
	return out
}

func (c *Collection) String() string {
	if c.owner == nil {
		return fmt.Sprintf("Collection<%s>(%d)", c.typ.name, len(c.models))
	}
	return fmt.Sprintf("%s.%s(%d)", c.owner, c.key, len(c.models))
}

// activate binds the collection to owner and links its members.
func (c *Collection) activate(owner *Node, key string) {
	c.owner = owner
	c.key = key
	if c.live {
		return
	}
	c.live = true
	for _, m := range c.models {
		m.addHolder(holder{coll: c})
	}
}

// release unbinds the collection from its owner and drops the members' link
// to it. A released collection no longer forwards member events.
func (c *Collection) release() {
	if c.live {
		for _, m := range c.models {
			m.removeHolder(holder{coll: c})
		}
	}
	c.live = false
	c.owner = nil
	c.key = ""
}

// forward relays a member event to the collection handlers.
func (c *Collection) forward(ev Event) {
	c.Events.emit(ev)
	if ev.Name == "destroy" && ev.Node != nil && c.Contains(ev.Node) {
		c.Remove(ev.Node)
	}
}

// structural fires a membership event on the member, the collection and,
// composed, on the owner.
func (c *Collection) structural(name string, m *Node) {
	ev := Event{Name: name, Node: m, Collection: c}
	if m != nil {
		m.Events.emit(ev)
	}
	c.Events.emit(ev)
	c.propagateStructural(ev)
}

func (c *Collection) coerceMembers(value any, calls []SetOption) ([]*Node, error) {
	rel := Relation{Key: c.key, Cardinality: Many, Related: Ref(c.typ)}
	ownerName := ""
	if c.owner != nil {
		ownerName = c.owner.typ.name
		if declared, ok := c.owner.typ.Relation(c.key); ok {
			rel = declared
		}
	}
	if ownerName == "" {
		ownerName = "Collection<" + c.typ.name + ">"
	}
	opts := childOptions(rel, calls)

	var out []*Node
	for _, item := range flatten(value) {
		m, err := coerceOne(ownerName, rel, c.typ, item, opts)
		if err != nil {
			return nil, err
		}
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

// flatten expands the value shapes accepted by Add, Remove and Reset.
func flatten(value any) []any {
	switch v := invoke(value).(type) {
	case nil:
		return nil
	case []any:
		return v
	case []*Node:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, id := range v {
			out[i] = id
		}
		return out
	case *Collection:
		return flatten(v.Models())
	default:
		return []any{v}
	}
}

func containsNode(list []*Node, m *Node) bool {
	for _, existing := range list {
		if existing == m {
			return true
		}
	}
	return false
}
