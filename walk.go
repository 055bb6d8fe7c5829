package assoc

import (
	"encoding/json"

	"github.com/goliatone/go-assoc/layering"
)

// walked holds the results of walking one node's attributes. Relation
// values that would re-enter a node on the current branch are left out.
type walked[T any] struct {
	values map[string]any
	one    map[string]T
	many   map[string][]T
	colls  map[string]*Collection
}

// walk visits n depth first and hands the walked attributes to leaf. stack
// holds the ancestors of the current branch only, so a node shared by two
// branches is expanded in both while a cycle is cut where it closes.
func walk[T any](n *Node, attrs map[string]any, stack map[*Node]bool, leaf func(*Node, walked[T]) T) T {
	stack[n] = true
	defer delete(stack, n)

	w := walked[T]{
		values: map[string]any{},
		one:    map[string]T{},
		many:   map[string][]T{},
		colls:  map[string]*Collection{},
	}
	for key, value := range attrs {
		switch v := value.(type) {
		case *Node:
			if v == nil {
				w.values[key] = nil
				continue
			}
			if stack[v] {
				continue
			}
			w.one[key] = walk(v, v.attrs, stack, leaf)
		case *Collection:
			if v == nil {
				w.values[key] = nil
				continue
			}
			items := make([]T, 0, len(v.models))
			for _, m := range v.models {
				if stack[m] {
					continue
				}
				items = append(items, walk(m, m.attrs, stack, leaf))
			}
			w.many[key] = items
			w.colls[key] = v
		default:
			w.values[key] = value
		}
	}
	return leaf(n, w)
}

func serializeLeaf(_ *Node, w walked[map[string]any]) map[string]any {
	out := make(map[string]any, len(w.values)+len(w.one)+len(w.many))
	for key, value := range w.values {
		out[key] = layering.Clone(value)
	}
	for key, child := range w.one {
		out[key] = child
	}
	for key, members := range w.many {
		items := make([]any, len(members))
		for i, m := range members {
			items[i] = m
		}
		out[key] = items
	}
	return out
}

func cloneLeaf(n *Node, w walked[*Node]) *Node {
	c := n.typ.blank()
	for key, value := range w.values {
		c.attrs[key] = layering.Clone(value)
	}
	for key, child := range w.one {
		c.attrs[key] = child
		child.addHolder(holder{owner: c, key: key})
	}
	for key, members := range w.many {
		coll := newCollection(w.colls[key].typ)
		coll.models = members
		c.attrs[key] = coll
		coll.activate(c, key)
	}
	c.previous = copyAttrs(c.attrs)
	return c
}

func serializeMembers(c *Collection, stack map[*Node]bool) []any {
	items := make([]any, 0, len(c.models))
	for _, m := range c.models {
		if stack[m] {
			continue
		}
		items = append(items, walk(m, m.attrs, stack, serializeLeaf))
	}
	return items
}

// serializeCandidate serializes attrs as if they were the attributes of n.
func serializeCandidate(n *Node, attrs map[string]any) map[string]any {
	return walk(n, attrs, map[*Node]bool{}, serializeLeaf)
}

// ToJSON returns the node as plain nested data. Relations are expanded;
// a One relation that closes a cycle is omitted and a Many relation drops
// the member that closes it.
func (n *Node) ToJSON() map[string]any {
	if n == nil {
		return nil
	}
	return walk(n, n.attrs, map[*Node]bool{}, serializeLeaf)
}

// MarshalJSON implements json.Marshaler.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.ToJSON())
}

// MarshalJSON implements json.Marshaler.
func (c *Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToJSON())
}

// Clone returns an independent copy of the graph reachable from n. Shared
// descendants are copied once per branch; back edges of cycles are dropped.
// Handlers are not copied.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	return walk(n, n.attrs, map[*Node]bool{}, cloneLeaf)
}
