package assoc

import (
	"reflect"

	"github.com/goliatone/go-assoc/layering"
)

// beginCycle snapshots the node state the first time it takes part in
// change cycle c.
func (n *Node) beginCycle(c uint64) {
	if n.cycle == c {
		return
	}
	n.cycle = c
	n.previous = copyAttrs(n.attrs)
	n.changed = map[string]any{}
	n.touched = map[string]bool{}
}

// touch flags the subtree under a relation key as changed.
func (n *Node) touch(key string) {
	n.beginCycle(n.typ.registry.currentCycle())
	n.touched[key] = true
}

// HasChanged reports whether the last change cycle modified the node. With
// keys, it reports whether any of them changed. A relation key counts as
// changed when anything in its subtree changed.
func (n *Node) HasChanged(keys ...string) bool {
	if len(keys) == 0 {
		return len(n.changed) > 0 || len(n.touched) > 0
	}
	for _, key := range keys {
		if _, ok := n.changed[key]; ok || n.touched[key] {
			return true
		}
	}
	return false
}

// ChangedAttributes returns the attributes modified in the last change
// cycle. Relation keys report the whole current serialized subtree. The
// boolean is false when nothing changed.
func (n *Node) ChangedAttributes() (map[string]any, bool) {
	out := map[string]any{}
	for key, value := range n.changed {
		out[key] = n.snapshotValue(value)
	}
	for key := range n.touched {
		if _, ok := out[key]; ok {
			continue
		}
		out[key] = n.snapshotValue(n.attrs[key])
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// ChangedAttributesFrom returns the entries of diff that differ from the
// current attributes. Relation keys compare serialized forms.
func (n *Node) ChangedAttributesFrom(diff map[string]any) (map[string]any, bool) {
	out := map[string]any{}
	for key, value := range diff {
		current := n.attrs[key]
		switch current.(type) {
		case *Node, *Collection:
			if sameValue(current, value) || reflect.DeepEqual(n.snapshotValue(current), value) {
				continue
			}
		default:
			if reflect.DeepEqual(current, value) {
				continue
			}
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// Previous returns the value key held before the last change cycle.
// Relation values are returned as their serialized state at that time.
func (n *Node) Previous(key string) any {
	value, ok := n.previous[key]
	if !ok {
		return nil
	}
	return previousValue(value, map[*Node]bool{n: true})
}

// PreviousAttributes returns the attribute map as it was before the last
// change cycle, with relations serialized.
func (n *Node) PreviousAttributes() map[string]any {
	stack := map[*Node]bool{n: true}
	out := make(map[string]any, len(n.previous))
	for key, value := range n.previous {
		if prev, keep := previousEntry(value, stack); keep {
			out[key] = prev
		}
	}
	return out
}

func (n *Node) snapshotValue(value any) any {
	switch v := value.(type) {
	case *Node:
		if v == nil {
			return nil
		}
		return walk(v, v.attrs, map[*Node]bool{n: true}, serializeLeaf)
	case *Collection:
		if v == nil {
			return nil
		}
		return serializeMembers(v, map[*Node]bool{n: true})
	default:
		return layering.Clone(value)
	}
}

// previousSnapshot serializes the node state before the current cycle. Nodes
// not touched by the current cycle report their live state.
func (n *Node) previousSnapshot(stack map[*Node]bool) map[string]any {
	attrs := n.attrs
	if n.cycle == n.typ.registry.currentCycle() {
		attrs = n.previous
	}
	stack[n] = true
	defer delete(stack, n)
	out := make(map[string]any, len(attrs))
	for key, value := range attrs {
		if prev, keep := previousEntry(value, stack); keep {
			out[key] = prev
		}
	}
	return out
}

func previousValue(value any, stack map[*Node]bool) any {
	prev, _ := previousEntry(value, stack)
	return prev
}

func previousEntry(value any, stack map[*Node]bool) (any, bool) {
	switch v := value.(type) {
	case *Node:
		if v == nil {
			return nil, true
		}
		if stack[v] {
			return nil, false
		}
		return v.previousSnapshot(stack), true
	case *Collection:
		if v == nil {
			return nil, true
		}
		items := make([]any, 0, len(v.models))
		for _, m := range v.models {
			if stack[m] {
				continue
			}
			items = append(items, m.previousSnapshot(stack))
		}
		return items, true
	default:
		return layering.Clone(value), true
	}
}
