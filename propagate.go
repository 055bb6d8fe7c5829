package assoc

import "strconv"

// pass tracks the composed events re-emitted for one primitive event. A
// whole pass is the one raised by a plain change, where every holder reached
// also fires its own plain change.
type pass struct {
	seen  map[passKey]bool
	whole bool
}

type passKey struct {
	node *Node
	name string
}

func newPass(whole bool) *pass {
	return &pass{seen: map[passKey]bool{}, whole: whole}
}

// mark records name as emitted on n and reports whether it was new.
func (p *pass) mark(n *Node, name string) bool {
	key := passKey{node: n, name: name}
	if p.seen[key] {
		return false
	}
	p.seen[key] = true
	return true
}

// emitChange fires a primitive change event on n and composes it onto every
// holder, transitively.
func (n *Node) emitChange(ev Event) {
	n.dispatch(ev)
	suffix := ""
	if ev.Name != "change" {
		suffix = ev.Name[len("change:"):]
	}
	p := newPass(suffix == "")
	p.mark(n, ev.Name)
	p.bubble(n, ev, "change", suffix, true, []*Node{n})
}

// propagateStructural composes a membership event onto the collection owner
// as "<event>:<key>" and bubbles it further up.
func (c *Collection) propagateStructural(ev Event) {
	owner := c.owner
	if owner == nil {
		return
	}
	name := ev.Name + ":" + c.key
	p := newPass(false)
	p.mark(owner, name)
	owner.touch(c.key)
	owner.dispatch(Event{Name: name, Node: ev.Node, Collection: c})
	owner.typ.registry.cfg.metrics.EventComposed(owner.typ.name)
	p.bubble(owner, ev, ev.Name, c.key, false, []*Node{owner})
}

// bubble re-emits kind:<path> on each holder of child. The index of child
// in a holding collection is part of the path only on the first hop. chain
// holds the nodes already on this branch: a holder found on it would only
// lengthen the path around a cycle, so the branch stops there. The plain
// change a holder fires in a whole pass stays local; its ancestors learn of
// it through the composed path.
func (p *pass) bubble(child *Node, origin Event, kind, suffix string, first bool, chain []*Node) {
	for _, h := range child.holderSnapshot() {
		owner, key := h.resolve()
		if owner == nil || containsNode(chain, owner) {
			continue
		}
		segment := key
		if first && h.coll != nil {
			i := h.coll.IndexOf(child)
			if i < 0 {
				continue
			}
			segment = key + "[" + strconv.Itoa(i) + "]"
		}
		path := segment
		if suffix != "" {
			path += "." + suffix
		}
		name := kind + ":" + path
		if !p.mark(owner, name) {
			continue
		}

		owner.touch(key)
		owner.dispatch(Event{
			Name:       name,
			Node:       origin.Node,
			Collection: origin.Collection,
			Value:      origin.Value,
			Args:       origin.Args,
		})
		owner.typ.registry.cfg.metrics.EventComposed(owner.typ.name)

		next := append(chain[:len(chain):len(chain)], owner)
		p.bubble(owner, origin, kind, path, false, next)

		if p.whole && p.mark(owner, "change") {
			owner.dispatch(Event{Name: "change", Node: owner})
		}
	}
}
