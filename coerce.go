package assoc

// coerceAll converts the relation-keyed entries of attrs into nodes and
// collections. Nothing is linked until commit, so a failed call leaves no
// trace on existing nodes.
func (n *Node) coerceAll(keys []string, attrs map[string]any, o SetOptions, calls []SetOption) (map[string]any, error) {
	next := make(map[string]any, len(keys))
	for _, key := range keys {
		value := attrs[key]
		rel, ok := n.typ.Relation(key)
		if !ok {
			next[key] = value
			continue
		}
		coerced, err := n.coerce(rel, value, calls)
		if err != nil {
			return nil, err
		}
		next[key] = coerced
	}
	return next, nil
}

func (n *Node) coerce(rel Relation, value any, calls []SetOption) (any, error) {
	related, err := n.typ.registry.resolveRelated(n.typ, rel)
	if err != nil {
		return nil, err
	}
	value = invoke(value)
	opts := childOptions(rel, calls)
	switch rel.Cardinality {
	case One:
		child, err := coerceOne(n.typ.name, rel, related, value, opts)
		if err != nil || child == nil {
			return nil, err
		}
		return child, nil
	case Many:
		current, _ := n.attrs[rel.Key].(*Collection)
		coll, err := coerceMany(n.typ.name, rel, related, value, current, opts)
		if err != nil || coll == nil {
			return nil, err
		}
		return coll, nil
	default:
		return nil, malformed(n.typ.name, rel.Key, value)
	}
}

// invoke resolves deferred relation values.
func invoke(value any) any {
	for {
		switch fn := value.(type) {
		case func() any:
			value = fn()
		case func() map[string]any:
			value = fn()
		case func() []any:
			value = fn()
		case func() []map[string]any:
			value = fn()
		case func() *Node:
			value = fn()
		default:
			return value
		}
	}
}

func coerceOne(owner string, rel Relation, related *Type, value any, opts []SetOption) (*Node, error) {
	switch v := invoke(value).(type) {
	case nil:
		return nil, nil
	case *Node:
		if v == nil {
			return nil, nil
		}
		if v.typ != related {
			return nil, &RelationTypeError{Owner: owner, Key: rel.Key, Want: related.name, Got: v.typ.name}
		}
		return v, nil
	case map[string]any:
		return related.construct(v, true, opts)
	default:
		return nil, malformed(owner, rel.Key, value)
	}
}

func coerceMany(owner string, rel Relation, related *Type, value any, current *Collection, opts []SetOption) (*Collection, error) {
	var items []any
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *Collection:
		if v == nil {
			return nil, nil
		}
		if v == current {
			return v, nil
		}
		if v.typ != related {
			return nil, &RelationTypeError{Owner: owner, Key: rel.Key, Want: related.name, Got: v.typ.name}
		}
		for _, m := range v.models {
			items = append(items, m)
		}
	case []any:
		items = v
	case []map[string]any:
		for _, m := range v {
			items = append(items, m)
		}
	case []*Node:
		for _, m := range v {
			items = append(items, m)
		}
	default:
		return nil, malformed(owner, rel.Key, value)
	}

	coll := newCollection(related)
	for _, item := range items {
		m, err := coerceOne(owner, rel, related, item, opts)
		if err != nil {
			return nil, err
		}
		if m == nil || coll.IndexOf(m) >= 0 {
			continue
		}
		coll.models = append(coll.models, m)
	}
	return coll, nil
}
