package assoc

import "fmt"

// Cardinality is the closed set of relation shapes.
type Cardinality uint8

const (
	// One relations hold a single related node.
	One Cardinality = iota + 1
	// Many relations hold an ordered Collection of related nodes.
	Many
)

func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return fmt.Sprintf("cardinality(%d)", uint8(c))
	}
}

func (c Cardinality) valid() bool {
	return c == One || c == Many
}

// TypeRef points at a relation target either directly or by registered name.
// Named references resolve lazily, which allows a type to reference itself or
// a type defined later.
type TypeRef struct {
	typ  *Type
	name string
}

// Ref references t directly.
func Ref(t *Type) TypeRef {
	return TypeRef{typ: t}
}

// Named references a type by its registered name.
func Named(name string) TypeRef {
	return TypeRef{name: name}
}

// Name returns the referenced type name.
func (r TypeRef) Name() string {
	if r.typ != nil {
		return r.typ.name
	}
	return r.name
}

// IsZero reports whether the reference points nowhere.
func (r TypeRef) IsZero() bool {
	return r.typ == nil && r.name == ""
}

// Relation describes one relational attribute of a type.
type Relation struct {
	Key         string
	Cardinality Cardinality
	Related     TypeRef
	// Options are applied before call-site options whenever this relation
	// constructs related nodes.
	Options []SetOption
}

// HasOne declares a One relation.
func HasOne(key string, related TypeRef, opts ...SetOption) Relation {
	return Relation{Key: key, Cardinality: One, Related: related, Options: opts}
}

// HasMany declares a Many relation.
func HasMany(key string, related TypeRef, opts ...SetOption) Relation {
	return Relation{Key: key, Cardinality: Many, Related: related, Options: opts}
}

func (r Relation) check() error {
	switch {
	case r.Key == "":
		return fmt.Errorf("%w: key is empty", ErrMalformedRelation)
	case !r.Cardinality.valid():
		return fmt.Errorf("%w: %s has %s", ErrMalformedRelation, r.Key, r.Cardinality)
	case r.Related.IsZero():
		return fmt.Errorf("%w: %s has no related type", ErrMalformedRelation, r.Key)
	}
	return nil
}
