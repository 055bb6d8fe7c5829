package assoc

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRelation reports raw data that cannot be coerced into the
	// declared cardinality, or a relation declaration missing required fields.
	ErrMalformedRelation = errors.New("assoc: malformed relation")
	// ErrDuplicateType is returned when a name is defined twice on one registry.
	ErrDuplicateType = errors.New("assoc: type already defined")
	// ErrEmptyTypeName is returned by Define for blank names.
	ErrEmptyTypeName = errors.New("assoc: type name must not be empty")
	// ErrInvalidPath reports a malformed or unreachable attribute path.
	ErrInvalidPath = errors.New("assoc: invalid path")
	// ErrNoSync is returned by Fetch, Save and Destroy when no Sync is configured.
	ErrNoSync = errors.New("assoc: sync not configured")
)

// UnresolvedTypeError is returned when a relation names a type the registry
// does not know at coercion time.
type UnresolvedTypeError struct {
	Name  string
	Owner string
	Key   string
}

func (e *UnresolvedTypeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Owner == "" {
		return fmt.Sprintf("assoc: type %q is not registered", e.Name)
	}
	return fmt.Sprintf("assoc: %s.%s: type %q is not registered", e.Owner, e.Key, e.Name)
}

// RelationTypeError reports a node assigned to a relation declared for a
// different type.
type RelationTypeError struct {
	Owner string
	Key   string
	Want  string
	Got   string
}

func (e *RelationTypeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("assoc: %s.%s: expected %s node, got %s", e.Owner, e.Key, e.Want, e.Got)
}

func (e *RelationTypeError) Unwrap() error {
	return ErrMalformedRelation
}

// ValidationError carries the message produced by a failed validator or rule.
// It is delivered through the "invalid" event and returned by the mutation.
type ValidationError struct {
	Type    string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("assoc: %s invalid: %s", e.Type, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func malformed(owner, key string, value any) error {
	return fmt.Errorf("%w: %s.%s cannot hold %T", ErrMalformedRelation, owner, key, value)
}
