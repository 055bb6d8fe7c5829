package assoc

import (
	"fmt"
	"sort"
	"strings"
)

// FieldDescriptor describes an attribute path of a type and its inferred
// Go type. Relations are reported as "one:<Type>" or "many:<Type>".
type FieldDescriptor struct {
	Path string
	Type string
}

// Describe lists the attribute paths of t, following relations. Scalar types
// are inferred from the declared defaults. A relation that re-enters a type
// already on the current path is listed but not expanded.
func (t *Type) Describe() []FieldDescriptor {
	fields := t.describe("", map[*Type]bool{})
	if fields == nil {
		fields = []FieldDescriptor{}
	}
	return fields
}

func (t *Type) describe(prefix string, stack map[*Type]bool) []FieldDescriptor {
	stack[t] = true
	defer delete(stack, t)

	var fields []FieldDescriptor
	for _, key := range sortedKeys(t.defaults) {
		if _, ok := t.byKey[key]; ok {
			continue
		}
		fields = append(fields, deriveFieldDescriptors(t.defaults[key], joinPath(prefix, key))...)
	}
	for _, rel := range t.relations {
		path := joinPath(prefix, rel.Key)
		related, err := t.registry.Resolve(rel.Related)
		if err != nil {
			fields = append(fields, FieldDescriptor{Path: path, Type: rel.Cardinality.String() + ":" + rel.Related.Name() + "?"})
			continue
		}
		fields = append(fields, FieldDescriptor{Path: path, Type: rel.Cardinality.String() + ":" + related.name})
		if stack[related] {
			continue
		}
		if rel.Cardinality == Many {
			path += "[]"
		}
		fields = append(fields, related.describe(path, stack)...)
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Path < fields[j].Path })
	return fields
}

func deriveFieldDescriptors(value any, prefix string) []FieldDescriptor {
	switch typed := value.(type) {
	case nil:
		return []FieldDescriptor{{Path: prefix, Type: "any"}}
	case map[string]any:
		if len(typed) == 0 {
			return []FieldDescriptor{{Path: prefix, Type: "map[string]any"}}
		}
		var fields []FieldDescriptor
		for _, key := range sortedKeys(typed) {
			fields = append(fields, deriveFieldDescriptors(typed[key], joinPath(prefix, key))...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return []FieldDescriptor{{Path: prefix, Type: "[]" + elementType}}
	default:
		return []FieldDescriptor{{Path: prefix, Type: typeName(typed)}}
	}
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
