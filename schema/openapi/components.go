package openapi

import (
	"fmt"
	"regexp"
	"sort"

	assoc "github.com/goliatone/go-assoc"
)

const componentPrefix = "#/components/schemas/"

// componentNames assigns one unique component name per type.
type componentNames struct {
	byType map[*assoc.Type]string
	used   map[string]struct{}
}

func newComponentNames(types []*assoc.Type) *componentNames {
	names := &componentNames{
		byType: map[*assoc.Type]string{},
		used:   map[string]struct{}{},
	}
	sorted := append([]*assoc.Type(nil), types...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })
	for _, t := range sorted {
		names.byType[t] = names.unique(t.Name())
	}
	return names
}

func (r *componentNames) ref(t *assoc.Type) string {
	name, ok := r.byType[t]
	if !ok {
		return ""
	}
	return componentPrefix + name
}

func (r *componentNames) unique(name string) string {
	safe := sanitizeComponentName(name)
	if safe == "" {
		safe = "Node"
	}
	if _, exists := r.used[safe]; !exists {
		r.used[safe] = struct{}{}
		return safe
	}
	for suffix := 1; ; suffix++ {
		candidate := fmt.Sprintf("%s%d", safe, suffix)
		if _, exists := r.used[candidate]; !exists {
			r.used[candidate] = struct{}{}
			return candidate
		}
	}
}

// componentSchema renders t as an object schema. Scalars come from the
// declared defaults; relations become references to the related component.
func (r *componentNames) componentSchema(t *assoc.Type) (map[string]any, error) {
	properties := map[string]any{}
	relationships := map[string]any{}

	defaults := t.Defaults()
	for key, value := range defaults {
		if _, ok := t.Relation(key); ok {
			continue
		}
		schema, err := schemaForValue(value)
		if err != nil {
			return nil, fmt.Errorf("openapi: %s.%s: %w", t.Name(), key, err)
		}
		properties[key] = schema
	}
	if id := t.IDAttribute(); id != "" {
		if _, ok := properties[id]; !ok {
			properties[id] = map[string]any{"type": "string"}
		}
	}

	for _, rel := range t.Relations() {
		related, err := t.Registry().Resolve(rel.Related)
		if err != nil {
			return nil, fmt.Errorf("openapi: %s.%s: %w", t.Name(), rel.Key, err)
		}
		ref := map[string]any{"$ref": r.ref(related)}
		switch rel.Cardinality {
		case assoc.Many:
			properties[rel.Key] = map[string]any{"type": "array", "items": ref}
		default:
			properties[rel.Key] = ref
		}
		relationships[rel.Key] = rel.Cardinality.String() + ":" + related.Name()
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if description := t.Description(); description != "" {
		schema["description"] = description
	}
	if len(relationships) > 0 {
		schema["x-relationships"] = relationships
	}
	return schema, nil
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func sanitizeComponentName(name string) string {
	name = componentNameRegexp.ReplaceAllString(name, "_")
	name = trimUnderscores(name)
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

func trimUnderscores(input string) string {
	start := 0
	for start < len(input) && input[start] == '_' {
		start++
	}
	end := len(input)
	for end > start && input[end-1] == '_' {
		end--
	}
	return input[start:end]
}
