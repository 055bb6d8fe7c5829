package openapi

import (
	"fmt"
	"sort"
	"strings"

	assoc "github.com/goliatone/go-assoc"
)

type documentBuilder struct {
	config generatorConfig
	types  []*assoc.Type
	names  *componentNames
}

func newDocumentBuilder(config generatorConfig, types []*assoc.Type) *documentBuilder {
	return &documentBuilder{
		config: config,
		types:  types,
		names:  newComponentNames(types),
	}
}

func (b *documentBuilder) build() (map[string]any, error) {
	schemas := make(map[string]any, len(b.types))
	paths := map[string]any{}
	for _, t := range b.types {
		schema, err := b.names.componentSchema(t)
		if err != nil {
			return nil, err
		}
		schemas[b.names.byType[t]] = schema
		b.addPaths(paths, t)
	}

	document := map[string]any{
		"openapi": b.config.openAPIVersion,
		"info":    b.buildInfo(),
		"paths":   paths,
		"components": map[string]any{
			"schemas": schemas,
		},
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (b *documentBuilder) buildInfo() map[string]any {
	info := map[string]any{
		"title":   b.config.info.Title,
		"version": b.config.info.Version,
	}
	if b.config.info.Description != "" {
		info["description"] = b.config.info.Description
	}
	return info
}

// addPaths publishes a create and an update operation for t.
func (b *documentBuilder) addPaths(paths map[string]any, t *assoc.Type) {
	name := b.names.byType[t]
	collection := b.config.basePath + "/" + strings.ToLower(name)
	item := collection + "/{" + t.IDAttribute() + "}"

	paths[collection] = map[string]any{
		"post": b.operation("create"+name, t),
	}
	put := b.operation("update"+name, t)
	put["parameters"] = []any{
		map[string]any{
			"name":     t.IDAttribute(),
			"in":       "path",
			"required": true,
			"schema":   map[string]any{"type": "string"},
		},
	}
	paths[item] = map[string]any{
		"put": put,
	}
}

func (b *documentBuilder) operation(id string, t *assoc.Type) map[string]any {
	ref := map[string]any{"$ref": b.names.ref(t)}
	content := map[string]any{
		b.config.contentType: map[string]any{"schema": ref},
	}

	statuses := make([]string, 0, len(b.config.responses))
	for status := range b.config.responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	responses := make(map[string]any, len(statuses))
	for _, status := range statuses {
		responses[status] = map[string]any{
			"description": b.config.responses[status].Description,
			"content":     content,
		}
	}

	operation := map[string]any{
		"operationId": id,
		"requestBody": map[string]any{
			"required": true,
			"content":  content,
		},
		"responses": responses,
	}
	if description := t.Description(); description != "" {
		operation["summary"] = description
	}
	return operation
}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	openapi, _ := document["openapi"].(string)
	if openapi == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for pathKey, pathValue := range paths {
		pathItem, _ := pathValue.(map[string]any)
		if len(pathItem) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", pathKey)
		}
		for method, operationValue := range pathItem {
			operation, _ := operationValue.(map[string]any)
			if operation == nil {
				return fmt.Errorf("openapi: operation %s %s invalid payload", method, pathKey)
			}
			if _, ok := operation["operationId"].(string); !ok {
				return fmt.Errorf("openapi: operation %s %s missing operationId", method, pathKey)
			}
			if _, ok := operation["responses"].(map[string]any); !ok {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
		}
	}

	components, _ := document["components"].(map[string]any)
	schemas, _ := components["schemas"].(map[string]any)
	return checkRefs(document, schemas)
}

// checkRefs reports the first $ref that names a missing component.
func checkRefs(value any, schemas map[string]any) error {
	switch typed := value.(type) {
	case map[string]any:
		if ref, ok := typed["$ref"].(string); ok {
			name := strings.TrimPrefix(ref, componentPrefix)
			if _, found := schemas[name]; !found {
				return fmt.Errorf("openapi: unresolved reference %q", ref)
			}
		}
		for _, child := range typed {
			if err := checkRefs(child, schemas); err != nil {
				return err
			}
		}
	case []any:
		for _, child := range typed {
			if err := checkRefs(child, schemas); err != nil {
				return err
			}
		}
	}
	return nil
}
