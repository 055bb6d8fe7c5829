package openapi_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	assoc "github.com/goliatone/go-assoc"
	"github.com/goliatone/go-assoc/schema/openapi"
)

func companyRegistry(t *testing.T) *assoc.Registry {
	t.Helper()
	reg := assoc.NewRegistry()
	reg.MustDefine("Location",
		assoc.WithDefaults(map[string]any{"zip": "", "opened": time.Time{}}),
	)
	reg.MustDefine("Department",
		assoc.WithDescription("An organisational unit"),
		assoc.WithDefaults(map[string]any{"name": "", "number": 0, "tags": []any{"core"}}),
		assoc.WithRelations(
			assoc.HasMany("locations", assoc.Named("Location")),
			assoc.HasOne("parent", assoc.Named("Department")),
		),
	)
	return reg
}

func TestGenerateComponentsPerType(t *testing.T) {
	doc, err := openapi.Generate(companyRegistry(t), openapi.WithInfo("Company", "2.0.0"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	info := doc["info"].(map[string]any)
	if info["title"] != "Company" || info["version"] != "2.0.0" {
		t.Fatalf("unexpected info: %v", info)
	}

	schemas := doc["components"].(map[string]any)["schemas"].(map[string]any)
	if len(schemas) != 2 {
		t.Fatalf("expected 2 components, got %d", len(schemas))
	}
	dept := schemas["Department"].(map[string]any)
	if dept["description"] != "An organisational unit" {
		t.Fatalf("expected description, got %v", dept["description"])
	}
	props := dept["properties"].(map[string]any)

	if got := props["number"].(map[string]any)["type"]; got != "integer" {
		t.Fatalf("expected integer number, got %v", got)
	}
	if got := props["tags"].(map[string]any)["type"]; got != "array" {
		t.Fatalf("expected array tags, got %v", got)
	}
	locations := props["locations"].(map[string]any)
	if locations["type"] != "array" || locations["items"].(map[string]any)["$ref"] != "#/components/schemas/Location" {
		t.Fatalf("unexpected many relation schema: %v", locations)
	}
	if ref := props["parent"].(map[string]any)["$ref"]; ref != "#/components/schemas/Department" {
		t.Fatalf("unexpected self reference: %v", ref)
	}
	rels := dept["x-relationships"].(map[string]any)
	if rels["locations"] != "many:Location" || rels["parent"] != "one:Department" {
		t.Fatalf("unexpected relationships: %v", rels)
	}

	zip := schemas["Location"].(map[string]any)["properties"].(map[string]any)["opened"].(map[string]any)
	if zip["format"] != "date-time" {
		t.Fatalf("expected date-time format, got %v", zip)
	}
}

func TestGeneratePaths(t *testing.T) {
	doc, err := openapi.Generate(companyRegistry(t), openapi.WithBasePath("api"), openapi.WithResponse("201", "Created"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	paths := doc["paths"].(map[string]any)
	create, ok := paths["/api/department"].(map[string]any)["post"].(map[string]any)
	if !ok {
		t.Fatalf("expected create operation, got %v", paths)
	}
	if create["operationId"] != "createDepartment" {
		t.Fatalf("unexpected operation id %v", create["operationId"])
	}
	if _, ok := create["responses"].(map[string]any)["201"]; !ok {
		t.Fatalf("expected 201 response, got %v", create["responses"])
	}
	if _, ok := paths["/api/location/{id}"].(map[string]any)["put"]; !ok {
		t.Fatalf("expected update operation, got %v", paths)
	}

	if _, err := json.Marshal(doc); err != nil {
		t.Fatalf("document must be JSON encodable: %v", err)
	}
}

func TestGenerateFailsOnUnresolvedRelation(t *testing.T) {
	reg := assoc.NewRegistry()
	reg.MustDefine("Employee", assoc.WithRelations(assoc.HasOne("works_for", assoc.Named("Department"))))

	_, err := openapi.Generate(reg)
	if err == nil || !strings.Contains(err.Error(), "Employee.works_for") {
		t.Fatalf("expected unresolved relation error, got %v", err)
	}
}

func TestGenerateEmptyRegistry(t *testing.T) {
	if _, err := openapi.Generate(assoc.NewRegistry()); err == nil {
		t.Fatalf("expected error for empty registry")
	}
	if _, err := openapi.Generate(nil); err == nil {
		t.Fatalf("expected error for nil registry")
	}
}
