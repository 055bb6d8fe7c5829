//go:build js_eval

package assoc_test

import (
	"testing"

	assoc "github.com/goliatone/go-assoc"
)

func TestJSRules(t *testing.T) {
	reg := assoc.NewRegistry(assoc.WithEvaluator(assoc.NewJSEvaluator(
		assoc.EngineFunctions(assoc.StandardFunctions()),
	)))
	person := reg.MustDefine("Person",
		assoc.WithDefaults(map[string]any{"name": "", "age": 0}),
		assoc.WithRelations(assoc.HasOne("mentor", assoc.Named("Person"))),
		assoc.WithRule("age >= 18", "must be an adult"),
		assoc.WithRule("name.length > 0", "name is required"),
		assoc.WithRule(`self.type === "Person" && relations.mentor === "one"`, "unexpected node facts"),
	)
	if _, err := person.New(map[string]any{"name": "Ann", "age": 20}, assoc.Validate()); err != nil {
		t.Fatalf("expected valid person, got %v", err)
	}
	_, err := person.New(map[string]any{"name": "", "age": 20}, assoc.Validate())
	if got := validationMessage(t, err); got != "name is required" {
		t.Fatalf("unexpected message %q", got)
	}
}
