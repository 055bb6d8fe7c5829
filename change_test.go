package assoc_test

import (
	"testing"

	assoc "github.com/goliatone/go-assoc"
)

func TestScalarChangeTracking(t *testing.T) {
	c := newCompany(t)
	e := c.employee.MustNew(map[string]any{"fname": "John", "lname": "Doe"})
	if e.HasChanged() {
		t.Fatalf("new node should report no changes")
	}

	if err := e.SetKey("fname", "Jane"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !e.HasChanged("fname") || e.HasChanged("lname") {
		t.Fatalf("expected only fname to change")
	}
	if got := e.Previous("fname"); got != "John" {
		t.Fatalf("expected previous fname John, got %v", got)
	}
	changed, ok := e.ChangedAttributes()
	if !ok || !equalJSON(changed, map[string]any{"fname": "Jane"}) {
		t.Fatalf("unexpected changed attributes %v", changed)
	}

	if err := e.SetKey("age", 30); err != nil {
		t.Fatalf("set: %v", err)
	}
	if e.HasChanged("fname") {
		t.Fatalf("a new change cycle resets tracked keys")
	}
	if got := e.Previous("fname"); got != "Jane" {
		t.Fatalf("expected previous fname Jane, got %v", got)
	}
	if got := e.Previous("age"); got != 0 {
		t.Fatalf("expected previous age 0, got %v", got)
	}
	changed, _ = e.ChangedAttributes()
	if !equalJSON(changed, map[string]any{"age": 30}) {
		t.Fatalf("unexpected changed attributes %v", changed)
	}

	if err := e.SetKey("age", 30); err != nil {
		t.Fatalf("set: %v", err)
	}
	if changed, ok := e.ChangedAttributes(); ok {
		t.Fatalf("a no-op set starts a cycle without changes, got %v", changed)
	}
}

func TestChangedAttributesFrom(t *testing.T) {
	c := newCompany(t)
	e := c.employee.MustNew(map[string]any{"fname": "John", "age": 30})

	diff, ok := e.ChangedAttributesFrom(map[string]any{"fname": "John", "age": 31})
	if !ok || !equalJSON(diff, map[string]any{"age": 31}) {
		t.Fatalf("unexpected diff %v", diff)
	}
	if diff, ok := e.ChangedAttributesFrom(map[string]any{"fname": "John"}); ok {
		t.Fatalf("expected no diff, got %v", diff)
	}

	dept := c.department.MustNew(map[string]any{"name": "R&D"})
	_ = e.SetKey("works_for", dept)
	if _, ok := e.ChangedAttributesFrom(map[string]any{"works_for": map[string]any{"name": "R&D"}}); ok {
		t.Fatalf("relation compared by serialized form should match")
	}
	if _, ok := e.ChangedAttributesFrom(map[string]any{"works_for": dept}); ok {
		t.Fatalf("same node should match")
	}
	if _, ok := e.ChangedAttributesFrom(map[string]any{"works_for": map[string]any{"name": "Ops"}}); !ok {
		t.Fatalf("different serialized relation should differ")
	}
}

func TestPreviousOfNestedRelation(t *testing.T) {
	c := newCompany(t)
	dept, loc1, _ := sharedLocation(t, c)
	e := c.employee.MustNew(map[string]any{"fname": "John", "works_for": dept})

	if err := loc1.SetKey("zip", "94107"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !e.HasChanged("works_for") || e.HasChanged("fname") {
		t.Fatalf("expected works_for to be flagged by the nested change")
	}

	prev, ok := e.Previous("works_for").(map[string]any)
	if !ok {
		t.Fatalf("expected serialized previous relation, got %T", e.Previous("works_for"))
	}
	locations := prev["locations"].([]any)
	if zip := locations[0].(map[string]any)["zip"]; zip != "94404" {
		t.Fatalf("expected previous zip 94404, got %v", zip)
	}
	controls := prev["controls"].([]any)
	viaProject := controls[0].(map[string]any)["locations"].([]any)[0].(map[string]any)
	if viaProject["zip"] != "94404" {
		t.Fatalf("expected previous zip on the second path, got %v", viaProject["zip"])
	}

	changed, ok := e.ChangedAttributes()
	if !ok {
		t.Fatalf("expected changed attributes")
	}
	current := changed["works_for"].(map[string]any)["locations"].([]any)[0].(map[string]any)
	if current["zip"] != "94107" {
		t.Fatalf("changed attributes report the current subtree, got %v", current)
	}

	all := e.PreviousAttributes()
	if all["fname"] != "John" {
		t.Fatalf("unexpected previous attributes %v", all)
	}
	if _, ok := all["works_for"].(map[string]any); !ok {
		t.Fatalf("expected serialized works_for, got %T", all["works_for"])
	}
}

func TestUnsetTracksRemoval(t *testing.T) {
	c := newCompany(t)
	e := c.employee.MustNew(map[string]any{"fname": "John", "lname": "Doe"})
	if err := e.Unset("lname"); err != nil {
		t.Fatalf("unset: %v", err)
	}
	if e.Has("lname") || !e.HasChanged("lname") {
		t.Fatalf("expected lname removed and tracked")
	}
	if got := e.Previous("lname"); got != "Doe" {
		t.Fatalf("expected previous lname Doe, got %v", got)
	}
	changed, _ := e.ChangedAttributes()
	if value, ok := changed["lname"]; !ok || value != nil {
		t.Fatalf("expected lname reported as nil, got %v", changed)
	}
}

func TestSilentSetDefersEvents(t *testing.T) {
	c := newCompany(t)
	e := c.employee.MustNew(nil)
	events := record(e)
	if err := e.Set(map[string]any{"fname": "Jane", "lname": "Roe"}, assoc.Silent()); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(events.names) != 0 || !e.HasChanged("fname") {
		t.Fatalf("silent set should track without firing, got %v", events.names)
	}
	e.Change()
	equalNames(t, events.names, []string{"change:fname", "change:lname", "change"})
	e.Change()
	if len(events.names) != 3 {
		t.Fatalf("pending events fire once, got %v", events.names)
	}
}
