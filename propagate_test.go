package assoc_test

import (
	"context"
	"fmt"
	"testing"

	assoc "github.com/goliatone/go-assoc"
)

// sharedLocation builds a department whose first location is also held by
// its first project.
func sharedLocation(t *testing.T, c company) (dept, loc1, p1 *assoc.Node) {
	t.Helper()
	loc1 = c.location.MustNew(map[string]any{"zip": "94404"})
	loc2 := c.location.MustNew(map[string]any{"zip": "10001"})
	p1 = c.project.MustNew(map[string]any{"name": "p1", "locations": []any{loc1}})
	p2 := c.project.MustNew(map[string]any{"name": "p2"})
	dept = c.department.MustNew(map[string]any{
		"name":      "R&D",
		"locations": []any{loc1, loc2},
		"controls":  []any{p1, p2},
	})
	return dept, loc1, p1
}

func TestSharedLocationComposesBothPaths(t *testing.T) {
	c := newCompany(t)
	dept, loc1, _ := sharedLocation(t, c)
	events := record(dept)

	if err := loc1.SetKey("zip", "94107"); err != nil {
		t.Fatalf("set zip: %v", err)
	}
	equalNames(t, events.names, []string{
		"change:controls.locations[0].zip",
		"change:locations[0].zip",
		"change:controls.locations[0]",
		"change",
		"change:locations[0]",
	})
}

func TestFirstHopIndexAndOneRelationPath(t *testing.T) {
	c := newCompany(t)
	dept, loc1, _ := sharedLocation(t, c)
	e := c.employee.MustNew(map[string]any{"fname": "John", "works_for": dept})
	events := record(e)

	var payload assoc.Event
	e.On("change:works_for.locations[0].zip", func(ev assoc.Event) { payload = ev })

	if err := loc1.SetKey("zip", "94107"); err != nil {
		t.Fatalf("set zip: %v", err)
	}
	equalNames(t, events.names, []string{
		"change:works_for.controls.locations[0].zip",
		"change:works_for.locations[0].zip",
		"change:works_for.controls.locations[0]",
		"change",
		"change:works_for.locations[0]",
	})
	if events.has("change:works_for") {
		t.Fatalf("a holder's own change is not relayed again, got %v", events.names)
	}
	for _, name := range events.names {
		if name == "change:works_for[0].locations[0].zip" || name == "change:works_for.controls[0].locations[0].zip" {
			t.Fatalf("only the first hop carries an index, got %s", name)
		}
	}
	if payload.Node != loc1 || payload.Value != "94107" {
		t.Fatalf("composed event should carry the origin, got %+v", payload)
	}
}

func TestSubsequentHopsOmitIndex(t *testing.T) {
	c := newCompany(t)
	loc := c.location.MustNew(map[string]any{"zip": "1"})
	p := c.project.MustNew(map[string]any{"locations": []any{c.location.MustNew(nil), loc}})
	dept := c.department.MustNew(map[string]any{"controls": []any{c.project.MustNew(nil), p}})
	events := record(dept)

	if err := loc.SetKey("zip", "2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !events.has("change:controls.locations[1].zip") {
		t.Fatalf("expected change:controls.locations[1].zip, got %v", events.names)
	}
	if events.has("change:controls[1].locations[1].zip") {
		t.Fatalf("intermediate hop must not carry an index")
	}
}

func TestHasChangedReportsSubtree(t *testing.T) {
	c := newCompany(t)
	dept, loc1, _ := sharedLocation(t, c)
	e := c.employee.MustNew(map[string]any{"fname": "John", "works_for": dept})

	if e.HasChanged() {
		t.Fatalf("fresh node should report no changes")
	}
	if err := loc1.SetKey("zip", "94107"); err != nil {
		t.Fatalf("set zip: %v", err)
	}
	if !e.HasChanged("works_for") || !e.HasChanged() {
		t.Fatalf("expected works_for to be flagged")
	}
	if e.HasChanged("fname") {
		t.Fatalf("fname did not change")
	}
	changed, ok := e.ChangedAttributes()
	if !ok {
		t.Fatalf("expected changed attributes")
	}
	if !equalJSON(changed["works_for"], dept.ToJSON()) {
		t.Fatalf("expected full subtree, got %v", changed["works_for"])
	}
	if _, ok := changed["fname"]; ok {
		t.Fatalf("fname must not be reported")
	}
	if !dept.HasChanged("locations") || !dept.HasChanged("controls") {
		t.Fatalf("both paths to the location should be flagged on the department")
	}
}

func TestCycleTerminatesWithStableCounts(t *testing.T) {
	reg := assoc.NewRegistry()
	node := reg.MustDefine("Node",
		assoc.WithDefaults(map[string]any{"name": ""}),
		assoc.WithRelations(assoc.HasOne("parent", assoc.Named("Node"))),
	)
	a := node.MustNew(map[string]any{"name": "a"})
	b := node.MustNew(map[string]any{"name": "b"})
	cc := node.MustNew(map[string]any{"name": "c"})
	for _, link := range [][2]*assoc.Node{{a, b}, {b, cc}, {cc, a}} {
		if err := link[0].SetKey("parent", link[1]); err != nil {
			t.Fatalf("link: %v", err)
		}
	}

	onB, onC := record(b), record(cc)
	counts := make([]int, 3)
	for i := range counts {
		onB.names, onC.names = nil, nil
		if err := a.SetKey("name", "a"+string(rune('0'+i))); err != nil {
			t.Fatalf("set: %v", err)
		}
		counts[i] = len(onB.names) + len(onC.names)
	}
	if counts[0] != 6 || counts[1] != counts[0] || counts[2] != counts[0] {
		t.Fatalf("expected 6 composed events per run, got %v", counts)
	}
	equalNames(t, onC.names, []string{"change:parent.name", "change:parent", "change"})
	equalNames(t, onB.names, []string{"change:parent.parent.name", "change:parent.parent", "change"})
}

// cyclicNodes defines a node type with a parent and a list of children and
// returns three instances with handlers counting the parent and children
// events on each.
func cyclicNodes(t *testing.T) (nodes [3]*assoc.Node, hits *[]string) {
	t.Helper()
	reg := assoc.NewRegistry()
	node := reg.MustDefine("Node",
		assoc.WithDefaults(map[string]any{"name": ""}),
		assoc.WithRelations(
			assoc.HasOne("parent", assoc.Named("Node")),
			assoc.HasMany("children", assoc.Named("Node")),
		),
	)
	hits = &[]string{}
	for i := range nodes {
		n := node.MustNew(map[string]any{"name": fmt.Sprintf("n%d", i+1)})
		label := n.Get("name").(string)
		for _, name := range []string{"change:parent", "change:children", "change:children[0]"} {
			n.On(name, func(ev assoc.Event) { *hits = append(*hits, label+" "+ev.Name) })
		}
		nodes[i] = n
	}
	return nodes, hits
}

func TestCyclicGraphSetAndNestedTrigger(t *testing.T) {
	nodes, hits := cyclicNodes(t)
	n1, n2, n3 := nodes[0], nodes[1], nodes[2]
	n1.On("change:parent", func(ev assoc.Event) { n1.Trigger("nestedevent", ev) })
	for _, n := range nodes {
		label := n.Get("name").(string)
		n.On("nestedevent", func(ev assoc.Event) { *hits = append(*hits, label+" "+ev.Name) })
	}

	steps := []struct {
		node, parent, child *assoc.Node
		want                []string
	}{
		{n1, n2, n3, []string{"n1 change:children", "n1 change:parent", "n1 nestedevent"}},
		{n2, n3, n1, []string{"n2 change:children", "n2 change:parent", "n1 change:parent", "n1 nestedevent"}},
		{n3, n1, n2, []string{"n3 change:children", "n3 change:parent", "n1 change:children[0]", "n2 change:parent"}},
	}
	total := 0
	for i, step := range steps {
		*hits = nil
		err := step.node.Set(map[string]any{"parent": step.parent, "children": []any{step.child}})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		equalNames(t, *hits, step.want)
		total += len(*hits)
	}
	if total != 11 {
		t.Fatalf("expected 11 handler calls, got %d", total)
	}
}

func TestCyclicGraphSilentThenChange(t *testing.T) {
	nodes, hits := cyclicNodes(t)
	n1, n2, n3 := nodes[0], nodes[1], nodes[2]
	for _, link := range [][3]*assoc.Node{{n1, n2, n3}, {n2, n3, n1}, {n3, n1, n2}} {
		err := link[0].Set(map[string]any{"parent": link[1], "children": []any{link[2]}}, assoc.Silent())
		if err != nil {
			t.Fatalf("silent set: %v", err)
		}
	}
	if len(*hits) != 0 {
		t.Fatalf("silent sets fired %v", *hits)
	}

	want := [][]string{
		{"n1 change:children", "n1 change:parent", "n2 change:children[0]", "n3 change:parent"},
		{"n2 change:children", "n2 change:parent", "n1 change:parent", "n3 change:children[0]"},
		{"n3 change:children", "n3 change:parent", "n1 change:children[0]", "n2 change:parent"},
	}
	total := 0
	for i, n := range nodes {
		*hits = nil
		n.Change()
		equalNames(t, *hits, want[i])
		total += len(*hits)
	}
	if total != 12 {
		t.Fatalf("expected 12 handler calls, got %d", total)
	}
}

func TestCycleThroughManyRelation(t *testing.T) {
	person := people(t)
	a := person.MustNew(map[string]any{"name": "a"})
	b := person.MustNew(map[string]any{"name": "b", "reports": []any{a}})
	if err := a.Set(map[string]any{"reports": []any{b, a}}); err != nil {
		t.Fatalf("link: %v", err)
	}
	onA, onB := record(a), record(b)

	if err := a.SetKey("name", "ada"); err != nil {
		t.Fatalf("set: %v", err)
	}
	equalNames(t, onA.names, []string{"change:name", "change"})
	equalNames(t, onB.names, []string{"change:reports[0].name", "change:reports[0]", "change"})

	onA.names, onB.names = nil, nil
	if err := b.SetKey("name", "bo"); err != nil {
		t.Fatalf("set: %v", err)
	}
	equalNames(t, onB.names, []string{"change:name", "change"})
	equalNames(t, onA.names, []string{"change:reports[0].name", "change:reports[0]", "change"})
}

func TestStructuralEventsCounts(t *testing.T) {
	c := newCompany(t)
	e := c.employee.MustNew(map[string]any{
		"dependents": []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}, map[string]any{"name": "c"}},
	})
	report := c.employee.MustNew(map[string]any{"manager": e})

	deps := e.Many("dependents")
	first := deps.At(0)
	onMember, onColl, onOwner, onHolder := record(first), record(deps), record(e), record(report)

	removed := deps.Remove([]any{first, deps.At(1)})
	if len(removed) != 2 {
		t.Fatalf("expected two removed, got %d", len(removed))
	}
	if onMember.count("remove") != 1 {
		t.Fatalf("member should see its own remove once, got %v", onMember.names)
	}
	if onColl.count("remove") != 2 {
		t.Fatalf("collection should fire remove twice, got %v", onColl.names)
	}
	if onOwner.count("remove:dependents") != 2 {
		t.Fatalf("owner should see remove:dependents twice, got %v", onOwner.names)
	}
	if onOwner.has("remove") || onOwner.has("change") {
		t.Fatalf("owner must not fire bare structural or change events, got %v", onOwner.names)
	}
	if onHolder.count("remove:manager.dependents") != 2 {
		t.Fatalf("structural events keep bubbling, got %v", onHolder.names)
	}
	if !e.HasChanged("dependents") {
		t.Fatalf("structural change should flag the relation key")
	}

	onOwner.names = nil
	added, err := deps.Add(map[string]any{"name": "d"}, assoc.At(0))
	if err != nil || len(added) != 1 {
		t.Fatalf("add: %v %v", added, err)
	}
	if deps.At(0) != added[0] {
		t.Fatalf("At should insert at the front")
	}
	equalNames(t, onOwner.names, []string{"add:dependents"})

	onOwner.names = nil
	if err := deps.Reset([]any{map[string]any{"name": "x"}, map[string]any{"name": "y"}}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	equalNames(t, onOwner.names, []string{"reset:dependents"})
	if deps.Len() != 2 {
		t.Fatalf("expected 2 members after reset, got %d", deps.Len())
	}
}

func TestCollectionForwardsMemberEvents(t *testing.T) {
	c := newCompany(t)
	dept, loc1, _ := sharedLocation(t, c)
	locations := dept.Many("locations")
	onColl := record(locations)
	onDept := record(dept)

	loc1.Trigger("ping", 1)
	if err := loc1.SetKey("zip", "0"); err != nil {
		t.Fatalf("set: %v", err)
	}
	equalNames(t, onColl.names, []string{"ping", "change:zip", "change"})
	if onDept.has("ping") {
		t.Fatalf("custom events must not reach holders")
	}
}

func TestDestroyRemovesFromCollections(t *testing.T) {
	c := newCompany(t)
	dept, loc1, p1 := sharedLocation(t, c)
	onDept := record(dept)

	if err := loc1.Destroy(context.Background()); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if dept.Many("locations").Contains(loc1) || p1.Many("locations").Contains(loc1) {
		t.Fatalf("destroyed node should leave every collection")
	}
	if !onDept.has("remove:locations") || !onDept.has("remove:controls.locations") {
		t.Fatalf("expected remove events on the department, got %v", onDept.names)
	}
}

func TestSilentThenChange(t *testing.T) {
	c := newCompany(t)
	dept, loc1, _ := sharedLocation(t, c)
	onLoc, onDept := record(loc1), record(dept)

	if err := loc1.SetKey("zip", "1", assoc.Silent()); err != nil {
		t.Fatalf("silent set: %v", err)
	}
	if loc1.Get("zip") != "1" {
		t.Fatalf("silent set must still apply")
	}
	if len(onLoc.names) != 0 || len(onDept.names) != 0 {
		t.Fatalf("silent set fired %v %v", onLoc.names, onDept.names)
	}

	loc1.Change()
	equalNames(t, onLoc.names, []string{"change:zip", "change"})
	if !onDept.has("change:locations[0].zip") {
		t.Fatalf("deferred events should propagate, got %v", onDept.names)
	}

	onLoc.names = nil
	loc1.Change()
	if len(onLoc.names) != 0 {
		t.Fatalf("Change without pending mutations must be quiet")
	}
}

func TestUnsetAndClear(t *testing.T) {
	c := newCompany(t)
	e := c.employee.MustNew(map[string]any{"fname": "John", "works_for": map[string]any{"name": "R&D"}})
	dept := e.One("works_for")
	events := record(e)

	if err := e.Unset("works_for"); err != nil {
		t.Fatalf("unset: %v", err)
	}
	if e.Has("works_for") || len(dept.Holders()) != 0 {
		t.Fatalf("unset should remove and unlink")
	}
	if _, present := e.Attributes()["works_for"]; present {
		t.Fatalf("unset should delete the key")
	}
	equalNames(t, events.names, []string{"change:works_for", "change"})

	if err := e.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(e.Keys()) != 0 {
		t.Fatalf("clear left %v", e.Keys())
	}
}
