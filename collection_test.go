package assoc_test

import (
	"errors"
	"strings"
	"testing"

	assoc "github.com/goliatone/go-assoc"
)

func TestCollectionMembership(t *testing.T) {
	c := newCompany(t)
	coll, err := c.location.NewCollection([]any{
		map[string]any{"id": "L1", "zip": "94404"},
		map[string]any{"id": "L2", "zip": "10001"},
	})
	if err != nil {
		t.Fatalf("new collection: %v", err)
	}
	if coll.Len() != 2 || coll.Type() != c.location {
		t.Fatalf("unexpected collection %s", coll)
	}
	if owner, key := coll.Owner(); owner != nil || key != "" {
		t.Fatalf("standalone collection has no owner")
	}

	first := coll.At(0)
	if coll.Get("L1") != first || coll.Get(first.CID()) != first || coll.Get(first) != first {
		t.Fatalf("expected lookups by id, client id and node")
	}
	if coll.Get("missing") != nil || coll.At(5) != nil {
		t.Fatalf("expected nil for missing members")
	}

	events := record(coll)
	added, err := coll.Add(first)
	if err != nil || len(added) != 0 || coll.Len() != 2 {
		t.Fatalf("duplicate add must be ignored, got %v %v", added, err)
	}
	added, err = coll.Add(map[string]any{"id": "L0", "zip": "02139"}, assoc.At(0))
	if err != nil || len(added) != 1 || coll.At(0) != added[0] || coll.IndexOf(first) != 1 {
		t.Fatalf("expected insert at the front, got %v %v", coll.ToJSON(), err)
	}
	equalNames(t, events.names, []string{"add"})

	if _, err := coll.Add([]any{map[string]any{"zip": "1"}, 42}); !errors.Is(err, assoc.ErrMalformedRelation) {
		t.Fatalf("expected malformed member error, got %v", err)
	}
	if coll.Len() != 3 {
		t.Fatalf("a failed add must add nothing, got %d members", coll.Len())
	}

	east := coll.Filter(func(n *assoc.Node) bool {
		zip, _ := n.Get("zip").(string)
		return strings.HasPrefix(zip, "0") || strings.HasPrefix(zip, "1")
	})
	if len(east) != 2 || east[0].ID() != "L0" || east[1].ID() != "L2" {
		t.Fatalf("unexpected filter result %v", east)
	}

	member := record(first)
	removed := coll.Remove([]string{"L1", "unknown"})
	if len(removed) != 1 || removed[0] != first || coll.Contains(first) {
		t.Fatalf("expected L1 removed, got %v", removed)
	}
	equalNames(t, member.names, []string{"remove"})

	events.names = nil
	if err := coll.Reset([]any{map[string]any{"zip": "60601"}}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	equalNames(t, events.names, []string{"reset"})
	if coll.Len() != 1 || len(coll.Models()) != 1 {
		t.Fatalf("expected one member after reset")
	}
}

func TestCollectionRejectsForeignType(t *testing.T) {
	c := newCompany(t)
	coll, _ := c.location.NewCollection(nil)
	p := c.project.MustNew(map[string]any{"name": "p"})
	_, err := coll.Add(p)
	var typeErr *assoc.RelationTypeError
	if !errors.As(err, &typeErr) || typeErr.Want != "Location" || typeErr.Got != "Project" {
		t.Fatalf("expected RelationTypeError, got %v", err)
	}
}

func TestCollectionGetKeepsIDTypes(t *testing.T) {
	c := newCompany(t)
	coll, err := c.location.NewCollection([]any{
		map[string]any{"id": 7, "zip": "int"},
		map[string]any{"id": "7", "zip": "string"},
		map[string]any{"id": 8.0, "zip": "float"},
	})
	if err != nil {
		t.Fatalf("new collection: %v", err)
	}
	if got := coll.Get(7); got == nil || got.Get("zip") != "int" {
		t.Fatalf("expected the int id to match 7, got %v", got)
	}
	if got := coll.Get("7"); got == nil || got.Get("zip") != "string" {
		t.Fatalf("expected the string id to match \"7\", got %v", got)
	}
	if got := coll.Get(8); got == nil || got.Get("zip") != "float" {
		t.Fatalf("numeric ids decoded as float64 should match their int form, got %v", got)
	}
	if coll.Get("8") != nil {
		t.Fatalf("a string must not match a numeric id")
	}

	removed := coll.Remove("7")
	if len(removed) != 1 || removed[0].Get("zip") != "string" || coll.Get(7) == nil {
		t.Fatalf("remove by string id must leave the int id, got %v", removed)
	}
}

func TestReplacedCollectionReleasesMembers(t *testing.T) {
	c := newCompany(t)
	loc := c.location.MustNew(map[string]any{"zip": "94404"})
	dept := c.department.MustNew(nil)

	if err := dept.SetKey("locations", []any{loc}); err != nil {
		t.Fatalf("set: %v", err)
	}
	old := dept.Many("locations")
	onOld := record(old)
	for i := 0; i < 50; i++ {
		if err := dept.SetKey("locations", []any{loc}); err != nil {
			t.Fatalf("reassign %d: %v", i, err)
		}
	}
	if holders := loc.Holders(); len(holders) != 1 || holders[0].Collection != dept.Many("locations") {
		t.Fatalf("expected a single link to the current collection, got %v", holders)
	}
	if owner, _ := old.Owner(); owner != nil {
		t.Fatalf("replaced collection should have no owner")
	}

	if err := loc.SetKey("zip", "10001"); err != nil {
		t.Fatalf("set zip: %v", err)
	}
	if len(onOld.names) != 0 {
		t.Fatalf("released collection must not forward member events, got %v", onOld.names)
	}

	if err := dept.Unset("locations"); err != nil {
		t.Fatalf("unset: %v", err)
	}
	if len(loc.Holders()) != 0 {
		t.Fatalf("unset should drop the last link, got %v", loc.Holders())
	}
}
