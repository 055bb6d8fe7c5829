package state_test

import (
	"context"
	"errors"
	"testing"

	assoc "github.com/goliatone/go-assoc"
	"github.com/goliatone/go-assoc/pkg/state"
)

func newRegistry(t *testing.T, store state.Store) (*assoc.Registry, *assoc.Type) {
	t.Helper()
	sync := state.NewSync(store)
	n := 0
	sync.IDs = func() string {
		n++
		return []string{"", "d1", "d2", "d3"}[n]
	}
	reg := assoc.NewRegistry(assoc.WithDefaultSync(sync))
	reg.MustDefine("Location", assoc.WithDefaults(map[string]any{"zip": ""}))
	dept := reg.MustDefine("Department",
		assoc.WithDefaults(map[string]any{"name": ""}),
		assoc.WithRelations(assoc.HasMany("locations", assoc.Named("Location"))),
	)
	return reg, dept
}

func TestSyncCreatesUpdatesAndFetches(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	_, dept := newRegistry(t, store)

	d := dept.MustNew(map[string]any{
		"name":      "R&D",
		"locations": []any{map[string]any{"zip": "94404"}},
	})
	if err := d.Save(ctx, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if d.ID() != "d1" {
		t.Fatalf("expected assigned id d1, got %v", d.ID())
	}

	if err := d.Save(ctx, map[string]any{"name": "Research"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	stored, _, ok, err := store.Load(ctx, state.Ref{Type: "Department", ID: "d1"})
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if stored["name"] != "Research" {
		t.Fatalf("expected updated name, got %v", stored["name"])
	}

	other := dept.MustNew(map[string]any{"id": "d1"})
	if err := other.Fetch(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if other.Get("name") != "Research" {
		t.Fatalf("expected fetched name, got %v", other.Get("name"))
	}
	loc := other.Many("locations").At(0)
	if loc == nil || loc.Get("zip") != "94404" {
		t.Fatalf("expected fetched location node, got %v", other.Get("locations"))
	}
}

func TestSyncDetectsConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	_, dept := newRegistry(t, store)

	d := dept.MustNew(map[string]any{"name": "Ops"})
	if err := d.Save(ctx, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Save(ctx, state.Ref{Type: "Department", ID: "d1"}, map[string]any{"name": "elsewhere"}, state.Meta{}); err != nil {
		t.Fatalf("out of band save: %v", err)
	}

	err := d.Save(ctx, map[string]any{"name": "Ops 2"})
	if !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected etag mismatch, got %v", err)
	}
}

func TestSyncFetchMissing(t *testing.T) {
	_, dept := newRegistry(t, state.NewMemoryStore())
	d := dept.MustNew(map[string]any{"id": "nope"})
	if err := d.Fetch(context.Background()); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSyncDestroyRemovesRecord(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	_, dept := newRegistry(t, store)

	d := dept.MustNew(map[string]any{"name": "Legal"})
	if err := d.Save(ctx, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one record, got %d", store.Len())
	}
	if err := d.Destroy(ctx); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected record deleted, got %d", store.Len())
	}
}
