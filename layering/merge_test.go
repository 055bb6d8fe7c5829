package layering

import (
	"reflect"
	"testing"
	"time"
)

func TestMergeLayersPrefersStrongerEntries(t *testing.T) {
	cases := []struct {
		name   string
		layers []map[string]any
		expect map[string]any
	}{
		{
			name: "stronger scalar wins",
			layers: []map[string]any{
				{"parse": true},
				{"parse": false, "validate": true},
			},
			expect: map[string]any{"parse": true, "validate": true},
		},
		{
			name: "nested maps merge",
			layers: []map[string]any{
				{"fetch": map[string]any{"depth": 2}},
				{"fetch": map[string]any{"depth": 1, "cache": "none"}},
			},
			expect: map[string]any{"fetch": map[string]any{"depth": 2, "cache": "none"}},
		},
		{
			name: "nil strong keeps weak",
			layers: []map[string]any{
				nil,
				{"source": "relation"},
			},
			expect: map[string]any{"source": "relation"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MergeLayers(tc.layers...)
			if !reflect.DeepEqual(tc.expect, got) {
				t.Fatalf("merged mismatch:\nwant: %#v\n got: %#v", tc.expect, got)
			}
		})
	}
}

func TestMergeLayersZeroInput(t *testing.T) {
	type sample struct {
		Value int
	}
	var zero sample
	if got := MergeLayers[sample](); got != zero {
		t.Fatalf("expected MergeLayers() to return zero value, got %+v", got)
	}
}

func TestCloneCopiesContainersAndSharesPointers(t *testing.T) {
	type handle struct{ name string }
	shared := &handle{name: "live"}
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	src := map[string]any{
		"tags":    []any{"a", "b"},
		"address": map[string]any{"zip": "94404"},
		"handle":  shared,
		"at":      stamp,
	}

	out := Clone(src)
	out["tags"].([]any)[0] = "changed"
	out["address"].(map[string]any)["zip"] = "00000"

	if src["tags"].([]any)[0] != "a" {
		t.Fatalf("slice should be copied")
	}
	if src["address"].(map[string]any)["zip"] != "94404" {
		t.Fatalf("nested map should be copied")
	}
	if out["handle"].(*handle) != shared {
		t.Fatalf("pointers should be shared")
	}
	if !out["at"].(time.Time).Equal(stamp) {
		t.Fatalf("time value lost during clone: %v", out["at"])
	}
}

func TestCloneNil(t *testing.T) {
	var m map[string]any
	if got := Clone(m); got != nil {
		t.Fatalf("expected nil map, got %#v", got)
	}
	if got := Clone[any](nil); got != nil {
		t.Fatalf("expected nil, got %#v", got)
	}
}
