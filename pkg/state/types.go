package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-assoc/layering"
)

var ErrNotFound = errors.New("state: record not found")

var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies the persisted record of one node.
type Ref struct {
	Type string
	ID   string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	ETag      string            `json:"etag,omitempty"`
	UpdatedAt time.Time         `json:"updated_at,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Store loads, saves and deletes one record per Ref.
type Store interface {
	Load(ctx context.Context, ref Ref) (attrs map[string]any, meta Meta, ok bool, err error)
	// Save writes attrs. A non-empty meta.ETag must equal the stored ETag.
	// The returned Meta carries the new ETag.
	Save(ctx context.Context, ref Ref, attrs map[string]any, meta Meta) (Meta, error)
	Delete(ctx context.Context, ref Ref) error
}

// Mutator edits loaded attributes in place.
type Mutator func(attrs map[string]any) error

// Identifier returns the canonical storage key "type/id".
func (r Ref) Identifier() (string, error) {
	typ := strings.TrimSpace(r.Type)
	id := strings.TrimSpace(r.ID)
	if typ == "" {
		return "", fmt.Errorf("state: ref type is required")
	}
	if id == "" {
		return "", fmt.Errorf("state: ref id is required for type %q", typ)
	}
	if strings.Contains(typ, "/") {
		return "", fmt.Errorf("state: ref type %q must not contain '/'", typ)
	}
	return typ + "/" + id, nil
}

// Mutate loads one record, applies fn, then saves it guarded by the loaded
// ETag, or by meta.ETag when the caller supplies one.
func Mutate(ctx context.Context, store Store, ref Ref, meta Meta, fn Mutator) (map[string]any, Meta, error) {
	if store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return nil, Meta{}, err
	}

	attrs, loadedMeta, ok, err := store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %s/%s: %w", ref.Type, ref.ID, err)
	}
	if !ok {
		attrs = map[string]any{}
		loadedMeta = Meta{}
	}
	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	attrs = layering.Clone(attrs)
	if err := fn(attrs); err != nil {
		return nil, loadedMeta, err
	}

	saveMeta := mergeMeta(loadedMeta, meta)
	savedMeta, err := store.Save(ctx, ref, attrs, saveMeta)
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: save %s/%s: %w", ref.Type, ref.ID, err)
	}
	return attrs, savedMeta, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}

// CheckETag reports ErrETagMismatch when expected is set and differs from
// stored. Store implementations share it.
func CheckETag(expected, stored string) error {
	if expected == "" || expected == stored {
		return nil
	}
	return fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected, stored)
}
