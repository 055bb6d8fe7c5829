package state

import (
	"context"
	"fmt"
	"sync"

	assoc "github.com/goliatone/go-assoc"
	"github.com/google/uuid"
)

// Sync adapts a Store to assoc.Sync. New nodes get an id from IDs; every
// save is guarded by the ETag last seen for the node.
type Sync struct {
	Store Store
	// IDs generates ids for new nodes. Defaults to random UUIDs.
	IDs func() string

	mu    sync.Mutex
	etags map[string]string
}

// NewSync wraps store.
func NewSync(store Store) *Sync {
	return &Sync{Store: store}
}

// Sync implements assoc.Sync.
func (s *Sync) Sync(ctx context.Context, method assoc.Method, n *assoc.Node) (map[string]any, error) {
	if s.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	idAttr := n.Type().IDAttribute()
	switch method {
	case assoc.MethodCreate:
		id := s.newID()
		attrs := n.ToJSON()
		attrs[idAttr] = id
		ref := Ref{Type: n.Type().Name(), ID: id}
		meta, err := s.Store.Save(ctx, ref, attrs, Meta{})
		if err != nil {
			return nil, err
		}
		s.remember(ref, meta.ETag)
		return map[string]any{idAttr: id}, nil
	case assoc.MethodUpdate:
		ref := refFor(n)
		meta, err := s.Store.Save(ctx, ref, n.ToJSON(), Meta{ETag: s.etag(ref)})
		if err != nil {
			return nil, err
		}
		s.remember(ref, meta.ETag)
		return nil, nil
	case assoc.MethodRead:
		ref := refFor(n)
		attrs, meta, ok, err := s.Store.Load(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, ref.Type, ref.ID)
		}
		s.remember(ref, meta.ETag)
		return attrs, nil
	case assoc.MethodDelete:
		ref := refFor(n)
		if err := s.Store.Delete(ctx, ref); err != nil {
			return nil, err
		}
		s.forget(ref)
		return nil, nil
	default:
		return nil, fmt.Errorf("state: unsupported method %q", method)
	}
}

func (s *Sync) newID() string {
	if s.IDs != nil {
		return s.IDs()
	}
	return uuid.NewString()
}

func refFor(n *assoc.Node) Ref {
	return Ref{Type: n.Type().Name(), ID: fmt.Sprint(n.ID())}
}

func (s *Sync) etag(ref Ref) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.etags[ref.Type+"/"+ref.ID]
}

func (s *Sync) remember(ref Ref, etag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.etags == nil {
		s.etags = map[string]string{}
	}
	s.etags[ref.Type+"/"+ref.ID] = etag
}

func (s *Sync) forget(ref Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.etags, ref.Type+"/"+ref.ID)
}
