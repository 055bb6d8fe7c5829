package assoc

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-assoc/pkg/activity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Method names the persistence operation passed to Sync.
type Method string

const (
	MethodCreate Method = "create"
	MethodRead   Method = "read"
	MethodUpdate Method = "update"
	MethodDelete Method = "delete"
)

// Sync persists nodes. The returned attributes, when non-nil, are applied to
// the node through the regular coercion pipeline.
type Sync interface {
	Sync(ctx context.Context, method Method, n *Node) (map[string]any, error)
}

// SyncFunc adapts a function to Sync.
type SyncFunc func(ctx context.Context, method Method, n *Node) (map[string]any, error)

// Sync implements Sync.
func (f SyncFunc) Sync(ctx context.Context, method Method, n *Node) (map[string]any, error) {
	return f(ctx, method, n)
}

// Fetch reads the node from its store and applies the result.
func (n *Node) Fetch(ctx context.Context, opts ...SetOption) error {
	attrs, err := n.sync(ctx, MethodRead)
	if err != nil {
		return err
	}
	if attrs != nil {
		if err := n.Set(attrs, append(opts, Parse())...); err != nil {
			return err
		}
	}
	n.dispatch(Event{Name: "sync", Node: n, Value: MethodRead})
	n.emitActivity(ctx, activity.BuildNodeFetchedEvent, sortedKeys(attrs))
	return nil
}

// Save applies attrs with validation, then creates or updates the node in
// its store. Attributes returned by the store are applied afterwards.
func (n *Node) Save(ctx context.Context, attrs map[string]any, opts ...SetOption) error {
	if attrs != nil {
		if err := n.Set(attrs, append(opts, Validate())...); err != nil {
			return err
		}
	} else if err := n.Validate(); err != nil {
		n.invalid(err)
		return err
	}

	method := MethodUpdate
	build := activity.BuildNodeUpdatedEvent
	if n.IsNew() {
		method = MethodCreate
		build = activity.BuildNodeCreatedEvent
	}
	result, err := n.sync(ctx, method)
	if err != nil {
		return err
	}
	if result != nil {
		if err := n.Set(result, append(opts, Parse(), Validate())...); err != nil {
			return err
		}
	}
	n.dispatch(Event{Name: "sync", Node: n, Value: method})
	n.emitActivity(ctx, build, sortedKeys(attrs))
	return nil
}

// Destroy deletes the node from its store and fires "destroy", which removes
// it from every collection holding it. New nodes skip the store.
func (n *Node) Destroy(ctx context.Context) error {
	if !n.IsNew() {
		if _, err := n.sync(ctx, MethodDelete); err != nil {
			return err
		}
	}
	n.dispatch(Event{Name: "destroy", Node: n})
	if !n.IsNew() {
		n.dispatch(Event{Name: "sync", Node: n, Value: MethodDelete})
		n.emitActivity(ctx, activity.BuildNodeDeletedEvent, nil)
	}
	return nil
}

func (n *Node) sync(ctx context.Context, method Method) (map[string]any, error) {
	s := n.typ.syncer()
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSync, n.typ.name)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := n.typ.registry.cfg
	ctx, span := cfg.tracer.Start(ctx, "assoc.sync."+string(method),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()
	span.SetAttributes(
		attribute.String("assoc.type", n.typ.name),
		attribute.String("assoc.method", string(method)),
		attribute.String("assoc.cid", n.cid),
	)

	n.dispatch(Event{Name: "request", Node: n, Value: method})
	start := time.Now()
	attrs, err := s.Sync(ctx, method, n)
	duration := time.Since(start)
	cfg.metrics.SyncCompleted(n.typ.name, method, duration, err)

	if err != nil {
		err = fmt.Errorf("assoc: sync %s %s: %w", method, n, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		cfg.logger.Error(err, "sync failed", "type", n.typ.name, "method", string(method), "cid", n.cid)
		n.dispatch(Event{Name: "error", Node: n, Err: err, Value: method})
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	cfg.logger.V(1).Info("sync completed", "type", n.typ.name, "method", string(method), "cid", n.cid, "duration", duration)
	return attrs, nil
}

func (n *Node) emitActivity(ctx context.Context, build func(activity.NodeEventInput) activity.Event, changed []string) {
	emitter := n.typ.registry.cfg.activity
	if !emitter.Enabled() {
		return
	}
	event := build(activity.NodeEventInput{
		Type:    n.typ.name,
		ID:      n.ID(),
		CID:     n.cid,
		Changed: changed,
	})
	if err := emitter.Emit(ctx, event); err != nil {
		n.typ.registry.cfg.logger.Error(err, "activity emit failed", "type", n.typ.name, "verb", event.Verb)
	}
}
