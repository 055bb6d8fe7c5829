// Package redisstore implements state.Store on Redis. Each node is a hash
// holding its JSON attributes, ETag and update time.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-assoc/pkg/state"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "assoc:node:"

// Store keeps node records in Redis hashes.
type Store struct {
	client *redis.Client
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the key prefix, "assoc:node:" by default.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) key(ref state.Ref) (string, error) {
	id, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	return s.prefix + id, nil
}

func (s *Store) Load(ctx context.Context, ref state.Ref) (map[string]any, state.Meta, bool, error) {
	key, err := s.key(ref)
	if err != nil {
		return nil, state.Meta{}, false, err
	}
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, state.Meta{}, false, fmt.Errorf("redisstore: load %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, state.Meta{}, false, nil
	}
	var attrs map[string]any
	if err := json.Unmarshal([]byte(fields["attrs"]), &attrs); err != nil {
		return nil, state.Meta{}, false, fmt.Errorf("redisstore: decode %s: %w", key, err)
	}
	meta := state.Meta{ETag: fields["etag"]}
	if ts, err := time.Parse(time.RFC3339Nano, fields["updated_at"]); err == nil {
		meta.UpdatedAt = ts
	}
	return attrs, meta, true, nil
}

// Save writes the record in a WATCH transaction so the ETag check and the
// write are atomic.
func (s *Store) Save(ctx context.Context, ref state.Ref, attrs map[string]any, meta state.Meta) (state.Meta, error) {
	key, err := s.key(ref)
	if err != nil {
		return state.Meta{}, err
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return state.Meta{}, fmt.Errorf("redisstore: encode %s: %w", key, err)
	}

	saved := meta
	saved.ETag = uuid.NewString()
	saved.UpdatedAt = time.Now().UTC()

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.HGet(ctx, key, "etag").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			if err := state.CheckETag(meta.ETag, stored); err != nil {
				return err
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"attrs", raw,
				"etag", saved.ETag,
				"updated_at", saved.UpdatedAt.Format(time.RFC3339Nano),
			)
			return nil
		})
		return err
	}, key)
	if err != nil {
		if errors.Is(err, state.ErrETagMismatch) {
			return state.Meta{}, err
		}
		if errors.Is(err, redis.TxFailedErr) {
			return state.Meta{}, fmt.Errorf("%w: concurrent write to %s", state.ErrETagMismatch, key)
		}
		return state.Meta{}, fmt.Errorf("redisstore: save %s: %w", key, err)
	}
	return saved, nil
}

func (s *Store) Delete(ctx context.Context, ref state.Ref) error {
	key, err := s.key(ref)
	if err != nil {
		return err
	}
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redisstore: delete %s: %w", key, err)
	}
	if n == 0 {
		return state.ErrNotFound
	}
	return nil
}

var _ state.Store = (*Store)(nil)
