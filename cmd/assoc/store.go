package main

import (
	"fmt"

	"github.com/goliatone/go-assoc/pkg/state"
	"github.com/goliatone/go-assoc/pkg/state/redisstore"
	"github.com/goliatone/go-assoc/pkg/state/sqlitestore"
	"github.com/redis/go-redis/v9"
)

func openStore(cfg StoreConfig) (state.Store, func(), error) {
	switch cfg.Driver {
	case "", "memory":
		return state.NewMemoryStore(), func() {}, nil
	case "sqlite":
		store, err := sqlitestore.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
		return redisstore.New(client, redisstore.WithPrefix(cfg.Prefix)), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
