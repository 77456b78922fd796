package main

import (
	"context"
	"fmt"

	"dossier/internal/platform/config"
	"dossier/internal/platform/database"
	"dossier/internal/platform/redis"
	"dossier/internal/profile/gateway"
	"dossier/internal/profile/store"
)

// openSlot builds the configured slot backend. The returned func releases
// any connection it opened.
func openSlot(ctx context.Context, cfg config.Config) (gateway.Slot, func(), error) {
	noop := func() {}
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return store.NewInMemory(), noop, nil
	case config.BackendFile:
		return store.NewFile(cfg.Storage.FilePath), noop, nil
	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		if client == nil {
			return nil, noop, fmt.Errorf("redis is not configured")
		}
		slot := store.NewRedis(client.Client, store.WithRedisKey(cfg.Storage.SlotKey))
		return slot, func() { _ = client.Close() }, nil
	case config.BackendPostgres:
		db, err := database.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		if db == nil {
			return nil, noop, fmt.Errorf("postgres is not configured")
		}
		slot := store.NewPostgres(db, store.WithPostgresKey(cfg.Storage.SlotKey))
		if err := slot.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return slot, func() { _ = db.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
