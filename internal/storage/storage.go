// Package storage selects the simulation history backend named by
// configuration.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/config"
	"github.com/cory-johannsen/combatsim/internal/simulation"
	"github.com/cory-johannsen/combatsim/internal/storage/postgres"
	"github.com/cory-johannsen/combatsim/internal/storage/sqlite"
)

// Pinger is implemented by stores that sit on a database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open returns the HistoryStore for cfg.Storage.Driver and a func that
// releases it.
//
// Precondition: cfg must have passed Validate.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (simulation.HistoryStore, func(), error) {
	switch cfg.Storage.Driver {
	case "none":
		return simulation.NewMemoryStore(), func() {}, nil
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return pool.Repository(), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Health pings store when it is database backed. In-memory stores are
// always healthy.
func Health(ctx context.Context, store simulation.HistoryStore) error {
	p, ok := store.(Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("history store unreachable: %w", err)
	}
	return nil
}
