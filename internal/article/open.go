package article

import (
	"context"
	"fmt"

	"avinfo/internal/config"
	"avinfo/pkg/database"
)

// Backend is an opened, migrated store plus the handles the binaries need
// for readiness checks and shutdown.
type Backend struct {
	Store  Store
	Driver string
	// Where is the sqlite path, or "postgres" for the pg driver.
	Where string

	ping  func(ctx context.Context) error
	close func()
}

func (b *Backend) Ping(ctx context.Context) error { return b.ping(ctx) }

func (b *Backend) Close() { b.close() }

// Open opens and migrates the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (*Backend, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := database.OpenPG(ctx, cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		if err := database.MigratePG(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return &Backend{
			Store:  NewPGRepo(pool),
			Driver: cfg.Driver,
			Where:  "postgres",
			ping:   pool.Ping,
			close:  pool.Close,
		}, nil
	case "", "sqlite":
		dbCfg := database.DefaultConfig(cfg.Path)
		db, err := database.Open(dbCfg)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return &Backend{
			Store:  NewRepo(db),
			Driver: "sqlite",
			Where:  dbCfg.Path,
			ping:   db.PingContext,
			close:  func() { _ = db.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
