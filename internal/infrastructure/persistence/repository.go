package persistence

import (
	"context"
	"fmt"

	"github.com/08star/my-auth-app/config"
	"github.com/08star/my-auth-app/internal/domain/device"
	"github.com/08star/my-auth-app/internal/domain/user"
	"github.com/08star/my-auth-app/internal/infrastructure/persistence/memory"
	"github.com/08star/my-auth-app/internal/infrastructure/persistence/postgres"
	"github.com/08star/my-auth-app/internal/infrastructure/persistence/sqlite"
)

// Repositories holds the user and device stores of one driver.
type Repositories struct {
	Driver string
	User   user.Repository
	Device device.Repository

	health  func(context.Context) error
	migrate func(context.Context) error
	close   func() error
}

// Open connects the store selected by cfg.Driver. When cfg.AutoMigrate is
// set the schema is applied before returning.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Repositories, error) {
	var repos *Repositories

	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repos = &Repositories{
			User:    postgres.NewUserRepository(db),
			Device:  postgres.NewDeviceRepository(db),
			health:  db.Health,
			migrate: db.Migrate,
			close:   db.Close,
		}
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		repos = &Repositories{
			User:    sqlite.NewUserRepository(db),
			Device:  sqlite.NewDeviceRepository(db),
			health:  db.Health,
			migrate: db.Migrate,
			close:   db.Close,
		}
	case config.DriverMemory:
		repos = NewMemory(memory.NewStore())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	repos.Driver = cfg.Driver

	if cfg.AutoMigrate {
		if err := repos.Migrate(ctx); err != nil {
			_ = repos.Close()
			return nil, err
		}
	}
	return repos, nil
}

// NewMemory wraps an in-memory store.
func NewMemory(s *memory.Store) *Repositories {
	return &Repositories{
		Driver:  config.DriverMemory,
		User:    s.Users(),
		Device:  s.Devices(),
		health:  s.Health,
		migrate: func(context.Context) error { return nil },
		close:   s.Close,
	}
}

// Health checks the backing store.
func (r *Repositories) Health(ctx context.Context) error {
	return r.health(ctx)
}

// Migrate applies the schema. It is idempotent.
func (r *Repositories) Migrate(ctx context.Context) error {
	return r.migrate(ctx)
}

// Close releases the backing store.
func (r *Repositories) Close() error {
	return r.close()
}
