package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/08star/my-auth-app/config"
	"github.com/08star/my-auth-app/internal/domain/session"
	"github.com/08star/my-auth-app/internal/infrastructure/cache/redis"
	"github.com/08star/my-auth-app/internal/infrastructure/persistence/memory"
)

const memorySweepInterval = time.Minute

// Sessions is the session registry of one driver together with the
// connection it runs on.
type Sessions struct {
	session.Registry
	Driver string

	health func(context.Context) error
	close  func() error
}

// OpenSessions connects the registry selected by cfg.Session.Driver.
func OpenSessions(ctx context.Context, cfg *config.Config) (*Sessions, error) {
	switch cfg.Session.Driver {
	case config.DriverRedis:
		client, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, err
		}
		reg := redis.NewSessionRegistry(client, cfg.Session.KeyPrefix)
		return &Sessions{
			Registry: reg,
			Driver:   config.DriverRedis,
			health:   client.Health,
			close: func() error {
				_ = reg.Close()
				return client.Close()
			},
		}, nil
	case config.DriverMemory:
		reg := memory.NewSessionRegistry(memorySweepInterval)
		return &Sessions{
			Registry: reg,
			Driver:   config.DriverMemory,
			health:   func(context.Context) error { return nil },
			close:    reg.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported session driver: %s", cfg.Session.Driver)
	}
}

// Health checks the registry's backing connection.
func (s *Sessions) Health(ctx context.Context) error {
	return s.health(ctx)
}

// Close stops the registry and releases its connection.
func (s *Sessions) Close() error {
	return s.close()
}
