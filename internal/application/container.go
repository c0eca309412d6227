package application

import (
	"github.com/08star/my-auth-app/config"
	"github.com/08star/my-auth-app/internal/application/services"
	"github.com/08star/my-auth-app/internal/domain/session"
	"github.com/08star/my-auth-app/internal/infrastructure/crypto"
	"github.com/08star/my-auth-app/internal/infrastructure/persistence"
	"github.com/08star/my-auth-app/pkg/jwt"
	"github.com/08star/my-auth-app/pkg/logger"
)

// Services holds all application services.
type Services struct {
	Accounts *services.AccountService
	Devices  *services.DeviceService
}

// Dependencies holds shared dependencies for services.
type Dependencies struct {
	Hasher     *crypto.Argon2Hasher
	JWTManager *jwt.Manager
}

// NewDependencies creates shared dependencies from config.
func NewDependencies(cfg *config.Config) *Dependencies {
	return &Dependencies{
		Hasher: crypto.NewArgon2Hasher(crypto.Argon2Params{
			Memory:      cfg.Auth.Argon2Memory,
			Iterations:  cfg.Auth.Argon2Iterations,
			Parallelism: cfg.Auth.Argon2Parallelism,
			SaltLength:  cfg.Auth.Argon2SaltLength,
			KeyLength:   cfg.Auth.Argon2KeyLength,
		}),
		JWTManager: jwt.NewManager(cfg.JWT.Issuer, cfg.JWT.Secret, cfg.JWT.AccessTokenTTL),
	}
}

// NewServices wires the account directory and the device registry.
func NewServices(repos *persistence.Repositories, sessions session.Registry, deps *Dependencies, cfg *config.Config, log logger.Logger) (*Services, error) {
	accounts, err := services.NewAccountService(repos.User, sessions, deps.Hasher, deps.JWTManager, cfg, log)
	if err != nil {
		return nil, err
	}
	devices := services.NewDeviceService(repos.Device, accounts, log)

	return &Services{
		Accounts: accounts,
		Devices:  devices,
	}, nil
}
