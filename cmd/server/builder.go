package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/08star/my-auth-app/config"
	"github.com/08star/my-auth-app/internal/application"
	"github.com/08star/my-auth-app/internal/infrastructure/persistence"
	apphttp "github.com/08star/my-auth-app/internal/interfaces/http"
	"github.com/08star/my-auth-app/internal/interfaces/http/handlers"
	"github.com/08star/my-auth-app/pkg/logger"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, logWriter, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
		if logWriter != nil {
			_ = logWriter.Close()
		}
	}()
	logger.SetDefault(log)

	log.Info("Starting device authorization service...", logger.Component("main"))

	repos, sessions, err := initInfrastructure(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer repos.Close()
	defer sessions.Close()

	deps := application.NewDependencies(cfg)
	svcs, err := application.NewServices(repos, sessions, deps, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}

	router, err := apphttp.NewRouter(cfg, &apphttp.RouterDeps{
		Accounts: svcs.Accounts,
		Devices:  svcs.Devices,
		Logger:   log,
		LogStore: logWriter,
		HealthChecks: map[string]handlers.HealthChecker{
			"database": repos,
			"sessions": sessions,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}
	server := apphttp.NewServer(&cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server listening",
			logger.Component("server"),
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		router.Run(gctx)
		return nil
	})

	if logWriter != nil {
		logWriter.StartCleanupJob(gctx)
		log.Info("Log cleanup job started",
			logger.Component("main"),
			logger.Int("retention_days", cfg.Logging.RetentionDays),
		)
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...", logger.Component("server"))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Server exited", logger.Component("server"))
	return nil
}

func initLogger(cfg *config.Config) (logger.Logger, *logger.SQLiteWriter, error) {
	logCfg := logger.Config{
		Level:           cfg.Logging.Level,
		Environment:     cfg.Logging.Environment,
		EnableConsole:   true,
		EnableSQLite:    cfg.Logging.ViewerEnabled,
		SQLiteDBPath:    cfg.Logging.SQLiteDBPath,
		AsyncBufferSize: cfg.Logging.AsyncBufferSize,
		RetentionDays:   cfg.Logging.RetentionDays,
		FlushInterval:   100 * time.Millisecond,
		BatchSize:       100,
	}

	var writer *logger.SQLiteWriter
	if logCfg.EnableSQLite {
		var err error
		writer, err = logger.NewSQLiteWriter(logCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create SQLite log writer: %w", err)
		}
	}

	log, err := logger.New(logCfg, writer)
	if err != nil {
		if writer != nil {
			_ = writer.Close()
		}
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, writer, nil
}

func initInfrastructure(ctx context.Context, cfg *config.Config, log logger.Logger) (*persistence.Repositories, *persistence.Sessions, error) {
	repos, err := persistence.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Database.Driver, err)
	}
	log.Info("Store ready",
		logger.Component("infrastructure"),
		logger.String("driver", repos.Driver),
		logger.Bool("migrated", cfg.Database.AutoMigrate),
	)

	sessions, err := persistence.OpenSessions(ctx, cfg)
	if err != nil {
		_ = repos.Close()
		return nil, nil, fmt.Errorf("failed to open %s session registry: %w", cfg.Session.Driver, err)
	}
	log.Info("Session registry ready",
		logger.Component("infrastructure"),
		logger.String("driver", sessions.Driver),
	)

	return repos, sessions, nil
}
