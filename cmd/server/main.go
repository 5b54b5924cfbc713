// Command server runs the auth API.
//
// @title                       Auth Service API
// @version                     1.0
// @description                 Registration, login and refresh-token rotation with a single active session per user.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
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

	"github.com/rs/zerolog"

	_ "github.com/99minutos/auth-service/docs"
	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/infrastructure/audit"
	"github.com/99minutos/auth-service/internal/infrastructure/db/memory"
	mongostore "github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/auth-service/internal/infrastructure/db/redis"
	"github.com/99minutos/auth-service/internal/infrastructure/queue"
	"github.com/99minutos/auth-service/internal/infrastructure/security"
	"github.com/99minutos/auth-service/internal/pkg/config"
	"github.com/99minutos/auth-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "auth-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, nil)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "auth-service",
	})

	stores, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.close()

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, stores.audit, log)
	dispatcher.Start(workerCtx)

	codec := security.NewJWTCodec(cfg.JWTSecret)
	authService := service.NewAuthService(
		stores.store,
		security.NewBcryptHasher(cfg.BcryptCost),
		codec,
		service.TokenTTL{Access: cfg.AccessTTL, Refresh: cfg.RefreshTTL},
		dispatcher,
		log,
	)

	e := api.NewRouter(api.Deps{
		AuthService: authService,
		Tokens:      codec,
		Ready:       map[string]ports.Pinger{cfg.StoreDriver: stores.pinger},
		Log:         log,
		Production:  cfg.IsProduction(),
		CORSOrigin:  cfg.CORSOrigin,
		Cookie:      handler.CookieConfig{Secure: cfg.IsProduction(), MaxAge: cfg.RefreshTTL},
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// Flush queued audit events before the store goes away.
	dispatcher.Close()
	log.Info().Msg("server stopped")
	return nil
}

type backend struct {
	store  ports.SessionStore
	pinger ports.Pinger
	audit  ports.AuditRepository
	close  func()
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		store := mongostore.NewUserStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &backend{
			store:  store,
			pinger: store,
			audit:  mongostore.NewAuditRepository(db),
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					log.Warn().Err(err).Msg("mongo disconnect failed")
				}
			},
		}, nil

	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		store := redisstore.NewUserStore(client)
		return &backend{
			store:  store,
			pinger: store,
			audit:  audit.NewLogSink(log),
			close: func() {
				if err := client.Close(); err != nil {
					log.Warn().Err(err).Msg("redis close failed")
				}
			},
		}, nil

	default:
		log.Warn().Msg("using in-memory store; sessions are lost on restart")
		store := memory.NewUserStore()
		return &backend{
			store:  store,
			pinger: store,
			audit:  audit.NewLogSink(log),
			close:  func() {},
		}, nil
	}
}
