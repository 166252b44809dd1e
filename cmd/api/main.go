package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/usershub/internal/auth"
	"github.com/geocoder89/usershub/internal/config"
	"github.com/geocoder89/usershub/internal/db"
	httpx "github.com/geocoder89/usershub/internal/http"
	"github.com/geocoder89/usershub/internal/http/middlewares"
	"github.com/geocoder89/usershub/internal/observability"
	"github.com/geocoder89/usershub/internal/repo/memory"
	"github.com/geocoder89/usershub/internal/repo/postgres"
	"github.com/geocoder89/usershub/internal/service"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "usershub", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		tctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(tctx)
	}()

	prom := observability.NewProm()

	var (
		store service.UserStore
		ping  func(ctx context.Context) error
	)

	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory user store, data is lost on restart")
		store = memory.NewUsersRepo()

	case "postgres":
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, cfg.DBURL); err != nil {
				return err
			}
		}

		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("db connect failed: %w", err)
		}
		defer pool.Close()

		store = postgres.NewUsersRepo(pool, prom)
		ping = pool.Ping

	default:
		return fmt.Errorf("unknown USER_STORE %q", cfg.Store)
	}

	users := service.NewUserService(store, cfg.BcryptCost, log)
	authSvc := service.NewAuthService(store, users, log)

	seedCtx, cancelSeed := config.WithTimeout(10 * time.Second)
	created, err := db.EnsureAdminUser(seedCtx, users, cfg, log)
	cancelSeed()
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("admin user created", "email", cfg.AdminEmail)
	}

	var revocations *auth.RevocationStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connect failed: %w", err)
		}
		revocations = auth.NewRevocationStore(rdb)
	} else {
		log.Warn("REDIS_ADDR not set, signed out tokens stay valid until they expire")
	}

	// set up routers with the deps
	router := httpx.NewRouter(httpx.Deps{
		Log:         log,
		Config:      cfg,
		Users:       users,
		Auth:        authSvc,
		Tokens:      auth.NewManager(cfg.JWTSecret, cfg.AccessTTL()),
		Revocations: revocations,
		RateLimiter: middlewares.NewRateLimiter(middlewares.DefaultRoleLimits, time.Minute),
		Prom:        prom,
		Ping:        ping,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
