package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/sokha/lunchpool/internal/api"
	"github.com/sokha/lunchpool/internal/auth"
	"github.com/sokha/lunchpool/internal/config"
	"github.com/sokha/lunchpool/internal/service"
	"github.com/sokha/lunchpool/internal/storage/sqlite"
	"github.com/sokha/lunchpool/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	groups := service.NewGroupService(store, clockwork.NewRealClock(), service.Config{
		MinDeadlineLead:    cfg.MinDeadlineLead,
		LockAfterSubmit:    cfg.LockAfterSubmit,
		PruneDishesOnLeave: cfg.PruneDishesOnLeave,
	})
	if err := groups.Bootstrap(context.Background()); err != nil {
		slog.Error("Bootstrap failed", "error", err)
		os.Exit(1)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, groups)

	handler := api.NewServer(groups, authSvc, jwtManager).Routes(cfg.CORSOrigins)

	srv := &http.Server{
		Addr: cfg.Addr,
		// h2c allows HTTP/2 without TLS for local clients and proxies.
		Handler:      h2c.NewHandler(handler, &http2.Server{}),
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit
		slog.Info("Signal caught", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		shutdown <- srv.Shutdown(ctx)
	}()

	slog.Info("Server starting", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	if err := <-shutdown; err != nil {
		slog.Error("Shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped", "addr", cfg.Addr)
}
