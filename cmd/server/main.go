package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/bootstrap"
	"github.com/fathima-sithara/chat-app/internal/config"
	"github.com/fathima-sithara/chat-app/internal/utils"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("chat-app: %v", err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ignoring .env: %v", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	logger, err := utils.NewLogger(cfg.IsDevelopment(), cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting chat-app", zap.String("env", cfg.App.Env), zap.Int("port", cfg.App.Port))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := bootstrap.Init(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Info("server listening", zap.String("addr", addr))
		errCh <- app.App.Listen(addr)
	}()

	select {
	case err = <-errCh:
		logger.Error("server stopped", zap.Error(err))
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if serr := app.App.ShutdownWithContext(shutdownCtx); serr != nil {
		logger.Error("fiber shutdown error", zap.Error(serr))
	}
	cleanup(shutdownCtx)
	logger.Info("graceful shutdown complete")
	return err
}
