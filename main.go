package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mattfrayser/whiteboard-relay/internal/board"
	"github.com/mattfrayser/whiteboard-relay/internal/config"
	"github.com/mattfrayser/whiteboard-relay/internal/element"
	"github.com/mattfrayser/whiteboard-relay/internal/handlers"
	"github.com/mattfrayser/whiteboard-relay/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := board.NewRegistry()
	go registry.Run(ctx, cfg.CleanupInterval, cfg.BoardIdleTTL)

	var sanitizer *element.Sanitizer
	if cfg.SanitizeText {
		sanitizer = element.NewSanitizer()
	}
	msgRouter := handlers.NewMessageRouter(registry, handlers.Options{
		AutoCreateBoards: cfg.AutoCreateBoards,
		Sanitizer:        sanitizer,
	})

	manager := transport.NewManager(registry, msgRouter, cfg)
	api := transport.NewAPI(registry, manager)

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           transport.NewRouter(api, manager, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown", "err", err)
		}
		if err := manager.Shutdown(shutdownCtx); err != nil {
			slog.Error("session shutdown", "err", err)
		}
	}()

	slog.Info("whiteboard relay listening", "port", cfg.Port, "autoCreateBoards", cfg.AutoCreateBoards)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
	<-stopped
}
