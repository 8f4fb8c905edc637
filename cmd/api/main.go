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

	"github.com/book-inventory/cmd/api/book"
	"github.com/book-inventory/cmd/api/config"
	"github.com/book-inventory/cmd/api/database"
	bookhttp "github.com/book-inventory/cmd/api/http"
	"github.com/book-inventory/cmd/api/inmemory"
	"github.com/book-inventory/cmd/api/notifications"
)

const notificationsTimeout = 5 * time.Second

func main() {
	err := run()
	if err != nil {
		slog.Error("books api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	var repo book.Repository
	switch cfg.Storage {
	case config.StoragePostgres:
		//apply migrations before the pool is opened:
		err = database.MigrationUp(cfg.DatabaseURL, cfg.MigrationsPath)
		if err != nil {
			return fmt.Errorf("migrating: %w", err)
		}

		dbObject, err := database.ConnectDb(cfg.DatabaseURL, database.PoolConfig{MaxOpenConns: cfg.DBMaxConns})
		if err != nil {
			return fmt.Errorf("connecting with db: %w", err)
		}
		defer dbObject.Close()

		repo = database.NewStore(dbObject)
	case config.StorageMemory:
		store, err := inmemory.NewInMemoryStore()
		if err != nil {
			return fmt.Errorf("creating in-memory store: %w", err)
		}
		repo = store
	}
	logger.Info("storage ready", "storage", cfg.Storage)

	var notifier book.Notifier
	if cfg.NotificationURL != "" {
		notifier = notifications.NewNtfy(cfg.NotificationURL, &http.Client{Timeout: notificationsTimeout})
	}

	bookService := book.NewService(repo, notifier, notificationsTimeout, logger)
	bookHandler := bookhttp.NewBookHandler(bookService, logger)

	//create and init http server:
	server := bookhttp.NewServer(bookhttp.ServerConfig{Port: cfg.Port}, bookHandler)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("unexpected http server error: %w", err)
		}
		close(serverErr)
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case sig := <-sc:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, shutdownRelease := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownRelease()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	logger.Info("graceful shutdown complete")
	return nil
}
