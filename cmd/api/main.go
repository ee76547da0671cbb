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

	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/buildinfo"
	"github.com/xelth-com/mprgo/internal/config"
	"github.com/xelth-com/mprgo/internal/database"
	"github.com/xelth-com/mprgo/internal/handlers"
	"github.com/xelth-com/mprgo/internal/identity"
	"github.com/xelth-com/mprgo/internal/logging"
	"github.com/xelth-com/mprgo/internal/repository"
	"github.com/xelth-com/mprgo/internal/services/accounting"
	"github.com/xelth-com/mprgo/internal/services/catalog"
	"github.com/xelth-com/mprgo/internal/services/checklist"
	"github.com/xelth-com/mprgo/internal/services/photos"
	"github.com/xelth-com/mprgo/internal/services/visits"
	"github.com/xelth-com/mprgo/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mpr api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize database (embedded or external)
	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database connection")
		if err := db.Close(); err != nil {
			log.Error("database close error", zap.Error(err))
		}
	}()

	// 3. Schema
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.Info("schema synchronized")

	store := repository.New(db.DB)

	// 4. Identity resolution with the optional redis cache
	var cache identity.Cache
	redisCache, err := identity.NewRedisCache(ctx, cfg.Redis)
	if err != nil {
		log.Warn("identity cache unavailable, resolving from the database", zap.Error(err))
	} else if redisCache != nil {
		cache = redisCache
		defer redisCache.Close()
		log.Info("identity cache enabled", zap.String("addr", cfg.Redis.Addr))
	}
	resolver := identity.NewResolver(store, cache, log)

	// 5. Services
	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	blobs, err := photos.NewFSStore(cfg.PhotoDir)
	if err != nil {
		return err
	}

	visitSvc := visits.NewService(store, resolver, hub, log)
	deps := handlers.Deps{
		Store:     store,
		Resolver:  resolver,
		Visits:    visitSvc,
		Checklist: checklist.NewService(store, log),
		Photos:    photos.NewService(store, visitSvc, blobs, log),
		Catalog:   catalog.NewService(store, log),
		Hub:       hub,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	}

	// 6. Accounting catalog sync (background)
	if cfg.Accounting.Enabled() {
		syncSvc := accounting.NewSyncService(accounting.NewClient(cfg.Accounting), store, cfg.Accounting.SyncInterval, log)
		syncSvc.Start(ctx)
		defer syncSvc.Stop()
		deps.Sync = syncSvc
	} else {
		log.Info("accounting gateway not configured, catalog sync disabled")
	}

	router := handlers.NewRouter(deps)

	// 7. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("version", buildinfo.Version),
			zap.String("commit", buildinfo.CommitHash),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received, shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}

	log.Info("shutdown complete")
	return nil
}
