// Package main запускает HTTP-сервер сервиса активности столовой.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nmalakhov/canteen-activity/internal/activity"
	"github.com/nmalakhov/canteen-activity/internal/config"
	"github.com/nmalakhov/canteen-activity/internal/handler"
	"github.com/nmalakhov/canteen-activity/internal/metrics"
	"github.com/nmalakhov/canteen-activity/internal/middleware"
	"github.com/nmalakhov/canteen-activity/internal/model"
	"github.com/nmalakhov/canteen-activity/internal/storage"
	"github.com/nmalakhov/canteen-activity/internal/storage/document"
	"github.com/nmalakhov/canteen-activity/internal/storage/snapshot"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var docStore *document.Store
	if cfg.DatabaseURI != "" {
		docStore, err = document.NewStore(cfg.DatabaseURI)
		if err != nil {
			if cfg.SnapshotFile == "" {
				sugar.Fatalw("document store initialization error", "error", err.Error())
			}
			sugar.Warnw("document store unavailable, serving from snapshot", "error", err.Error())
			docStore = nil
		} else {
			defer docStore.Close()
		}
	}

	var snapStore *snapshot.Store
	if cfg.SnapshotFile != "" {
		snapStore, err = snapshot.NewStore(cfg.SnapshotFile)
		if err != nil {
			if docStore == nil {
				sugar.Fatalw("snapshot initialization error", "error", err.Error())
			}
			sugar.Warnw("snapshot unavailable, serving without fallback", "error", err.Error())
			snapStore = nil
		}
	}

	var selector activity.Storage
	switch {
	case docStore != nil && snapStore != nil:
		selector = storage.NewProbeSelector(docStore, docStore, snapStore, time.Second)
	case docStore != nil:
		selector = storage.FixedSelector{Backend: docStore, Mode: model.StorageModeDocument}
	case snapStore != nil:
		selector = storage.FixedSelector{Backend: snapStore, Mode: model.StorageModeSnapshot}
	default:
		sugar.Fatalw("no storage backend configured")
	}

	reg := metrics.NewRegistry()
	svc := activity.NewService(selector, logger, reg)

	secret := cfg.AuthSecret
	if secret == "" {
		secret = "canteen-activity-secret"
	}
	authMiddleware := middleware.NewAuthMiddleware(secret)

	h := handler.NewHandler(svc, logger, authMiddleware, reg, cfg.CORSOrigin)
	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting activity server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
