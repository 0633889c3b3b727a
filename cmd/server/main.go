// MediaHub Server
//
// Features:
// - Recursive library scanning with tag metadata extraction
// - HTTP byte-range streaming for video, audio, and images
// - Watch-together rooms with synchronized playback over WebSocket
// - Optional JWT identity and per-user playback progress (PostgreSQL)
// - Prometheus metrics & structured logging (zap)
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mediahub/mediahub/internal/api"
	"github.com/mediahub/mediahub/internal/auth"
	"github.com/mediahub/mediahub/internal/config"
	"github.com/mediahub/mediahub/internal/library"
	"github.com/mediahub/mediahub/internal/logging"
	"github.com/mediahub/mediahub/internal/metrics"
	"github.com/mediahub/mediahub/internal/progress"
	"github.com/mediahub/mediahub/internal/room"
)

func main() {
	// Local development overrides; absence is not an error.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("MediaHub Server starting...",
		zap.String("listen", cfg.ListenAddr),
		zap.String("metrics", cfg.MetricsAddr),
		zap.Strings("roots", cfg.MediaRoots))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Library
	resolver, err := library.NewResolver(cfg.MediaRoots)
	if err != nil {
		logging.Fatal("media roots invalid", zap.Error(err))
	}
	lib := library.NewLibrary(library.NewScanner(resolver))
	if _, err := lib.Rescan(ctx); err != nil {
		logging.Fatal("initial library scan failed", zap.Error(err))
	}

	// Playback progress store (optional)
	var progressStore *progress.Store
	if cfg.DatabaseURL != "" {
		logging.Info("connecting to PostgreSQL...")
		progressStore, err = progress.New(cfg.DatabaseURL)
		if err != nil {
			logging.Fatal("database connection failed", zap.Error(err))
		}
		defer progressStore.Close()
	} else {
		logging.Info("no DATABASE_URL set, playback progress disabled")
	}

	// Identity (optional)
	authHandler := auth.New(cfg.JWTSecret)
	if !authHandler.Enabled() {
		logging.Info("no JWT_SECRET set, all requests are anonymous")
	}

	// Watch-together hub
	hub := room.NewHub(cfg.RoomSendBuffer)

	srv := api.NewServer(lib, hub, authHandler, progressStore)

	// Metrics server
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metrics.Handler(),
	}
	go func() {
		logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("metrics server error", zap.Error(err))
		}
	}()

	// HTTP server
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")
		cancel()
		httpServer.Close()
		metricsServer.Close()
	}()

	// Periodic rescan
	if cfg.RescanInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.RescanInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := lib.Rescan(ctx); err != nil {
						logging.Error("periodic rescan failed", zap.Error(err))
					}
				}
			}
		}()
	}

	logging.Info("server listening", zap.String("addr", cfg.ListenAddr))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("server error", zap.Error(err))
	}
}
