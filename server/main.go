package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/image-watermark/internal/config"
	"github.com/phambaophuc/image-watermark/internal/http/handlers"
	"github.com/phambaophuc/image-watermark/internal/http/routes"
	"github.com/phambaophuc/image-watermark/internal/services/processor"
	"github.com/phambaophuc/image-watermark/internal/services/queue"
	"github.com/phambaophuc/image-watermark/internal/services/storage"
	"github.com/phambaophuc/image-watermark/internal/services/watermark"
	"github.com/phambaophuc/image-watermark/pkg/logger"
	"go.uber.org/zap"
)

const cacheCleanupInterval = time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	zlog, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Mode:       cfg.Log.Mode,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zlog.Sync()

	gin.SetMode(cfg.Server.Mode)

	// Initialize services
	inspector, renderer := newRenderer(cfg.Watermark)
	service := watermark.NewService(
		watermark.NewResolver(cfg.Watermark.TempDir).WithMaxPixels(cfg.Watermark.MaxPixels),
		inspector,
		renderer,
		zlog,
		watermark.ServiceOptions{
			RenderTimeout: cfg.Watermark.RenderTimeout,
			KeepOutput:    cfg.Watermark.KeepOutput,
		},
	)
	zlog.Info("Watermark service ready",
		zap.String("renderer", cfg.Watermark.Renderer),
		zap.String("temp_dir", cfg.Watermark.TempDir),
		zap.Int64("max_pixels", cfg.Watermark.MaxPixels))

	store, err := storage.NewStorageService(cfg)
	if err != nil {
		zlog.Fatal("Failed to initialize storage service", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Continue without queue service for basic functionality
	var jobs handlers.JobQueue
	policy := watermark.ClientPolicy{
		DefaultFont: cfg.Watermark.DefaultFont,
		FontDir:     cfg.Watermark.FontDir,
	}
	qs, err := queue.NewQueueService(cfg.RabbitMQ, cfg.Storage.MaxFileSize, service, store, policy, zlog)
	if err != nil {
		zlog.Warn("Failed to initialize queue service", zap.Error(err))
	} else {
		defer qs.Close()
		jobs = qs
		for i := 1; i <= cfg.Watermark.Workers; i++ {
			if err := qs.StartWorker(ctx, i); err != nil {
				zlog.Error("Failed to start worker", zap.Int("worker_id", i), zap.Error(err))
			}
		}
	}

	go cleanupCache(ctx, store, zlog)

	// Initialize handlers
	watermarkHandler := handlers.NewWatermarkHandler(service, store, jobs, zlog, cfg)
	router := routes.NewRouter(watermarkHandler, zlog)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	// Start server
	go func() {
		zlog.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}

	zlog.Info("Server exited")
}

func newRenderer(cfg config.WatermarkConfig) (watermark.Inspector, watermark.Renderer) {
	if cfg.Renderer == config.RendererNative {
		return processor.NewNativeInspector(), processor.NewNativeRenderer().WithMaxPixels(cfg.MaxPixels)
	}
	magick := watermark.NewMagickRenderer(cfg.ConvertCmd, cfg.IdentifyCmd)
	return magick, magick
}

func cleanupCache(ctx context.Context, store *storage.StorageService, zlog *zap.Logger) {
	ticker := time.NewTicker(cacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.CleanupCache(ctx); err != nil {
				zlog.Warn("Cache cleanup failed", zap.Error(err))
			}
		}
	}
}
