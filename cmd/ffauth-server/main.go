// Command ffauth-server serves the auth API over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/ffauth"
	"github.com/MrEthical07/ffauth/httpapi"
	"github.com/MrEthical07/ffauth/internal/config"
	"github.com/MrEthical07/ffauth/internal/logging"
	promexport "github.com/MrEthical07/ffauth/metrics/export/prometheus"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("invalid log settings, fallback to zap production logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, closeStore, err := openStore(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	engine, err := ffauth.New().
		WithConfig(cfg.Engine()).
		WithStore(store).
		WithLogger(logger).
		Build()
	if err != nil {
		logger.Fatal("failed to build engine", zap.Error(err))
	}
	defer engine.Close()

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(engine, httpapi.Options{
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins(),
		Metrics:        promexport.NewPrometheusExporter(engine).Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited", zap.Uint64("audit_dropped", engine.AuditDropped()))
}
