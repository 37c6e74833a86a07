package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/diewo77/go-docflow/internal/activity"
	"github.com/diewo77/go-docflow/internal/assets"
	"github.com/diewo77/go-docflow/internal/config"
	"github.com/diewo77/go-docflow/internal/db"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/platform/tracing"
	"github.com/diewo77/go-docflow/internal/render"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.App.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	shutdownTracing := tracing.Init(ctx, log, cfg.Telemetry)

	dbConn, err := db.Connect(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := db.Migrate(dbConn, cfg, log); err != nil {
		log.Fatal("migration failed", "error", err)
	}
	if *migrateOnlyFlag {
		log.Info("migrations completed")
		return
	}

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		log.Warn("unknown timezone, using UTC", "timezone", cfg.App.Timezone, "error", err)
		loc = time.UTC
	}

	overlay, err := render.LoadOverlayTable(cfg.Render.OverlayTable)
	if err != nil {
		log.Fatal("invalid overlay table", "path", cfg.Render.OverlayTable, "error", err)
	}
	layoutAssets, err := assets.New(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("layout assets unavailable", "error", err)
	}

	recorders := activity.Fanout{activity.NewDBRecorder(dbConn, log)}
	var publisher *activity.RedisPublisher
	if cfg.Redis.URL != "" {
		publisher, err = activity.NewRedisPublisher(cfg.Redis.URL, cfg.Redis.Channel, log)
		if err != nil {
			log.Warn("redis unavailable, activity notifications disabled", "error", err)
		} else {
			recorders = append(recorders, publisher)
		}
	}

	routerCfg := NewRouterConfig(cfg, Deps{
		DB:       dbConn,
		Recorder: recorders,
		Overlay:  overlay,
		Assets:   layoutAssets,
		Exporter: pdfExporter(log),
		Location: loc,
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewApp(routerCfg, log),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Server.Port, "dev", cfg.App.Dev)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown failed", "error", err)
	}
	log.Info("server stopped gracefully")
}
