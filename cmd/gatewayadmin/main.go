package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GatewayAdmin/internal/config"
	"GatewayAdmin/internal/db"
	"GatewayAdmin/internal/logger"
	"GatewayAdmin/internal/resource"
	"GatewayAdmin/internal/router"
	"GatewayAdmin/internal/store"
	"GatewayAdmin/internal/tablequery"
)

func main() {
	debugFlag := flag.Bool("d", false, "enable debug logging")
	flag.Parse()

	cfg := config.LoadConfig()
	if err := logger.Init("."); err != nil {
		fmt.Fprintf(os.Stderr, "log init failed: %v\n", err)
		os.Exit(1)
	}
	logger.SetDebug(*debugFlag)

	// PostgreSQL
	if err := db.RunMigrations(cfg.PostgresDSN, cfg.MigrationsDir); err != nil {
		logger.Error("migrations_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	if err := db.InitPostgres(cfg.PostgresDSN); err != nil {
		logger.Error("postgres_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer db.ClosePostgres()
	logger.Info("postgres_connected", nil)

	// Redis is optional; without it counts are not cached
	db.InitRedis(cfg.RedisAddr)
	if db.RDB != nil {
		if err := db.PingRedis(context.Background()); err != nil {
			logger.Warn("redis_unavailable", map[string]any{"error": err.Error()})
		}
	}

	reg, err := resource.LoadFromDir(cfg.ResourcesDir)
	if err != nil {
		logger.Error("resources_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("resources_initialized", map[string]any{"count": len(reg.All())})

	records := store.New(db.Pool, store.NewCountCache(db.RDB, cfg.CountCache.TTL),
		store.WithConverter(tablequery.Converter{DateLayout: cfg.DateLayout, Location: time.UTC}))
	h, err := router.New(cfg, reg, records)
	if err != nil {
		logger.Error("router_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server_start", map[string]any{"port": cfg.Port})
		log.Printf("Starting server on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("server_shutdown", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server_forced_shutdown", map[string]any{"error": err.Error()})
	}
}
