package itests

import (
	"context"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"GatewayAdmin/internal/config"
	"GatewayAdmin/internal/db"
	"GatewayAdmin/internal/resource"
	"GatewayAdmin/internal/router"
	"GatewayAdmin/internal/store"
	"GatewayAdmin/internal/tablequery"
)

var (
	testServer *httptest.Server
	registry   *resource.Registry
)

// TestMain needs a local Postgres; set ITESTS=1 to run the package.
func TestMain(m *testing.M) {
	if os.Getenv("ITESTS") != "1" {
		log.Printf("itests skipped, set ITESTS=1 to run against Postgres")
		os.Exit(0)
	}
	cfg := config.LoadConfig()
	cfg.Auth.Enabled = false

	teardown, err := SetupTestDB(cfg.PostgresDSN)
	if err != nil {
		log.Printf("setup test DB failed: %v", err)
		os.Exit(1)
	}

	db.InitRedis(cfg.RedisAddr)
	if err := db.PingRedis(context.Background()); err != nil {
		log.Printf("redis unavailable, counts not cached: %v", err)
		db.RDB = nil
	}

	registry, err = resource.LoadFromDir(cfg.ResourcesDir)
	if err != nil {
		log.Printf("load resources failed: %v", err)
		_ = teardown()
		os.Exit(1)
	}

	records := store.New(db.Pool, store.NewCountCache(db.RDB, cfg.CountCache.TTL),
		store.WithConverter(tablequery.Converter{DateLayout: cfg.DateLayout, Location: time.UTC}))
	h, err := router.New(cfg, registry, records)
	if err != nil {
		log.Printf("router init failed: %v", err)
		_ = teardown()
		os.Exit(1)
	}
	testServer = httptest.NewServer(h)

	code := m.Run()

	testServer.Close()
	if err := teardown(); err != nil {
		log.Printf("drop test DB failed: %v", err)
	}
	os.Exit(code)
}
