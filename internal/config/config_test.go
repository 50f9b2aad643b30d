package config

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("COUNT_CACHE_TTL_SEC", "5")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_JWT_VALIDATION_TYPE", "rs256")
	t.Setenv("REDIS_ADDR", " localhost:6379 ")

	cfg := LoadConfig()

	if cfg.Port != "9191" {
		t.Fatalf("port: %q", cfg.Port)
	}
	if cfg.CountCache.TTL != 5*time.Second {
		t.Fatalf("ttl: %v", cfg.CountCache.TTL)
	}
	if cfg.CORS.AllowCredentials {
		t.Fatalf("expected credentials disabled")
	}
	if !cfg.Auth.Enabled || cfg.Auth.JWT.ValidationType != "RS256" {
		t.Fatalf("auth: %+v", cfg.Auth)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("redis addr: %q", cfg.RedisAddr)
	}
}

func TestLoadConfigInvalidValuesFallBack(t *testing.T) {
	t.Setenv("COUNT_CACHE_TTL_SEC", "soon")
	t.Setenv("AUTH_ENABLED", "maybe")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "")

	cfg := LoadConfig()

	if cfg.CountCache.TTL != 30*time.Second {
		t.Fatalf("ttl fallback: %v", cfg.CountCache.TTL)
	}
	if cfg.Auth.Enabled {
		t.Fatalf("auth should fall back to disabled")
	}
	if cfg.CORS.AllowOrigin != "*" || cfg.CORS.AllowCredentials {
		t.Fatalf("cors defaults: %+v", cfg.CORS)
	}
}
