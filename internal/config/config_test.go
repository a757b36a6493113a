package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SOCIOGRAM_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Server.Address != ":50051" || cfg.Server.HTTPAddress != ":8080" {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Cache.Backend != CacheBackendNone || cfg.Cache.ResultTTL != 10*time.Minute || cfg.Cache.MaxEntries != 1024 {
		t.Fatalf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if !cfg.Store.Enabled || cfg.Store.Path == "" {
		t.Fatalf("unexpected store defaults: %+v", cfg.Store)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`server:
  address: ":6000"
  gracefulTimeout: 3s
logging:
  level: debug
cache:
  backend: memory
  resultTTL: 1m
store:
  inMemory: true
ai:
  enabled: true
  model: test-model
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SOCIOGRAM_HTTP_ADDRESS", ":9090")
	t.Setenv("SOCIOGRAM_LOG_JSON", "true")
	t.Setenv("SOCIOGRAM_AI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "fallback-key")
	t.Setenv("SOCIOGRAM_CACHE_RESULT_TTL", "30s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":6000" || cfg.Server.HTTPAddress != ":9090" || cfg.Server.GracefulTimeout != 3*time.Second {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.JSON {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Cache.Backend != CacheBackendMemory || cfg.Cache.ResultTTL != 30*time.Second {
		t.Fatalf("unexpected cache config: %+v", cfg.Cache)
	}
	if !cfg.Store.InMemory {
		t.Fatalf("expected in-memory store")
	}
	if !cfg.AI.Enabled || cfg.AI.Model != "test-model" || cfg.AI.APIKey != "fallback-key" {
		t.Fatalf("unexpected ai config: %+v", cfg.AI)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Cache.Backend = CacheBackendRedis
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected redis backend without addr to fail")
	}
	cfg.Cache.Addr = "localhost:6379"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Cache.Backend = "memcached"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown backend to fail")
	}
}

func TestLoadExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "sociogram.yaml"))
	if err != nil {
		t.Fatalf("load example config: %v", err)
	}
	if cfg.Cache.Backend != CacheBackendMemory {
		t.Fatalf("expected memory cache, got %q", cfg.Cache.Backend)
	}
	if cfg.Rules.Path == "" || cfg.Server.BodyLimit != "4M" {
		t.Fatalf("unexpected example config: %+v", cfg)
	}
}
