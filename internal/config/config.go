package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheBackendNone   = "none"
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config captures the settings required to boot the sociogram engine.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Rules   RulesConfig   `yaml:"rules"`
	Cache   CacheConfig   `yaml:"cache"`
	Store   StoreConfig   `yaml:"store"`
	AI      AIConfig      `yaml:"ai"`
}

// ServerConfig controls the gRPC, HTTP and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	HTTPAddress     string        `yaml:"httpAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	BodyLimit       string        `yaml:"bodyLimit"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RulesConfig points at the insight rule pack.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls caching of analysis results.
type CacheConfig struct {
	Backend      string        `yaml:"backend"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	ResultTTL    time.Duration `yaml:"resultTTL"`
	MaxEntries   int           `yaml:"maxEntries"`
}

// StoreConfig controls the Badger snapshot store.
type StoreConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Path           string        `yaml:"path"`
	InMemory       bool          `yaml:"inMemory"`
	SyncWrites     bool          `yaml:"syncWrites"`
	GCInterval     time.Duration `yaml:"gcInterval"`
	GCDiscardRatio float64       `yaml:"gcDiscardRatio"`
}

// AIConfig configures optional commentary generation.
type AIConfig struct {
	Enabled     bool          `yaml:"enabled"`
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseURL"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"maxTokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SOCIOGRAM_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the engine cannot start with.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheBackendNone, CacheBackendMemory:
	case CacheBackendRedis:
		if c.Cache.Addr == "" {
			return errors.New("cache.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Store.Enabled && !c.Store.InMemory && c.Store.Path == "" {
		return errors.New("store.path is required unless store.inMemory is set")
	}
	if c.Server.Address == "" && c.Server.HTTPAddress == "" {
		return errors.New("at least one of server.address or server.httpAddress must be set")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			HTTPAddress:     ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
			BodyLimit:       "4M",
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Rules:   RulesConfig{Path: "configs/rules/default.yaml"},
		Cache: CacheConfig{
			Backend:      CacheBackendNone,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			ResultTTL:    10 * time.Minute,
			MaxEntries:   1024,
		},
		Store: StoreConfig{
			Enabled:        true,
			Path:           "data/snapshots",
			SyncWrites:     true,
			GCInterval:     5 * time.Minute,
			GCDiscardRatio: 0.5,
		},
		AI: AIConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   400,
			Timeout:     20 * time.Second,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Address, "SOCIOGRAM_SERVER_ADDRESS")
	setString(&cfg.Server.HTTPAddress, "SOCIOGRAM_HTTP_ADDRESS")
	setString(&cfg.Server.MetricsAddress, "SOCIOGRAM_METRICS_ADDRESS")
	setDuration(&cfg.Server.GracefulTimeout, "SOCIOGRAM_GRACEFUL_TIMEOUT")

	setString(&cfg.Logging.Level, "SOCIOGRAM_LOG_LEVEL")
	setBool(&cfg.Logging.JSON, "SOCIOGRAM_LOG_JSON")
	setString(&cfg.Rules.Path, "SOCIOGRAM_RULES_PATH")

	if v := os.Getenv("SOCIOGRAM_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	setString(&cfg.Cache.Addr, "SOCIOGRAM_CACHE_ADDR")
	setString(&cfg.Cache.Username, "SOCIOGRAM_CACHE_USERNAME")
	setString(&cfg.Cache.Password, "SOCIOGRAM_CACHE_PASSWORD")
	setInt(&cfg.Cache.DB, "SOCIOGRAM_CACHE_DB")
	setBool(&cfg.Cache.TLS, "SOCIOGRAM_CACHE_TLS")
	setDuration(&cfg.Cache.ResultTTL, "SOCIOGRAM_CACHE_RESULT_TTL")
	setInt(&cfg.Cache.MaxEntries, "SOCIOGRAM_CACHE_MAX_ENTRIES")

	setBool(&cfg.Store.Enabled, "SOCIOGRAM_STORE_ENABLED")
	setString(&cfg.Store.Path, "SOCIOGRAM_STORE_PATH")
	setBool(&cfg.Store.InMemory, "SOCIOGRAM_STORE_IN_MEMORY")

	setBool(&cfg.AI.Enabled, "SOCIOGRAM_AI_ENABLED")
	setString(&cfg.AI.APIKey, "SOCIOGRAM_AI_API_KEY")
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	setString(&cfg.AI.BaseURL, "SOCIOGRAM_AI_BASE_URL")
	setString(&cfg.AI.Model, "SOCIOGRAM_AI_MODEL")
	setDuration(&cfg.AI.Timeout, "SOCIOGRAM_AI_TIMEOUT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
