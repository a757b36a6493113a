package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/classpulse/sociogram/internal/api"
	"github.com/classpulse/sociogram/internal/cache"
	"github.com/classpulse/sociogram/internal/commentary"
	"github.com/classpulse/sociogram/internal/config"
	"github.com/classpulse/sociogram/internal/engine"
	"github.com/classpulse/sociogram/internal/metrics"
	"github.com/classpulse/sociogram/internal/patterns"
	"github.com/classpulse/sociogram/internal/repo"
	"github.com/classpulse/sociogram/internal/services"
	"github.com/classpulse/sociogram/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting sociogram engine",
		slog.String("grpc_address", cfg.Server.Address),
		slog.String("http_address", cfg.Server.HTTPAddress),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	cacheProvider := newCacheProvider(cfg.Cache, logger)
	defer cacheProvider.Close()

	var (
		store      services.SnapshotStore
		trendStore patterns.Store
	)
	if cfg.Store.Enabled {
		snapshots, err := repo.OpenSnapshotStore(repo.StoreConfig{
			Path:           cfg.Store.Path,
			InMemory:       cfg.Store.InMemory,
			SyncWrites:     cfg.Store.SyncWrites,
			GCInterval:     cfg.Store.GCInterval,
			GCDiscardRatio: cfg.Store.GCDiscardRatio,
			Logger:         logger,
		})
		if err != nil {
			logger.Error("failed to open snapshot store", slog.String("path", cfg.Store.Path), slog.Any("error", err))
			os.Exit(1)
		}
		defer snapshots.Close()
		store = snapshots
		trendStore = snapshots
	}

	ruleEngine, err := engine.NewRuleEngine(cfg.Rules.Path, logger)
	if err != nil {
		logger.Error("failed to load rule pack", slog.Any("error", err))
		os.Exit(1)
	}

	var commentator engine.Commentator
	if cfg.AI.Enabled {
		client, err := commentary.NewClient(commentary.Config{
			APIKey:      cfg.AI.APIKey,
			BaseURL:     cfg.AI.BaseURL,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
		}, logger)
		if err != nil {
			logger.Warn("ai commentary disabled", slog.Any("error", err))
		} else {
			commentator = client
		}
	}

	pipeline := engine.NewPipeline(logger, ruleEngine, commentator, cfg.AI.Timeout)
	miner := patterns.NewMiner(logger, trendStore)
	service := services.NewAnalysisService(logger, pipeline, store, miner, cacheProvider, cfg.Cache.ResultTTL)

	server, err := api.NewServer(cfg.Server, service)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var httpServer *api.HTTPServer
	if cfg.Server.HTTPAddress != "" {
		httpServer = api.NewHTTPServer(cfg.Server.HTTPAddress, cfg.Server.BodyLimit, service, logger)
		go func() {
			logger.Info("http server listening", slog.String("address", cfg.Server.HTTPAddress))
			if err := httpServer.Start(); err != nil {
				logger.Error("http server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("grpc server listening", slog.String("address", server.Address()))
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http server shutdown", slog.Any("error", err))
		}
	}
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("sociogram engine stopped", slog.Duration("analysis_p95", service.LatencyP95()))
}

// newCacheProvider falls back to no caching when Redis is unreachable.
func newCacheProvider(cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	switch cfg.Backend {
	case config.CacheBackendMemory:
		return cache.NewMemoryProviderSize(cfg.MaxEntries)
	case config.CacheBackendRedis:
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
		})
		if err != nil {
			logger.Warn("redis cache unavailable", slog.Any("error", err))
			return cache.NoopProvider{}
		}
		return provider
	default:
		return cache.NoopProvider{}
	}
}
