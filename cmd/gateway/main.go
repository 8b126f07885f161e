package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/cxchat/lingo-gateway/internal/backend"
	"github.com/cxchat/lingo-gateway/internal/cache"
	"github.com/cxchat/lingo-gateway/internal/config"
	"github.com/cxchat/lingo-gateway/internal/convo"
	"github.com/cxchat/lingo-gateway/internal/coordinator"
	"github.com/cxchat/lingo-gateway/internal/detector"
	"github.com/cxchat/lingo-gateway/internal/guard"
	"github.com/cxchat/lingo-gateway/internal/limiter"
	"github.com/cxchat/lingo-gateway/internal/router"
	"github.com/cxchat/lingo-gateway/internal/store"
	"github.com/cxchat/lingo-gateway/internal/telemetry"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	flag.Parse()

	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(bootstrapLogger)

	// Load configuration
	loader := config.NewLoader(*configDir, bootstrapLogger)
	if err := loader.Load(); err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	slog.SetDefault(telemetry.NewLogger(cfg.Telemetry))

	if err := loader.Watch(); err != nil {
		slog.Warn("failed to start config watcher", "error", err)
	}

	// Connect to PostgreSQL
	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		slog.Warn("database not reachable (translation history disabled)", "error", err)
		dbPool = nil
	} else {
		slog.Info("database connected")
	}

	// Connect to Redis
	var rdb *redis.Client
	if len(cfg.Redis.Addresses) > 0 && cfg.Redis.Addresses[0] != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addresses[0],
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			slog.Warn("redis not reachable (shared cache and rate limits disabled)", "error", err)
			rdb = nil
		} else {
			slog.Info("redis connected")
		}
	}

	metrics := telemetry.NewMetrics()

	// Build backend registry from config, rebuilt on reload
	registry := backend.BuildFromConfig(loader.Backends(), cfg.Translation.Languages)
	loader.OnReload(func() {
		current := loader.Config()
		newRegistry := backend.BuildFromConfig(loader.Backends(), current.Translation.Languages)
		registry.Replace(newRegistry)
		slog.Info("backend registry reloaded")
	})

	breakers := router.NewBreakerSet(cfg.Translation.CircuitBreaker.FailureThreshold,
		cfg.Translation.CircuitBreaker.RecoveryProbeInterval)
	rt := router.New(registry, breakers, router.Options{
		AttemptTimeout: cfg.Translation.AttemptTimeout,
		MaxRetries:     cfg.Translation.MaxRetries,
		RetryBackoff:   cfg.Translation.RetryBackoff,
	}, metrics)

	var translationCache *cache.Cache
	if cfg.Cache.Enabled {
		translationCache = cache.New(cfg.Cache.Capacity, cfg.Cache.TTL, rdb, metrics)
	}

	guards := []guard.Guard{
		guard.NewPairGuard(func() []string {
			return loader.Config().Translation.Languages
		}),
	}
	policyGuard := guard.NewPolicyGuard(func() config.PolicyConfig {
		return loader.Config().Policy
	})
	if cfg.Policy.Enabled {
		if err := policyGuard.Load(); err != nil {
			slog.Error("failed to load policies", "error", err)
			os.Exit(1)
		}
	}
	guards = append(guards, policyGuard)

	coord := coordinator.New(coordinator.Deps{
		Config:   loader.Config,
		Detector: detector.New(cfg.Translation.Languages, cfg.Detector.MinTextLength),
		Router:   rt,
		Cache:    translationCache,
		Permits: limiter.NewConcurrency(cfg.Limiter.MaxConcurrent,
			cfg.Limiter.MaxQueueDepth, cfg.Limiter.QueueTimeout, metrics),
		Quota:   limiter.NewQuotaTracker(rdb),
		Guards:  guard.NewChain(guards...),
		Convos:  convo.NewTable(cfg.Context.Depth, cfg.Context.Conversations, cfg.Context.TTL),
		Store:   store.New(dbPool),
		Metrics: metrics,
	})
	handler := coordinator.NewHandler(coord, loader.Config, store.New(dbPool))

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)

	r.Get("/lingo/v1/health", healthHandler)

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware(limiter.NewRateLimiter(rdb), cfg.Limiter.RequestsPerMinute, metrics))
		r.Post("/v1/translate", handler.Translate)
		r.Get("/v1/languages", handler.ListLanguages)
		r.Get("/v1/conversations/{id}/translations", handler.ConversationHistory)
	})

	// Metrics server on its own port
	if cfg.Telemetry.MetricsPort > 0 {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			addr := fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort)
			slog.Info("metrics server starting", "addr", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway starting", "addr", addr, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("gateway stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": version,
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey string

const requestIDKey contextKey = "request_id"

func generateRequestID() string {
	now := time.Now()
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", now.UnixMilli(), hex.EncodeToString(b))
}
