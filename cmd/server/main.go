package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sellerfin/offer-engine/internal/calculator"
	"github.com/sellerfin/offer-engine/internal/config"
	"github.com/sellerfin/offer-engine/internal/metrics"
	"github.com/sellerfin/offer-engine/internal/offer"
	"github.com/sellerfin/offer-engine/internal/store"
	"github.com/sellerfin/offer-engine/internal/throttle"
)

func main() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv("SELLERFIN_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	calcCfg, err := cfg.Calculator()
	if err != nil {
		slog.Error("invalid finance config", "err", err)
		os.Exit(1)
	}
	calc, err := calculator.New(calcCfg)
	if err != nil {
		slog.Error("calculator init failed", "err", err)
		os.Exit(1)
	}

	// --- Initialize store ---
	st, cleanup, err := openStore(context.Background(), cfg.Store)
	if err != nil {
		slog.Error("store init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	// --- WebSocket hub ---
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	wsHub := offer.NewWSHub()
	go wsHub.Run(hubCtx)

	// --- Offer service ---
	offerSvc := offer.NewService(calc, st, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	// RealIP trusts client-supplied headers, so it is only mounted behind a
	// proxy that sets them.
	if cfg.Throttle.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(metrics.Middleware)
	r.Use(cors(cfg.Server.CORSOrigin))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"offer-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Throttle.Enabled {
			limiter, err := throttle.NewLimiter(cfg.Throttle.RPS, cfg.Throttle.Burst)
			if err != nil {
				slog.Error("throttle init failed", "err", err)
				os.Exit(1)
			}
			limiter.TrustProxyHeaders = cfg.Throttle.TrustProxyHeaders
			r.Use(limiter.Middleware)
		}
		offerSvc.Routes(r)
	})

	// --- Server ---
	addr := ":" + strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("offer-engine listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down offer-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	stopHub()
	fmt.Println("offer-engine stopped")
}

// openStore picks PostgreSQL (optionally behind Redis), then SQLite, then
// memory. Cleanup funcs run in reverse order on shutdown.
func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, []func(), error) {
	var cleanup []func()

	switch {
	case sc.DatabaseURL != "":
		pool, err := pgxpool.New(ctx, sc.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		cleanup = append(cleanup, pool.Close)

		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if sc.RedisURL == "" {
			return pg, cleanup, nil
		}
		opt, err := redis.ParseURL(sc.RedisURL)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		slog.Info("Redis cache enabled", "ttl", sc.CacheTTL)
		return store.NewCachedStore(pg, rdb, sc.CacheTTL), cleanup, nil

	case sc.SQLitePath != "":
		lite, err := store.OpenSQLite(sc.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		cleanup = append(cleanup, func() { lite.Close() })
		slog.Info("using SQLite store", "path", sc.SQLitePath)
		return lite, cleanup, nil
	}

	slog.Warn("no database configured, using in-memory store (data will not persist)")
	return store.NewMemoryStore(), nil, nil
}

// cors allows browser frontends on origin to call the API.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
