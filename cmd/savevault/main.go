// Command savevault runs the SaveVault HTTP service: authenticated users
// upload, list, download, and delete per-user save files.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/savevault/savevault/internal/adapter/bolt"
	svhttp "github.com/savevault/savevault/internal/adapter/http"
	"github.com/savevault/savevault/internal/adapter/memory"
	svnats "github.com/savevault/savevault/internal/adapter/nats"
	svotel "github.com/savevault/savevault/internal/adapter/otel"
	"github.com/savevault/savevault/internal/adapter/postgres"
	"github.com/savevault/savevault/internal/adapter/ristretto"
	"github.com/savevault/savevault/internal/adapter/s3"
	"github.com/savevault/savevault/internal/config"
	"github.com/savevault/savevault/internal/logger"
	"github.com/savevault/savevault/internal/middleware"
	"github.com/savevault/savevault/internal/port/cache"
	"github.com/savevault/savevault/internal/port/messagequeue"
	"github.com/savevault/savevault/internal/port/objectstore"
	"github.com/savevault/savevault/internal/service"
)

const tokenCleanupInterval = time.Hour

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"storage_driver", cfg.Storage.Driver,
		"cache_driver", cfg.Cache.Driver,
		"cache_ttl", cfg.Cache.TTL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	objects, closeObjects, err := newObjectStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("object store: %w", err)
	}
	defer closeObjects()
	slog.Info("object store ready", "driver", cfg.Storage.Driver)

	listCache, closeCache, err := newListingCache(cfg.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer closeCache()

	var queue messagequeue.Queue
	if cfg.NATS.Enabled {
		nq, err := svnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = nq.Close() }()
		queue = nq
		slog.Info("nats connected", "url", cfg.NATS.URL)
	}

	var metrics *svotel.Metrics
	if cfg.Telemetry.Enabled {
		shutdown, err := svotel.InitMetrics(ctx, cfg.Logging.Service, cfg.Telemetry.Endpoint)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Warn("telemetry shutdown failed", "error", err)
			}
		}()

		metrics, err = svotel.NewMetrics()
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		slog.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint)
	}

	// --- Services ---

	store := postgres.NewStore(pool)
	authSvc := service.NewAuthService(store, &cfg.Auth)
	saveSvc := service.NewSaveService(store, objects, listCache, queue, metrics, cfg.Limits)

	if err := authSvc.SeedDefaultAdmin(ctx); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	authSvc.StartTokenCleanup(ctx, tokenCleanupInterval)

	// --- HTTP ---

	handlers := &svhttp.Handlers{
		Auth:  authSvc,
		Saves: saveSvc,
	}

	r := chi.NewRouter()
	r.Use(svhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(svhttp.SecurityHeaders)
	r.Use(svhttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	if cfg.Server.RateLimit > 0 {
		rl := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		defer rl.StartCleanup(time.Minute, 10*time.Minute)()
		r.Use(rl.Handler)
	}
	if cfg.Telemetry.Enabled {
		r.Use(svotel.HTTPMiddleware(cfg.Logging.Service))
	}
	r.Use(middleware.Auth(authSvc))

	svhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute, // large save uploads
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// newObjectStore builds the configured blob-store driver.
func newObjectStore(ctx context.Context, cfg config.Storage) (objectstore.Store, func(), error) {
	switch cfg.Driver {
	case "s3":
		st, err := s3.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	case "bolt":
		st, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// newListingCache builds the configured listing-cache driver.
func newListingCache(cfg config.Cache) (cache.Cache, func(), error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(cfg.TTL), func() {}, nil
	case "ristretto":
		c, err := ristretto.New(cfg.MaxSizeMB<<20, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
