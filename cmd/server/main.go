package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Simplici0/buildest/internal/catalog"
	"github.com/Simplici0/buildest/internal/config"
	"github.com/Simplici0/buildest/internal/db"
	"github.com/Simplici0/buildest/internal/logger"
	"github.com/Simplici0/buildest/internal/migrations"
	"github.com/Simplici0/buildest/internal/seed"
	"github.com/Simplici0/buildest/internal/session"
)

type server struct {
	db       *sql.DB
	catalog  *catalog.SQLStore
	source   catalog.Source
	sessions session.Store
	log      *zap.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer lg.Sync()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	// Outside dev the schema is migrated by the deploy, not at startup.
	if cfg.IsDev() {
		if err := migrations.Up(ctx, database, cfg.Migrations.Dir); err != nil {
			return err
		}
	}
	version, err := migrations.Version(ctx, database)
	if err != nil {
		return err
	}
	if version == 0 {
		return errors.New("database schema is not migrated")
	}
	lg.Info("database ready", zap.String("path", cfg.DB.Path), zap.Int64("schema_version", version))

	if cfg.Catalog.Seed {
		stats, err := seed.Run(ctx, database)
		if err != nil {
			return err
		}
		lg.Info("catalog seed finished", zap.Int("inserts", stats.Inserts))
	}

	sessions, closeSessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	store := catalog.NewSQLStore(database)
	srv := &server{
		db:       database,
		catalog:  store,
		source:   store,
		sessions: sessions,
		log:      lg,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.App.Env), zap.String("sessions", cfg.Session.Backend))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newSessionStore(ctx context.Context, cfg config.Config) (session.Store, func() error, error) {
	if cfg.Session.Backend != "redis" {
		return session.NewMemoryStore(cfg.Session.TTL), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis at %s: %w", cfg.Redis.Addr, err)
	}
	return session.NewRedisStore(client, cfg.Session.TTL), client.Close, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/estimates", func(r chi.Router) {
		r.Post("/", s.handleEstimateCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleEstimateGet)
			r.Delete("/", s.handleEstimateDelete)
			r.Post("/project", s.handleEstimateProject)
			r.Post("/include", s.handleEstimateInclude)
			r.Post("/quantity", s.handleEstimateQuantity)
			r.Get("/selection", s.handleEstimateSelection)
		})
	})

	r.Route("/catalog", func(r chi.Router) {
		r.Get("/", s.handleCatalogList)
		r.Post("/", s.handleCatalogCreate)
		r.Post("/import", s.handleCatalogImport)
		r.Put("/{id}", s.handleCatalogUpdate)
		r.Put("/{id}/active", s.handleCatalogSetActive)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.log.Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
