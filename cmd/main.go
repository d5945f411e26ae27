// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sorteio-bolsas/inscription-service/internal/cache"
	"github.com/sorteio-bolsas/inscription-service/internal/config"
	"github.com/sorteio-bolsas/inscription-service/internal/database"
	"github.com/sorteio-bolsas/inscription-service/internal/handler"
	"github.com/sorteio-bolsas/inscription-service/internal/logger"
	"github.com/sorteio-bolsas/inscription-service/internal/metrics"
	"github.com/sorteio-bolsas/inscription-service/internal/repository"
	"github.com/sorteio-bolsas/inscription-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// stores bundles the storage implementations selected by STORE_DRIVER.
type stores struct {
	people       service.PersonStore
	geography    service.GeographyStore
	courses      service.CourseStore
	draws        service.DrawStore
	inscriptions service.InscriptionStore
	tx           service.Transactor
	pinger       handler.Pinger
	close        func()
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Storage ────────────────────────────────────────────────────────
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	// ── 2. Optional municipality cache ────────────────────────────────────
	var geoCache service.MunicipalityCache
	health := handler.Pingers{st.pinger}
	if cfg.Redis.URL != "" {
		client, err := cache.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer client.Close()
		mc := cache.NewMunicipalityCache(client, cfg.Redis.CacheTTL)
		geoCache = mc
		health = append(health, mc)
		log.Info("municipality cache enabled", "ttl", cfg.Redis.CacheTTL)
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	m := metrics.New(prometheus.DefaultRegisterer)
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithQueryTimeout(cfg.Database.QueryTimeout),
		service.WithReadRetries(cfg.Database.ReadRetries),
	}
	geo := service.NewGeographyService(st.geography, geoCache, opts...)
	h := handler.New(handler.Services{
		People:       service.NewPersonService(st.people, geo, st.tx, opts...),
		Inscriptions: service.NewInscriptionService(st.inscriptions, opts...),
		Draws:        service.NewDrawService(st.draws, opts...),
		Geography:    geo,
		Courses:      service.NewCourseService(st.courses, opts...),
	}, health, log)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler.Routes(h, log, cfg.CORSOrigins, promhttp.Handler()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", srv.Addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("server stopped")
		return nil
	})
	return g.Wait()
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		mem := repository.NewMemory()
		mem.SeedReference()
		log.Warn("using in-memory store; data is lost on exit")
		return &stores{
			people:       mem,
			geography:    mem,
			courses:      mem,
			draws:        mem,
			inscriptions: mem,
			tx:           mem,
			pinger:       mem,
			close:        func() {},
		}, nil
	}

	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if cfg.Database.Migrate {
		if err := database.Migrate(cfg.Database, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	tx := repository.NewTxManager(pool)
	return &stores{
		people:       repository.NewPersonRepository(pool),
		geography:    repository.NewGeographyRepository(pool),
		courses:      repository.NewCourseRepository(pool),
		draws:        repository.NewDrawRepository(pool),
		inscriptions: repository.NewInscriptionRepository(pool),
		tx:           tx,
		pinger:       tx,
		close:        pool.Close,
	}, nil
}
