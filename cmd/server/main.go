// Command server wires the custody engine to its stores, event sinks, and
// HTTP transport. Business logic lives under internal/custody; main only
// assembles dependencies and owns the process lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"custodia/internal/custody/clock"
	"custodia/internal/custody/engine"
	"custodia/internal/custody/events"
	"custodia/internal/custody/handler"
	"custodia/internal/custody/ledger"
	custodymetrics "custodia/internal/custody/metrics"
	"custodia/internal/custody/ports"
	"custodia/internal/custody/registry"
	"custodia/internal/custody/verifier"
	jwttoken "custodia/internal/jwt_token"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	platformredis "custodia/internal/platform/redis"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		reg        ports.Registry
		eventStore events.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("cannot open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("cannot reach database", "error", err)
			os.Exit(1)
		}

		pgRegistry := registry.NewPostgresStore(db)
		if err := pgRegistry.EnsureSchema(ctx); err != nil {
			log.Error("cannot prepare registry schema", "error", err)
			os.Exit(1)
		}
		pgEvents := events.NewPostgresStore(db)
		if err := pgEvents.EnsureSchema(ctx); err != nil {
			log.Error("cannot prepare event schema", "error", err)
			os.Exit(1)
		}
		reg = pgRegistry
		eventStore = pgEvents
		log.Info("using postgres registry")
	} else {
		reg = registry.NewMemoryStore()
		eventStore = events.NewMemoryStore()
		log.Warn("no DATABASE_URL set, using in-memory registry")
	}

	// A Redis stream sink replaces the default store when configured, so
	// external consumers can tail the audit trail.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("cannot connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		eventStore = events.NewRedisStore(redisClient.Client, events.DefaultStream, 100_000)
		log.Info("publishing audit events to redis stream", "stream", events.DefaultStream)
	}

	publisher := events.NewPublisher(1024, log)
	worker := events.NewWorker(eventStore, publisher.Inbox(), log)

	// The deployment's resource mover is an external system in production;
	// until one is wired, the in-process ledger keeps dev and demo setups
	// self-contained.
	log.Warn("using in-process ledger as resource mover")

	eng, err := engine.New(
		reg,
		ledger.NewMemory(),
		verifier.New(),
		clock.NewInterval(cfg.Custody.TickInterval),
		engine.Config{
			EngineAccount:    cfg.Custody.EngineAccount,
			OverseerAccount:  cfg.Custody.OverseerAccount,
			DefaultLifespan:  cfg.Custody.DefaultLifespan,
			CoolingPeriod:    cfg.Custody.CoolingPeriod,
			LockdownWindow:   cfg.Custody.LockdownWindow,
			ExtensionCap:     cfg.Custody.ExtensionCap,
			ConfirmThreshold: cfg.Custody.ConfirmThreshold,
		},
		engine.WithLogger(log),
		engine.WithEventSink(publisher),
		engine.WithMetrics(custodymetrics.New()),
	)
	if err != nil {
		log.Error("cannot build custody engine", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	handler.New(eng, log, metrics.New(), jwtService).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting custodia", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
