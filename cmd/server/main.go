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

	"oidcgate/internal/oidc/audit"
	"oidcgate/internal/oidc/engine"
	oidchandler "oidcgate/internal/oidc/handler"
	"oidcgate/internal/oidc/metrics"
	"oidcgate/internal/oidc/provider"
	"oidcgate/internal/oidc/service"
	"oidcgate/internal/oidc/store/authcode"
	clientstore "oidcgate/internal/oidc/store/client"
	grantstore "oidcgate/internal/oidc/store/grant"
	interactionstore "oidcgate/internal/oidc/store/interaction"
	tokenstore "oidcgate/internal/oidc/store/token"
	"oidcgate/internal/platform/config"
	"oidcgate/internal/platform/httpserver"
	"oidcgate/internal/platform/logger"
	platformredis "oidcgate/internal/platform/redis"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	registry, err := loadClients(cfg)
	if err != nil {
		log.Error("client registry load failed", "error", err.Error())
		os.Exit(1)
	}

	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		db, err = sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("postgres open failed", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err.Error())
			os.Exit(1)
		}
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var interactions engine.InteractionStore
	if redisClient != nil {
		interactions = interactionstore.NewRedisStore(redisClient.Client)
		log.Info("interaction sessions on redis")
	} else {
		memStore := interactionstore.NewInMemoryStore()
		defer memStore.Stop()
		interactions = memStore
	}

	var grants engine.GrantStore
	var tokens engine.TokenStore
	if db != nil {
		pgGrants := grantstore.NewPostgres(db)
		pgTokens := tokenstore.NewPostgres(db)
		if err := pgGrants.EnsureSchema(ctx); err != nil {
			log.Error("grant schema failed", "error", err.Error())
			os.Exit(1)
		}
		if err := pgTokens.EnsureSchema(ctx); err != nil {
			log.Error("token schema failed", "error", err.Error())
			os.Exit(1)
		}
		grants, tokens = pgGrants, pgTokens
		log.Info("grants and tokens on postgres")
	} else {
		grants = grantstore.NewInMemoryStore()
		memTokens := tokenstore.NewInMemoryStore()
		defer memTokens.Stop()
		tokens = memTokens
	}

	auditStore, auditCleanup, err := buildAuditStore(ctx, cfg, db)
	if err != nil {
		log.Error("audit sink setup failed", "error", err.Error())
		os.Exit(1)
	}
	defer auditCleanup()

	inbox := make(chan audit.Event, 256)
	publisher := audit.NewPublisher(audit.NewChannelSink(inbox))
	worker := audit.NewWorker(auditStore, inbox)

	factory := provider.NewFactory(provider.Deps{
		Config:       cfg.OIDC,
		Clients:      registry,
		Interactions: interactions,
		Grants:       grants,
		Tokens:       tokens,
		Codes:        authcode.NewInMemoryStore(),
		Audit:        publisher,
		Logger:       log,
		Metrics:      m,
	})
	svc := service.New(factory, publisher, log, m)

	// The embedding application resolves its own session here. The header
	// resolver is the development stand-in.
	resolver := func(r *http.Request) string {
		return r.Header.Get("X-App-User")
	}

	router := chi.NewRouter()
	oidchandler.New(factory, svc, log, m, resolver).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting oidcgate", "addr", cfg.Server.Addr, "oidc_enabled", cfg.OIDC.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// loadClients reads the configured registry file, falling back to a built-in
// development client when none is given.
func loadClients(cfg config.Config) (*clientstore.Registry, error) {
	if cfg.OIDC.ClientsFile != "" {
		return clientstore.LoadFile(cfg.OIDC.ClientsFile)
	}
	return clientstore.NewRegistry(devClients())
}

// buildAuditStore picks the audit sink: Kafka when brokers are configured,
// Postgres when a DSN is, memory otherwise.
func buildAuditStore(ctx context.Context, cfg config.Config, db *sql.DB) (audit.Store, func(), error) {
	noop := func() {}
	if len(cfg.Kafka.Brokers) > 0 {
		ks, err := audit.NewKafkaStore(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, noop, err
		}
		return ks, ks.Close, nil
	}
	if db != nil {
		ps := audit.NewPostgresStore(db)
		if err := ps.EnsureSchema(ctx); err != nil {
			return nil, noop, err
		}
		return ps, noop, nil
	}
	return audit.NewInMemoryStore(), noop, nil
}
