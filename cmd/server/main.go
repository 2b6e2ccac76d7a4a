package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"tokensafe/internal/audit"
	"tokensafe/internal/jwtsigner"
	"tokensafe/internal/ledger"
	ledgerstore "tokensafe/internal/ledger/store"
	"tokensafe/internal/payments"
	"tokensafe/internal/platform/config"
	"tokensafe/internal/platform/httpserver"
	"tokensafe/internal/platform/logger"
	platformmetrics "tokensafe/internal/platform/metrics"
	"tokensafe/internal/platform/postgres"
	"tokensafe/internal/platform/redis"
	registryhandler "tokensafe/internal/registry/handler"
	registrymetrics "tokensafe/internal/registry/metrics"
	registryservice "tokensafe/internal/registry/service"
	registrystore "tokensafe/internal/registry/store"
	subhandler "tokensafe/internal/subscription/handler"
	submetrics "tokensafe/internal/subscription/metrics"
	"tokensafe/internal/subscription/models"
	subservice "tokensafe/internal/subscription/service"
	substore "tokensafe/internal/subscription/store"
	id "tokensafe/pkg/domain"
	dErrors "tokensafe/pkg/domain-errors"
)

// main wires the record store backend, payment ledger, audit trail, and the
// two domain services behind the HTTP router. Business logic lives in the
// internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, cleanup, err := buildRecordStore(ctx, cfg, log)
	if err != nil {
		log.Error("record store init failed", "backend", cfg.RecordStoreBackend, "error", err.Error())
		os.Exit(1)
	}
	defer cleanup()

	auditor, auditCleanup, err := buildAuditPublisher(ctx, cfg, log)
	if err != nil {
		log.Error("audit publisher init failed", "error", err.Error())
		os.Exit(1)
	}
	defer auditCleanup()

	clock := ledger.SystemClock{}
	wallet := payments.NewInMemoryLedger()
	signer := jwtsigner.New(cfg.JWTSigningKey, "tokensafe")

	registrySvc, err := registryservice.New(registrystore.New(records), clock,
		registryservice.WithLogger(log),
		registryservice.WithMetrics(registrymetrics.New()),
		registryservice.WithAuditPublisher(auditor),
	)
	if err != nil {
		log.Error("registry service init failed", "error", err.Error())
		os.Exit(1)
	}

	subscriptionSvc, err := subservice.New(substore.New(records), wallet, clock,
		subservice.WithLogger(log),
		subservice.WithMetrics(submetrics.New()),
		subservice.WithAuditPublisher(auditor),
	)
	if err != nil {
		log.Error("subscription service init failed", "error", err.Error())
		os.Exit(1)
	}

	bootstrapSubscriptionConfig(ctx, cfg, subscriptionSvc, log)

	httpMetrics := platformmetrics.New()
	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", promhttp.Handler())
	registryhandler.New(registrySvc, log, httpMetrics, signer).Register(router)
	subhandler.New(subscriptionSvc, log, httpMetrics, signer).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting tokensafe server", "addr", cfg.Addr, "record_store", cfg.RecordStoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server stopped")
}

// buildRecordStore selects the record persistence backend. The returned
// cleanup is safe to call regardless of backend.
func buildRecordStore(ctx context.Context, cfg config.Server, log *slog.Logger) (ledger.RecordStore, func(), error) {
	switch cfg.RecordStoreBackend {
	case "redis":
		client, err := redis.New(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, errors.New("RECORD_STORE=redis requires REDIS_URL")
		}
		return ledgerstore.NewRedisRecordStore(client.Client), func() { _ = client.Close() }, nil
	case "postgres":
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		if db == nil {
			return nil, nil, errors.New("RECORD_STORE=postgres requires POSTGRES_URL")
		}
		if _, err := db.ExecContext(ctx, ledgerstore.Schema); err != nil {
			db.Close()
			return nil, nil, err
		}
		return ledgerstore.NewPostgresRecordStore(db), func() { _ = db.Close() }, nil
	case "memory":
		log.Warn("using in-memory record store; records are lost on restart")
		return ledgerstore.NewInMemoryRecordStore(), func() {}, nil
	default:
		return nil, nil, errors.New("unknown RECORD_STORE backend: " + cfg.RecordStoreBackend)
	}
}

func buildAuditPublisher(ctx context.Context, cfg config.Server, log *slog.Logger) (*audit.Publisher, func(), error) {
	opts := []audit.Option{audit.WithLogger(log)}
	cleanup := func() {}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, audit.WithSink(sink))
		cleanup = sink.Close
	}
	return audit.NewPublisher(audit.NewInMemoryStore(), opts...), cleanup, nil
}

// bootstrapSubscriptionConfig initializes the singleton subscription config
// from the environment on first boot. Reinitialization is a no-op.
func bootstrapSubscriptionConfig(ctx context.Context, cfg config.Server, svc *subservice.Service, log *slog.Logger) {
	if cfg.BootstrapAdmin == "" {
		return
	}
	admin, err := id.ParseAccountID(cfg.BootstrapAdmin)
	if err != nil {
		log.Error("invalid BOOTSTRAP_ADMIN", "error", err.Error())
		return
	}
	treasury, err := id.ParseAccountID(cfg.BootstrapTreasury)
	if err != nil {
		log.Error("invalid BOOTSTRAP_TREASURY", "error", err.Error())
		return
	}
	pricing := models.Pricing{Basic: cfg.BasicPrice, Pro: cfg.ProPrice, Alpha: cfg.AlphaPrice}
	if _, err := svc.InitializeConfig(ctx, admin, treasury, pricing, cfg.DurationSeconds); err != nil {
		if dErrors.Is(err, dErrors.CodeAlreadyExists) {
			log.Info("subscription config already initialized")
			return
		}
		log.Error("subscription config bootstrap failed", "error", err.Error())
	}
}
