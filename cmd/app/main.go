package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookshop-access/internal/config"
	pg "bookshop-access/internal/infra/db/postgres"
	"bookshop-access/internal/infra/logging"
	"bookshop-access/internal/infra/metrics"
	"bookshop-access/internal/infra/notify"
	"bookshop-access/internal/infra/provider"
	red "bookshop-access/internal/infra/redis"
	"bookshop-access/internal/infra/sched"
	"bookshop-access/internal/infra/security"
	"bookshop-access/internal/infra/web"
	"bookshop-access/internal/infra/worker"
	"bookshop-access/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, test payments)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	verdictCache := red.NewVerdictCache(redisClient, cfg.Session.RevalidateInterval)

	// ---- Repositories ----
	paymentRepo := pg.NewPaymentRepo(pool)
	entitlementRepo := pg.NewEntitlementRepo(pool)
	// display listings may be a minute stale; gate reads stay on the store
	entitlementListings := pg.NewEntitlementRepoCacheDecorator(entitlementRepo, redisClient)
	sessionRepo := pg.NewSessionRepo(pool)
	auditRepo := pg.NewAuditRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Token codec ----
	codec, err := security.NewJWTSessionCodec(cfg.Session.SigningSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("session token codec init failed")
	}

	// ---- Payment provider ----
	checkout := provider.NewCheckoutProvider(
		cfg.Provider.Name,
		cfg.Provider.BaseURL,
		cfg.Provider.ClientID,
		cfg.Provider.ClientSecret,
		cfg.Provider.Timeout,
	)

	// ---- Background workers ----
	auditPool := worker.NewPool(4, logger)
	auditPool.Start(ctx)
	defer auditPool.Stop()

	// ---- Use cases ----
	auditUC := usecase.NewAuditUseCase(auditRepo, auditPool, logger)
	entitlementUC := usecase.NewEntitlementUseCase(entitlementRepo, entitlementListings, txManager, auditUC, logger)
	verificationUC := usecase.NewVerificationUseCase(
		paymentRepo,
		entitlementUC,
		checkout,
		auditUC,
		notify.NewLogNotifier(logger),
		usecase.VerificationConfig{
			Currency:        cfg.Payment.Currency,
			AllowManual:     cfg.Payment.AllowManual,
			AllowTest:       cfg.Payment.AllowTest,
			ProviderTimeout: cfg.Provider.Timeout,
		},
		logger,
	)
	sessionUC := usecase.NewSessionUseCase(sessionRepo, verdictCache, codec, auditUC, cfg.Session.TTL, logger)

	// ---- HTTP server ----
	srv := web.NewServer(
		verificationUC,
		entitlementUC,
		sessionUC,
		auditUC,
		rateLimiter,
		cfg.Payment.VerifyRateLimit,
		cfg.Server.AdminAPIKey,
		logger,
	)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Scheduled workers ----
	sweeper := sched.NewSessionSweeper(cfg.Sched.SessionSweepInterval, sessionUC, logger)
	go func() { _ = sweeper.Run(ctx) }()

	reconciler := sched.NewPaymentReconciler(verificationUC, paymentRepo, cfg.Sched.ReconcileInterval, cfg.Sched.ReconcileStaleAfter, logger)
	go func() { _ = reconciler.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}
