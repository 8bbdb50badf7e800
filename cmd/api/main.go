// @title        AuditSuite Access Control API
// @version      1.0
// @description  Account lifecycle, authorization, audit logging and GDPR compliance for the AuditSuite portal.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/api"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/api/handler"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/service"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/infrastructure/config"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/infrastructure/db/mongo"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/infrastructure/db/postgres"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/infrastructure/db/redis"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/infrastructure/queue"
	"github.com/chrislovescoding/AuditSuite-sub000/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Boot("auditsuite-access")
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "auditsuite-access",
		Env:     cfg.Env,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Stores ---
	db, err := postgres.Connect(ctx, postgres.Config{
		DSN:          cfg.Postgres.DSN,
		MaxOpenConns: cfg.Postgres.MaxConns,
		Timeout:      cfg.Postgres.Timeout,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	mongoClient, mongoDB, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()
	if err := mongo.EnsureIndexes(ctx, mongoDB); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	log.Info().Msg("stores connected")

	// --- Repositories ---
	timeout := cfg.Postgres.Timeout
	accountRepo := postgres.NewAccountRepository(db, timeout)
	auditRepo := postgres.NewAuditRepository(db, timeout)
	documentRepo := postgres.NewDocumentRepository(db, timeout)
	requestRepo := postgres.NewRequestRepository(db, timeout)
	retentionRepo := postgres.NewRetentionRepository(db, timeout)
	deadLetters := mongo.NewDeadLetterRepository(mongoDB)
	archive := mongo.NewComplianceArchive(mongoDB)
	revocations := redis.NewRevocationStore(rdb, cfg.Session.TTL)

	// --- Services ---
	creds, err := service.NewCredentialStore(cfg.Session.Secret,
		service.WithSessionTTL(cfg.Session.TTL),
		service.WithBcryptCost(cfg.Session.BcryptCost),
		service.WithIssuer(cfg.Session.Issuer),
	)
	if err != nil {
		return err
	}
	guard := service.NewGuard(creds, revocations, logger.Component(log, "guard"))
	auditWriter := service.NewAuditWriter(auditRepo, deadLetters, logger.Component(log, "audit"))

	accounts := service.NewAccountService(accountRepo, creds, auditWriter, revocations, service.BootstrapAdmin{
		Email:     cfg.Bootstrap.Email,
		Password:  cfg.Bootstrap.Password,
		FirstName: "System",
		LastName:  "Administrator",
	}, logger.Component(log, "accounts"))

	gdpr := service.NewGDPRService(service.GDPRRepositories{
		Accounts:    accountRepo,
		Audit:       auditRepo,
		Documents:   documentRepo,
		Requests:    requestRepo,
		Retention:   retentionRepo,
		HardDeleter: accounts,
		DeadLetters: deadLetters,
	}, auditWriter, revocations, service.GDPRConfig{
		Controller:           domain.Controller{Name: cfg.GDPR.Controller, DPOContact: cfg.GDPR.DPOContact},
		LegalBasis:           cfg.GDPR.LegalBasis,
		DefaultRetentionDays: cfg.GDPR.DefaultRetentionYears * 365,
		AuditHoldWindow:      cfg.GDPR.AuditHoldWindow,
	}, logger.Component(log, "gdpr"))

	compliance := service.NewComplianceService(retentionRepo, archive, auditWriter, logger.Component(log, "compliance"))

	// --- Startup tasks ---
	if err := compliance.SeedPolicies(ctx, cfg.GDPR.DefaultRetentionYears, cfg.GDPR.LegalBasis); err != nil {
		return err
	}
	if _, err := accounts.BootstrapDefaultAdmin(ctx); err != nil {
		return err
	}

	replayCtx, stopReplay := context.WithCancel(ctx)
	replayDone := queue.NewReplayer(deadLetters, auditRepo, 0, 0, logger.Component(log, "replayer")).Start(replayCtx)
	defer func() {
		stopReplay()
		<-replayDone
	}()

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Guard:      guard,
		Auth:       accounts,
		Accounts:   accounts,
		GDPR:       gdpr,
		Compliance: compliance,
		Checks: map[string]handler.Pinger{
			"postgres": db.PingContext,
			"mongodb":  func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		LoginRatePerSecond: cfg.RateLimit.LoginPerSecond,
		LoginBurst:         cfg.RateLimit.LoginBurst,
		Log:                log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("stopped")
	return nil
}
