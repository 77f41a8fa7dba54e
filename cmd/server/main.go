// Command server wires high-level dependencies and runs the HTTP API.
// Business logic lives in internal services packages.
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

	"golang.org/x/sync/errgroup"

	"github.com/KarimBkr/MyTsango/internal/audit"
	audithandler "github.com/KarimBkr/MyTsango/internal/audit/handler"
	auditmemory "github.com/KarimBkr/MyTsango/internal/audit/store/memory"
	auditpostgres "github.com/KarimBkr/MyTsango/internal/audit/store/postgres"
	"github.com/KarimBkr/MyTsango/internal/jwttoken"
	"github.com/KarimBkr/MyTsango/internal/kyc"
	kychandler "github.com/KarimBkr/MyTsango/internal/kyc/handler"
	kycmetrics "github.com/KarimBkr/MyTsango/internal/kyc/metrics"
	kycprovider "github.com/KarimBkr/MyTsango/internal/kyc/provider"
	kycstore "github.com/KarimBkr/MyTsango/internal/kyc/store"
	"github.com/KarimBkr/MyTsango/internal/notification"
	"github.com/KarimBkr/MyTsango/internal/payment"
	paymenthandler "github.com/KarimBkr/MyTsango/internal/payment/handler"
	paymentmetrics "github.com/KarimBkr/MyTsango/internal/payment/metrics"
	paymentprovider "github.com/KarimBkr/MyTsango/internal/payment/provider"
	paymentstore "github.com/KarimBkr/MyTsango/internal/payment/store"
	"github.com/KarimBkr/MyTsango/internal/platform/config"
	"github.com/KarimBkr/MyTsango/internal/platform/httpserver"
	"github.com/KarimBkr/MyTsango/internal/platform/kafka"
	"github.com/KarimBkr/MyTsango/internal/platform/logger"
	"github.com/KarimBkr/MyTsango/internal/platform/postgres"
	platformredis "github.com/KarimBkr/MyTsango/internal/platform/redis"
	"github.com/KarimBkr/MyTsango/internal/recon"
	"github.com/KarimBkr/MyTsango/internal/recon/dedupe"
	"github.com/KarimBkr/MyTsango/internal/recon/signature"
	"github.com/KarimBkr/MyTsango/internal/recon/subjects"
	httptransport "github.com/KarimBkr/MyTsango/internal/transport/http"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		kycStore     kyc.Store
		paymentStore payment.Store
		auditStore   audit.Store
		health       func() error
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		kycStore = kycstore.NewPostgres(db)
		paymentStore = paymentstore.NewPostgres(db)
		auditStore = auditpostgres.New(db)
		health = db.Ping
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		kycStore = kycstore.NewInMemoryStore()
		paymentStore = paymentstore.NewInMemoryStore()
		auditStore = auditmemory.NewInMemoryStore()
	}

	var dedupeCache recon.DedupeCache
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		dedupeCache = dedupe.NewRedisCache(redisClient)
	}

	var auditSink *kafka.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		auditSink, err = kafka.New(ctx, cfg.Kafka, log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer auditSink.Close()
	}
	auditPub := audit.NewPublisher(auditStore, auditSink, log)

	kycMetrics := kycmetrics.New()
	paymentMetrics := paymentmetrics.New()

	sigMode := signature.Enforced
	if cfg.SignatureMode == config.SignatureBypassed {
		log.Warn("webhook signature verification bypassed")
		sigMode = signature.Bypassed
	}

	notifier := notification.NewLogNotifier(log)
	applier := recon.NewApplier(
		subjects.New(kycStore, paymentStore),
		dedupeCache,
		auditPub,
		notifier,
		kycMetrics,
		paymentMetrics,
		log,
	)

	kycService := kyc.NewService(kycStore, kycprovider.NewClient(cfg.Sumsub), auditPub, kycMetrics, log)
	kycHandler := kychandler.New(kycService, applier,
		signature.NewVerifier(cfg.Sumsub.WebhookSecret, sigMode), kycMetrics, log)

	stripeClient := paymentprovider.NewClient(cfg.Stripe, sigMode)
	paymentService := payment.NewService(paymentStore, stripeClient, auditPub, paymentMetrics, log,
		cfg.PaymentMinAmount, cfg.PaymentMaxAmount)
	paymentHandler := paymenthandler.New(paymentService, applier, stripeClient, paymentMetrics, log)

	validator := jwttoken.NewAdapter(jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer))

	router := httptransport.NewRouter(httptransport.Deps{
		KYC:      kycHandler,
		Payments: paymentHandler,
		Audit:    audithandler.New(auditPub, log),
		Auth:     validator,
		Health:   health,
		Logger:   log,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
