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

	"github.com/arad71/Vendor-saas-mvp/internal/app/availability"
	bookingapp "github.com/arad71/Vendor-saas-mvp/internal/app/bookings"
	listingapp "github.com/arad71/Vendor-saas-mvp/internal/app/listings"
	metricsapp "github.com/arad71/Vendor-saas-mvp/internal/app/metrics"
	paymentapp "github.com/arad71/Vendor-saas-mvp/internal/app/payments"
	"github.com/arad71/Vendor-saas-mvp/internal/app/policies"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/booking"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/listing"
	"github.com/arad71/Vendor-saas-mvp/internal/domain/transaction"
	"github.com/arad71/Vendor-saas-mvp/internal/infra/broker/kafka"
	"github.com/arad71/Vendor-saas-mvp/internal/infra/config"
	mongodb "github.com/arad71/Vendor-saas-mvp/internal/infra/db/mongo"
	ginserver "github.com/arad71/Vendor-saas-mvp/internal/infra/http/gin"
	"github.com/arad71/Vendor-saas-mvp/internal/infra/obs"
	stripeproc "github.com/arad71/Vendor-saas-mvp/internal/infra/payments/stripe"
	"github.com/arad71/Vendor-saas-mvp/internal/infra/security"
	"github.com/arad71/Vendor-saas-mvp/internal/infra/storage/memory"
	"github.com/arad71/Vendor-saas-mvp/internal/infra/storage/s3"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	logger := obs.NewLogger(cfg.Env)
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		listingRepo     listing.Repository
		bookingRepo     booking.Repository
		transactionRepo transaction.Repository
		readiness       map[string]obs.HealthCheck
	)
	switch cfg.StorageMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			logger.Error("mongo connect failed", "error", err)
			os.Exit(1)
		}
		indexCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		if err := client.EnsureIndexes(indexCtx); err != nil {
			cancel()
			logger.Error("mongo index setup failed", "error", err)
			os.Exit(1)
		}
		cancel()
		listingRepo = mongodb.NewListingRepository(client.DB)
		bookingRepo = mongodb.NewBookingRepository(client.DB)
		transactionRepo = mongodb.NewTransactionRepository(client.DB)
		readiness = map[string]obs.HealthCheck{
			"mongo": func(ctx context.Context) error {
				pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				defer cancel()
				return client.Ping(pingCtx)
			},
		}
		logger.Info("storage ready", "mode", "mongo", "database", cfg.MongoDB)
	default:
		listingRepo = memory.NewListingRepository()
		bookingRepo = memory.NewBookingRepository()
		transactionRepo = memory.NewTransactionRepository()
		logger.Warn("storage ready", "mode", "memory")
	}

	var publisher policies.EventPublisher = kafka.NopPublisher{}
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.Error("kafka connect failed", "brokers", cfg.KafkaBrokers, "error", err)
			os.Exit(1)
		}
		publisher = kafka.NewEventPublisher(producer, cfg.KafkaTopicPrefix)
		logger.Info("kafka producer ready", "brokers", cfg.KafkaBrokers)
	} else {
		logger.Warn("no kafka brokers configured, events are dropped")
	}

	var storage policies.ObjectStorage = s3.NoopStorage{}
	if cfg.S3Endpoint != "" {
		s3Client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
		if err != nil {
			logger.Warn("object storage unavailable, uploads disabled", "error", err)
		} else {
			storage = s3Client
		}
	}

	processor := stripeproc.NewProcessor(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	verifier := security.NewTokenVerifier(cfg.JWTSecret)

	engine := availability.NewEngine(bookingRepo)
	bookingSvc := bookingapp.NewService(listingRepo, bookingRepo, engine, publisher, logger)
	listingSvc := listingapp.NewService(listingRepo, bookingSvc, storage, logger)
	paymentSvc := paymentapp.NewService(bookingRepo, transactionRepo, processor, publisher, logger, cfg.PlatformFeeBps, cfg.Currency)
	metricsSvc := metricsapp.NewService(bookingRepo, transactionRepo, cfg.Currency)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Service: "vendorsaas", Checks: readiness}, ginserver.Handlers{
		Listings: &ginserver.ListingHandler{Service: listingSvc, Currency: cfg.Currency, Logger: logger},
		Bookings: &ginserver.BookingHandler{Service: bookingSvc, Logger: logger},
		Payments: &ginserver.PaymentHandler{Service: paymentSvc, Currency: cfg.Currency, Logger: logger},
		Metrics:  &ginserver.MetricsHandler{Service: metricsSvc, Logger: logger},
		Auth:     &ginserver.AuthMiddleware{Verifier: verifier, Logger: logger},
	})

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close failed", "error", err)
		}
	}
	logger.Info("stopped")
}
