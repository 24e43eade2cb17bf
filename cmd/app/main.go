package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/airticket/config"
	"github.com/Domenick1991/airticket/internal/bootstrap"
	"github.com/Domenick1991/airticket/internal/cache"
	"github.com/Domenick1991/airticket/internal/kafka"
	"github.com/Domenick1991/airticket/internal/logger"
	"github.com/Domenick1991/airticket/internal/metrics"
	"github.com/Domenick1991/airticket/internal/payment"
	"github.com/Domenick1991/airticket/internal/repository"
	"github.com/Domenick1991/airticket/internal/service/booking"
	"github.com/Domenick1991/airticket/internal/service/flights"
	"github.com/Domenick1991/airticket/internal/service/reconcile"
	"github.com/Domenick1991/airticket/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid config")
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = pool.Ping(pingCtx)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("PostgreSQL is not reachable")
	}

	if cfg.Database.Migrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			log.WithError(err).Fatal("Failed to migrate schema")
		}
		log.Info("Database schema is up to date")
	}

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.FlightsCacheDuration())
	defer redisCache.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		log.WithError(err).Warn("Kafka unavailable, ticket events will be dropped until it recovers")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	flightRepo := repository.NewFlightRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	flightService := flights.NewFlightService(flightRepo, redisCache, log)
	bookingService := booking.NewBookingService(
		ticketRepo,
		flightRepo,
		payment.NewClient(cfg.Payment, log),
		log,
		booking.WithEvents(producer, cfg.Kafka.TicketEventsTopic),
		booking.WithMetrics(m),
	)
	reconciler := reconcile.NewReconciler(
		bookingService,
		payment.NewVerifier(cfg.Payment.ServerKey),
		redisCache,
		cfg.Booking.NotificationLockDuration(),
		m,
		log,
	)

	err = bootstrap.Run(ctx, cfg, bootstrap.Services{
		Flights:    flightService,
		Checkout:   bookingService,
		Reconciler: reconciler,
		Tokens:     jwt.NewService(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Metrics:    m,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("Server error")
	}
	log.Info("Server stopped")
}
