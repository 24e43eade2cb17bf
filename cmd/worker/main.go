package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/airticket/config"
	"github.com/Domenick1991/airticket/internal/email"
	"github.com/Domenick1991/airticket/internal/kafka"
	"github.com/Domenick1991/airticket/internal/logger"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
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
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.TicketEventsTopic, log)
	defer consumer.Close()

	sender := email.NewSender(log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("topic", cfg.Kafka.TicketEventsTopic).Info("Consuming ticket events")
		return consumer.Consume(gctx, func(ctx context.Context, event kafka.TicketEvent) error {
			if err := sender.Send(ctx, event); err != nil {
				log.WithError(err).WithField("code", event.Code).Error("Failed to send ticket email")
			}
			return nil
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("Worker stopped")
	}
	log.Info("Worker stopped")
}
