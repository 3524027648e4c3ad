package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/restaurant-order-system/internal/config"
	notifykafka "github.com/dmehra2102/restaurant-order-system/internal/notification/kafka"
	"github.com/dmehra2102/restaurant-order-system/internal/notification/webhook"
	"github.com/dmehra2102/restaurant-order-system/internal/platform/kafka"
	"github.com/dmehra2102/restaurant-order-system/pkg/idempotency"
	"github.com/dmehra2102/restaurant-order-system/pkg/logging"
	"github.com/dmehra2102/restaurant-order-system/pkg/metrics"
	"github.com/dmehra2102/restaurant-order-system/pkg/shutdown"
	"github.com/dmehra2102/restaurant-order-system/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	tp, err := tracing.Init(ctx, "notification-service", cfg.Tracing.Endpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, cfg.Redis.IdempotencyTTL)

	m := metrics.New()
	dispatcher := webhook.NewDispatcher(log, cfg.Webhooks.URLs(), m)

	reader := kafka.NewReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group)
	consumer := notifykafka.NewConsumer(log, reader, dispatcher, idem)

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Run(gctx) })
	g.Go(func() error {
		log.Info("metrics listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("notification-service stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("notification-service shutdown complete")
}
