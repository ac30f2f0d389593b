package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ordersmq/ordersmq/config"
	"github.com/ordersmq/ordersmq/consumer"
	"github.com/ordersmq/ordersmq/contracts"
	"github.com/ordersmq/ordersmq/health"
	"github.com/ordersmq/ordersmq/internal/dedup"
	"github.com/ordersmq/ordersmq/internal/reliability"
	"github.com/ordersmq/ordersmq/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "orders-worker")
	slog.SetDefault(logger)

	cfg := config.Load(logger)

	store := dedup.NewInMemoryStore(
		dedup.WithTTL(cfg.DedupTTL),
		dedup.WithMaxEntries(cfg.DedupMaxEntries),
	)
	observer := metrics.NewDeliveryObserver()

	connector := consumer.NewAMQPConnector(cfg.AMQPURL(), cfg.Prefetch, logger)
	factory := func(pub consumer.Republisher) consumer.DeliveryHandler {
		return consumer.NewProcessor(store, pub, processOrder(logger), cfg.MaxRetries,
			consumer.WithObserver(observer),
			consumer.WithProcessorLogger(logger),
		)
	}

	supervisor := consumer.NewSupervisor(connector, factory,
		consumer.WithBackoff(reliability.NewFixedDelay(cfg.ReconnectDelay)),
		consumer.WithSupervisorLogger(logger),
	)

	mux := health.Routes(supervisor)
	mux.Handle("/metrics", promhttp.Handler())
	healthSrv := health.NewServer(cfg.HealthAddr, mux, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := healthSrv.Run(ctx); err != nil {
			logger.Error("health server failed", "error", err)
		}
	}()

	logger.Info("worker starting",
		"queue", "orders.queue",
		"prefetch", cfg.Prefetch,
		"maxRetries", cfg.MaxRetries)
	supervisor.Run(ctx)
	logger.Info("worker stopped")
}

// processOrder is the order fulfillment step. Fulfillment here is a fixed
// small delay standing in for downstream work.
func processOrder(logger *slog.Logger) consumer.OrderHandler {
	return func(ctx context.Context, msg contracts.OrderMessage) error {
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
		logger.Info("order processed",
			"orderId", msg.OrderID,
			"messageId", msg.MessageID,
			"correlationId", msg.CorrelationID,
			"amount", msg.Amount)
		return nil
	}
}
