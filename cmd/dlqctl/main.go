package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ordersmq/ordersmq/config"
	"github.com/ordersmq/ordersmq/internal/rabbitmq"
	"github.com/ordersmq/ordersmq/internal/reliability"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var url string

	rootCmd := &cobra.Command{
		Use:   "dlqctl",
		Short: "Inspect and replay dead-lettered orders",
		Long: `dlqctl operates on the orders dead-letter queue. It lists orders that
exhausted their retry budget and can replay them onto the orders exchange
with a fresh budget.`,
	}
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", config.Load(logger).AMQPURL(), "RabbitMQ connection URL")

	var listLimit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List dead-lettered orders without consuming them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInspector(url, logger, func(ctx context.Context, inspector *reliability.DLQInspector) error {
				orders, err := inspector.List(ctx, listLimit)
				if err != nil {
					return err
				}
				printFailedOrders(orders)
				return nil
			})
		},
	}
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Maximum number of orders to list")

	var replayLimit int
	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay dead-lettered orders onto the orders exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInspector(url, logger, func(ctx context.Context, inspector *reliability.DLQInspector) error {
				replayed, err := inspector.Replay(ctx, replayLimit)
				fmt.Printf("Replayed %d order(s)\n", replayed)
				return err
			})
		},
	}
	replayCmd.Flags().IntVarP(&replayLimit, "limit", "n", 10, "Maximum number of orders to replay")

	rootCmd.AddCommand(listCmd, replayCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func withInspector(url string, logger *slog.Logger, fn func(context.Context, *reliability.DLQInspector) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := rabbitmq.Dial(ctx, url, rabbitmq.WithDialLogger(logger))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, rabbitmq.OrdersTopology()); err != nil {
		return fmt.Errorf("declare topology: %w", err)
	}

	return fn(ctx, reliability.NewDLQInspector(ch, logger))
}

func printFailedOrders(orders []reliability.FailedOrder) {
	if len(orders) == 0 {
		fmt.Println("Dead-letter queue is empty")
		return
	}

	fmt.Printf("%-36s %-36s %-10s %-8s\n", "Message ID", "Order ID", "Amount", "Retries")
	fmt.Println(strings.Repeat("-", 95))

	for _, o := range orders {
		orderID := o.OrderID
		amount := fmt.Sprintf("%.2f", o.Amount)
		if !o.Parseable {
			orderID = "(unparseable)"
			amount = "-"
		}
		fmt.Printf("%-36s %-36s %-10s %-8d\n", o.MessageID, orderID, amount, o.RetryCount)
	}
}
