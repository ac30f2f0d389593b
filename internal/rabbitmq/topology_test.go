package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdersTopology(t *testing.T) {
	topology := OrdersTopology()

	t.Run("declares a durable topic exchange for orders", func(t *testing.T) {
		exchange := findExchange(t, topology, OrdersExchange)
		assert.Equal(t, "topic", exchange.Type)
		assert.True(t, exchange.Durable)
	})

	t.Run("declares a durable fanout dead-letter exchange", func(t *testing.T) {
		exchange := findExchange(t, topology, DeadLetterExch)
		assert.Equal(t, "fanout", exchange.Type)
		assert.True(t, exchange.Durable)
	})

	t.Run("work queue dead-letters to the DLX", func(t *testing.T) {
		queue := findQueue(t, topology, OrdersQueue)
		assert.True(t, queue.Durable)
		assert.Equal(t, DeadLetterExch, queue.Arguments["x-dead-letter-exchange"])
	})

	t.Run("dead-letter queue is durable and has no further dead-letter path", func(t *testing.T) {
		queue := findQueue(t, topology, DeadLetterQueue)
		assert.True(t, queue.Durable)
		assert.NotContains(t, queue.Arguments, "x-dead-letter-exchange")
	})

	t.Run("work queue bound under the orders routing key", func(t *testing.T) {
		assert.Contains(t, topology.Bindings, Binding{
			Queue:      OrdersQueue,
			Exchange:   OrdersExchange,
			RoutingKey: OrdersRoutingKey,
		})
	})

	t.Run("dead-letter queue bound to the fanout unconditionally", func(t *testing.T) {
		assert.Contains(t, topology.Bindings, Binding{
			Queue:      DeadLetterQueue,
			Exchange:   DeadLetterExch,
			RoutingKey: "",
		})
	})
}

func findExchange(t *testing.T, topology Topology, name string) ExchangeDeclaration {
	t.Helper()
	for _, e := range topology.Exchanges {
		if e.Name == name {
			return e
		}
	}
	require.Failf(t, "exchange not declared", "exchange %q missing from topology", name)
	return ExchangeDeclaration{}
}

func findQueue(t *testing.T, topology Topology, name string) QueueDeclaration {
	t.Helper()
	for _, q := range topology.Queues {
		if q.Name == name {
			return q
		}
	}
	require.Failf(t, "queue not declared", "queue %q missing from topology", name)
	return QueueDeclaration{}
}
