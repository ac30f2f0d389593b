package rabbitmq

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker entity names shared by the producer, the worker and the DLQ tooling.
const (
	OrdersExchange   = "orders.exchange"
	OrdersRoutingKey = "orders.created"
	OrdersQueue      = "orders.queue"
	DeadLetterExch   = "orders.dlx"
	DeadLetterQueue  = "orders.dlq"
)

// ExchangeDeclaration defines an exchange to be declared
type ExchangeDeclaration struct {
	Name    string
	Type    string
	Durable bool
}

// QueueDeclaration defines a queue to be declared
type QueueDeclaration struct {
	Name      string
	Durable   bool
	Arguments amqp.Table
}

// Binding defines a queue-to-exchange binding
type Binding struct {
	Queue      string
	Exchange   string
	RoutingKey string
}

// Topology represents the complete messaging topology
type Topology struct {
	Exchanges []ExchangeDeclaration
	Queues    []QueueDeclaration
	Bindings  []Binding
}

// OrdersTopology is the fixed topology of the orders pipeline: a durable
// topic exchange for order-created events, a durable work queue whose
// rejected deliveries route to a fanout dead-letter exchange, and a durable
// dead-letter queue bound to that exchange unconditionally.
func OrdersTopology() Topology {
	return Topology{
		Exchanges: []ExchangeDeclaration{
			{Name: OrdersExchange, Type: "topic", Durable: true},
			{Name: DeadLetterExch, Type: "fanout", Durable: true},
		},
		Queues: []QueueDeclaration{
			{
				Name:    OrdersQueue,
				Durable: true,
				Arguments: amqp.Table{
					"x-dead-letter-exchange": DeadLetterExch,
				},
			},
			{Name: DeadLetterQueue, Durable: true},
		},
		Bindings: []Binding{
			{Queue: OrdersQueue, Exchange: OrdersExchange, RoutingKey: OrdersRoutingKey},
			// Fanout exchange ignores the routing key.
			{Queue: DeadLetterQueue, Exchange: DeadLetterExch, RoutingKey: ""},
		},
	}
}

// DeclareTopology declares the topology on the given channel. Every
// declaration is idempotent: re-running it on each connection generation is
// safe and loses no data.
func DeclareTopology(ch *amqp.Channel, topology Topology) error {
	for _, exchange := range topology.Exchanges {
		err := ch.ExchangeDeclare(
			exchange.Name,
			exchange.Type,
			exchange.Durable,
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return &TopologyError{Component: "exchange", Name: exchange.Name, Err: err}
		}
	}

	for _, queue := range topology.Queues {
		_, err := ch.QueueDeclare(
			queue.Name,
			queue.Durable,
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			queue.Arguments,
		)
		if err != nil {
			return &TopologyError{Component: "queue", Name: queue.Name, Err: err}
		}
	}

	for _, binding := range topology.Bindings {
		err := ch.QueueBind(
			binding.Queue,
			binding.RoutingKey,
			binding.Exchange,
			false, // no-wait
			nil,
		)
		if err != nil {
			return &TopologyError{Component: "binding", Name: binding.Queue, Err: err}
		}
	}

	return nil
}
