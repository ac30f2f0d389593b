// Package contracts defines the wire-format contract shared by the orders
// producer and the worker.
//
// The envelope is serialized as JSON and carried on the broker as UTF-8 text.
// It is authored once by the producer and read-only on the consumer side:
// redeliveries and retry republishes carry the same messageId, orderId,
// amount and correlationId as the original publish, only transport-level
// retry metadata changes.
package contracts
