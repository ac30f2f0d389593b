// Package rabbitmq contains the broker-facing plumbing for the orders
// pipeline: connection establishment, idempotent topology declaration,
// persistent publishing, and normalization of transport-level retry
// metadata.
//
// The package deliberately owns no retry or reconnection policy. Connection
// supervision lives in the consumer package so that a single state machine
// controls the lifecycle of a connection generation.
package rabbitmq
