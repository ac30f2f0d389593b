// Package consumer implements the message processing pipeline of the orders
// worker: the per-delivery acknowledgment discipline, the idempotency guard
// integration, the retry/dead-letter decision, and the connection
// supervisor that keeps exactly one consume loop alive per connection
// generation.
//
// Per delivery the processor walks a small state machine:
//
//	Received -> {Claimed, Duplicate}
//	Claimed  -> {Processed, Failed}
//	Processed, Duplicate -> Acked
//	Failed   -> {Requeued, DeadLettered}
//
// Every delivery reaches exactly one terminal transition: it is acked,
// requeued with an incremented retry counter, or rejected onto the
// dead-letter path. Never both, never neither.
package consumer
