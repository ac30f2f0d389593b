package consumer

// DecisionKind is the outcome of the retry/dead-letter policy.
type DecisionKind int

const (
	// Requeue republishes the failed delivery with an incremented retry
	// counter onto the same routing path.
	Requeue DecisionKind = iota
	// DeadLetter terminally rejects the delivery so the broker routes it
	// to the dead-letter exchange.
	DeadLetter
)

// Decision is the result of deciding a failed delivery's fate.
type Decision struct {
	Kind           DecisionKind
	NextRetryCount int
}

// Decide applies the retry budget to a failed delivery. Once
// retryCount+1 >= maxRetries the message must never be requeued again.
// retryCount defaults to zero when the transport annotation was absent or
// malformed, the caller handles that normalization.
func Decide(retryCount, maxRetries int) Decision {
	if retryCount+1 >= maxRetries {
		return Decision{Kind: DeadLetter}
	}
	return Decision{Kind: Requeue, NextRetryCount: retryCount + 1}
}
