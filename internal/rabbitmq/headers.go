package rabbitmq

import (
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RetryHeader is the transport-level annotation carrying the requeue counter.
// It starts absent (meaning zero) and is incremented by exactly one on every
// republish of a failed delivery.
const RetryHeader = "x-retry"

// RetryCount normalizes the retry header to a non-negative integer. AMQP
// clients serialize integers in several wire representations, so every
// accepted form is mapped here, at the transport boundary, keeping the
// retry policy free of type juggling. A missing or malformed header is
// reported as (0, false) so callers can log the anomaly, it never raises.
func RetryCount(headers amqp.Table) (int, bool) {
	if headers == nil {
		return 0, false
	}
	raw, ok := headers[RetryHeader]
	if !ok {
		return 0, false
	}

	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case int8:
		n = int(v)
	case int16:
		n = int(v)
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case uint8:
		n = int(v)
	case uint16:
		n = int(v)
	case uint32:
		n = int(v)
	case uint64:
		n = int(v)
	case float32:
		n = int(v)
	case float64:
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		n = parsed
	case []byte:
		parsed, err := strconv.Atoi(string(v))
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}

	if n < 0 {
		return 0, false
	}
	return n, true
}

// WithRetryCount returns a copy of headers with the retry counter set. The
// original table is not mutated, the delivery's headers belong to the broker
// frame.
func WithRetryCount(headers amqp.Table, count int) amqp.Table {
	next := amqp.Table{}
	for k, v := range headers {
		next[k] = v
	}
	next[RetryHeader] = int32(count)
	return next
}
