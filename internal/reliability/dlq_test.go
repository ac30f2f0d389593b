package reliability

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersmq/ordersmq/contracts"
	"github.com/ordersmq/ordersmq/internal/rabbitmq"
)

type channelCall struct {
	method string
	tag    uint64
}

type fakeDLQChannel struct {
	queued     []amqp.Delivery
	publishErr error

	published []amqp.Publishing
	calls     []channelCall
}

func (f *fakeDLQChannel) Get(_ string, _ bool) (amqp.Delivery, bool, error) {
	if len(f.queued) == 0 {
		return amqp.Delivery{}, false, nil
	}
	d := f.queued[0]
	f.queued = f.queued[1:]
	return d, true, nil
}

func (f *fakeDLQChannel) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeDLQChannel) Ack(tag uint64, _ bool) error {
	f.calls = append(f.calls, channelCall{method: "ack", tag: tag})
	return nil
}

func (f *fakeDLQChannel) Nack(tag uint64, multiple, requeue bool) error {
	method := "nack"
	if multiple && requeue {
		method = "nack-batch-requeue"
	} else if requeue {
		method = "nack-requeue"
	}
	f.calls = append(f.calls, channelCall{method: method, tag: tag})
	return nil
}

func deadLettered(t *testing.T, tag uint64, retry int) amqp.Delivery {
	t.Helper()
	msg := contracts.NewOrderMessage(uuid.NewString(), 25, "corr-1")
	body, err := msg.Marshal()
	require.NoError(t, err)
	return amqp.Delivery{
		DeliveryTag:   tag,
		MessageId:     msg.MessageID,
		CorrelationId: msg.CorrelationID,
		Headers: amqp.Table{
			rabbitmq.RetryHeader: int32(retry),
			"x-death":            []interface{}{},
		},
		Body: body,
	}
}

func TestListReturnsBatchToQueue(t *testing.T) {
	ch := &fakeDLQChannel{queued: []amqp.Delivery{
		deadLettered(t, 1, 3),
		deadLettered(t, 2, 3),
	}}
	inspector := NewDLQInspector(ch, nil)

	orders, err := inspector.List(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.True(t, orders[0].Parseable)
	assert.Equal(t, 3, orders[0].RetryCount)
	assert.NotEmpty(t, orders[0].OrderID)

	require.Len(t, ch.calls, 1)
	assert.Equal(t, channelCall{method: "nack-batch-requeue", tag: 2}, ch.calls[0])
}

func TestListHonorsLimit(t *testing.T) {
	ch := &fakeDLQChannel{queued: []amqp.Delivery{
		deadLettered(t, 1, 1),
		deadLettered(t, 2, 1),
		deadLettered(t, 3, 1),
	}}
	inspector := NewDLQInspector(ch, nil)

	orders, err := inspector.List(context.Background(), 2)

	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestListDescribesUnparseableBody(t *testing.T) {
	ch := &fakeDLQChannel{queued: []amqp.Delivery{{
		DeliveryTag: 1,
		MessageId:   "msg-1",
		Body:        []byte("not json"),
	}}}
	inspector := NewDLQInspector(ch, nil)

	orders, err := inspector.List(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.False(t, orders[0].Parseable)
	assert.Equal(t, "msg-1", orders[0].MessageID)
}

func TestReplayResetsRetryBudget(t *testing.T) {
	ch := &fakeDLQChannel{queued: []amqp.Delivery{deadLettered(t, 7, 3)}}
	inspector := NewDLQInspector(ch, nil)

	replayed, err := inspector.Replay(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, 1, replayed)

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.NotContains(t, msg.Headers, rabbitmq.RetryHeader)
	assert.NotContains(t, msg.Headers, "x-death")
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)
	assert.NotEmpty(t, msg.MessageId)

	require.Len(t, ch.calls, 1)
	assert.Equal(t, channelCall{method: "ack", tag: 7}, ch.calls[0])
}

func TestReplayRequeuesOnPublishFailure(t *testing.T) {
	ch := &fakeDLQChannel{
		queued:     []amqp.Delivery{deadLettered(t, 4, 3)},
		publishErr: errors.New("channel gone"),
	}
	inspector := NewDLQInspector(ch, nil)

	replayed, err := inspector.Replay(context.Background(), 10)

	require.Error(t, err)
	assert.Zero(t, replayed)
	require.Len(t, ch.calls, 1)
	assert.Equal(t, channelCall{method: "nack-requeue", tag: 4}, ch.calls[0])
}

func TestReplayEmptyQueue(t *testing.T) {
	inspector := NewDLQInspector(&fakeDLQChannel{}, nil)

	replayed, err := inspector.Replay(context.Background(), 10)

	require.NoError(t, err)
	assert.Zero(t, replayed)
}
