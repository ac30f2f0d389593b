package rabbitmq

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelPool(t *testing.T) {
	t.Run("requires a connection", func(t *testing.T) {
		_, err := NewChannelPool(nil)
		assert.Error(t, err)
	})

	t.Run("rejects a non-positive size bound", func(t *testing.T) {
		_, err := NewChannelPool(&Connection{}, WithMaxChannels(0))
		assert.Error(t, err)
	})

	t.Run("put of a nil channel is a no-op", func(t *testing.T) {
		pool, err := NewChannelPool(&Connection{})
		require.NoError(t, err)

		pool.Put(nil)
	})

	t.Run("get after close reports the pool closed", func(t *testing.T) {
		pool, err := NewChannelPool(&Connection{})
		require.NoError(t, err)
		require.NoError(t, pool.Close())

		_, err = pool.Get(context.Background())
		assert.ErrorIs(t, err, ErrChannelPoolClosed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		pool, err := NewChannelPool(&Connection{})
		require.NoError(t, err)

		assert.NoError(t, pool.Close())
		assert.NoError(t, pool.Close())
	})

	t.Run("concurrent gets racing close never panic", func(t *testing.T) {
		// A pre-closed connection keeps Get on the error path without a
		// broker; the subject here is the pool's own locking.
		pool, err := NewChannelPool(&Connection{closed: true})
		require.NoError(t, err)

		const goroutines = 32
		var start, done sync.WaitGroup
		start.Add(1)
		done.Add(goroutines)

		for i := 0; i < goroutines; i++ {
			go func() {
				defer done.Done()
				start.Wait()
				ch, err := pool.Get(context.Background())
				if err == nil {
					pool.Put(ch)
				}
			}()
		}
		start.Done()
		pool.Close()
		done.Wait()
	})
}
