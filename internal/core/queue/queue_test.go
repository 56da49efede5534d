package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dharmalink/realtime/internal/core/observability/log"
	"github.com/dharmalink/realtime/internal/core/protocol"
)

func newTestQueue(t *testing.T, capacity, maxAttempts int) *Queue {
	t.Helper()
	return New(capacity, maxAttempts, log.NewNop())
}

func mustMessage(t *testing.T) *protocol.Message {
	t.Helper()
	msg, err := protocol.NewMessage(protocol.MessageTypeChatMessage, protocol.ChatPayload{Content: "x"})
	require.NoError(t, err)
	return msg
}

func Test_Queue_Enqueue(t *testing.T) {
	q := newTestQueue(t, 10, 3)
	require.NoError(t, q.Enqueue(mustMessage(t), protocol.PriorityNormal))
	require.Equal(t, 1, q.Len())
}

func Test_Queue_CapacityEviction(t *testing.T) {
	t.Run("newer message evicts the oldest lower-priority one", func(t *testing.T) {
		q := newTestQueue(t, 2, 3)

		var dropped []*Item
		var reasons []error
		q.SetDropHandler(func(item *Item, reason error) {
			dropped = append(dropped, item)
			reasons = append(reasons, reason)
		})

		low := mustMessage(t)
		require.NoError(t, q.Enqueue(low, protocol.PriorityLow))
		require.NoError(t, q.Enqueue(mustMessage(t), protocol.PriorityNormal))

		admitted := mustMessage(t)
		require.NoError(t, q.Enqueue(admitted, protocol.PriorityHigh))

		require.Equal(t, 2, q.Len())
		require.Len(t, dropped, 1)
		require.Equal(t, low.ID, dropped[0].Message.ID)
		require.ErrorIs(t, reasons[0], protocol.ErrQueueFull)
	})

	t.Run("rejects when the backlog outranks the message", func(t *testing.T) {
		q := newTestQueue(t, 2, 3)
		require.NoError(t, q.Enqueue(mustMessage(t), protocol.PriorityUrgent))
		require.NoError(t, q.Enqueue(mustMessage(t), protocol.PriorityUrgent))

		err := q.Enqueue(mustMessage(t), protocol.PriorityLow)
		require.ErrorIs(t, err, protocol.ErrQueueFull)

		var typed *protocol.Error
		require.ErrorAs(t, err, &typed)
		require.Equal(t, protocol.ErrorCodeRateLimited, typed.Code)
		require.Equal(t, 2, q.Len())
	})

	t.Run("capacity holds under concurrent enqueues", func(t *testing.T) {
		const capacity = 4
		q := newTestQueue(t, capacity, 3)
		// A slow drop handler widens any window where eviction and
		// insertion could interleave across goroutines.
		q.SetDropHandler(func(*Item, error) { time.Sleep(time.Millisecond) })

		stop := make(chan struct{})
		var sampleMu sync.Mutex
		maxSeen := 0
		go func() {
			for {
				select {
				case <-stop:
					return
				default:
					if n := q.Len(); n > 0 {
						sampleMu.Lock()
						if n > maxSeen {
							maxSeen = n
						}
						sampleMu.Unlock()
					}
				}
			}
		}()

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					msg, err := protocol.NewMessage(protocol.MessageTypeChatMessage, protocol.ChatPayload{Content: "x"})
					if err != nil {
						continue
					}
					_ = q.Enqueue(msg, protocol.PriorityNormal)
				}
			}()
		}
		wg.Wait()
		close(stop)

		sampleMu.Lock()
		defer sampleMu.Unlock()
		require.LessOrEqual(t, maxSeen, capacity)
		require.Equal(t, capacity, q.Len())
	})

	t.Run("equal priority still admits the newer message", func(t *testing.T) {
		q := newTestQueue(t, 1, 3)
		old := mustMessage(t)
		require.NoError(t, q.Enqueue(old, protocol.PriorityNormal))

		fresh := mustMessage(t)
		require.NoError(t, q.Enqueue(fresh, protocol.PriorityNormal))

		drained := q.Drain()
		require.Len(t, drained, 1)
		require.Equal(t, fresh.ID, drained[0].Message.ID)
	})
}

func Test_Queue_Drain(t *testing.T) {
	q := newTestQueue(t, 10, 3)

	normal1 := mustMessage(t)
	urgent := mustMessage(t)
	normal2 := mustMessage(t)
	low := mustMessage(t)

	require.NoError(t, q.Enqueue(normal1, protocol.PriorityNormal))
	require.NoError(t, q.Enqueue(urgent, protocol.PriorityUrgent))
	require.NoError(t, q.Enqueue(normal2, protocol.PriorityNormal))
	require.NoError(t, q.Enqueue(low, protocol.PriorityLow))

	drained := q.Drain()
	require.Len(t, drained, 4)
	require.Equal(t, urgent.ID, drained[0].Message.ID)
	require.Equal(t, normal1.ID, drained[1].Message.ID)
	require.Equal(t, normal2.ID, drained[2].Message.ID)
	require.Equal(t, low.ID, drained[3].Message.ID)
	require.Equal(t, 0, q.Len())
}

func Test_Queue_Requeue(t *testing.T) {
	t.Run("requeues while attempts remain", func(t *testing.T) {
		q := newTestQueue(t, 10, 3)
		require.NoError(t, q.Enqueue(mustMessage(t), protocol.PriorityNormal))

		item := q.Drain()[0]
		item.Attempts = 1
		require.NoError(t, q.Requeue(item))
		require.Equal(t, 1, q.Len())
	})

	t.Run("drops and reports at max attempts", func(t *testing.T) {
		q := newTestQueue(t, 10, 3)

		var reason error
		q.SetDropHandler(func(_ *Item, r error) { reason = r })

		require.NoError(t, q.Enqueue(mustMessage(t), protocol.PriorityNormal))
		item := q.Drain()[0]
		item.Attempts = item.MaxAttempts

		err := q.Requeue(item)
		require.ErrorIs(t, err, protocol.ErrSendFailed)
		require.True(t, errors.Is(reason, protocol.ErrSendFailed))
		require.Equal(t, 0, q.Len())
	})
}
