// Package queue buffers outbound messages while the connection is down.
package queue

import (
	"sync"
	"time"

	"github.com/dharmalink/realtime/internal/core/observability/log"
	"github.com/dharmalink/realtime/internal/core/protocol"
	"github.com/dharmalink/realtime/pkg/sequence"
)

// Item wraps a queued outbound message with its retry accounting.
type Item struct {
	Message     *protocol.Message
	Priority    protocol.Priority
	Attempts    int
	MaxAttempts int
	QueuedAt    time.Time
}

// DropHandler is invoked whenever a queued message is abandoned: evicted to
// admit a newer message, or dropped after exhausting its send attempts.
type DropHandler func(item *Item, reason error)

// Queue is a bounded priority buffer. When full, the oldest entry with
// priority not above the incoming message's is evicted; if no such entry
// exists the enqueue is rejected with protocol.ErrQueueFull.
type Queue struct {
	mu          sync.Mutex
	items       *sequence.PriorityQueue[*Item]
	capacity    int
	maxAttempts int
	onDrop      DropHandler
	logger      log.Log
}

func New(capacity, maxAttempts int, logger log.Log) *Queue {
	return &Queue{
		items:       sequence.NewPriorityQueue[*Item](),
		capacity:    capacity,
		maxAttempts: maxAttempts,
		logger:      logger.With(log.String("component", "outbound_queue")),
	}
}

// SetDropHandler registers the drop callback. Must be set before the queue
// is shared across goroutines.
func (q *Queue) SetDropHandler(handler DropHandler) {
	q.onDrop = handler
}

// Enqueue admits a message at the given priority.
func (q *Queue) Enqueue(msg *protocol.Message, priority protocol.Priority) error {
	item := &Item{
		Message:     msg,
		Priority:    priority,
		MaxAttempts: q.maxAttempts,
		QueuedAt:    time.Now(),
	}
	return q.push(item)
}

// Requeue puts a drained item back after a failed send attempt. Items that
// have exhausted their attempts are dropped and reported instead.
func (q *Queue) Requeue(item *Item) error {
	if item.Attempts >= item.MaxAttempts {
		q.logger.Warn("message dropped after max attempts",
			log.String("message_id", item.Message.ID),
			log.Int("attempts", item.Attempts))
		q.report(item, protocol.ErrSendFailed)
		return protocol.ErrSendFailed
	}
	return q.push(item)
}

// push admits the item, evicting if needed. Eviction and insertion happen
// in one critical section so the queue never exceeds its capacity; the
// drop handler runs only after the lock is released.
func (q *Queue) push(item *Item) error {
	q.mu.Lock()

	var evicted *Item
	if q.items.Len() >= q.capacity {
		victim, ok := q.items.EvictLowest(int(item.Priority))
		if !ok {
			q.mu.Unlock()
			q.logger.Warn("enqueue rejected, queue full of higher-priority messages",
				log.String("message_id", item.Message.ID),
				log.String("priority", item.Priority.String()))
			return protocol.WrapError(protocol.ErrQueueFull, protocol.ErrorCodeRateLimited, "outbound queue at capacity")
		}
		evicted = victim
	}

	q.items.Enqueue(item, int(item.Priority))
	q.mu.Unlock()

	if evicted != nil {
		q.logger.Debug("evicted queued message to admit newer one",
			log.String("evicted_id", evicted.Message.ID),
			log.String("admitted_id", item.Message.ID))
		q.report(evicted, protocol.ErrQueueFull)
	}
	return nil
}

// Drain removes every queued item in priority order, FIFO within each
// priority band. Called on reconnect to flush the backlog.
func (q *Queue) Drain() []*Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := make([]*Item, 0, q.items.Len())
	for {
		item, ok := q.items.Dequeue()
		if !ok {
			break
		}
		drained = append(drained, item)
	}
	return drained
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

func (q *Queue) report(item *Item, reason error) {
	if q.onDrop != nil {
		q.onDrop(item, reason)
	}
}
