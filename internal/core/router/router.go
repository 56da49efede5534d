// Package router implements in-process dispatch of inbound messages to
// registered handlers, keyed by message type and optional room scope.
package router

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dharmalink/realtime/internal/core/observability/log"
	"github.com/dharmalink/realtime/internal/core/protocol"
)

// Handler is a subscriber callback. A returned error is reported through
// the router's error callback; it never stops dispatch to other handlers.
type Handler func(msg *protocol.Message) error

// ErrorHandler receives isolated handler failures.
type ErrorHandler func(err *protocol.Error, context string)

type subscription struct {
	id      string
	types   map[protocol.MessageType]struct{}
	room    string
	once    bool
	fired   bool
	handler Handler
}

func (s *subscription) matches(msg *protocol.Message) bool {
	if s.fired {
		return false
	}
	if _, any := s.types[protocol.MessageTypeAny]; !any {
		if _, ok := s.types[msg.Type]; !ok {
			return false
		}
	}
	if s.room != "" && s.room != msg.Room {
		return false
	}
	return true
}

// Option configures a subscription.
type Option func(*subscription)

// WithRoom restricts the subscription to messages tagged with the room.
func WithRoom(room string) Option {
	return func(s *subscription) { s.room = room }
}

// Once auto-unsubscribes after the first dispatch.
func Once() Option {
	return func(s *subscription) { s.once = true }
}

// Router dispatches inbound messages to subscriptions in registration
// order. It deduplicates by message id so frames redelivered by the server
// after a reconnect are handled at most once.
type Router struct {
	mu      sync.Mutex
	subs    []*subscription
	index   map[string]*subscription
	seen    *dedupeRing
	onError ErrorHandler
	logger  log.Log
}

func New(logger log.Log) *Router {
	return &Router{
		index:  make(map[string]*subscription),
		seen:   newDedupeRing(dedupeCapacity),
		logger: logger.With(log.String("component", "router")),
	}
}

// SetErrorHandler registers the callback that receives handler failures.
func (r *Router) SetErrorHandler(handler ErrorHandler) {
	r.mu.Lock()
	r.onError = handler
	r.mu.Unlock()
}

// Subscribe registers a handler for one or more message types and returns
// the subscription id. Use protocol.MessageTypeAny to receive every message.
func (r *Router) Subscribe(types []protocol.MessageType, handler Handler, opts ...Option) string {
	sub := &subscription{
		id:      uuid.NewString(),
		types:   make(map[protocol.MessageType]struct{}, len(types)),
		handler: handler,
	}
	for _, t := range types {
		sub.types[t] = struct{}{}
	}
	for _, opt := range opts {
		opt(sub)
	}

	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.index[sub.id] = sub
	r.mu.Unlock()

	r.logger.Debug("subscription registered",
		log.String("subscription_id", sub.id),
		log.Int("types", len(types)),
		log.String("room", sub.room))
	return sub.id
}

// Unsubscribe removes a subscription and reports whether it existed.
// Unsubscribing an unknown or already removed id is a safe no-op.
func (r *Router) Unsubscribe(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

func (r *Router) removeLocked(id string) bool {
	if _, ok := r.index[id]; !ok {
		return false
	}
	delete(r.index, id)
	for i, s := range r.subs {
		if s.id == id {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			break
		}
	}
	return true
}

// Dispatch delivers a message to every matching subscription, in
// registration order, and returns the number of handlers invoked. Handler
// failures are reported individually and do not abort the remaining
// handlers. Redelivered message ids are dropped.
func (r *Router) Dispatch(msg *protocol.Message) int {
	r.mu.Lock()
	if msg.ID != "" && !r.seen.observe(msg.ID) {
		r.mu.Unlock()
		r.logger.Debug("duplicate message dropped", log.String("message_id", msg.ID))
		return 0
	}

	var matched []*subscription
	for _, sub := range r.subs {
		if sub.matches(msg) {
			if sub.once {
				sub.fired = true
			}
			matched = append(matched, sub)
		}
	}
	onError := r.onError
	r.mu.Unlock()

	for _, sub := range matched {
		r.invoke(sub, msg, onError)
		if sub.once {
			r.mu.Lock()
			r.removeLocked(sub.id)
			r.mu.Unlock()
		}
	}
	return len(matched)
}

func (r *Router) invoke(sub *subscription, msg *protocol.Message, onError ErrorHandler) {
	defer func() {
		if rec := recover(); rec != nil {
			r.reportFailure(sub, msg, fmt.Errorf("handler panic: %v", rec), onError)
		}
	}()

	if err := sub.handler(msg); err != nil {
		r.reportFailure(sub, msg, err, onError)
	}
}

func (r *Router) reportFailure(sub *subscription, msg *protocol.Message, err error, onError ErrorHandler) {
	r.logger.Error("subscription handler failed",
		log.String("subscription_id", sub.id),
		log.String("message_type", msg.Type.String()),
		log.Error(err))
	if onError != nil {
		onError(protocol.AsError(err), "handler "+sub.id)
	}
}

// Count returns the number of active subscriptions.
func (r *Router) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Clear removes every subscription. Used on client teardown.
func (r *Router) Clear() {
	r.mu.Lock()
	r.subs = nil
	r.index = make(map[string]*subscription)
	r.mu.Unlock()
}
