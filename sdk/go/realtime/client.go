// Package realtime is the Go client SDK for the dharmalink realtime layer:
// a managed WebSocket connection with reconnection, heartbeat, room
// membership, an outbound priority queue, and typed feature adapters for
// chat, presence, notifications, and community events.
package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dharmalink/realtime/internal/core/observability/log"
	"github.com/dharmalink/realtime/internal/core/protocol"
	"github.com/dharmalink/realtime/internal/core/queue"
	"github.com/dharmalink/realtime/internal/core/rooms"
	"github.com/dharmalink/realtime/internal/core/router"
	"github.com/dharmalink/realtime/internal/core/transport"
)

// maxMissedPongs is how many heartbeat intervals may pass without a pong
// before the connection is treated as dead.
const maxMissedPongs = 2

// StateChangeHandler observes connection state transitions.
type StateChangeHandler func(newState, oldState protocol.ConnectionState)

// ConnectionHandler observes connect/disconnect with an info snapshot.
type ConnectionHandler func(info protocol.ConnectionInfo)

// ErrorHandler receives every transport and protocol error. Errors are
// reported here, never thrown across the async boundary.
type ErrorHandler func(err *protocol.Error, context string)

// Client owns one logical connection to a realtime endpoint. Multiple
// clients are fully independent. All exported methods are safe for
// concurrent use.
type Client struct {
	config protocol.Config
	dialer transport.Dialer
	logger log.Log

	router *router.Router
	rooms  *rooms.Manager
	queue  *queue.Queue

	chat          *Chat
	presence      *Presence
	notifications *Notifications
	events        *Events

	mu               sync.Mutex
	state            protocol.ConnectionState
	info             protocol.ConnectionInfo
	conn             transport.Conn
	generation       uint64
	closed           bool
	manualDisconnect bool
	missedPongs      int
	heartbeatStop    chan struct{}
	reconnectTimer   *time.Timer
	authWaiter       chan *protocol.Message

	onStateChange StateChangeHandler
	onConnect     ConnectionHandler
	onDisconnect  ConnectionHandler
	onError       ErrorHandler

	metricsMu      sync.Mutex
	metrics        protocol.PerformanceMetrics
	latencyTotal   time.Duration
	latencySamples uint64
	uptimeAccum    time.Duration
	connectedSince time.Time
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithDialer injects the transport. Defaults to the WebSocket dialer.
func WithDialer(dialer transport.Dialer) Option {
	return func(c *Client) { c.dialer = dialer }
}

// WithLogger overrides the logger built from the config.
func WithLogger(logger log.Log) Option {
	return func(c *Client) { c.logger = logger }
}

// New builds a client from the configuration. The client starts in the
// disconnected state; call Connect to bring the connection up.
func New(config protocol.Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: config,
		state:  protocol.StateDisconnected,
		info:   protocol.ConnectionInfo{State: protocol.StateDisconnected},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		if config.EnableLogging {
			c.logger = log.New(log.LevelDebug)
		} else {
			c.logger = log.NewNop()
		}
	}
	c.logger = c.logger.With(log.String("component", "realtime_client"))

	if c.dialer == nil {
		c.dialer = transport.NewWebSocketDialer()
	}

	c.router = router.New(c.logger)
	c.router.SetErrorHandler(func(err *protocol.Error, context string) {
		c.reportError(err, context)
	})

	c.rooms = rooms.New(c.directSend, config.ConnectionTimeout, c.logger)

	c.queue = queue.New(config.MessageQueueSize, config.MaxSendAttempts, c.logger)
	c.queue.SetDropHandler(func(item *queue.Item, reason error) {
		code := protocol.ErrorCodeNetworkError
		if errors.Is(reason, protocol.ErrQueueFull) {
			code = protocol.ErrorCodeRateLimited
		}
		c.reportError(protocol.WrapError(reason, code, "queued message "+item.Message.ID+" dropped"), "outbound_queue")
	})

	c.chat = newChat(c)
	c.presence = newPresence(c)
	c.notifications = newNotifications(c)
	c.events = newEvents(c)

	return c, nil
}

// Callback setters. Register before Connect to observe the first transition.

func (c *Client) OnStateChange(handler StateChangeHandler) {
	c.mu.Lock()
	c.onStateChange = handler
	c.mu.Unlock()
}

func (c *Client) OnConnect(handler ConnectionHandler) {
	c.mu.Lock()
	c.onConnect = handler
	c.mu.Unlock()
}

func (c *Client) OnDisconnect(handler ConnectionHandler) {
	c.mu.Lock()
	c.onDisconnect = handler
	c.mu.Unlock()
}

func (c *Client) OnError(handler ErrorHandler) {
	c.mu.Lock()
	c.onError = handler
	c.mu.Unlock()
}

// Connect establishes the connection and, when an auth token is configured,
// completes the authentication handshake. It returns once the client is
// CONNECTED or the attempt failed.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return protocol.ErrClientClosed
	}
	if c.state == protocol.StateConnected || c.state == protocol.StateConnecting {
		c.mu.Unlock()
		return protocol.ErrAlreadyConnected
	}
	// A manual connect while RECONNECTING takes over from the retry loop;
	// the armed timer must not fire against the new connection.
	c.cancelReconnectLocked()
	c.manualDisconnect = false
	old := c.transitionLocked(protocol.StateConnecting)
	c.mu.Unlock()
	c.notifyState(protocol.StateConnecting, old)

	if err := c.establish(ctx); err != nil {
		c.mu.Lock()
		old = c.transitionLocked(protocol.StateError)
		c.mu.Unlock()
		c.notifyState(protocol.StateError, old)

		typed := protocol.AsError(err)
		c.reportError(typed.WithContext("connect"), "connect")

		// An auth failure or auth timeout feeds the reconnect loop; a plain
		// transport failure on an explicit connect is returned to the caller.
		if c.config.AutoReconnect &&
			(typed.Code == protocol.ErrorCodeAuthenticationFailed || errors.Is(err, protocol.ErrAuthTimeout)) {
			c.mu.Lock()
			old = c.transitionLocked(protocol.StateReconnecting)
			c.mu.Unlock()
			c.notifyState(protocol.StateReconnecting, old)
			c.scheduleReconnect()
		}
		return err
	}
	return nil
}

// Reconnect is the explicit retry entry point. It resets the attempt
// counter and connects again, including from the ERROR and CLOSED states.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return protocol.ErrClientClosed
	}
	if c.state == protocol.StateConnected || c.state == protocol.StateConnecting {
		c.mu.Unlock()
		return protocol.ErrAlreadyConnected
	}
	c.cancelReconnectLocked()
	c.info.ReconnectAttempts = 0
	c.manualDisconnect = false
	old := c.transitionLocked(protocol.StateConnecting)
	c.mu.Unlock()
	c.notifyState(protocol.StateConnecting, old)

	if err := c.establish(ctx); err != nil {
		c.mu.Lock()
		old = c.transitionLocked(protocol.StateError)
		c.mu.Unlock()
		c.notifyState(protocol.StateError, old)
		c.reportError(protocol.AsError(err).WithContext("reconnect"), "reconnect")
		return err
	}
	return nil
}

// Disconnect tears the connection down deliberately: heartbeat and
// reconnect timers are cancelled, room subscriptions are cleared, and any
// in-flight join/leave resolves false. The outbound queue is kept; queued
// messages await an explicit Connect or Reconnect.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return protocol.ErrClientClosed
	}
	c.manualDisconnect = true
	c.cancelReconnectLocked()
	c.stopHeartbeatLocked()
	conn := c.conn
	c.conn = nil
	c.generation++
	c.accumulateUptimeLocked()
	c.info.IsAuthenticated = false
	old := c.transitionLocked(protocol.StateDisconnected)
	info := c.info
	c.mu.Unlock()

	c.rooms.ClearAll()
	if conn != nil {
		_ = conn.Close()
	}
	c.notifyState(protocol.StateDisconnected, old)
	c.emitDisconnect(info)
	c.logger.Info("disconnected")
	return nil
}

// Close disconnects and releases the client permanently.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	_ = c.Disconnect()

	c.mu.Lock()
	c.closed = true
	old := c.transitionLocked(protocol.StateClosed)
	c.mu.Unlock()
	c.notifyState(protocol.StateClosed, old)

	c.router.Clear()
	c.logger.Info("client closed")
	return nil
}

// Send transmits the message immediately when connected; otherwise, or on a
// transmit failure, the message is queued and flushed on reconnect.
func (c *Client) Send(msg *protocol.Message, priority protocol.Priority) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return protocol.ErrClientClosed
	}
	conn := c.conn
	connected := c.state == protocol.StateConnected
	c.mu.Unlock()

	if connected && conn != nil {
		if err := c.transmit(conn, msg); err == nil {
			return nil
		}
	}
	return c.queue.Enqueue(msg, priority)
}

// JoinRoom joins a room, waiting for the server acknowledgement. Idempotent
// for rooms already joined.
func (c *Client) JoinRoom(ctx context.Context, roomID string) (bool, error) {
	return c.rooms.Join(ctx, roomID)
}

// LeaveRoom leaves a room, waiting for the server acknowledgement.
func (c *Client) LeaveRoom(ctx context.Context, roomID string) (bool, error) {
	return c.rooms.Leave(ctx, roomID)
}

// Rooms returns the currently joined room subscriptions.
func (c *Client) Rooms() []protocol.RoomSubscription {
	return c.rooms.Rooms()
}

// Subscribe registers a handler for one or more inbound message types,
// optionally scoped to a room or one-shot. Returns the subscription id.
func (c *Client) Subscribe(types []protocol.MessageType, handler router.Handler, opts ...router.Option) string {
	return c.router.Subscribe(types, handler, opts...)
}

// Unsubscribe removes a subscription; reports whether it existed.
func (c *Client) Unsubscribe(id string) bool {
	return c.router.Unsubscribe(id)
}

// Feature adapters.

func (c *Client) Chat() *Chat                   { return c.chat }
func (c *Client) Presence() *Presence           { return c.presence }
func (c *Client) Notifications() *Notifications { return c.notifications }
func (c *Client) Events() *Events               { return c.events }

// State returns the current connection state.
func (c *Client) State() protocol.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Info returns a read-only snapshot of the connection.
func (c *Client) Info() protocol.ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Metrics returns a snapshot of the accumulated performance counters.
func (c *Client) Metrics() protocol.PerformanceMetrics {
	c.metricsMu.Lock()
	defer c.metricsMu.Unlock()

	snapshot := c.metrics
	if c.latencySamples > 0 {
		snapshot.AverageLatency = c.latencyTotal / time.Duration(c.latencySamples)
	}
	snapshot.ConnectionUptime = c.uptimeAccum
	if !c.connectedSince.IsZero() {
		snapshot.ConnectionUptime += time.Since(c.connectedSince)
	}
	return snapshot
}

// ResetMetrics zeroes the counters. Metrics never reset implicitly.
func (c *Client) ResetMetrics() {
	c.metricsMu.Lock()
	c.metrics = protocol.PerformanceMetrics{}
	c.latencyTotal = 0
	c.latencySamples = 0
	c.uptimeAccum = 0
	if !c.connectedSince.IsZero() {
		c.connectedSince = time.Now()
	}
	c.metricsMu.Unlock()
}

// --- connection lifecycle ---

// establish dials, starts the read loop, authenticates when a token is
// configured, and flushes the outbound queue. Shared by Connect, Reconnect,
// and the automatic retry path.
func (c *Client) establish(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	conn, err := c.dialer.Dial(dialCtx, c.config.Addr(), c.config.Protocols)
	if err != nil {
		return protocol.WrapError(err, protocol.ErrorCodeConnectionFailed, "dial "+c.config.Addr())
	}

	c.mu.Lock()
	c.conn = conn
	c.generation++
	gen := c.generation
	var authWaiter chan *protocol.Message
	if c.config.AuthToken != "" {
		authWaiter = make(chan *protocol.Message, 1)
		c.authWaiter = authWaiter
	}
	c.mu.Unlock()

	go c.readLoop(conn, gen)

	if authWaiter != nil {
		if err = c.authenticate(ctx, conn, authWaiter); err != nil {
			_ = conn.Close()
			return err
		}
	}

	c.mu.Lock()
	now := time.Now()
	c.info.ConnectedAt = now
	c.info.ReconnectAttempts = 0
	c.info.Latency = 0
	c.missedPongs = 0
	stop := make(chan struct{})
	c.heartbeatStop = stop
	old := c.transitionLocked(protocol.StateConnected)
	info := c.info
	c.mu.Unlock()

	c.metricsMu.Lock()
	c.connectedSince = now
	c.metricsMu.Unlock()

	go c.heartbeatLoop(conn, gen, stop)

	c.notifyState(protocol.StateConnected, old)
	c.emitConnect(info)
	c.logger.Info("connected", log.String("addr", c.config.Addr()))

	c.flushQueue(conn)

	// If the transport died while the handshake was completing, the read
	// loop exited before the CONNECTED transition and its loss report was
	// ignored. Re-check liveness now that the loss path will accept it;
	// handleConnectionLoss is idempotent per generation.
	select {
	case <-conn.Done():
		c.handleConnectionLoss(gen, errors.New("connection closed during handshake"))
	default:
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, conn transport.Conn, waiter chan *protocol.Message) error {
	payload := protocol.AuthPayload{Token: c.config.AuthToken}
	if err := payload.Validate(); err != nil {
		return err
	}
	msg, err := protocol.NewMessage(protocol.MessageTypeAuth, payload)
	if err != nil {
		return err
	}
	if err = c.transmit(conn, msg); err != nil {
		return protocol.WrapError(err, protocol.ErrorCodeAuthenticationFailed, "send auth")
	}

	timer := time.NewTimer(c.config.ConnectionTimeout)
	defer timer.Stop()

	select {
	case resp := <-waiter:
		result, perr := protocol.Payload[protocol.AuthResultPayload](resp)
		if perr != nil {
			return protocol.WrapError(perr, protocol.ErrorCodeAuthenticationFailed, "decode auth result")
		}
		if resp.Type == protocol.MessageTypeAuthFailure || !result.Success {
			reason := result.Error
			if reason == "" {
				reason = "authentication rejected"
			}
			return protocol.NewError(protocol.ErrorCodeAuthenticationFailed, reason)
		}
		c.mu.Lock()
		c.info.IsAuthenticated = true
		c.info.UserID = result.UserID
		c.mu.Unlock()
		c.logger.Info("authenticated", log.String("user_id", result.UserID))
		return nil
	case <-timer.C:
		return protocol.WrapError(protocol.ErrAuthTimeout, protocol.ErrorCodeTimeout, "auth handshake")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) readLoop(conn transport.Conn, gen uint64) {
	for {
		frame, err := conn.Receive()
		if err != nil {
			c.handleConnectionLoss(gen, err)
			return
		}
		c.handleFrame(conn, frame)
	}
}

func (c *Client) handleFrame(conn transport.Conn, frame []byte) {
	msg, err := protocol.Parse(frame)
	if err != nil {
		// Malformed frames are logged and dropped; they never reach
		// subscribers and never desynchronize the client.
		c.logger.Warn("dropping malformed frame", log.Error(err))
		c.reportError(protocol.AsError(err), "parse")
		return
	}

	c.metricsMu.Lock()
	c.metrics.MessagesReceived++
	c.metricsMu.Unlock()

	switch msg.Type {
	case protocol.MessageTypePong:
		c.handlePong()
	case protocol.MessageTypePing:
		// Server-initiated heartbeat; answer in kind.
		if pong, perr := protocol.NewMessage(protocol.MessageTypePong, nil); perr == nil {
			_ = c.transmit(conn, pong)
		}
	case protocol.MessageTypeAuthSuccess, protocol.MessageTypeAuthFailure:
		c.mu.Lock()
		waiter := c.authWaiter
		c.authWaiter = nil
		c.mu.Unlock()
		if waiter != nil {
			waiter <- msg
		}
	case protocol.MessageTypeRoomJoined, protocol.MessageTypeRoomLeft:
		c.rooms.HandleAck(msg)
	}

	c.router.Dispatch(msg)
}

func (c *Client) handlePong() {
	now := time.Now()

	c.mu.Lock()
	c.info.LastPongTime = now
	c.missedPongs = 0
	var latency time.Duration
	if !c.info.LastPingTime.IsZero() {
		latency = now.Sub(c.info.LastPingTime)
		c.info.Latency = latency
	}
	c.mu.Unlock()

	if latency > 0 {
		c.metricsMu.Lock()
		c.latencyTotal += latency
		c.latencySamples++
		c.metricsMu.Unlock()
	}
}

func (c *Client) heartbeatLoop(conn transport.Conn, gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			if c.generation != gen || c.state != protocol.StateConnected {
				c.mu.Unlock()
				return
			}
			if c.missedPongs >= maxMissedPongs {
				c.mu.Unlock()
				c.logger.Warn("heartbeat lost, forcing reconnect",
					log.Int("missed_pongs", maxMissedPongs))
				// Closing the transport wakes the read loop, which runs the
				// reconnect path.
				_ = conn.Close()
				return
			}
			c.missedPongs++
			c.info.LastPingTime = time.Now()
			c.mu.Unlock()

			ping, err := protocol.NewMessage(protocol.MessageTypePing, nil)
			if err == nil {
				_ = c.transmit(conn, ping)
			}
		case <-stop:
			return
		}
	}
}

// handleConnectionLoss runs when the read loop dies. Caller-initiated
// teardown and stale generations are ignored.
func (c *Client) handleConnectionLoss(gen uint64, cause error) {
	c.mu.Lock()
	if c.closed || c.generation != gen || c.manualDisconnect || c.state != protocol.StateConnected {
		c.mu.Unlock()
		return
	}
	c.stopHeartbeatLocked()
	c.conn = nil
	c.accumulateUptimeLocked()
	c.info.IsAuthenticated = false
	old := c.transitionLocked(protocol.StateReconnecting)
	info := c.info
	autoReconnect := c.config.AutoReconnect
	c.mu.Unlock()

	c.rooms.ClearAll()
	c.notifyState(protocol.StateReconnecting, old)
	c.emitDisconnect(info)
	c.reportError(protocol.WrapError(cause, protocol.ErrorCodeNetworkError, "connection lost"), "transport")

	if autoReconnect {
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	old = c.transitionLocked(protocol.StateError)
	c.mu.Unlock()
	c.notifyState(protocol.StateError, old)
}

// scheduleReconnect arms the linear-interval retry timer. Give-up is
// decided when an attempt fails, not here.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.closed || c.manualDisconnect {
		c.mu.Unlock()
		return
	}
	c.cancelReconnectLocked()
	c.reconnectTimer = time.AfterFunc(c.config.ReconnectInterval, c.attemptReconnect)
	c.mu.Unlock()
}

func (c *Client) attemptReconnect() {
	c.mu.Lock()
	if c.closed || c.manualDisconnect {
		c.mu.Unlock()
		return
	}
	c.info.ReconnectAttempts++
	attempt := c.info.ReconnectAttempts
	old := c.transitionLocked(protocol.StateConnecting)
	c.mu.Unlock()
	c.notifyState(protocol.StateConnecting, old)

	c.logger.Info("reconnect attempt",
		log.Int("attempt", attempt),
		log.Int("max", c.config.MaxReconnectAttempts))

	err := c.establish(context.Background())
	if err == nil {
		c.logger.Info("reconnected", log.Int("attempt", attempt))
		return
	}

	c.metricsMu.Lock()
	c.metrics.ReconnectionCount++
	c.metricsMu.Unlock()
	c.reportError(protocol.AsError(err).WithContext("reconnect"), "reconnect")

	if attempt >= c.config.MaxReconnectAttempts {
		c.giveUp(attempt)
		return
	}

	c.mu.Lock()
	old = c.transitionLocked(protocol.StateReconnecting)
	c.mu.Unlock()
	c.notifyState(protocol.StateReconnecting, old)
	c.scheduleReconnect()
}

// giveUp makes the state terminal after the retry budget is spent and
// surfaces an explicit fatal error so the application can offer a manual
// retry.
func (c *Client) giveUp(attempts int) {
	c.mu.Lock()
	old := c.transitionLocked(protocol.StateClosed)
	c.mu.Unlock()
	c.notifyState(protocol.StateClosed, old)

	c.logger.Error("reconnect attempts exhausted", log.Int("attempts", attempts))
	fatal := protocol.WrapError(protocol.ErrReconnectGaveUp, protocol.ErrorCodeConnectionFailed,
		"gave up after max reconnect attempts")
	fatal.Retry = false
	c.reportError(fatal, "reconnect")
}

// --- sending ---

func (c *Client) transmit(conn transport.Conn, msg *protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	if err = conn.Send(data); err != nil {
		return err
	}
	c.metricsMu.Lock()
	c.metrics.MessagesSent++
	c.metricsMu.Unlock()
	return nil
}

// directSend bypasses the queue; used for handshake round-trips that are
// meaningless on a dead connection.
func (c *Client) directSend(msg *protocol.Message) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == protocol.StateConnected
	c.mu.Unlock()

	if !connected || conn == nil {
		return protocol.ErrNotConnected
	}
	return c.transmit(conn, msg)
}

// flushQueue drains the backlog in priority-then-FIFO order. Items whose
// send fails are requeued until their attempts are spent.
func (c *Client) flushQueue(conn transport.Conn) {
	backlog := c.queue.Drain()
	if len(backlog) == 0 {
		return
	}
	c.logger.Info("flushing outbound queue", log.Int("messages", len(backlog)))

	for _, item := range backlog {
		item.Attempts++
		if err := c.transmit(conn, item.Message); err != nil {
			_ = c.queue.Requeue(item)
		}
	}
}

// --- bookkeeping ---

// transitionLocked mutates state under the client lock and returns the old
// state; the caller notifies observers after unlocking.
func (c *Client) transitionLocked(newState protocol.ConnectionState) protocol.ConnectionState {
	old := c.state
	c.state = newState
	c.info.State = newState
	return old
}

func (c *Client) notifyState(newState, oldState protocol.ConnectionState) {
	if newState == oldState {
		return
	}
	c.logger.Debug("state changed",
		log.String("from", oldState.String()),
		log.String("to", newState.String()))

	c.mu.Lock()
	handler := c.onStateChange
	c.mu.Unlock()
	if handler != nil {
		handler(newState, oldState)
	}
}

func (c *Client) emitConnect(info protocol.ConnectionInfo) {
	c.mu.Lock()
	handler := c.onConnect
	c.mu.Unlock()
	if handler != nil {
		handler(info)
	}
}

func (c *Client) emitDisconnect(info protocol.ConnectionInfo) {
	c.mu.Lock()
	handler := c.onDisconnect
	c.mu.Unlock()
	if handler != nil {
		handler(info)
	}
}

func (c *Client) reportError(err *protocol.Error, context string) {
	c.metricsMu.Lock()
	c.metrics.ErrorCount++
	c.metricsMu.Unlock()

	c.mu.Lock()
	handler := c.onError
	c.mu.Unlock()
	if handler != nil {
		handler(err, context)
	}
}

func (c *Client) stopHeartbeatLocked() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
}

func (c *Client) cancelReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

func (c *Client) accumulateUptimeLocked() {
	c.metricsMu.Lock()
	if !c.connectedSince.IsZero() {
		c.uptimeAccum += time.Since(c.connectedSince)
		c.connectedSince = time.Time{}
	}
	c.metricsMu.Unlock()
}
