package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

var _ Dialer = (*WebSocketDialer)(nil)

// WebSocketDialer dials realtime endpoints over WebSocket.
type WebSocketDialer struct {
	// HandshakeTimeout bounds the opening handshake. Zero means the
	// gorilla default.
	HandshakeTimeout time.Duration

	// WriteTimeout is applied per write. Zero disables write deadlines.
	WriteTimeout time.Duration

	// ReadLimit caps inbound frame size in bytes. Zero means unlimited.
	ReadLimit int64
}

// NewWebSocketDialer returns a dialer with sane production limits.
func NewWebSocketDialer() *WebSocketDialer {
	return &WebSocketDialer{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadLimit:        1 << 20, // 1MB
	}
}

func (d *WebSocketDialer) Dial(ctx context.Context, addr string, protocols []string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.HandshakeTimeout,
		Subprotocols:     protocols,
	}

	conn, _, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "websocket dial")
	}
	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}

	return newWebSocketConn(conn, d.WriteTimeout), nil
}

var _ Conn = (*webSocketConn)(nil)

type webSocketConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	// write mutex keeps concurrent Sends from interleaving frames
	writeMu sync.Mutex

	closed int32
	done   chan struct{}
}

func newWebSocketConn(conn *websocket.Conn, writeTimeout time.Duration) *webSocketConn {
	return &webSocketConn{
		conn:         conn,
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

func (c *webSocketConn) Send(data []byte) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return errors.New("connection is closed")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.markDead()
		return errors.Wrap(err, "write frame")
	}
	return nil
}

func (c *webSocketConn) Receive() ([]byte, error) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return nil, errors.New("connection is closed")
	}

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.markDead()
			return nil, errors.Wrap(err, "read frame")
		}
		// Control frames are handled by gorilla; skip anything that is
		// neither text nor binary.
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		return data, nil
	}
}

func (c *webSocketConn) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}

	c.writeMu.Lock()
	closeMessage := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := c.conn.Close()
	close(c.done)
	return err
}

func (c *webSocketConn) Done() <-chan struct{} {
	return c.done
}

func (c *webSocketConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *webSocketConn) markDead() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		_ = c.conn.Close()
		close(c.done)
	}
}
