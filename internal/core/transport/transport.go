// Package transport abstracts the wire connection so the client can be
// constructed with a real WebSocket dialer or an in-memory fake in tests.
package transport

import "context"

// Dialer establishes connections to the realtime endpoint.
type Dialer interface {
	Dial(ctx context.Context, addr string, protocols []string) (Conn, error)
}

// Conn is a single established connection. Send is safe for concurrent use;
// Receive is expected to be called from a single reader goroutine and blocks
// until a frame arrives or the connection dies. Done is closed when the
// connection is no longer usable, whichever side closed it.
type Conn interface {
	Send(data []byte) error
	Receive() ([]byte, error)
	Close() error
	Done() <-chan struct{}
	RemoteAddr() string
}
