// Package rooms tracks which rooms the local connection has joined and
// runs the join/leave acknowledgement round-trips.
package rooms

import (
	"context"
	"sync"
	"time"

	"github.com/dharmalink/realtime/internal/core/observability/log"
	"github.com/dharmalink/realtime/internal/core/protocol"
)

// SendFunc transmits a message on the live connection. Injected by the
// client so the manager stays transport-agnostic.
type SendFunc func(msg *protocol.Message) error

// Manager owns the room membership of one logical connection. Membership is
// cleared on disconnect and rooms must be rejoined explicitly; there is no
// automatic replay on reconnect.
type Manager struct {
	mu            sync.Mutex
	joined        map[string]protocol.RoomSubscription
	pendingJoins  map[string][]chan bool
	pendingLeaves map[string][]chan bool

	send    SendFunc
	timeout time.Duration
	logger  log.Log
}

func New(send SendFunc, timeout time.Duration, logger log.Log) *Manager {
	return &Manager{
		joined:        make(map[string]protocol.RoomSubscription),
		pendingJoins:  make(map[string][]chan bool),
		pendingLeaves: make(map[string][]chan bool),
		send:          send,
		timeout:       timeout,
		logger:        logger.With(log.String("component", "rooms")),
	}
}

// Join sends join_room and waits for the server's room_joined ack. Joining
// a room twice resolves true immediately. Timeout or rejection resolves
// false with the cause.
func (m *Manager) Join(ctx context.Context, roomID string) (bool, error) {
	m.mu.Lock()
	if _, ok := m.joined[roomID]; ok {
		m.mu.Unlock()
		return true, nil
	}
	waiter := make(chan bool, 1)
	m.pendingJoins[roomID] = append(m.pendingJoins[roomID], waiter)
	m.mu.Unlock()

	msg, err := protocol.NewMessage(protocol.MessageTypeJoinRoom, nil)
	if err != nil {
		m.removeJoinWaiter(roomID, waiter)
		return false, err
	}
	if err = m.send(msg.InRoom(roomID)); err != nil {
		m.removeJoinWaiter(roomID, waiter)
		return false, err
	}

	return m.await(ctx, roomID, waiter, m.removeJoinWaiter)
}

// Leave sends leave_room and waits for room_left. Leaving a room that was
// never joined resolves true immediately.
func (m *Manager) Leave(ctx context.Context, roomID string) (bool, error) {
	m.mu.Lock()
	if _, ok := m.joined[roomID]; !ok {
		m.mu.Unlock()
		return true, nil
	}
	waiter := make(chan bool, 1)
	m.pendingLeaves[roomID] = append(m.pendingLeaves[roomID], waiter)
	m.mu.Unlock()

	msg, err := protocol.NewMessage(protocol.MessageTypeLeaveRoom, nil)
	if err != nil {
		m.removeLeaveWaiter(roomID, waiter)
		return false, err
	}
	if err = m.send(msg.InRoom(roomID)); err != nil {
		m.removeLeaveWaiter(roomID, waiter)
		return false, err
	}

	return m.await(ctx, roomID, waiter, m.removeLeaveWaiter)
}

func (m *Manager) await(ctx context.Context, roomID string, waiter chan bool, cleanup func(string, chan bool)) (bool, error) {
	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case ok := <-waiter:
		if !ok {
			return false, protocol.ErrNotConnected
		}
		return true, nil
	case <-ctx.Done():
		cleanup(roomID, waiter)
		return false, ctx.Err()
	case <-timer.C:
		cleanup(roomID, waiter)
		m.logger.Warn("room operation timed out", log.String("room", roomID))
		return false, protocol.WrapError(protocol.ErrRoomTimeout, protocol.ErrorCodeTimeout, "no ack for room "+roomID)
	}
}

// HandleAck processes room_joined and room_left frames. Other message types
// are ignored so the caller can forward everything.
func (m *Manager) HandleAck(msg *protocol.Message) {
	switch msg.Type {
	case protocol.MessageTypeRoomJoined:
		m.mu.Lock()
		m.joined[msg.Room] = protocol.RoomSubscription{
			RoomID:   msg.Room,
			JoinedAt: time.Now(),
			IsActive: true,
		}
		waiters := m.pendingJoins[msg.Room]
		delete(m.pendingJoins, msg.Room)
		m.mu.Unlock()
		m.resolve(waiters, true)
		m.logger.Info("joined room", log.String("room", msg.Room))

	case protocol.MessageTypeRoomLeft:
		m.mu.Lock()
		delete(m.joined, msg.Room)
		waiters := m.pendingLeaves[msg.Room]
		delete(m.pendingLeaves, msg.Room)
		m.mu.Unlock()
		m.resolve(waiters, true)
		m.logger.Info("left room", log.String("room", msg.Room))
	}
}

// ClearAll wipes membership and rejects every in-flight join/leave. Called
// on disconnect, which cancels all pending room operations.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	m.joined = make(map[string]protocol.RoomSubscription)
	var all [][]chan bool
	for room, waiters := range m.pendingJoins {
		all = append(all, waiters)
		delete(m.pendingJoins, room)
	}
	for room, waiters := range m.pendingLeaves {
		all = append(all, waiters)
		delete(m.pendingLeaves, room)
	}
	m.mu.Unlock()

	for _, waiters := range all {
		m.resolve(waiters, false)
	}
}

// Rooms returns a snapshot of the active room subscriptions.
func (m *Manager) Rooms() []protocol.RoomSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	rooms := make([]protocol.RoomSubscription, 0, len(m.joined))
	for _, sub := range m.joined {
		rooms = append(rooms, sub)
	}
	return rooms
}

// IsJoined reports whether the room is currently joined.
func (m *Manager) IsJoined(roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.joined[roomID]
	return ok
}

func (m *Manager) resolve(waiters []chan bool, ok bool) {
	for _, w := range waiters {
		select {
		case w <- ok:
		default:
		}
	}
}

func (m *Manager) removeJoinWaiter(roomID string, waiter chan bool) {
	m.mu.Lock()
	m.pendingJoins[roomID] = removeWaiter(m.pendingJoins[roomID], waiter)
	if len(m.pendingJoins[roomID]) == 0 {
		delete(m.pendingJoins, roomID)
	}
	m.mu.Unlock()
}

func (m *Manager) removeLeaveWaiter(roomID string, waiter chan bool) {
	m.mu.Lock()
	m.pendingLeaves[roomID] = removeWaiter(m.pendingLeaves[roomID], waiter)
	if len(m.pendingLeaves[roomID]) == 0 {
		delete(m.pendingLeaves, roomID)
	}
	m.mu.Unlock()
}

func removeWaiter(waiters []chan bool, waiter chan bool) []chan bool {
	for i, w := range waiters {
		if w == waiter {
			return append(waiters[:i], waiters[i+1:]...)
		}
	}
	return waiters
}
