// Package relay is the development relay server for the realtime client:
// it implements the room join/leave, fan-out, and history-replay contract
// the production backend exposes, so the SDK can be exercised locally.
package relay

import (
	"context"
	"sync/atomic"

	"github.com/dharmalink/realtime/internal/core/observability/log"
)

// historySize is how many messages each room retains for replay on join.
const historySize = 100

type roomOp struct {
	session *Session
	room    string
	reply   chan bool
}

type roomFrame struct {
	room   string
	data   []byte
	sender *Session
}

type replayReq struct {
	room  string
	reply chan [][]byte
}

// Hub owns the room membership and fan-out of one relay process. All
// membership mutations happen on the run loop goroutine.
type Hub struct {
	sessions map[*Session]struct{}
	rooms    map[string]map[*Session]struct{}
	history  map[string]*ring

	register   chan *Session
	unregister chan *Session
	join       chan roomOp
	leave      chan roomOp
	broadcast  chan roomFrame
	replay     chan replayReq

	sessionCount atomic.Int64
	roomCount    atomic.Int64
	messageCount atomic.Int64

	logger log.Log
}

func NewHub(logger log.Log) *Hub {
	return &Hub{
		sessions:   make(map[*Session]struct{}),
		rooms:      make(map[string]map[*Session]struct{}),
		history:    make(map[string]*ring),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		join:       make(chan roomOp),
		leave:      make(chan roomOp),
		broadcast:  make(chan roomFrame),
		replay:     make(chan replayReq),
		logger:     logger.With(log.String("component", "hub")),
	}
}

// Run processes membership and fan-out until the context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case session := <-h.register:
			h.sessions[session] = struct{}{}
			h.sessionCount.Store(int64(len(h.sessions)))
			h.logger.Info("session registered", log.String("session_id", session.id))

		case session := <-h.unregister:
			h.drop(session)

		case op := <-h.join:
			members, ok := h.rooms[op.room]
			if !ok {
				members = make(map[*Session]struct{})
				h.rooms[op.room] = members
				h.roomCount.Store(int64(len(h.rooms)))
			}
			members[op.session] = struct{}{}
			op.reply <- true

		case op := <-h.leave:
			if members, ok := h.rooms[op.room]; ok {
				delete(members, op.session)
				if len(members) == 0 {
					delete(h.rooms, op.room)
					h.roomCount.Store(int64(len(h.rooms)))
				}
			}
			op.reply <- true

		case frame := <-h.broadcast:
			h.fanOut(frame)

		case req := <-h.replay:
			if r, ok := h.history[req.room]; ok {
				req.reply <- r.snapshot()
			} else {
				req.reply <- nil
			}

		case <-ctx.Done():
			for session := range h.sessions {
				session.closeSend()
			}
			return ctx.Err()
		}
	}
}

// Register adds a session to the hub.
func (h *Hub) Register(session *Session) {
	h.register <- session
}

// Unregister removes a session and its room memberships.
func (h *Hub) Unregister(session *Session) {
	h.unregister <- session
}

// Join adds the session to a room and reports success.
func (h *Hub) Join(session *Session, room string) bool {
	reply := make(chan bool, 1)
	h.join <- roomOp{session: session, room: room, reply: reply}
	return <-reply
}

// Leave removes the session from a room.
func (h *Hub) Leave(session *Session, room string) bool {
	reply := make(chan bool, 1)
	h.leave <- roomOp{session: session, room: room, reply: reply}
	return <-reply
}

// Broadcast fans a frame out to a room, or to every session when the room
// is empty. The sender is excluded.
func (h *Hub) Broadcast(room string, data []byte, sender *Session) {
	h.broadcast <- roomFrame{room: room, data: data, sender: sender}
}

// Replay returns the retained history of a room, oldest first. The read
// goes through the run loop so it never races with fan-out.
func (h *Hub) Replay(room string) [][]byte {
	reply := make(chan [][]byte, 1)
	h.replay <- replayReq{room: room, reply: reply}
	return <-reply
}

func (h *Hub) fanOut(frame roomFrame) {
	h.messageCount.Add(1)

	var targets map[*Session]struct{}
	if frame.room == "" {
		targets = h.sessions
	} else {
		targets = h.rooms[frame.room]
		h.remember(frame.room, frame.data)
	}

	for session := range targets {
		if session == frame.sender {
			continue
		}
		session.enqueue(frame.data)
	}
}

func (h *Hub) remember(room string, data []byte) {
	r, ok := h.history[room]
	if !ok {
		r = newRing(historySize)
		h.history[room] = r
	}
	r.push(data)
}

func (h *Hub) drop(session *Session) {
	if _, ok := h.sessions[session]; !ok {
		return
	}
	delete(h.sessions, session)
	for room, members := range h.rooms {
		delete(members, session)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.sessionCount.Store(int64(len(h.sessions)))
	h.roomCount.Store(int64(len(h.rooms)))
	session.closeSend()
	h.logger.Info("session dropped", log.String("session_id", session.id))
}

// Stats is a point-in-time snapshot for the stats endpoint.
type Stats struct {
	Sessions int64 `json:"sessions"`
	Rooms    int64 `json:"rooms"`
	Messages int64 `json:"messages"`
}

func (h *Hub) Stats() Stats {
	return Stats{
		Sessions: h.sessionCount.Load(),
		Rooms:    h.roomCount.Load(),
		Messages: h.messageCount.Load(),
	}
}

// ring is a fixed-size message history buffer.
type ring struct {
	entries [][]byte
	head    int
	full    bool
}

func newRing(capacity int) *ring {
	return &ring{entries: make([][]byte, capacity)}
}

func (r *ring) push(data []byte) {
	r.entries[r.head] = data
	r.head = (r.head + 1) % len(r.entries)
	if r.head == 0 {
		r.full = true
	}
}

func (r *ring) snapshot() [][]byte {
	var out [][]byte
	if r.full {
		out = append(out, r.entries[r.head:]...)
	}
	out = append(out, r.entries[:r.head]...)
	return out
}
