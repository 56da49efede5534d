package relay

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dharmalink/realtime/internal/core/observability/log"
	"github.com/dharmalink/realtime/internal/core/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 1 << 20
	sendBufferSize = 256
)

// Session is one connected client. The read pump handles inbound frames on
// its own goroutine; outbound frames are serialized through the send
// channel and the write pump.
type Session struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	userID string
	authed bool

	logger log.Log
}

func NewSession(hub *Hub, conn *websocket.Conn, logger log.Log) *Session {
	id := uuid.New().String()
	return &Session{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger.With(log.String("session_id", id)),
	}
}

// Serve registers the session and runs the write pump in the background
// and the read pump on the calling goroutine until the peer goes away.
func (s *Session) Serve() {
	s.hub.Register(s)
	go s.writePump()
	s.readPump()
}

func (s *Session) enqueue(data []byte) {
	select {
	case s.send <- data:
	default:
		// Slow consumer; drop the frame rather than stall the hub.
		s.logger.Warn("send buffer full, dropping frame")
	}
}

func (s *Session) closeSend() {
	defer func() { recover() }() // already closed by a concurrent drop
	close(s.send)
}

func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("read failed", log.Error(err))
			}
			return
		}
		s.handleFrame(frame)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) handleFrame(frame []byte) {
	msg, err := protocol.Parse(frame)
	if err != nil {
		s.logger.Warn("dropping malformed frame", log.Error(err))
		return
	}

	switch msg.Type {
	case protocol.MessageTypePing:
		s.reply(protocol.MessageTypePong, protocol.RawPayload{})

	case protocol.MessageTypeAuth:
		s.handleAuth(msg)

	case protocol.MessageTypeJoinRoom:
		s.handleJoin(msg)

	case protocol.MessageTypeLeaveRoom:
		s.handleLeave(msg)

	case protocol.MessageTypeChatMessage:
		s.handleChat(msg, frame)

	case protocol.MessageTypeDirectMessage:
		// The dev relay has no user directory; direct messages are
		// broadcast so a second local client can observe them.
		s.forward(msg, frame)

	case protocol.MessageTypeTypingStart, protocol.MessageTypeTypingStop,
		protocol.MessageTypePresenceUpdate, protocol.MessageTypeUserStatusChange,
		protocol.MessageTypeEventUpdate, protocol.MessageTypeEventReminder,
		protocol.MessageTypeCursorPosition, protocol.MessageTypeSelectionChange,
		protocol.MessageTypeDocumentEdit:
		s.forward(msg, frame)

	case protocol.MessageTypeMessageRead:
		// Receipts are accepted and dropped; the dev relay keeps no
		// per-user read state.

	default:
		s.logger.Debug("ignoring frame", log.String("type", string(msg.Type)))
	}
}

func (s *Session) handleAuth(msg *protocol.Message) {
	payload, err := protocol.Payload[protocol.AuthPayload](msg)
	if err != nil || payload.Token == "" {
		s.reply(protocol.MessageTypeAuthFailure, protocol.AuthResultPayload{
			Success: false,
			Error:   "missing or malformed token",
		})
		return
	}

	// Any non-empty token is accepted locally.
	s.userID = payload.UserID
	if s.userID == "" {
		s.userID = "dev-" + s.id[:8]
	}
	s.authed = true
	s.reply(protocol.MessageTypeAuthSuccess, protocol.AuthResultPayload{
		Success: true,
		UserID:  s.userID,
	})
	s.logger.Info("session authenticated", log.String("user_id", s.userID))
}

func (s *Session) handleJoin(msg *protocol.Message) {
	if msg.Room == "" {
		s.logger.Warn("join without room")
		return
	}
	s.hub.Join(s, msg.Room)
	s.replyInRoom(protocol.MessageTypeRoomJoined, msg.Room, protocol.RawPayload{})

	for _, data := range s.hub.Replay(msg.Room) {
		s.enqueue(data)
	}
}

func (s *Session) handleLeave(msg *protocol.Message) {
	if msg.Room == "" {
		return
	}
	s.hub.Leave(s, msg.Room)
	s.replyInRoom(protocol.MessageTypeRoomLeft, msg.Room, protocol.RawPayload{})
}

func (s *Session) handleChat(msg *protocol.Message, frame []byte) {
	if _, err := protocol.Payload[protocol.ChatPayload](msg); err != nil {
		s.logger.Warn("dropping invalid chat message", log.Error(err))
		return
	}

	s.forward(msg, frame)
	s.reply(protocol.MessageTypeMessageDelivered, protocol.ReadReceiptPayload{
		MessageID: msg.ID,
		UserID:    s.userID,
	})
}

// forward rebroadcasts the original frame, stamped with the sender's user
// id when the client omitted it.
func (s *Session) forward(msg *protocol.Message, frame []byte) {
	if msg.UserID == "" && s.userID != "" {
		stamped := msg.FromUser(s.userID)
		if data, err := stamped.Encode(); err == nil {
			frame = data
		}
	}
	s.hub.Broadcast(msg.Room, frame, s)
}

func (s *Session) reply(msgType protocol.MessageType, payload any) {
	s.replyInRoom(msgType, "", payload)
}

func (s *Session) replyInRoom(msgType protocol.MessageType, room string, payload any) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		s.logger.Error("building reply failed", log.Error(err))
		return
	}
	if room != "" {
		msg = msg.InRoom(room)
	}
	data, err := msg.Encode()
	if err != nil {
		s.logger.Error("encoding reply failed", log.Error(err))
		return
	}
	s.enqueue(data)
}
