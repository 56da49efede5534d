package protocol

import "time"

// MessageType is the routing key of a wire message. The set below is the
// vocabulary the platform emits today; unknown types still parse and are
// dispatched to wildcard subscribers (forward compatibility with
// server-introduced types).
type MessageType string

const (
	// Heartbeat

	MessageTypePing MessageType = "ping"
	MessageTypePong MessageType = "pong"

	// Authentication

	MessageTypeAuth        MessageType = "auth"
	MessageTypeAuthSuccess MessageType = "auth_success"
	MessageTypeAuthFailure MessageType = "auth_failure"

	// Rooms

	MessageTypeJoinRoom   MessageType = "join_room"
	MessageTypeLeaveRoom  MessageType = "leave_room"
	MessageTypeRoomJoined MessageType = "room_joined"
	MessageTypeRoomLeft   MessageType = "room_left"

	// Chat

	MessageTypeChatMessage      MessageType = "chat_message"
	MessageTypeDirectMessage    MessageType = "direct_message"
	MessageTypeMessageDelivered MessageType = "message_delivered"
	MessageTypeMessageRead      MessageType = "message_read"
	MessageTypeTypingStart      MessageType = "typing_start"
	MessageTypeTypingStop       MessageType = "typing_stop"

	// Events and notifications

	MessageTypeEventUpdate   MessageType = "event_update"
	MessageTypeEventReminder MessageType = "event_reminder"
	MessageTypeNotification  MessageType = "notification"
	MessageTypeAnnouncement  MessageType = "announcement"

	// Presence

	MessageTypeUserOnline       MessageType = "user_online"
	MessageTypeUserOffline      MessageType = "user_offline"
	MessageTypeUserStatusChange MessageType = "user_status_change"
	MessageTypePresenceUpdate   MessageType = "presence_update"

	// Collaboration

	MessageTypeDocumentEdit    MessageType = "document_edit"
	MessageTypeCursorPosition  MessageType = "cursor_position"
	MessageTypeSelectionChange MessageType = "selection_change"

	// System

	MessageTypeSystemAlert       MessageType = "system_alert"
	MessageTypeServerMaintenance MessageType = "server_maintenance"
	MessageTypeError             MessageType = "error"
)

// MessageTypeAny is the wildcard used by subscriptions that want every
// inbound message regardless of type. It never appears on the wire.
const MessageTypeAny MessageType = "*"

var knownTypes = map[MessageType]struct{}{
	MessageTypePing:              {},
	MessageTypePong:              {},
	MessageTypeAuth:              {},
	MessageTypeAuthSuccess:       {},
	MessageTypeAuthFailure:       {},
	MessageTypeJoinRoom:          {},
	MessageTypeLeaveRoom:         {},
	MessageTypeRoomJoined:        {},
	MessageTypeRoomLeft:          {},
	MessageTypeChatMessage:       {},
	MessageTypeDirectMessage:     {},
	MessageTypeMessageDelivered:  {},
	MessageTypeMessageRead:       {},
	MessageTypeTypingStart:       {},
	MessageTypeTypingStop:        {},
	MessageTypeEventUpdate:       {},
	MessageTypeEventReminder:     {},
	MessageTypeNotification:      {},
	MessageTypeAnnouncement:      {},
	MessageTypeUserOnline:        {},
	MessageTypeUserOffline:       {},
	MessageTypeUserStatusChange:  {},
	MessageTypePresenceUpdate:    {},
	MessageTypeDocumentEdit:      {},
	MessageTypeCursorPosition:    {},
	MessageTypeSelectionChange:   {},
	MessageTypeSystemAlert:       {},
	MessageTypeServerMaintenance: {},
	MessageTypeError:             {},
}

// Known reports whether the type belongs to the current wire vocabulary.
func (t MessageType) Known() bool {
	_, ok := knownTypes[t]
	return ok
}

func (t MessageType) String() string {
	return string(t)
}

// Priority orders outbound messages in the send queue.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// ConnectionState is the client connection state machine.
type ConnectionState uint8

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionInfo is a read-only snapshot of the logical connection. It is
// mutated exclusively by the client on state transitions; callers get copies.
type ConnectionInfo struct {
	State             ConnectionState
	ConnectedAt       time.Time
	LastPingTime      time.Time
	LastPongTime      time.Time
	ReconnectAttempts int
	Latency           time.Duration
	IsAuthenticated   bool
	UserID            string
}

// RoomSubscription tracks a room the local connection has joined. All room
// subscriptions are cleared on disconnect; rooms must be rejoined explicitly.
type RoomSubscription struct {
	RoomID       string
	JoinedAt     time.Time
	MessageTypes []MessageType
	IsActive     bool
}

// PerformanceMetrics accumulates monotonically; reset only by explicit
// caller action.
type PerformanceMetrics struct {
	MessagesReceived  uint64
	MessagesSent      uint64
	ReconnectionCount uint64
	ErrorCount        uint64
	AverageLatency    time.Duration
	ConnectionUptime  time.Duration
}
