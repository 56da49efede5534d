package realtime

import (
	"sync"
	"time"

	"github.com/dharmalink/realtime/internal/core/protocol"
	"github.com/dharmalink/realtime/internal/core/router"
)

const (
	// maxRecentMessages bounds the local per-room chat cache. Older history
	// lives server-side and is replayed on room join.
	maxRecentMessages = 100

	// typingIdleTimeout is how long after StartTyping the adapter emits
	// typing_stop on the caller's behalf.
	typingIdleTimeout = 5 * time.Second
)

// ChatMessage is a received chat message with its envelope fields resolved.
type ChatMessage struct {
	protocol.ChatPayload

	ID     string
	Room   string
	UserID string
	SentAt time.Time
}

// Chat exposes chat operations over the client: sending messages, typing
// indicators, read receipts, and a bounded per-room cache of recent
// messages.
type Chat struct {
	client *Client

	// typingIdle is how long after StartTyping the adapter emits
	// typing_stop on the caller's behalf.
	typingIdle time.Duration

	mu           sync.Mutex
	recent       map[string][]ChatMessage
	typingTimers map[string]*time.Timer
}

func newChat(c *Client) *Chat {
	chat := &Chat{
		client:       c,
		typingIdle:   typingIdleTimeout,
		recent:       make(map[string][]ChatMessage),
		typingTimers: make(map[string]*time.Timer),
	}
	c.router.Subscribe(
		[]protocol.MessageType{protocol.MessageTypeChatMessage, protocol.MessageTypeDirectMessage},
		chat.record,
	)
	return chat
}

// ChatOption decorates an outgoing chat message.
type ChatOption func(*protocol.ChatPayload)

func WithReplyTo(messageID string) ChatOption {
	return func(p *protocol.ChatPayload) { p.ReplyTo = messageID }
}

func WithMentions(userIDs ...string) ChatOption {
	return func(p *protocol.ChatPayload) { p.Mentions = userIDs }
}

func WithAttachments(attachments ...protocol.Attachment) ChatOption {
	return func(p *protocol.ChatPayload) { p.Attachments = attachments }
}

// Send posts a chat message to a room. The payload is validated before it
// touches the queue, so oversized content never occupies queue capacity.
func (ch *Chat) Send(room, content string, opts ...ChatOption) error {
	payload := protocol.ChatPayload{Content: content}
	for _, opt := range opts {
		opt(&payload)
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	msg, err := protocol.NewMessage(protocol.MessageTypeChatMessage, payload)
	if err != nil {
		return err
	}
	msg = msg.InRoom(room)
	if userID := ch.client.Info().UserID; userID != "" {
		msg = msg.FromUser(userID)
	}
	return ch.client.Send(msg, protocol.PriorityNormal)
}

// SendDirect posts a direct message. The envelope userId carries the
// recipient; the server stamps the sender from the session.
func (ch *Chat) SendDirect(recipientID, content string, opts ...ChatOption) error {
	payload := protocol.ChatPayload{Content: content}
	for _, opt := range opts {
		opt(&payload)
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	msg, err := protocol.NewMessage(protocol.MessageTypeDirectMessage, payload)
	if err != nil {
		return err
	}
	msg = msg.FromUser(recipientID)
	return ch.client.Send(msg, protocol.PriorityNormal)
}

// StartTyping broadcasts a typing indicator for the room and arms an idle
// timer that emits typing_stop even if the caller forgets to.
func (ch *Chat) StartTyping(room, userID, userName string) error {
	payload := protocol.TypingPayload{UserID: userID, UserName: userName}
	if err := payload.Validate(); err != nil {
		return err
	}

	msg, err := protocol.NewMessage(protocol.MessageTypeTypingStart, payload)
	if err != nil {
		return err
	}
	if err = ch.client.Send(msg.InRoom(room), protocol.PriorityLow); err != nil {
		return err
	}

	ch.mu.Lock()
	if timer, ok := ch.typingTimers[room]; ok {
		timer.Reset(ch.typingIdle)
	} else {
		ch.typingTimers[room] = time.AfterFunc(ch.typingIdle, func() {
			_ = ch.StopTyping(room, userID, userName)
		})
	}
	ch.mu.Unlock()
	return nil
}

// StopTyping cancels the idle timer and broadcasts typing_stop.
func (ch *Chat) StopTyping(room, userID, userName string) error {
	ch.mu.Lock()
	if timer, ok := ch.typingTimers[room]; ok {
		timer.Stop()
		delete(ch.typingTimers, room)
	}
	ch.mu.Unlock()

	payload := protocol.TypingPayload{UserID: userID, UserName: userName}
	if err := payload.Validate(); err != nil {
		return err
	}
	msg, err := protocol.NewMessage(protocol.MessageTypeTypingStop, payload)
	if err != nil {
		return err
	}
	return ch.client.Send(msg.InRoom(room), protocol.PriorityLow)
}

// MarkRead sends a read receipt for a message.
func (ch *Chat) MarkRead(messageID string) error {
	payload := protocol.ReadReceiptPayload{MessageID: messageID}
	msg, err := protocol.NewMessage(protocol.MessageTypeMessageRead, payload)
	if err != nil {
		return err
	}
	return ch.client.Send(msg, protocol.PriorityLow)
}

// OnMessage subscribes to chat and direct messages, optionally scoped to a
// room (empty room receives everything). Returns the subscription id.
func (ch *Chat) OnMessage(room string, fn func(msg ChatMessage)) string {
	var opts []router.Option
	if room != "" {
		opts = append(opts, router.WithRoom(room))
	}
	return ch.client.router.Subscribe(
		[]protocol.MessageType{protocol.MessageTypeChatMessage, protocol.MessageTypeDirectMessage},
		func(msg *protocol.Message) error {
			payload, err := protocol.Payload[protocol.ChatPayload](msg)
			if err != nil {
				return err
			}
			fn(toChatMessage(msg, payload))
			return nil
		},
		opts...,
	)
}

// OnTyping subscribes to typing indicators in a room. The started flag is
// true for typing_start and false for typing_stop.
func (ch *Chat) OnTyping(room string, fn func(userID, userName string, started bool)) string {
	return ch.client.router.Subscribe(
		[]protocol.MessageType{protocol.MessageTypeTypingStart, protocol.MessageTypeTypingStop},
		func(msg *protocol.Message) error {
			payload, err := protocol.Payload[protocol.TypingPayload](msg)
			if err != nil {
				return err
			}
			fn(payload.UserID, payload.UserName, msg.Type == protocol.MessageTypeTypingStart)
			return nil
		},
		router.WithRoom(room),
	)
}

// Recent returns the cached messages for a room, oldest first.
func (ch *Chat) Recent(room string) []ChatMessage {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	cached := ch.recent[room]
	out := make([]ChatMessage, len(cached))
	copy(out, cached)
	return out
}

func (ch *Chat) record(msg *protocol.Message) error {
	payload, err := protocol.Payload[protocol.ChatPayload](msg)
	if err != nil {
		return err
	}
	entry := toChatMessage(msg, payload)

	ch.mu.Lock()
	cached := append(ch.recent[msg.Room], entry)
	if len(cached) > maxRecentMessages {
		cached = cached[len(cached)-maxRecentMessages:]
	}
	ch.recent[msg.Room] = cached
	ch.mu.Unlock()
	return nil
}

func toChatMessage(msg *protocol.Message, payload protocol.ChatPayload) ChatMessage {
	return ChatMessage{
		ChatPayload: payload,
		ID:          msg.ID,
		Room:        msg.Room,
		UserID:      msg.UserID,
		SentAt:      time.UnixMilli(msg.Timestamp),
	}
}
