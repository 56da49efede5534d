package realtime

import (
	"sync"
	"time"

	"github.com/dharmalink/realtime/internal/core/protocol"
)

// maxRecentNotifications bounds the local notification cache.
const maxRecentNotifications = 200

// Notification is a received notification with local read state.
type Notification struct {
	protocol.NotificationPayload

	ID         string
	ReceivedAt time.Time
	Read       bool
}

// Notifications caches received notifications and announcements, tracks
// read state locally, and reports receipts to the server.
type Notifications struct {
	client *Client

	mu     sync.Mutex
	recent []Notification
}

func newNotifications(c *Client) *Notifications {
	n := &Notifications{client: c}
	c.router.Subscribe(
		[]protocol.MessageType{protocol.MessageTypeNotification, protocol.MessageTypeAnnouncement},
		n.record,
	)
	return n
}

// OnNotification subscribes to notifications and announcements.
func (n *Notifications) OnNotification(fn func(notification Notification)) string {
	return n.client.router.Subscribe(
		[]protocol.MessageType{protocol.MessageTypeNotification, protocol.MessageTypeAnnouncement},
		func(msg *protocol.Message) error {
			payload, err := protocol.Payload[protocol.NotificationPayload](msg)
			if err != nil {
				return err
			}
			fn(toNotification(msg, payload))
			return nil
		},
	)
}

// MarkRead flags the notification locally and reports a read receipt.
func (n *Notifications) MarkRead(notificationID string) error {
	n.mu.Lock()
	for i := range n.recent {
		if n.recent[i].ID == notificationID {
			n.recent[i].Read = true
			break
		}
	}
	n.mu.Unlock()

	payload := protocol.ReadReceiptPayload{MessageID: notificationID}
	msg, err := protocol.NewMessage(protocol.MessageTypeMessageRead, payload)
	if err != nil {
		return err
	}
	return n.client.Send(msg, protocol.PriorityLow)
}

// Unread counts cached notifications not yet marked read.
func (n *Notifications) Unread() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	count := 0
	for _, entry := range n.recent {
		if !entry.Read && !entry.NotificationPayload.Read {
			count++
		}
	}
	return count
}

// Recent returns the cached notifications, oldest first.
func (n *Notifications) Recent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Notification, len(n.recent))
	copy(out, n.recent)
	return out
}

func (n *Notifications) record(msg *protocol.Message) error {
	payload, err := protocol.Payload[protocol.NotificationPayload](msg)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.recent = append(n.recent, toNotification(msg, payload))
	if len(n.recent) > maxRecentNotifications {
		n.recent = n.recent[len(n.recent)-maxRecentNotifications:]
	}
	n.mu.Unlock()
	return nil
}

func toNotification(msg *protocol.Message, payload protocol.NotificationPayload) Notification {
	return Notification{
		NotificationPayload: payload,
		ID:                  msg.ID,
		ReceivedAt:          time.UnixMilli(msg.Timestamp),
		Read:                payload.Read,
	}
}
