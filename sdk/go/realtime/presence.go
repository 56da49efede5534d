package realtime

import (
	"sync"
	"time"

	"github.com/dharmalink/realtime/internal/core/protocol"
)

// PresenceUpdate is the last known presence of a user.
type PresenceUpdate struct {
	UserID       string
	Status       string
	CustomStatus string
	LastSeen     string
	At           time.Time
}

// Presence tracks the presence of other users and publishes the local
// user's status.
type Presence struct {
	client *Client

	mu       sync.Mutex
	statuses map[string]PresenceUpdate
}

func newPresence(c *Client) *Presence {
	p := &Presence{
		client:   c,
		statuses: make(map[string]PresenceUpdate),
	}
	c.router.Subscribe(presenceTypes(), p.track)
	return p
}

func presenceTypes() []protocol.MessageType {
	return []protocol.MessageType{
		protocol.MessageTypePresenceUpdate,
		protocol.MessageTypeUserStatusChange,
		protocol.MessageTypeUserOnline,
		protocol.MessageTypeUserOffline,
	}
}

// SetStatus broadcasts the local user's presence. Requires an
// authenticated connection, since presence is keyed by user id.
func (p *Presence) SetStatus(status, customStatus string) error {
	userID := p.client.Info().UserID
	if userID == "" {
		return protocol.NewError(protocol.ErrorCodeUnauthorized, "presence requires an authenticated user")
	}

	payload := protocol.PresencePayload{
		UserID:       userID,
		Status:       status,
		CustomStatus: customStatus,
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	msg, err := protocol.NewMessage(protocol.MessageTypePresenceUpdate, payload)
	if err != nil {
		return err
	}
	return p.client.Send(msg.FromUser(userID), protocol.PriorityLow)
}

// OnUpdate subscribes to presence changes of any user.
func (p *Presence) OnUpdate(fn func(update PresenceUpdate)) string {
	return p.client.router.Subscribe(presenceTypes(), func(msg *protocol.Message) error {
		update, err := p.toUpdate(msg)
		if err != nil {
			return err
		}
		fn(update)
		return nil
	})
}

// Status returns the last known presence of a user.
func (p *Presence) Status(userID string) (PresenceUpdate, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	update, ok := p.statuses[userID]
	return update, ok
}

func (p *Presence) track(msg *protocol.Message) error {
	update, err := p.toUpdate(msg)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.statuses[update.UserID] = update
	p.mu.Unlock()
	return nil
}

// toUpdate decodes a presence frame. user_online/user_offline frames may
// carry only the envelope userId; the status is implied by the type.
func (p *Presence) toUpdate(msg *protocol.Message) (PresenceUpdate, error) {
	payload, err := protocol.Payload[protocol.PresencePayload](msg)
	if err == nil {
		return PresenceUpdate{
			UserID:       payload.UserID,
			Status:       payload.Status,
			CustomStatus: payload.CustomStatus,
			LastSeen:     payload.LastSeen,
			At:           time.UnixMilli(msg.Timestamp),
		}, nil
	}

	implied := ""
	switch msg.Type {
	case protocol.MessageTypeUserOnline:
		implied = "online"
	case protocol.MessageTypeUserOffline:
		implied = "offline"
	}
	if implied == "" || msg.UserID == "" {
		return PresenceUpdate{}, err
	}
	return PresenceUpdate{
		UserID: msg.UserID,
		Status: implied,
		At:     time.UnixMilli(msg.Timestamp),
	}, nil
}
