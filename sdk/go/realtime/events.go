package realtime

import (
	"time"

	"github.com/dharmalink/realtime/internal/core/protocol"
	"github.com/dharmalink/realtime/internal/core/router"
)

// EventUpdate is a community event change or reminder.
type EventUpdate struct {
	protocol.EventPayload

	Room string
	At   time.Time
}

// Events subscribes to community event updates and reminders.
type Events struct {
	client *Client
}

func newEvents(c *Client) *Events {
	return &Events{client: c}
}

// OnUpdate subscribes to event_update frames, optionally scoped to a room.
func (e *Events) OnUpdate(room string, fn func(update EventUpdate)) string {
	return e.subscribe(protocol.MessageTypeEventUpdate, room, fn)
}

// OnReminder subscribes to event_reminder frames, optionally scoped to a
// room.
func (e *Events) OnReminder(room string, fn func(update EventUpdate)) string {
	return e.subscribe(protocol.MessageTypeEventReminder, room, fn)
}

func (e *Events) subscribe(msgType protocol.MessageType, room string, fn func(update EventUpdate)) string {
	var opts []router.Option
	if room != "" {
		opts = append(opts, router.WithRoom(room))
	}
	return e.client.router.Subscribe(
		[]protocol.MessageType{msgType},
		func(msg *protocol.Message) error {
			payload, err := protocol.Payload[protocol.EventPayload](msg)
			if err != nil {
				return err
			}
			fn(EventUpdate{
				EventPayload: payload,
				Room:         msg.Room,
				At:           time.UnixMilli(msg.Timestamp),
			})
			return nil
		},
		opts...,
	)
}
