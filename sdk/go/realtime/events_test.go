package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dharmalink/realtime/internal/core/protocol"
)

func Test_Events_OnUpdate(t *testing.T) {
	t.Run("delivers updates", func(t *testing.T) {
		dialer := &fakeDialer{}
		c := newTestClient(t, testConfig(), dialer)
		require.NoError(t, c.Connect(context.Background()))

		updates := make(chan EventUpdate, 1)
		c.Events().OnUpdate("", func(update EventUpdate) { updates <- update })

		msg, err := protocol.NewMessage(protocol.MessageTypeEventUpdate, protocol.EventPayload{
			EventID: "evt-1",
			Action:  "updated",
		})
		require.NoError(t, err)
		dialer.latest().deliver(t, msg.InRoom("events"))

		select {
		case update := <-updates:
			require.Equal(t, "evt-1", update.EventID)
			require.Equal(t, "updated", update.Action)
			require.Equal(t, "events", update.Room)
		case <-time.After(time.Second):
			t.Fatal("event update not delivered")
		}
	})

	t.Run("room scope filters", func(t *testing.T) {
		dialer := &fakeDialer{}
		c := newTestClient(t, testConfig(), dialer)
		require.NoError(t, c.Connect(context.Background()))

		updates := make(chan EventUpdate, 1)
		c.Events().OnUpdate("sangha-events", func(update EventUpdate) { updates <- update })

		msg, err := protocol.NewMessage(protocol.MessageTypeEventUpdate, protocol.EventPayload{
			EventID: "evt-2",
			Action:  "created",
		})
		require.NoError(t, err)
		dialer.latest().deliver(t, msg.InRoom("other-room"))

		select {
		case update := <-updates:
			t.Fatalf("unexpected cross-room delivery: %s", update.EventID)
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func Test_Events_OnReminder(t *testing.T) {
	dialer := &fakeDialer{}
	c := newTestClient(t, testConfig(), dialer)
	require.NoError(t, c.Connect(context.Background()))

	reminders := make(chan EventUpdate, 1)
	c.Events().OnReminder("", func(update EventUpdate) { reminders <- update })

	msg, err := protocol.NewMessage(protocol.MessageTypeEventReminder, protocol.EventPayload{
		EventID: "evt-3",
		Action:  "reminder",
	})
	require.NoError(t, err)
	dialer.latest().deliver(t, msg)

	select {
	case update := <-reminders:
		require.Equal(t, "evt-3", update.EventID)
	case <-time.After(time.Second):
		t.Fatal("reminder not delivered")
	}
}
