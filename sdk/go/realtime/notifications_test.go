package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dharmalink/realtime/internal/core/protocol"
)

func deliverNotification(t *testing.T, dialer *fakeDialer, title string) *protocol.Message {
	t.Helper()
	msg, err := protocol.NewMessage(protocol.MessageTypeNotification, protocol.NotificationPayload{
		Title:    title,
		Category: "info",
	})
	require.NoError(t, err)
	dialer.latest().deliver(t, msg)
	return msg
}

func Test_Notifications_OnNotification(t *testing.T) {
	dialer := &fakeDialer{}
	c := newTestClient(t, testConfig(), dialer)
	require.NoError(t, c.Connect(context.Background()))

	received := make(chan Notification, 2)
	c.Notifications().OnNotification(func(n Notification) { received <- n })

	deliverNotification(t, dialer, "retreat announced")

	announcement, err := protocol.NewMessage(protocol.MessageTypeAnnouncement, protocol.NotificationPayload{
		Title:    "hall closed",
		Category: "warning",
	})
	require.NoError(t, err)
	dialer.latest().deliver(t, announcement)

	for i := 0; i < 2; i++ {
		select {
		case n := <-received:
			require.NotEmpty(t, n.Title)
			require.False(t, n.ReceivedAt.IsZero())
		case <-time.After(time.Second):
			t.Fatal("notification not delivered")
		}
	}
}

func Test_Notifications_ReadState(t *testing.T) {
	dialer := &fakeDialer{}
	c := newTestClient(t, testConfig(), dialer)
	require.NoError(t, c.Connect(context.Background()))

	first := deliverNotification(t, dialer, "one")
	deliverNotification(t, dialer, "two")

	require.Eventually(t, func() bool {
		return c.Notifications().Unread() == 2
	}, time.Second, 2*time.Millisecond)

	require.NoError(t, c.Notifications().MarkRead(first.ID))
	require.Equal(t, 1, c.Notifications().Unread())

	// The receipt went to the server too.
	sent := dialer.latest().sentMessages()
	require.NotEmpty(t, sent)
	receipt := sent[len(sent)-1]
	require.Equal(t, protocol.MessageTypeMessageRead, receipt.Type)

	payload, err := protocol.Payload[protocol.ReadReceiptPayload](receipt)
	require.NoError(t, err)
	require.Equal(t, first.ID, payload.MessageID)
}

func Test_Notifications_Recent(t *testing.T) {
	dialer := &fakeDialer{}
	c := newTestClient(t, testConfig(), dialer)
	require.NoError(t, c.Connect(context.Background()))

	deliverNotification(t, dialer, "first")
	deliverNotification(t, dialer, "second")

	require.Eventually(t, func() bool {
		return len(c.Notifications().Recent()) == 2
	}, time.Second, 2*time.Millisecond)

	recent := c.Notifications().Recent()
	require.Equal(t, "first", recent[0].Title)
	require.Equal(t, "second", recent[1].Title)
}
