package realtime

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dharmalink/realtime/internal/core/protocol"
)

func Test_Chat_Send(t *testing.T) {
	t.Run("tags room and priority", func(t *testing.T) {
		dialer := &fakeDialer{}
		c := newTestClient(t, testConfig(), dialer)
		require.NoError(t, c.Connect(context.Background()))

		require.NoError(t, c.Chat().Send("meditation", "good morning"))

		sent := dialer.latest().sentMessages()
		require.Len(t, sent, 1)
		require.Equal(t, protocol.MessageTypeChatMessage, sent[0].Type)
		require.Equal(t, "meditation", sent[0].Room)

		payload, err := protocol.Payload[protocol.ChatPayload](sent[0])
		require.NoError(t, err)
		require.Equal(t, "good morning", payload.Content)
	})

	t.Run("stamps the authenticated user", func(t *testing.T) {
		config := testConfig()
		config.AuthToken = "jwt"
		dialer := &fakeDialer{}
		c := newTestClient(t, config, dialer)
		require.NoError(t, c.Connect(context.Background()))

		require.NoError(t, c.Chat().Send("meditation", "hello"))

		sent := dialer.latest().sentMessages()
		chat := sent[len(sent)-1]
		require.Equal(t, "user-42", chat.UserID)
	})

	t.Run("oversized content never reaches the queue", func(t *testing.T) {
		dialer := &fakeDialer{}
		c := newTestClient(t, testConfig(), dialer)

		err := c.Chat().Send("meditation", strings.Repeat("a", protocol.MaxChatContentLength+1))
		require.Error(t, err)

		var typed *protocol.Error
		require.ErrorAs(t, err, &typed)
		require.Equal(t, protocol.ErrorCodeInvalidMessage, typed.Code)

		// Nothing queued: connecting later flushes nothing.
		require.NoError(t, c.Connect(context.Background()))
		time.Sleep(20 * time.Millisecond)
		require.Empty(t, dialer.latest().sentMessages())
	})

	t.Run("options decorate the payload", func(t *testing.T) {
		dialer := &fakeDialer{}
		c := newTestClient(t, testConfig(), dialer)
		require.NoError(t, c.Connect(context.Background()))

		require.NoError(t, c.Chat().Send("meditation", "see this",
			WithReplyTo("msg-1"),
			WithMentions("user-7"),
			WithAttachments(protocol.Attachment{Type: "image", URL: "https://cdn/x.png"}),
		))

		payload, err := protocol.Payload[protocol.ChatPayload](dialer.latest().sentMessages()[0])
		require.NoError(t, err)
		require.Equal(t, "msg-1", payload.ReplyTo)
		require.Equal(t, []string{"user-7"}, payload.Mentions)
		require.Len(t, payload.Attachments, 1)
	})
}

func Test_Chat_SendDirect(t *testing.T) {
	dialer := &fakeDialer{}
	c := newTestClient(t, testConfig(), dialer)
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Chat().SendDirect("user-9", "private hello"))

	sent := dialer.latest().sentMessages()
	require.Len(t, sent, 1)
	require.Equal(t, protocol.MessageTypeDirectMessage, sent[0].Type)
	require.Equal(t, "user-9", sent[0].UserID, "envelope user id addresses the recipient")
	require.Empty(t, sent[0].Room)
}

func Test_Chat_Typing(t *testing.T) {
	t.Run("explicit start and stop", func(t *testing.T) {
		dialer := &fakeDialer{}
		c := newTestClient(t, testConfig(), dialer)
		require.NoError(t, c.Connect(context.Background()))

		require.NoError(t, c.Chat().StartTyping("meditation", "user-1", "Ananda"))
		require.NoError(t, c.Chat().StopTyping("meditation", "user-1", "Ananda"))

		sent := dialer.latest().sentMessages()
		require.Len(t, sent, 2)
		require.Equal(t, protocol.MessageTypeTypingStart, sent[0].Type)
		require.Equal(t, protocol.MessageTypeTypingStop, sent[1].Type)
		require.Equal(t, "meditation", sent[0].Room)
	})

	t.Run("idle timer emits typing_stop on the caller's behalf", func(t *testing.T) {
		dialer := &fakeDialer{}
		c := newTestClient(t, testConfig(), dialer)
		require.NoError(t, c.Connect(context.Background()))

		c.Chat().typingIdle = 25 * time.Millisecond
		require.NoError(t, c.Chat().StartTyping("meditation", "user-1", "Ananda"))

		require.Eventually(t, func() bool {
			sent := dialer.latest().sentMessages()
			return len(sent) == 2 && sent[1].Type == protocol.MessageTypeTypingStop
		}, time.Second, 5*time.Millisecond, "typing_stop not auto-emitted")

		stop := dialer.latest().sentMessages()[1]
		require.Equal(t, "meditation", stop.Room)

		payload, err := protocol.Payload[protocol.TypingPayload](stop)
		require.NoError(t, err)
		require.Equal(t, "user-1", payload.UserID)
	})

	t.Run("repeated start re-arms the idle timer", func(t *testing.T) {
		dialer := &fakeDialer{}
		c := newTestClient(t, testConfig(), dialer)
		require.NoError(t, c.Connect(context.Background()))

		c.Chat().typingIdle = 40 * time.Millisecond
		require.NoError(t, c.Chat().StartTyping("meditation", "user-1", "Ananda"))
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, c.Chat().StartTyping("meditation", "user-1", "Ananda"))

		// Two starts, then exactly one auto stop once the timer lapses.
		require.Eventually(t, func() bool {
			sent := dialer.latest().sentMessages()
			return len(sent) == 3 && sent[2].Type == protocol.MessageTypeTypingStop
		}, time.Second, 5*time.Millisecond)

		time.Sleep(60 * time.Millisecond)
		require.Len(t, dialer.latest().sentMessages(), 3, "idle timer fired more than once")
	})
}

func Test_Chat_OnMessage(t *testing.T) {
	t.Run("room scoped", func(t *testing.T) {
		dialer := &fakeDialer{}
		c := newTestClient(t, testConfig(), dialer)
		require.NoError(t, c.Connect(context.Background()))

		received := make(chan ChatMessage, 2)
		c.Chat().OnMessage("meditation", func(msg ChatMessage) { received <- msg })

		inRoom, err := protocol.NewMessage(protocol.MessageTypeChatMessage, protocol.ChatPayload{Content: "here"})
		require.NoError(t, err)
		dialer.latest().deliver(t, inRoom.InRoom("meditation").FromUser("user-3"))

		elsewhere, err := protocol.NewMessage(protocol.MessageTypeChatMessage, protocol.ChatPayload{Content: "there"})
		require.NoError(t, err)
		dialer.latest().deliver(t, elsewhere.InRoom("lounge"))

		select {
		case msg := <-received:
			require.Equal(t, "here", msg.Content)
			require.Equal(t, "meditation", msg.Room)
			require.Equal(t, "user-3", msg.UserID)
		case <-time.After(time.Second):
			t.Fatal("chat message not delivered")
		}
		select {
		case msg := <-received:
			t.Fatalf("unexpected cross-room delivery: %q", msg.Content)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("recent cache is bounded per room", func(t *testing.T) {
		dialer := &fakeDialer{}
		c := newTestClient(t, testConfig(), dialer)
		require.NoError(t, c.Connect(context.Background()))

		for i := 0; i < maxRecentMessages+10; i++ {
			msg, err := protocol.NewMessage(protocol.MessageTypeChatMessage, protocol.ChatPayload{Content: "m"})
			require.NoError(t, err)
			dialer.latest().deliver(t, msg.InRoom("meditation"))
		}

		require.Eventually(t, func() bool {
			return len(c.Chat().Recent("meditation")) == maxRecentMessages
		}, 2*time.Second, 5*time.Millisecond)
	})
}

func Test_Chat_MarkRead(t *testing.T) {
	dialer := &fakeDialer{}
	c := newTestClient(t, testConfig(), dialer)
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Chat().MarkRead("msg-55"))

	sent := dialer.latest().sentMessages()
	require.Len(t, sent, 1)
	require.Equal(t, protocol.MessageTypeMessageRead, sent[0].Type)

	payload, err := protocol.Payload[protocol.ReadReceiptPayload](sent[0])
	require.NoError(t, err)
	require.Equal(t, "msg-55", payload.MessageID)
}
