package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_NewMessage(t *testing.T) {
	t.Run("fills id and timestamp", func(t *testing.T) {
		msg, err := NewMessage(MessageTypeChatMessage, ChatPayload{Content: "hello"})
		require.NoError(t, err)
		require.NotEmpty(t, msg.ID)
		require.NotZero(t, msg.Timestamp)
		require.Equal(t, MessageTypeChatMessage, msg.Type)
	})

	t.Run("nil payload encodes as empty object", func(t *testing.T) {
		msg, err := NewMessage(MessageTypePing, nil)
		require.NoError(t, err)
		require.JSONEq(t, "{}", string(msg.Data))
	})

	t.Run("unique ids", func(t *testing.T) {
		a, err := NewMessage(MessageTypePing, nil)
		require.NoError(t, err)
		b, err := NewMessage(MessageTypePing, nil)
		require.NoError(t, err)
		require.NotEqual(t, a.ID, b.ID)
	})
}

func Test_Message_Clone(t *testing.T) {
	msg, err := NewMessage(MessageTypeChatMessage, ChatPayload{Content: "hi"})
	require.NoError(t, err)

	scoped := msg.InRoom("meditation").FromUser("user-1")
	require.Equal(t, "meditation", scoped.Room)
	require.Equal(t, "user-1", scoped.UserID)

	// The original stays untouched.
	require.Empty(t, msg.Room)
	require.Empty(t, msg.UserID)
}

func Test_Parse(t *testing.T) {
	t.Run("roundtrip", func(t *testing.T) {
		msg, err := NewMessage(MessageTypeChatMessage, ChatPayload{Content: "hello"})
		require.NoError(t, err)
		data, err := msg.InRoom("lounge").Encode()
		require.NoError(t, err)

		parsed, err := Parse(data)
		require.NoError(t, err)
		require.Equal(t, msg.ID, parsed.ID)
		require.Equal(t, MessageTypeChatMessage, parsed.Type)
		require.Equal(t, "lounge", parsed.Room)

		payload, err := Payload[ChatPayload](parsed)
		require.NoError(t, err)
		require.Equal(t, "hello", payload.Content)
	})

	t.Run("invalid json is rejected", func(t *testing.T) {
		_, err := Parse([]byte("{not json"))
		require.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("missing type is rejected", func(t *testing.T) {
		_, err := Parse([]byte(`{"id":"x","data":{}}`))
		require.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("non-string type is rejected", func(t *testing.T) {
		_, err := Parse([]byte(`{"id":"x","type":42}`))
		require.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("missing data becomes empty object", func(t *testing.T) {
		msg, err := Parse([]byte(`{"id":"x","type":"ping","timestamp":1}`))
		require.NoError(t, err)
		require.JSONEq(t, "{}", string(msg.Data))
	})

	t.Run("unknown type passes through", func(t *testing.T) {
		msg, err := Parse([]byte(`{"id":"x","type":"hologram_sync","timestamp":1,"data":{"a":1}}`))
		require.NoError(t, err)
		require.Equal(t, MessageType("hologram_sync"), msg.Type)
		require.False(t, msg.Type.Known())
	})
}

func Test_Payload_Validation(t *testing.T) {
	t.Run("chat content at the limit", func(t *testing.T) {
		p := ChatPayload{Content: strings.Repeat("a", MaxChatContentLength)}
		require.NoError(t, p.Validate())
	})

	t.Run("chat content over the limit", func(t *testing.T) {
		p := ChatPayload{Content: strings.Repeat("a", MaxChatContentLength+1)}
		err := p.Validate()
		require.Error(t, err)

		var typed *Error
		require.ErrorAs(t, err, &typed)
		require.Equal(t, ErrorCodeInvalidMessage, typed.Code)
	})

	t.Run("limit counts characters not bytes", func(t *testing.T) {
		// 4000 multibyte runes are within the limit even though the byte
		// count is far larger.
		p := ChatPayload{Content: strings.Repeat("法", MaxChatContentLength)}
		require.NoError(t, p.Validate())
	})

	t.Run("empty chat content", func(t *testing.T) {
		require.Error(t, ChatPayload{}.Validate())
	})

	t.Run("attachment type", func(t *testing.T) {
		ok := Attachment{Type: "image", URL: "https://cdn/x.png"}
		require.NoError(t, ok.Validate())
		bad := Attachment{Type: "virus", URL: "https://cdn/x"}
		require.Error(t, bad.Validate())
	})

	t.Run("presence status", func(t *testing.T) {
		require.NoError(t, PresencePayload{UserID: "u", Status: "away"}.Validate())
		require.Error(t, PresencePayload{UserID: "u", Status: "sleeping"}.Validate())
		require.Error(t, PresencePayload{Status: "online"}.Validate())
	})

	t.Run("notification category", func(t *testing.T) {
		require.NoError(t, NotificationPayload{Title: "t", Category: "info"}.Validate())
		require.Error(t, NotificationPayload{Title: "t", Category: "urgent"}.Validate())
		require.Error(t, NotificationPayload{Category: "info"}.Validate())
	})

	t.Run("event action", func(t *testing.T) {
		require.NoError(t, EventPayload{EventID: "e", Action: "cancelled"}.Validate())
		require.Error(t, EventPayload{EventID: "e", Action: "deleted"}.Validate())
	})

	t.Run("payload decode failure carries a code", func(t *testing.T) {
		msg, err := Parse([]byte(`{"id":"x","type":"chat_message","timestamp":1,"data":{"content":""}}`))
		require.NoError(t, err)
		_, err = Payload[ChatPayload](msg)
		require.Error(t, err)
	})
}

func Test_Message_Encode(t *testing.T) {
	msg, err := NewMessage(MessageTypeNotification, NotificationPayload{
		Title:    "daily reflection",
		Category: "info",
	})
	require.NoError(t, err)

	data, err := msg.Encode()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Equal(t, "notification", raw["type"])
	// Omitted envelope fields stay off the wire.
	require.NotContains(t, raw, "room")
	require.NotContains(t, raw, "userId")
}
