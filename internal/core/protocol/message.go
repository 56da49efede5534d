package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Message is the wire envelope. The payload shape is determined by Type;
// Data stays raw until a typed decoder is asked for it, so validation
// happens once at the parse boundary and messages remain immutable after
// construction.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"timestamp"`
	UserID    string          `json:"userId,omitempty"`
	Room      string          `json:"room,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

var emptyObject = json.RawMessage("{}")

// NewMessage builds an outbound message. ID and Timestamp are filled in
// automatically; payload may be nil for types that carry no data.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	data := emptyObject
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, WrapError(err, ErrorCodeInvalidMessage, "encode payload")
		}
		data = encoded
	}

	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}, nil
}

// InRoom returns a copy of the message tagged with a room scope.
func (m *Message) InRoom(room string) *Message {
	clone := *m
	clone.Room = room
	return &clone
}

// FromUser returns a copy of the message tagged with the sending user.
func (m *Message) FromUser(userID string) *Message {
	clone := *m
	clone.UserID = userID
	return &clone
}

// Encode serializes the envelope for the transport.
func (m *Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, WrapError(err, ErrorCodeInvalidMessage, "encode message")
	}
	return data, nil
}

// Parse deserializes an inbound frame. A frame whose type field is missing
// or not a string is malformed; absence of data is tolerated and treated as
// an empty object. Unrecognized type strings parse fine and flow through as
// passthrough messages.
func Parse(frame []byte) (*Message, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		return nil, WrapError(ErrMalformedMessage, ErrorCodeInvalidMessage, err.Error())
	}
	if head.Type == nil || *head.Type == "" {
		return nil, WrapError(ErrMalformedMessage, ErrorCodeInvalidMessage, "missing type field")
	}

	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, WrapError(ErrMalformedMessage, ErrorCodeInvalidMessage, err.Error())
	}
	if len(msg.Data) == 0 {
		msg.Data = emptyObject
	}
	return &msg, nil
}

// Payload decodes the message data into the payload type for the message's
// wire type and validates it. The zero value and an error are returned when
// the data does not conform.
func Payload[T Validator](m *Message) (T, error) {
	var payload T
	if err := json.Unmarshal(m.Data, &payload); err != nil {
		return payload, WrapError(err, ErrorCodeInvalidMessage, "decode "+m.Type.String()+" payload")
	}
	if err := payload.Validate(); err != nil {
		return payload, err
	}
	return payload, nil
}

// Validator is implemented by every typed payload.
type Validator interface {
	Validate() error
}

// ErrMalformedMessage marks frames that fail envelope parsing. The client
// logs and drops these; they are never dispatched to subscribers.
var ErrMalformedMessage = errors.New("malformed message frame")
