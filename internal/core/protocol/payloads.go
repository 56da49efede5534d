package protocol

import (
	"fmt"
	"unicode/utf8"
)

// Payload contracts for the wire types the client constructs or consumes.
// Each payload validates itself once, at the parse or send boundary.

const (
	// MaxChatContentLength bounds chat message content, in characters.
	MaxChatContentLength = 4000
)

// Attachment describes a file, image, or link attached to a chat message.
type Attachment struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
}

var attachmentTypes = map[string]struct{}{
	"image": {},
	"file":  {},
	"link":  {},
}

func (a Attachment) Validate() error {
	if _, ok := attachmentTypes[a.Type]; !ok {
		return NewError(ErrorCodeInvalidMessage, fmt.Sprintf("invalid attachment type %q", a.Type))
	}
	if a.URL == "" {
		return NewError(ErrorCodeInvalidMessage, "attachment url is required")
	}
	return nil
}

// ChatPayload is carried by chat_message and direct_message.
type ChatPayload struct {
	Content     string       `json:"content"`
	ReplyTo     string       `json:"replyTo,omitempty"`
	Mentions    []string     `json:"mentions,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

func (p ChatPayload) Validate() error {
	n := utf8.RuneCountInString(p.Content)
	if n == 0 {
		return NewError(ErrorCodeInvalidMessage, "chat content is empty")
	}
	if n > MaxChatContentLength {
		return NewError(ErrorCodeInvalidMessage,
			fmt.Sprintf("chat content is %d characters, limit is %d", n, MaxChatContentLength))
	}
	for _, a := range p.Attachments {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TypingPayload is carried by typing_start and typing_stop.
type TypingPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

func (p TypingPayload) Validate() error {
	if p.UserID == "" {
		return NewError(ErrorCodeInvalidMessage, "typing payload requires userId")
	}
	return nil
}

// PresenceStatus values accepted in presence updates.
var presenceStatuses = map[string]struct{}{
	"online":  {},
	"offline": {},
	"away":    {},
	"busy":    {},
}

// PresencePayload is carried by presence_update and user_status_change.
type PresencePayload struct {
	UserID       string `json:"userId"`
	Status       string `json:"status"`
	LastSeen     string `json:"lastSeen,omitempty"`
	CustomStatus string `json:"customStatus,omitempty"`
}

func (p PresencePayload) Validate() error {
	if p.UserID == "" {
		return NewError(ErrorCodeInvalidMessage, "presence payload requires userId")
	}
	if _, ok := presenceStatuses[p.Status]; !ok {
		return NewError(ErrorCodeInvalidMessage, fmt.Sprintf("invalid presence status %q", p.Status))
	}
	return nil
}

var notificationCategories = map[string]struct{}{
	"info":    {},
	"warning": {},
	"error":   {},
	"success": {},
}

// NotificationPayload is carried by notification and announcement.
type NotificationPayload struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	Category    string `json:"category"`
	ActionURL   string `json:"actionUrl,omitempty"`
	Dismissible bool   `json:"dismissible"`
	Persistent  bool   `json:"persistent"`
	Read        bool   `json:"read,omitempty"`
}

func (p NotificationPayload) Validate() error {
	if p.Title == "" {
		return NewError(ErrorCodeInvalidMessage, "notification requires a title")
	}
	if _, ok := notificationCategories[p.Category]; !ok {
		return NewError(ErrorCodeInvalidMessage, fmt.Sprintf("invalid notification category %q", p.Category))
	}
	return nil
}

var eventActions = map[string]struct{}{
	"created":   {},
	"updated":   {},
	"cancelled": {},
	"reminder":  {},
}

// EventPayload is carried by event_update and event_reminder.
type EventPayload struct {
	EventID   string         `json:"eventId"`
	Action    string         `json:"action"`
	EventData map[string]any `json:"eventData,omitempty"`
}

func (p EventPayload) Validate() error {
	if p.EventID == "" {
		return NewError(ErrorCodeInvalidMessage, "event payload requires eventId")
	}
	if _, ok := eventActions[p.Action]; !ok {
		return NewError(ErrorCodeInvalidMessage, fmt.Sprintf("invalid event action %q", p.Action))
	}
	return nil
}

// AuthPayload is the outbound auth handshake.
type AuthPayload struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken,omitempty"`
	UserID       string   `json:"userId,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
}

func (p AuthPayload) Validate() error {
	if p.Token == "" {
		return NewError(ErrorCodeAuthenticationFailed, "auth token is empty")
	}
	return nil
}

// AuthResultPayload is carried by auth_success and auth_failure.
type AuthResultPayload struct {
	Success     bool     `json:"success"`
	UserID      string   `json:"userId,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	SessionID   string   `json:"sessionId,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func (p AuthResultPayload) Validate() error { return nil }

// ReadReceiptPayload is carried by message_read and message_delivered.
type ReadReceiptPayload struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId,omitempty"`
}

func (p ReadReceiptPayload) Validate() error {
	if p.MessageID == "" {
		return NewError(ErrorCodeInvalidMessage, "receipt requires messageId")
	}
	return nil
}

// SystemAlertPayload is carried by system_alert and server_maintenance.
type SystemAlertPayload struct {
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
}

func (p SystemAlertPayload) Validate() error {
	if p.Message == "" {
		return NewError(ErrorCodeInvalidMessage, "system alert requires a message")
	}
	return nil
}

// ErrorPayload is carried by error frames from the server.
type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Retry   bool   `json:"retry,omitempty"`
}

func (p ErrorPayload) Validate() error { return nil }

// RawPayload passes through untouched. Used for passthrough message types
// the client does not model.
type RawPayload map[string]any

func (p RawPayload) Validate() error { return nil }
