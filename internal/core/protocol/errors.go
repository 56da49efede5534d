package protocol

import (
	"errors"
	"time"
)

// Sentinel errors shared across the client.
var (
	ErrNotConnected     = errors.New("client is not connected")
	ErrAlreadyConnected = errors.New("client is already connected")
	ErrClientClosed     = errors.New("client is closed")
	ErrQueueFull        = errors.New("outbound queue is full")
	ErrSendFailed       = errors.New("message dropped after max send attempts")
	ErrConnectTimeout   = errors.New("connection timeout")
	ErrAuthTimeout      = errors.New("authentication timeout")
	ErrRoomTimeout      = errors.New("room operation timeout")
	ErrReconnectGaveUp  = errors.New("reconnect attempts exhausted")
)

// ErrorCode is the closed taxonomy carried on every reported error.
type ErrorCode uint8

const (
	ErrorCodeConnectionFailed ErrorCode = iota + 1
	ErrorCodeAuthenticationFailed
	ErrorCodeUnauthorized
	ErrorCodeRateLimited
	ErrorCodeServerError
	ErrorCodeNetworkError
	ErrorCodeTimeout
	ErrorCodeInvalidMessage
	ErrorCodeRoomAccessDenied
	ErrorCodeUserNotFound
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeConnectionFailed:
		return "connection_failed"
	case ErrorCodeAuthenticationFailed:
		return "authentication_failed"
	case ErrorCodeUnauthorized:
		return "unauthorized"
	case ErrorCodeRateLimited:
		return "rate_limited"
	case ErrorCodeServerError:
		return "server_error"
	case ErrorCodeNetworkError:
		return "network_error"
	case ErrorCodeTimeout:
		return "timeout"
	case ErrorCodeInvalidMessage:
		return "invalid_message"
	case ErrorCodeRoomAccessDenied:
		return "room_access_denied"
	case ErrorCodeUserNotFound:
		return "user_not_found"
	default:
		return "unknown"
	}
}

// retryableCodes lists conditions where retrying the operation can succeed.
var retryableCodes = map[ErrorCode]struct{}{
	ErrorCodeConnectionFailed: {},
	ErrorCodeRateLimited:      {},
	ErrorCodeNetworkError:     {},
	ErrorCodeTimeout:          {},
}

// Error is a client error with taxonomy code, optional context, and a retry
// hint. Errors are reported through the OnError callback, never thrown
// across the async boundary.
type Error struct {
	Code      ErrorCode
	Message   string
	Context   string
	Retry     bool
	Timestamp time.Time
	Cause     error
}

func (e *Error) Error() string {
	msg := e.Code.String() + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a taxonomy error with the retry hint derived from the code.
func NewError(code ErrorCode, message string) *Error {
	_, retry := retryableCodes[code]
	return &Error{
		Code:      code,
		Message:   message,
		Retry:     retry,
		Timestamp: time.Now(),
	}
}

// WrapError attaches a taxonomy code to an underlying error.
func WrapError(cause error, code ErrorCode, message string) *Error {
	err := NewError(code, message)
	err.Cause = cause
	return err
}

// WithContext annotates the error with where it happened.
func (e *Error) WithContext(context string) *Error {
	e.Context = context
	return e
}

// AsError extracts a taxonomy error, wrapping foreign errors as network
// errors so every reported error carries a code.
func AsError(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return WrapError(err, ErrorCodeNetworkError, "transport error")
}
