// Package errs defines the two error families used throughout the rpc
// module: TransportError for connection-level failures and RpcError for
// request/protocol-level failures. Both carry a machine-readable Code so
// callers can branch on failure kind instead of matching error strings.
package errs

import (
	"errors"
	"fmt"
)

// TransportCode identifies the kind of a TransportError.
type TransportCode string

// Connection-level error kinds.
const (
	CodeConnectionFailed      TransportCode = "ConnectionFailed"
	CodeConnectionTimeout     TransportCode = "ConnectionTimeout"
	CodeConnectionLost        TransportCode = "ConnectionLost"
	CodeRequestTimeout        TransportCode = "RequestTimeout"
	CodeAuthFailed            TransportCode = "AuthFailed"
	CodeInsecureConnection    TransportCode = "InsecureConnection"
	CodeReconnectFailed       TransportCode = "ReconnectFailed"
	CodeHeartbeatTimeout      TransportCode = "HeartbeatTimeout"
	CodeQueueFull             TransportCode = "QueueFull"
	CodeMessageQueueOverflow  TransportCode = "MessageQueueOverflow"
)

// nonRetryable is the set of TransportCode values that are never worth
// retrying automatically.
var nonRetryable = map[TransportCode]bool{
	CodeAuthFailed:         true,
	CodeInsecureConnection: true,
	CodeReconnectFailed:    true,
}

// TransportError is a connection-level failure. Retryable reports whether
// the operation that produced it may succeed if attempted again (e.g. after
// a reconnect); it is always false for CodeAuthFailed, CodeInsecureConnection
// and CodeReconnectFailed.
type TransportError struct {
	Code    TransportCode
	Message string
	Data    map[string]any
	Err     error
}

func (e *TransportError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("transport: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("transport: %s", e.Code)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether this error kind may be retried.
func (e *TransportError) Retryable() bool { return !nonRetryable[e.Code] }

// NewTransportError constructs a TransportError of the given code.
func NewTransportError(code TransportCode, message string) *TransportError {
	return &TransportError{Code: code, Message: message}
}

// WrapTransportError constructs a TransportError that wraps a lower-level
// cause, preserving it for errors.Is/errors.As.
func WrapTransportError(code TransportCode, message string, cause error) *TransportError {
	return &TransportError{Code: code, Message: message, Err: cause}
}

// WithData attaches structured detail (e.g. {"queue": "send", "limit": 100})
// and returns the same error for chaining.
func (e *TransportError) WithData(data map[string]any) *TransportError {
	e.Data = data
	return e
}

// IsTransportCode reports whether err is a *TransportError with the given code.
func IsTransportCode(err error, code TransportCode) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// RpcCode identifies the kind of an RpcError.
type RpcCode string

// Protocol-level error kinds. Servers may also pass through an arbitrary
// application-defined string code.
const (
	CodeInvalidPath      RpcCode = "InvalidPath"
	CodeMethodNotFound   RpcCode = "MethodNotFound"
	CodeUnknownNamespace RpcCode = "UnknownNamespace"
	CodeUnknownMethod    RpcCode = "UnknownMethod"
	CodeParseError       RpcCode = "ParseError"
	CodeProtocolError    RpcCode = "ProtocolError"
	CodeModuleError      RpcCode = "ModuleError"
	CodeRequestError     RpcCode = "RequestError"
	CodeUnknownError     RpcCode = "UnknownError"
)

// RpcError is a request/protocol-level failure returned by a handler or
// surfaced by a Transport when a call cannot be completed. Code is a string
// rather than an enum because servers may pass through application-defined
// codes alongside the well-known ones above.
type RpcError struct {
	Code    RpcCode
	Message string
	Data    any
}

func (e *RpcError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rpc: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("rpc: %s", e.Code)
}

// NewRpcError constructs an RpcError.
func NewRpcError(code RpcCode, message string) *RpcError {
	return &RpcError{Code: code, Message: message}
}

// NewRpcErrorWithData constructs an RpcError with structured data attached.
func NewRpcErrorWithData(code RpcCode, message string, data any) *RpcError {
	return &RpcError{Code: code, Message: message, Data: data}
}

// IsRpcCode reports whether err is an *RpcError with the given code.
func IsRpcCode(err error, code RpcCode) bool {
	var re *RpcError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
