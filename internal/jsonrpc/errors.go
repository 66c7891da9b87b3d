package jsonrpc

import "fmt"

// ErrorCode is a JSON-RPC 2.0 error code.
type ErrorCode int

const (
	// ErrorCodeParseError indicates invalid JSON was received by the server.
	ErrorCodeParseError ErrorCode = -32700
	// ErrorCodeInvalidRequest indicates the JSON sent is not a valid Request object.
	ErrorCodeInvalidRequest ErrorCode = -32600
	// ErrorCodeMethodNotFound indicates the method does not exist / is not available.
	ErrorCodeMethodNotFound ErrorCode = -32601
	// ErrorCodeInvalidParams indicates invalid method parameters.
	ErrorCodeInvalidParams ErrorCode = -32602
	// ErrorCodeInternalError indicates an internal JSON-RPC error.
	ErrorCodeInternalError ErrorCode = -32603

	// ErrorCodeServerNotInitialized is the LSP code for requests received
	// before the initialize handshake.
	ErrorCodeServerNotInitialized ErrorCode = -32002
	// ErrorCodeRequestCancelled is the LSP code for requests cancelled by
	// $/cancelRequest.
	ErrorCodeRequestCancelled ErrorCode = -32800
)

// ProtocolError reports a message that could not be framed or decoded. The
// session cannot continue past one.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Protocolf builds a ProtocolError from a format string.
func Protocolf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Err: fmt.Errorf(format, args...)}
}
