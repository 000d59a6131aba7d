package rpc

import (
	"errors"
	"fmt"
)

// Sentinel errors for frame parsing.
var (
	// ErrMalformedFrame indicates an inbound line that is not a
	// well-formed frame. The frame is discarded; the session continues.
	ErrMalformedFrame = errors.New("malformed frame")
)

// Standard JSON-RPC error codes. The client never originates these but
// reports them when the backend does.
const (
	// CodeParseError indicates invalid JSON was received.
	CodeParseError = -32700
	// CodeInvalidRequest indicates the JSON was not a valid request object.
	CodeInvalidRequest = -32600
	// CodeMethodNotFound indicates the method does not exist.
	CodeMethodNotFound = -32601
	// CodeInvalidParams indicates invalid method parameters.
	CodeInvalidParams = -32602
	// CodeInternalError indicates an internal backend error.
	CodeInternalError = -32603
)

// RPCError is the error payload carried by an error reply.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
