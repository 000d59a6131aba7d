// Package rpc defines the line-oriented JSON-RPC frames exchanged with
// the editing backend and their encoding and classification rules.
package rpc

import (
	"encoding/json"
	"fmt"
)

// Version is the protocol version tag carried by every frame.
const Version = "2.0"

// Request is a single outgoing call frame. Immutable once constructed.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewRequest constructs a call frame that expects a reply.
// An id of zero marks a fire-and-forget call and is omitted on the wire.
func NewRequest(id int64, method string, params any) Request {
	return Request{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// Encode serializes the request as a single line, without the trailing
// newline. Deterministic for a given request; no side effects.
func (r Request) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode request %q: %w", r.Method, err)
	}
	return data, nil
}

// Kind identifies which variant a parsed inbound frame is.
type Kind int

const (
	// KindNotification is an unsolicited frame carrying its own method.
	KindNotification Kind = iota
	// KindSuccess is a reply carrying a result for a request id.
	KindSuccess
	// KindError is a reply carrying an error payload for a request id.
	KindError
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindNotification:
		return "notification"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Response is one parsed inbound frame. Exactly one of the three
// variants holds: a notification (Method set, no ID), a success
// (ID and Result set), or an error (ID and Error set).
type Response struct {
	// ID is the request identifier this frame answers. Nil for
	// notifications.
	ID *int64

	// Method is the notification method. Empty for replies; a reply's
	// method is recovered from the matching pending request.
	Method string

	// Params is the raw notification payload, if any.
	Params json.RawMessage

	// Result is the raw success payload.
	Result json.RawMessage

	// Error is the error payload of an error reply.
	Error *RPCError
}

// Kind returns the variant of the frame.
func (r *Response) Kind() Kind {
	switch {
	case r.Error != nil:
		return KindError
	case r.ID != nil:
		return KindSuccess
	default:
		return KindNotification
	}
}

// Payload returns the structured value the frame carries: params for a
// notification, result for a success, nil for an error.
func (r *Response) Payload() json.RawMessage {
	if r.Kind() == KindNotification {
		return r.Params
	}
	return r.Result
}

// ParseResponse deserializes one line into a Response.
//
// A line is well-formed when exactly one of {method, result, error} is
// present and its presence is consistent with the id: notifications
// carry no id, replies always carry one. Anything else fails with
// ErrMalformedFrame; parse failures are never swallowed so the caller
// can report them instead of guessing a handler.
func ParseResponse(line []byte) (*Response, error) {
	var raw struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      *int64          `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
		Result  json.RawMessage `json:"result"`
		Error   *RPCError       `json:"error"`
	}

	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	discriminators := 0
	if raw.Method != "" {
		discriminators++
	}
	if raw.Result != nil {
		discriminators++
	}
	if raw.Error != nil {
		discriminators++
	}
	if discriminators != 1 {
		if raw.ID != nil && raw.Result == nil && raw.Error == nil {
			return nil, fmt.Errorf("%w: id %d with neither result nor error", ErrMalformedFrame, *raw.ID)
		}
		return nil, fmt.Errorf("%w: %d of method/result/error present, want exactly one", ErrMalformedFrame, discriminators)
	}

	switch {
	case raw.Method != "":
		if raw.ID != nil {
			return nil, fmt.Errorf("%w: notification method %q carries id %d", ErrMalformedFrame, raw.Method, *raw.ID)
		}
	default:
		if raw.ID == nil {
			return nil, fmt.Errorf("%w: reply without id", ErrMalformedFrame)
		}
	}

	return &Response{
		ID:     raw.ID,
		Method: raw.Method,
		Params: raw.Params,
		Result: raw.Result,
		Error:  raw.Error,
	}, nil
}
