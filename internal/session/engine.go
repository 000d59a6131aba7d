// Package session implements the correlation engine: request id
// allocation, the single pending-request slot, inbound frame
// classification, and dispatch to the state-update handlers.
package session

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dshills/cedar/internal/logging"
	"github.com/dshills/cedar/internal/rpc"
	"github.com/dshills/cedar/internal/state"
	"github.com/dshills/cedar/internal/telemetry"
)

// HandlerFunc applies one inbound payload to the state projection.
// A returned error is caught at the dispatch boundary and reported;
// it never propagates out of Receive.
type HandlerFunc func(payload json.RawMessage) error

// pendingCall is the single in-flight request.
type pendingCall struct {
	id     int64
	method string
	sentAt time.Time
}

// Engine owns the state projection and correlates outbound requests
// with inbound frames.
//
// All methods are called from the single session goroutine; the engine
// carries no locks. The caller enforces the one-outstanding-request
// discipline by consulting Awaiting before Send.
type Engine struct {
	out      io.Writer
	nextID   int64
	pending  *pendingCall
	handlers map[string]HandlerFunc

	projection *state.Projection
	log        *logging.Logger
	metrics    *telemetry.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithTransport attaches the outbound transport at construction time.
func WithTransport(w io.Writer) Option {
	return func(e *Engine) {
		e.out = w
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithMetrics sets the engine's metric instruments.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine owning the given projection. The handler table
// is fixed at construction and covers the full protocol surface;
// methods without an entry are ignored on receipt.
func New(projection *state.Projection, opts ...Option) *Engine {
	e := &Engine{
		projection: projection,
		log:        logging.Null,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.handlers = map[string]HandlerFunc{
		"init":           e.handleInit,
		"buffer_changed": e.handleBufferChanged,
		"buffer_list":    e.handleBufferList,
		"buffer_select":  e.handleBufferSelect,
		"edit":           e.handleBufferSelect,
		"buffer_delete":  e.handleBufferDelete,
		"error":          e.handleError,
	}

	return e
}

// AttachTransport sets the outbound transport. The engine is
// constructable before the backend exists; Send is a no-op until a
// transport is attached.
func (e *Engine) AttachTransport(w io.Writer) {
	e.out = w
}

// Projection returns the read-only view of the engine's state.
func (e *Engine) Projection() state.View {
	return e.projection
}

// Awaiting reports whether a request is in flight. This is the sole
// signal the command scheduler consults.
func (e *Engine) Awaiting() bool {
	return e.pending != nil
}

// Send allocates the next request id, writes the encoded frame to the
// outbound transport, and occupies the pending slot.
//
// With no transport attached Send is a silent no-op. Send does not
// defend against being called while Awaiting; the scheduler never does
// that.
func (e *Engine) Send(method string, params any) error {
	if e.out == nil {
		return nil
	}

	e.nextID++
	req := rpc.NewRequest(e.nextID, method, params)

	frame, err := req.Encode()
	if err != nil {
		return err
	}

	e.log.Debug("<- %s", frame)

	if _, err := e.out.Write(append(frame, '\n')); err != nil {
		return fmt.Errorf("write request %q: %w", method, err)
	}

	e.pending = &pendingCall{
		id:     e.nextID,
		method: method,
		sentAt: time.Now(),
	}
	e.metrics.RecordRequest(method)

	return nil
}

// Receive parses and dispatches one inbound line.
//
// Malformed frames, stale ids, and handler failures are reported and
// discarded; nothing here ends the session. Notifications never touch
// the pending slot.
func (e *Engine) Receive(line []byte) {
	resp, err := rpc.ParseResponse(line)
	if err != nil {
		e.log.Warn("dropping frame: %v", err)
		e.metrics.RecordMalformed()
		return
	}

	e.log.Debug("-> %s", strings.TrimRight(string(line), "\n"))
	e.metrics.RecordFrame(resp.Kind().String())

	switch resp.Kind() {
	case rpc.KindNotification:
		e.dispatch(resp.Method, resp.Params)

	case rpc.KindSuccess:
		if e.pending == nil || e.pending.id != *resp.ID {
			e.log.Warn("dropping stale success for id %d", *resp.ID)
			e.metrics.RecordStale()
			return
		}
		method := e.pending.method
		e.clearPending()
		e.dispatch(method, resp.Result)

	case rpc.KindError:
		// Error replies are surfaced even when stale; only a matching
		// id clears the slot.
		if e.pending != nil && e.pending.id == *resp.ID {
			e.clearPending()
		}
		payload, err := json.Marshal(resp.Error)
		if err != nil {
			payload = nil
		}
		e.dispatch("error", payload)
	}
}

// clearPending empties the slot and records the round trip.
func (e *Engine) clearPending() {
	e.metrics.RecordRoundTrip(e.pending.method, time.Since(e.pending.sentAt))
	e.pending = nil
}

// dispatch routes a payload to the handler registered for the method.
// Method names normalize separators so "buffer-list" and "buffer_list"
// address the same handler. Unknown methods are ignored; handler
// failures and panics stop at this boundary.
func (e *Engine) dispatch(method string, payload json.RawMessage) {
	key := normalizeMethod(method)

	handler, ok := e.handlers[key]
	if !ok {
		e.log.Debug("no handler for method %q", method)
		return
	}

	if err := e.invoke(handler, payload); err != nil {
		e.log.Error("handler %q: %v", key, err)
		e.metrics.RecordHandlerFailure(key)
	}
}

// invoke runs one handler, converting a panic into an error.
func (e *Engine) invoke(handler HandlerFunc, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(payload)
}

// normalizeMethod maps wire method names onto handler keys.
func normalizeMethod(method string) string {
	return strings.ReplaceAll(method, "-", "_")
}
