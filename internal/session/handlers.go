package session

import (
	"encoding/json"
	"fmt"

	"github.com/dshills/cedar/internal/rpc"
	"github.com/dshills/cedar/internal/state"
)

// handleInit replaces the entire projection from the snapshot the
// backend pushes when the session opens. Records are applied one by
// one, so a bad record mid-list leaves the earlier ones applied and
// the current pointer unset.
func (e *Engine) handleInit(payload json.RawMessage) error {
	var params struct {
		BufferList    []json.RawMessage `json:"buffer_list"`
		BufferCurrent string            `json:"buffer_current"`
	}
	if err := json.Unmarshal(payload, &params); err != nil {
		return fmt.Errorf("init params: %w", err)
	}

	e.projection.Reset()
	for _, raw := range params.BufferList {
		var buf state.Buffer
		if err := json.Unmarshal(raw, &buf); err != nil {
			return fmt.Errorf("init buffer list: %w", err)
		}
		e.projection.Upsert(buf)
	}
	e.projection.SetCurrent(params.BufferCurrent)
	return nil
}

// handleBufferChanged upserts the single record the notification
// carries and makes it current.
func (e *Engine) handleBufferChanged(payload json.RawMessage) error {
	var buf state.Buffer
	if err := json.Unmarshal(payload, &buf); err != nil {
		return fmt.Errorf("buffer_changed params: %w", err)
	}
	e.projection.Upsert(buf)
	e.projection.SetCurrent(buf.Name)
	return nil
}

// handleBufferList upserts every record in the result list. Buffers
// not mentioned are left untouched, as is the current pointer.
func (e *Engine) handleBufferList(payload json.RawMessage) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(payload, &raws); err != nil {
		return fmt.Errorf("buffer_list result: %w", err)
	}
	for _, raw := range raws {
		var buf state.Buffer
		if err := json.Unmarshal(raw, &buf); err != nil {
			return fmt.Errorf("buffer_list result: %w", err)
		}
		e.projection.Upsert(buf)
	}
	return nil
}

// handleBufferSelect upserts the selected record and makes it current.
// The edit method shares this handler; an edit implies selection of
// the edited buffer.
func (e *Engine) handleBufferSelect(payload json.RawMessage) error {
	var buf state.Buffer
	if err := json.Unmarshal(payload, &buf); err != nil {
		return fmt.Errorf("buffer_select result: %w", err)
	}
	e.projection.Upsert(buf)
	e.projection.SetCurrent(buf.Name)
	return nil
}

// handleBufferDelete removes the deleted buffer from the projection.
// The current pointer is deliberately left alone even when it names
// the deleted buffer: the backend always follows up with a select, and
// until it does the stale pointer is the documented state.
func (e *Engine) handleBufferDelete(payload json.RawMessage) error {
	var result struct {
		BufferDeleted string `json:"buffer_deleted"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return fmt.Errorf("buffer_delete result: %w", err)
	}
	if result.BufferDeleted == "" {
		return fmt.Errorf("buffer_delete result: missing buffer_deleted")
	}
	e.projection.Delete(result.BufferDeleted)
	return nil
}

// handleError surfaces a backend-reported error to the operator. The
// projection is not touched.
func (e *Engine) handleError(payload json.RawMessage) error {
	var rpcErr rpc.RPCError
	if err := json.Unmarshal(payload, &rpcErr); err != nil {
		return fmt.Errorf("error payload: %w", err)
	}
	e.metrics.RecordBackendError()
	e.log.Error("backend error: %s", rpcErr.Error())
	return nil
}
