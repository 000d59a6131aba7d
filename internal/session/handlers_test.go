package session

import (
	"reflect"
	"strings"
	"testing"
)

func TestEngine_InitReplacesSnapshot(t *testing.T) {
	eng, _, _ := testEngine(t)

	eng.Receive([]byte(`{"jsonrpc": "2.0", "method": "init", "params": {
		"buffer_list": [{"name": "a.txt", "content": "first"}, {"name": "b.txt"}],
		"buffer_current": "b.txt"}}`))

	if got := eng.Projection().Names(); !reflect.DeepEqual(got, []string{"a.txt", "b.txt"}) {
		t.Errorf("Names() = %v", got)
	}
	if eng.Projection().Current() != "b.txt" {
		t.Errorf("Current() = %q, want b.txt", eng.Projection().Current())
	}
	buf, _ := eng.Projection().Get("a.txt")
	if buf.Content != "first" {
		t.Errorf("a.txt content = %q", buf.Content)
	}

	// A second init drops everything from the first.
	eng.Receive([]byte(`{"jsonrpc": "2.0", "method": "init", "params": {
		"buffer_list": [{"name": "c.txt"}],
		"buffer_current": "c.txt"}}`))

	if got := eng.Projection().Names(); !reflect.DeepEqual(got, []string{"c.txt"}) {
		t.Errorf("Names() after re-init = %v", got)
	}
	if eng.Projection().Current() != "c.txt" {
		t.Errorf("Current() after re-init = %q", eng.Projection().Current())
	}
}

func TestEngine_InitBadRecordAppliesPartially(t *testing.T) {
	eng, _, logs := testEngine(t)

	// The second record has no name; records before it stay applied and
	// the current pointer is never reached.
	eng.Receive([]byte(`{"jsonrpc": "2.0", "method": "init", "params": {
		"buffer_list": [{"name": "good.txt"}, {"content": "nameless"}],
		"buffer_current": "good.txt"}}`))

	if _, ok := eng.Projection().Get("good.txt"); !ok {
		t.Error("record before the bad one was not applied")
	}
	if eng.Projection().Current() != "" {
		t.Errorf("Current() = %q, want unset", eng.Projection().Current())
	}
	if !strings.Contains(logs.String(), `handler "init"`) {
		t.Errorf("missing init failure diagnostic in logs:\n%s", logs.String())
	}
}

func TestEngine_BufferChangedUpsertsAndSelects(t *testing.T) {
	eng, _, _ := testEngine(t)

	eng.Receive([]byte(`{"jsonrpc": "2.0", "method": "buffer_changed", "params": {"name": "a.txt", "content": "v1"}}`))

	buf, ok := eng.Projection().Get("a.txt")
	if !ok {
		t.Fatal("buffer not inserted")
	}
	if buf.Content != "v1" {
		t.Errorf("Content = %q, want v1", buf.Content)
	}
	if eng.Projection().Current() != "a.txt" {
		t.Errorf("Current() = %q, want a.txt", eng.Projection().Current())
	}

	eng.Receive([]byte(`{"jsonrpc": "2.0", "method": "buffer_changed", "params": {"name": "a.txt", "content": "v2"}}`))

	buf, _ = eng.Projection().Get("a.txt")
	if buf.Content != "v2" {
		t.Errorf("Content = %q, want v2", buf.Content)
	}
	if eng.Projection().Len() != 1 {
		t.Errorf("Len() = %d, want 1", eng.Projection().Len())
	}
}

func TestEngine_BufferListMergesWithoutSelecting(t *testing.T) {
	eng, _, _ := testEngine(t)

	eng.Receive([]byte(`{"jsonrpc": "2.0", "method": "buffer_changed", "params": {"name": "a.txt"}}`))

	if err := eng.Send("buffer-list", nil); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	eng.Receive([]byte(`{"jsonrpc": "2.0", "id": 1, "result": [{"name": "a.txt", "content": "filled"}, {"name": "b.txt"}]}`))

	if got := eng.Projection().Names(); !reflect.DeepEqual(got, []string{"a.txt", "b.txt"}) {
		t.Errorf("Names() = %v", got)
	}
	buf, _ := eng.Projection().Get("a.txt")
	if buf.Content != "filled" {
		t.Errorf("a.txt content = %q, want filled", buf.Content)
	}
	// Listing never moves the current pointer.
	if eng.Projection().Current() != "a.txt" {
		t.Errorf("Current() = %q, want a.txt", eng.Projection().Current())
	}
}

func TestEngine_BufferSelectReplySetsCurrent(t *testing.T) {
	eng, _, _ := testEngine(t)

	if err := eng.Send("buffer-select", "b.txt"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	eng.Receive([]byte(`{"jsonrpc": "2.0", "id": 1, "result": {"name": "b.txt", "content": "selected"}}`))

	if eng.Projection().Current() != "b.txt" {
		t.Errorf("Current() = %q, want b.txt", eng.Projection().Current())
	}
	buf, _ := eng.Projection().Get("b.txt")
	if buf.Content != "selected" {
		t.Errorf("Content = %q", buf.Content)
	}
}

func TestEngine_EditReplySharesSelectBehavior(t *testing.T) {
	eng, _, _ := testEngine(t)

	if err := eng.Send("edit", "new.txt"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	eng.Receive([]byte(`{"jsonrpc": "2.0", "id": 1, "result": {"name": "new.txt", "content": ""}}`))

	if _, ok := eng.Projection().Get("new.txt"); !ok {
		t.Error("edited buffer not inserted")
	}
	if eng.Projection().Current() != "new.txt" {
		t.Errorf("Current() = %q, want new.txt", eng.Projection().Current())
	}
}

func TestEngine_BufferDeleteRemovesAndLeavesCurrentStale(t *testing.T) {
	eng, _, _ := testEngine(t)

	eng.Receive([]byte(`{"jsonrpc": "2.0", "method": "init", "params": {
		"buffer_list": [{"name": "a.txt"}, {"name": "b.txt"}],
		"buffer_current": "a.txt"}}`))

	if err := eng.Send("buffer-delete", "a.txt"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	eng.Receive([]byte(`{"jsonrpc": "2.0", "id": 1, "result": {"buffer_deleted": "a.txt"}}`))

	if got := eng.Projection().Names(); !reflect.DeepEqual(got, []string{"b.txt"}) {
		t.Errorf("Names() = %v, want [b.txt]", got)
	}
	// Stale on purpose until the backend's follow-up select lands.
	if eng.Projection().Current() != "a.txt" {
		t.Errorf("Current() = %q, want stale a.txt", eng.Projection().Current())
	}
}

func TestEngine_ErrorHandlerReportsBackendError(t *testing.T) {
	eng, _, logs := testEngine(t)

	if err := eng.Send("edit", "locked.txt"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	eng.Receive([]byte(`{"jsonrpc": "2.0", "id": 1, "error": {"code": -32602, "message": "cannot open locked.txt"}}`))

	if eng.Projection().Len() != 0 {
		t.Error("error reply mutated the projection")
	}
	if !strings.Contains(logs.String(), "cannot open locked.txt") {
		t.Errorf("missing backend error message in logs:\n%s", logs.String())
	}
}
