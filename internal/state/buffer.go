// Package state holds the client-side projection of backend buffer
// state: the insertion-ordered buffer mapping and the active buffer.
package state

import (
	"encoding/json"
	"fmt"
)

// Buffer is one backend buffer mirrored client-side. Name keys the
// projection, Content is opaque text, and Meta passes any additional
// wire fields through unmodified.
type Buffer struct {
	Name    string
	Content string
	Meta    map[string]json.RawMessage
}

// UnmarshalJSON decodes the flat wire object. The name field is
// required; content defaults to empty; every other field lands in Meta.
func (b *Buffer) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode buffer: %w", err)
	}

	raw, ok := fields["name"]
	if !ok {
		return fmt.Errorf("decode buffer: missing name field")
	}
	if err := json.Unmarshal(raw, &b.Name); err != nil {
		return fmt.Errorf("decode buffer name: %w", err)
	}
	if b.Name == "" {
		return fmt.Errorf("decode buffer: empty name")
	}
	delete(fields, "name")

	b.Content = ""
	if raw, ok := fields["content"]; ok {
		if err := json.Unmarshal(raw, &b.Content); err != nil {
			return fmt.Errorf("decode buffer content: %w", err)
		}
		delete(fields, "content")
	}

	b.Meta = nil
	if len(fields) > 0 {
		b.Meta = fields
	}
	return nil
}

// MarshalJSON re-emits the flat wire object, Meta fields included.
func (b Buffer) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(b.Meta)+2)
	for k, v := range b.Meta {
		fields[k] = v
	}

	name, err := json.Marshal(b.Name)
	if err != nil {
		return nil, err
	}
	fields["name"] = name

	content, err := json.Marshal(b.Content)
	if err != nil {
		return nil, err
	}
	fields["content"] = content

	return json.Marshal(fields)
}
