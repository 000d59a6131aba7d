package state

// View is the read-only surface of a Projection, held by components
// that must never mutate it.
type View interface {
	// Get returns the named buffer, if present.
	Get(name string) (Buffer, bool)
	// Names returns every buffer name in insertion order.
	Names() []string
	// Current returns the active buffer name, or "" before the first
	// update.
	Current() string
	// Len returns the number of buffers.
	Len() int
}

// Projection mirrors backend buffer state: buffer records keyed by
// name with insertion order preserved, plus the active buffer name.
//
// The correlation engine is the sole writer; all calls happen on the
// single session goroutine, so Projection carries no locks.
type Projection struct {
	order   []string
	buffers map[string]Buffer
	current string
}

// NewProjection creates an empty projection with no current buffer.
func NewProjection() *Projection {
	return &Projection{
		buffers: make(map[string]Buffer),
	}
}

// Upsert inserts or replaces the record under its name. An existing
// name keeps its position in the ordering; a new name appends.
func (p *Projection) Upsert(buf Buffer) {
	if _, ok := p.buffers[buf.Name]; !ok {
		p.order = append(p.order, buf.Name)
	}
	p.buffers[buf.Name] = buf
}

// Delete removes the named buffer. Deleting an absent name is a no-op.
// The current pointer is never touched here, even when it names the
// deleted buffer; the backend always follows a delete with a select.
func (p *Projection) Delete(name string) {
	if _, ok := p.buffers[name]; !ok {
		return
	}
	delete(p.buffers, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// SetCurrent sets the active buffer name.
func (p *Projection) SetCurrent(name string) {
	p.current = name
}

// Reset drops every buffer and the ordering. The current pointer is
// left for the caller to re-establish.
func (p *Projection) Reset() {
	p.order = p.order[:0]
	p.buffers = make(map[string]Buffer)
}

// Get returns the named buffer, if present.
func (p *Projection) Get(name string) (Buffer, bool) {
	buf, ok := p.buffers[name]
	return buf, ok
}

// Names returns every buffer name in insertion order.
func (p *Projection) Names() []string {
	names := make([]string, len(p.order))
	copy(names, p.order)
	return names
}

// Current returns the active buffer name, or "" before the first
// update. The name may be stale between a delete and the next select.
func (p *Projection) Current() string {
	return p.current
}

// Len returns the number of buffers.
func (p *Projection) Len() int {
	return len(p.buffers)
}
