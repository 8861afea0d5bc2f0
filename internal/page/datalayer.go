package page

import "sync"

// DataLayer is the append-only queue tag managers read from.
type DataLayer struct {
	mu      sync.Mutex
	entries []any
}

// Push appends entries in order.
func (d *DataLayer) Push(entries ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, entries...)
}

// Entries returns a copy of everything pushed so far.
func (d *DataLayer) Entries() []any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]any(nil), d.entries...)
}

// Events returns the map entries whose "event" key equals name.
func (d *DataLayer) Events(name string) []map[string]any {
	var out []map[string]any
	for _, e := range d.Entries() {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if m["event"] == name {
			out = append(out, m)
		}
	}
	return out
}
