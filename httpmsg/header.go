package httpmsg

import "strings"

type headerField struct {
	Name  string
	Value string
}

// Header is an insertion-ordered, case-insensitively-keyed header map.
// Response serialization (spec §4.4) walks it in iteration order, so a
// plain Go map (unordered) can't stand in for it.
type Header struct {
	items []headerField
}

// Set overwrites the first field matching name case-insensitively, or
// appends a new one at the end if none exists yet.
func (h *Header) Set(name, value string) {
	for i := range h.items {
		if strings.EqualFold(h.items[i].Name, name) {
			h.items[i].Value = value
			return
		}
	}
	h.items = append(h.items, headerField{Name: name, Value: value})
}

// Add appends a field without overwriting an existing one of the same
// name, for headers that legitimately repeat (Set-Cookie).
func (h *Header) Add(name, value string) {
	h.items = append(h.items, headerField{Name: name, Value: value})
}

// Get returns the first value for name, matched case-insensitively.
func (h *Header) Get(name string) (string, bool) {
	for _, f := range h.items {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Del removes every field matching name case-insensitively.
func (h *Header) Del(name string) {
	out := h.items[:0]
	for _, f := range h.items {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	h.items = out
}

// Each iterates fields in insertion order.
func (h *Header) Each(fn func(name, value string)) {
	for _, f := range h.items {
		fn(f.Name, f.Value)
	}
}
