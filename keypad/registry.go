package keypad

import "sort"

type heldKey struct {
	source string
	key    string
}

// Registry tracks which keys are physically down, per source. It is owned by
// a Binding and not safe for concurrent use on its own.
type Registry struct {
	held map[heldKey]struct{}
}

func NewRegistry() *Registry {
	return &Registry{held: make(map[heldKey]struct{})}
}

func (r *Registry) Press(source, key string) {
	r.held[heldKey{source, key}] = struct{}{}
}

// Release clears the key and reports whether it was held.
func (r *Registry) Release(source, key string) bool {
	k := heldKey{source, key}
	if _, ok := r.held[k]; !ok {
		return false
	}
	delete(r.held, k)
	return true
}

func (r *Registry) Held(source, key string) bool {
	_, ok := r.held[heldKey{source, key}]
	return ok
}

// ReleaseSource clears every key held by source and returns them sorted.
func (r *Registry) ReleaseSource(source string) []string {
	var keys []string
	for k := range r.held {
		if k.source == source {
			keys = append(keys, k.key)
			delete(r.held, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// HeldKeys returns the distinct held keys across all sources, sorted.
func (r *Registry) HeldKeys() []string {
	seen := make(map[string]struct{})
	for k := range r.held {
		seen[k.key] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Presence counts visible sources. The output device is only needed while at
// least one keypad is on screen.
type Presence struct {
	visible map[string]struct{}
}

func NewPresence() *Presence {
	return &Presence{visible: make(map[string]struct{})}
}

// Set records the visibility of source and returns +1 when the first source
// became visible, -1 when the last one went away, and 0 otherwise.
func (p *Presence) Set(source string, visible bool) int {
	before := len(p.visible)
	if visible {
		p.visible[source] = struct{}{}
	} else {
		delete(p.visible, source)
	}
	after := len(p.visible)
	switch {
	case before == 0 && after > 0:
		return 1
	case before > 0 && after == 0:
		return -1
	}
	return 0
}

func (p *Presence) Visible() int { return len(p.visible) }
