// Package sse implements the server side of the live-update fan-out
// layer: a process-wide topic registry, a broadcaster that pushes JSON
// change events to subscribers, and an http.Handler serving the
// long-lived event stream.
package sse

import "sync"

// Sink pushes one framed message to a single open connection. Send must
// not block: it returns an error when the remote end is gone or cannot
// keep up.
type Sink interface {
	Send(msg string) error
}

// Registry is the bidirectional topic index: topic -> subscribers and
// subscriber -> topics. It is the only shared mutable state of the
// fan-out layer and is safe for concurrent use by request handlers.
type Registry struct {
	mu     sync.RWMutex
	topics map[string]map[string]Sink
	subs   map[string][]string
}

func NewRegistry() *Registry {
	return &Registry{
		topics: make(map[string]map[string]Sink),
		subs:   make(map[string][]string),
	}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry. Broadcasts must reach
// subscribers registered by any concurrent request handler, so every
// caller in the process shares this one instance.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = NewRegistry() })
	return defaultReg
}

// Register records id under every topic in topics. The id must be fresh
// for the lifetime of the process; a previous reverse entry for the same
// id is overwritten.
func (r *Registry) Register(id string, sink Sink, topics []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range topics {
		m := r.topics[t]
		if m == nil {
			m = make(map[string]Sink)
			r.topics[t] = m
		}
		m[id] = sink
	}
	r.subs[id] = append([]string(nil), topics...)
}

// Deregister removes id from every topic it joined. Unknown or
// already-removed ids are a silent no-op: disconnect callbacks may fire
// twice, or for registrations that never completed.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.subs[id] {
		delete(r.topics[t], id)
	}
	delete(r.subs, id)
}

// SubscribersFor returns a snapshot of the sinks currently subscribed to
// topic. The snapshot stays safe to iterate while other goroutines
// register and deregister. Unknown topics yield an empty slice.
func (r *Registry) SubscribersFor(topic string) []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.topics[topic]
	out := make([]Sink, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out
}

// Topics reports the topics id is currently registered for.
func (r *Registry) Topics(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.subs[id]...)
}
