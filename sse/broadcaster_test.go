package sse

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unframe(t *testing.T, msg string) map[string]any {
	t.Helper()
	if !strings.HasPrefix(msg, "data: ") || !strings.HasSuffix(msg, "\n\n") {
		t.Fatalf("message %q is not framed as data: <json>\\n\\n", msg)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSuffix(strings.TrimPrefix(msg, "data: "), "\n\n")), &out); err != nil {
		t.Fatalf("unmarshal pushed payload: %v", err)
	}
	return out
}

func TestBroadcastFanOut(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, discardLog())
	sinks := []*recordSink{{}, {}, {}}
	for i, s := range sinks {
		r.Register(string(rune('a'+i)), s, []string{"t"})
	}

	payload := map[string]any{"type": "SetListName", "name": "New name"}
	b.Broadcast("t", payload)

	for i, s := range sinks {
		msgs := s.messages()
		if len(msgs) != 1 {
			t.Fatalf("sink %d got %d pushes, want exactly 1", i, len(msgs))
		}
		got := unframe(t, msgs[0])
		if got["type"] != "SetListName" || got["name"] != "New name" {
			t.Errorf("sink %d payload = %v, want round-tripped original", i, got)
		}
	}
}

func TestBroadcastIsolation(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, discardLog())
	s1 := &recordSink{}
	r.Register("sub-1", s1, []string{"t1"})

	b.Broadcast("t2", map[string]string{"type": "SetListName"})

	if got := s1.messages(); len(got) != 0 {
		t.Fatalf("t1-only subscriber received %d pushes for t2, want 0", len(got))
	}
}

func TestBroadcastPartialFailure(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, discardLog())
	s1 := &recordSink{sendErr: errors.New("connection gone")}
	s2 := &recordSink{}
	r.Register("sub-1", s1, []string{"t"})
	r.Register("sub-2", s2, []string{"t"})

	b.Broadcast("t", map[string]string{"type": "SetListColor", "color": "blue"})

	if got := s2.messages(); len(got) != 1 {
		t.Fatalf("healthy sink got %d pushes, want 1 despite the failing sibling", len(got))
	}
}

func TestBroadcastAfterDeregister(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, discardLog())
	s := &recordSink{}
	r.Register("sub-1", s, []string{"t"})
	r.Deregister("sub-1")

	b.Broadcast("t", map[string]string{"type": "SetHasDueDates"})

	if got := s.messages(); len(got) != 0 {
		t.Fatalf("removed sink got %d pushes, want 0", len(got))
	}
}

func TestBroadcastNoSubscribersIsNoop(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, discardLog())
	// Must not panic or error.
	b.Broadcast("empty", map[string]string{"type": "SetIsAutoOrdered"})
}

func TestBroadcastUnmarshalablePayload(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, discardLog())
	s := &recordSink{}
	r.Register("sub-1", s, []string{"t"})

	b.Broadcast("t", func() {}) // not JSON-serializable

	if got := s.messages(); len(got) != 0 {
		t.Fatalf("sink got %d pushes for a payload that cannot serialize, want 0", len(got))
	}
}
