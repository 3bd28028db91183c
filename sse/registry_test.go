package sse

import (
	"errors"
	"sync"
	"testing"
)

// recordSink collects every pushed message, or fails every push when
// sendErr is set.
type recordSink struct {
	mu      sync.Mutex
	msgs    []string
	sendErr error
}

func (s *recordSink) Send(msg string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
	return nil
}

func (s *recordSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.msgs...)
}

func TestRegisterMultiTopic(t *testing.T) {
	r := NewRegistry()
	sink := &recordSink{}
	r.Register("sub-1", sink, []string{"list-1-id", "list-2-id"})

	if got := r.SubscribersFor("list-1-id"); len(got) != 1 {
		t.Fatalf("list-1-id subscribers = %d, want 1", len(got))
	}
	if got := r.SubscribersFor("list-2-id"); len(got) != 1 {
		t.Fatalf("list-2-id subscribers = %d, want 1", len(got))
	}
	if got := r.Topics("sub-1"); len(got) != 2 {
		t.Fatalf("topics = %v, want both lists", got)
	}
}

func TestDeregisterRemovesAllTopics(t *testing.T) {
	r := NewRegistry()
	sink := &recordSink{}
	r.Register("sub-1", sink, []string{"t1", "t2"})
	r.Deregister("sub-1")

	for _, topic := range []string{"t1", "t2"} {
		if got := r.SubscribersFor(topic); len(got) != 0 {
			t.Errorf("SubscribersFor(%q) = %d sinks after deregister, want 0", topic, len(got))
		}
	}
	if got := r.Topics("sub-1"); len(got) != 0 {
		t.Errorf("Topics after deregister = %v, want empty", got)
	}
}

func TestDeregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register("sub-1", &recordSink{}, []string{"t1"})

	// Twice in a row, then an id that never registered. None may panic.
	r.Deregister("sub-1")
	r.Deregister("sub-1")
	r.Deregister("never-registered")

	if got := r.SubscribersFor("t1"); len(got) != 0 {
		t.Fatalf("subscribers = %d, want 0", len(got))
	}
}

func TestSubscribersForUnknownTopic(t *testing.T) {
	r := NewRegistry()
	if got := r.SubscribersFor("nobody-home"); len(got) != 0 {
		t.Fatalf("unknown topic returned %d sinks, want 0", len(got))
	}
}

func TestReregisterOverwritesTopics(t *testing.T) {
	r := NewRegistry()
	sink := &recordSink{}
	r.Register("sub-1", sink, []string{"t1"})
	r.Register("sub-1", sink, []string{"t2"})
	r.Deregister("sub-1")

	// The reverse index pointed at t2 only, but t1 must not keep a
	// stale entry alive either way.
	if got := r.SubscribersFor("t2"); len(got) != 0 {
		t.Errorf("t2 subscribers = %d after deregister, want 0", len(got))
	}
}

func TestDefaultIsProcessWide(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default returned two different registries")
	}
}

func TestConcurrentRegisterDeregister(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			r.Register(id, &recordSink{}, []string{"shared"})
			_ = r.SubscribersFor("shared")
			r.Deregister(id)
		}(i)
	}
	wg.Wait()
	if got := r.SubscribersFor("shared"); len(got) != 0 {
		t.Fatalf("subscribers = %d after all deregistered, want 0", len(got))
	}
}

func TestChanSinkFailsWhenFull(t *testing.T) {
	s := newChanSink(1)
	if err := s.Send("one"); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := s.Send("two"); !errors.Is(err, errSinkFull) {
		t.Fatalf("second send err = %v, want errSinkFull", err)
	}
	s.close()
	if err := s.Send("three"); !errors.Is(err, errSinkClosed) {
		t.Fatalf("send after close err = %v, want errSinkClosed", err)
	}
}
