package sse

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestHandler(reg *Registry, authorized map[string]bool) *Handler {
	return &Handler{
		Registry: reg,
		Log:      discardLog(),
		Authenticate: func(r *http.Request) (string, error) {
			if r.Header.Get("X-Test-User") == "" {
				return "", errors.New("no identity")
			}
			return r.Header.Get("X-Test-User"), nil
		},
		Authorize: func(r *http.Request, identity, topic string) bool {
			return authorized[identity+"/"+topic]
		},
		Heartbeat: time.Hour,
	}
}

func TestHandlerUnauthenticated(t *testing.T) {
	reg := NewRegistry()
	h := newTestHandler(reg, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events?list=t1", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := reg.SubscribersFor("t1"); len(got) != 0 {
		t.Fatalf("registry has %d entries after rejected request, want 0", len(got))
	}
}

func TestHandlerUnauthorizedTopic(t *testing.T) {
	reg := NewRegistry()
	h := newTestHandler(reg, map[string]bool{"u1/t1": true})
	req := httptest.NewRequest(http.MethodGet, "/api/events?list=t2", nil)
	req.Header.Set("X-Test-User", "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := reg.SubscribersFor("t2"); len(got) != 0 {
		t.Fatalf("registry has %d entries for the rejected topic, want 0", len(got))
	}
}

func TestHandlerAllOrNothing(t *testing.T) {
	reg := NewRegistry()
	h := newTestHandler(reg, map[string]bool{"u1/t1": true}) // t2 denied
	req := httptest.NewRequest(http.MethodGet, "/api/events?list=t1&list=t2", nil)
	req.Header.Set("X-Test-User", "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	// No partial registration for the authorized topic either.
	if got := reg.SubscribersFor("t1"); len(got) != 0 {
		t.Fatalf("registry registered the authorized subset anyway: %d entries", len(got))
	}
}

func TestHandlerNoTopics(t *testing.T) {
	reg := NewRegistry()
	h := newTestHandler(reg, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("X-Test-User", "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// waitEmpty polls until the topic has no subscribers or the deadline
// passes; deregistration runs after the handler goroutine unwinds.
func waitEmpty(t *testing.T, reg *Registry, topic string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(reg.SubscribersFor(topic)) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("topic %q still has subscribers", topic)
}

func TestHandlerStreamAndCleanup(t *testing.T) {
	reg := NewRegistry()
	h := newTestHandler(reg, map[string]bool{"u1/list-1-id": true, "u1/list-2-id": true})
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?list=list-1-id&list=list-2-id", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Test-User", "u1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("Cache-Control = %q, want no-cache", cc)
	}

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(line, ":") {
		t.Fatalf("first line = %q, want opening comment", line)
	}

	// One subscriber under both topics.
	if len(reg.SubscribersFor("list-1-id")) != 1 || len(reg.SubscribersFor("list-2-id")) != 1 {
		t.Fatal("subscriber not registered under both requested topics")
	}

	b := NewBroadcaster(reg, discardLog())
	b.Broadcast("list-1-id", map[string]string{"type": "SetListName", "name": "New name"})

	// Skip the blank line after the opening comment, then read the frame.
	var data string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatal(err)
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimSuffix(strings.TrimPrefix(line, "data: "), "\n")
			break
		}
	}
	if !strings.Contains(data, `"name":"New name"`) {
		t.Fatalf("pushed frame = %q, want SetListName payload", data)
	}

	// Client abort is the only unsubscribe mechanism.
	cancel()
	waitEmpty(t, reg, "list-1-id")
	waitEmpty(t, reg, "list-2-id")
}
