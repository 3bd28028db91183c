package sse

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// AuthenticateFunc resolves the caller's identity from request
// credentials. It returns an error when the request carries no valid
// identity.
type AuthenticateFunc func(r *http.Request) (identity string, err error)

// AuthorizeFunc reports whether identity may subscribe to topic.
type AuthorizeFunc func(r *http.Request, identity, topic string) bool

// Handler serves event-stream subscriptions: it authenticates the
// caller, authorizes every requested topic, registers a subscriber and
// holds the connection open until the client goes away.
type Handler struct {
	Registry     *Registry
	Authenticate AuthenticateFunc
	Authorize    AuthorizeFunc
	Log          *slog.Logger

	// TopicParam is the repeated query parameter naming requested
	// topics. Defaults to "list".
	TopicParam string
	// Heartbeat is the comment ping interval that keeps the connection
	// alive through proxies. Defaults to 25s.
	Heartbeat time.Duration
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.Authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	param := h.TopicParam
	if param == "" {
		param = "list"
	}
	topics := r.URL.Query()[param]
	if len(topics) == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	// All-or-nothing: one unauthorized topic rejects the whole request.
	// 404 rather than 403 so a membership check never confirms that a
	// list exists.
	for _, t := range topics {
		if !h.Authorize(r, identity, t) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sink := newChanSink(16)
	id := uuid.NewString()
	h.Registry.Register(id, sink, topics)
	defer h.Registry.Deregister(id)
	defer sink.close()

	if h.Log != nil {
		h.Log.Info("subscriber connected", "topics", topics)
	}

	// Initial comment opens the stream cleanly in browsers/proxies.
	_, _ = io.WriteString(w, ": connected\n\n")
	flusher.Flush()

	hb := h.Heartbeat
	if hb <= 0 {
		hb = 25 * time.Second
	}
	ticker := time.NewTicker(hb)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg := <-sink.ch:
			if _, err := io.WriteString(w, msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
