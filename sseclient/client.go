// Package sseclient maintains a long-lived subscription to a listo event
// stream. It reconnects automatically after transient drops, reports
// connection-status transitions to a Notifier, and hands every pushed
// message to a caller-supplied callback.
package sseclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// State is the connection state of one subscription.
type State int

const (
	Connecting State = iota
	Open
	Reconnecting
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Reconnecting:
		return "reconnecting"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Notifier receives user-visible connection status changes. At most one
// notice is outstanding at a time: every call supersedes the previous
// notice, so implementations retract it before showing the next one.
type Notifier interface {
	// Reconnecting posts the persistent "reconnecting for live updates"
	// notice shown while the client retries a dropped connection.
	Reconnecting()
	// Reconnected posts the transient "reconnected" notice after a drop
	// is recovered.
	Reconnected()
	// ConnectionFailed posts the terminal "unable to connect for live
	// updates" notice. Never called for an intentional stop.
	ConnectionFailed()
}

// Options configure Connect. URL and OnMessage are required.
type Options struct {
	URL        string
	HTTPClient *http.Client
	// OnMessage receives the raw JSON of every pushed event. Errors
	// raised by the callback are the caller's own concern; this client
	// is transport only.
	OnMessage func(data []byte)
	Notifier  Notifier
	Log       *slog.Logger

	// RetryInterval between reconnect attempts. Defaults to 3s.
	RetryInterval time.Duration
	// MaxRetries bounds consecutive failed attempts before giving up;
	// 0 retries indefinitely, matching browser EventSource behavior.
	MaxRetries int
}

type client struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	everOpen bool
	stopped  bool
}

// fatalError marks failures the client will not retry, such as a non-200
// response from the subscription endpoint.
type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Connect opens the subscription and returns immediately; all further
// activity happens on a background goroutine. The returned stop function
// closes the connection without posting a failure notice and is safe to
// call more than once.
func Connect(ctx context.Context, opts Options) (stop func(), err error) {
	if opts.URL == "" {
		return nil, errors.New("sseclient: URL required")
	}
	if opts.OnMessage == nil {
		return nil, errors.New("sseclient: OnMessage required")
	}
	cctx, cancel := context.WithCancel(ctx)
	c := &client{opts: opts, ctx: cctx, cancel: cancel, state: Connecting}
	go c.run()
	return c.stop, nil
}

func (c *client) stop() {
	c.mu.Lock()
	c.stopped = true
	c.state = Closed
	c.mu.Unlock()
	c.cancel()
}

func (c *client) run() {
	retries := 0
	for {
		opened, err := c.stream()
		if opened {
			retries = 0
		}
		if c.ctx.Err() != nil || c.intentional() {
			c.setState(Closed)
			return
		}
		var fatal *fatalError
		if errors.As(err, &fatal) {
			c.fail(err)
			return
		}
		retries++
		if c.opts.MaxRetries > 0 && retries > c.opts.MaxRetries {
			c.fail(err)
			return
		}
		c.reconnecting()
		select {
		case <-c.ctx.Done():
			c.setState(Closed)
			return
		case <-time.After(c.retryInterval()):
		}
	}
}

// stream runs one connection attempt to completion. opened reports
// whether the stream ever became readable; err is why it ended.
func (c *client) stream() (opened bool, err error) {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, c.opts.URL, nil)
	if err != nil {
		return false, &fatalError{err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return false, &fatalError{fmt.Errorf("subscribe: unexpected status %d", resp.StatusCode)}
	}

	c.opened()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				c.opts.OnMessage([]byte(strings.Join(data, "\n")))
				data = data[:0]
			}
		case strings.HasPrefix(line, ":"):
			// heartbeat comment
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// id:/event: fields are not part of this protocol
		}
	}
	if serr := scanner.Err(); serr != nil {
		return true, serr
	}
	// Server closed the stream; treat like any other drop and retry.
	return true, io.ErrUnexpectedEOF
}

func (c *client) opened() {
	c.mu.Lock()
	first := !c.everOpen
	c.everOpen = true
	c.state = Open
	c.mu.Unlock()
	// The very first open is the expected initial connect; only a
	// recovery is worth telling the user about.
	if !first {
		if c.opts.Log != nil {
			c.opts.Log.Info("event stream reconnected", "url", c.opts.URL)
		}
		if c.opts.Notifier != nil {
			c.opts.Notifier.Reconnected()
		}
	}
}

func (c *client) reconnecting() {
	c.mu.Lock()
	already := c.state == Reconnecting
	c.state = Reconnecting
	c.mu.Unlock()
	if already {
		return
	}
	if c.opts.Log != nil {
		c.opts.Log.Warn("event stream dropped, retrying", "url", c.opts.URL)
	}
	if c.opts.Notifier != nil {
		c.opts.Notifier.Reconnecting()
	}
}

func (c *client) fail(err error) {
	c.mu.Lock()
	suppressed := c.stopped
	c.state = Closed
	c.mu.Unlock()
	if c.opts.Log != nil {
		c.opts.Log.Error("event stream closed", "url", c.opts.URL, "err", err)
	}
	if !suppressed && c.opts.Notifier != nil {
		c.opts.Notifier.ConnectionFailed()
	}
}

func (c *client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *client) intentional() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *client) retryInterval() time.Duration {
	if c.opts.RetryInterval > 0 {
		return c.opts.RetryInterval
	}
	return 3 * time.Second
}

func (c *client) httpClient() *http.Client {
	if c.opts.HTTPClient != nil {
		return c.opts.HTTPClient
	}
	return http.DefaultClient
}
