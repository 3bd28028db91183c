package sse

import (
	"errors"
	"sync/atomic"
)

var (
	errSinkClosed = errors.New("sink closed")
	errSinkFull   = errors.New("subscriber not keeping up")
)

// chanSink bridges the broadcaster to the handler goroutine that owns
// the ResponseWriter. Send never blocks: a full buffer counts as a
// failed push and the message is dropped for this subscriber only.
type chanSink struct {
	ch     chan string
	closed atomic.Bool
}

func newChanSink(buf int) *chanSink { return &chanSink{ch: make(chan string, buf)} }

func (s *chanSink) Send(msg string) error {
	if s.closed.Load() {
		return errSinkClosed
	}
	select {
	case s.ch <- msg:
		return nil
	default:
		return errSinkFull
	}
}

// close marks the sink dead. The channel itself is never closed, so a
// broadcast racing a disconnect fails the Send instead of panicking.
func (s *chanSink) close() { s.closed.Store(true) }
