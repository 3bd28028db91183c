package sse

import (
	"encoding/json"
	"log/slog"
)

// Broadcaster pushes change events to every subscriber of a topic.
// Delivery is best-effort and in-memory: callers persist the change
// before broadcasting, so a missed notification only delays a refresh.
type Broadcaster struct {
	reg *Registry
	log *slog.Logger
}

func NewBroadcaster(reg *Registry, log *slog.Logger) *Broadcaster {
	return &Broadcaster{reg: reg, log: log}
}

// Broadcast serializes payload once and pushes the framed message to
// every current subscriber of topic. A failed push never aborts delivery
// to the remaining subscribers and never surfaces to the caller; with no
// subscribers it is a complete no-op.
func (b *Broadcaster) Broadcast(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.log.Error("broadcast marshal", "topic", topic, "err", err)
		return
	}
	msg := "data: " + string(data) + "\n\n"
	for _, sink := range b.reg.SubscribersFor(topic) {
		if err := sink.Send(msg); err != nil {
			// Dead or lagging subscriber; its own disconnect signal
			// deregisters it shortly.
			b.log.Debug("broadcast push", "topic", topic, "err", err)
		}
	}
}
