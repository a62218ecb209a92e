package router

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/rickgao/notify-relay/internal/model"
	"github.com/rickgao/notify-relay/internal/registry"
	"github.com/rickgao/notify-relay/internal/relay"
)

// Stats contains runtime statistics.
type Stats struct {
	MessagesReceived int64
	MessagesRouted   int64
	ParseErrors      int64
	TargetMisses     int64
}

// Router parses raw broker messages and routes them to push connections.
type Router struct {
	logger *slog.Logger
	reg    *registry.Registry

	// Input from the Subscriber
	input <-chan relay.RawMessage

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	mu           sync.RWMutex
	received     int64
	routed       int64
	parseErrors  int64
	targetMisses int64
}

// New creates a Router delivering through reg.
func New(reg *registry.Registry, input <-chan relay.RawMessage, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		logger: logger,
		reg:    reg,
		input:  input,
	}
}

// Start begins routing messages.
func (r *Router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("notification router started")
	return nil
}

// Stop gracefully shuts down the router.
func (r *Router) Stop(ctx context.Context) error {
	r.logger.Info("stopping notification router")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("notification router stopped")
	case <-ctx.Done():
		r.logger.Warn("notification router stop timed out")
	}

	return nil
}

// Stats returns current statistics.
func (r *Router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		MessagesReceived: r.received,
		MessagesRouted:   r.routed,
		ParseErrors:      r.parseErrors,
		TargetMisses:     r.targetMisses,
	}
}

// routeLoop is the main routing goroutine.
func (r *Router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case raw, ok := <-r.input:
			if !ok {
				r.logger.Info("input channel closed")
				return
			}
			r.route(raw)
		}
	}
}

// route parses and delivers a single message. Never mutates persisted state.
func (r *Router) route(raw relay.RawMessage) {
	r.mu.Lock()
	r.received++
	r.mu.Unlock()

	event, ok := decodeEvent(raw.Data)
	if !ok {
		r.logger.Warn("discarding malformed broker message", "channel", raw.Channel)
		r.mu.Lock()
		r.parseErrors++
		r.mu.Unlock()
		return
	}

	payload := event.Payload(raw.Data)

	if event.Targeted() {
		conn, found := r.reg.Lookup(event.UserID)
		if !found {
			// The client may hold its connection on another instance.
			r.logger.Debug("no local connection for target", "client", event.UserID)
			r.mu.Lock()
			r.targetMisses++
			r.mu.Unlock()
			return
		}

		if err := conn.Send(payload); err != nil {
			r.logger.Warn("targeted send failed", "client", event.UserID, "error", err)
			return
		}

		r.logger.Debug("delivered targeted event", "client", event.UserID)
	} else {
		delivered := r.reg.Broadcast(payload)
		r.logger.Debug("broadcast event", "delivered", delivered)
	}

	r.mu.Lock()
	r.routed++
	r.mu.Unlock()
}

// decodeEvent parses a broker message body. Only JSON objects are accepted.
func decodeEvent(data []byte) (model.NotificationEvent, bool) {
	var event model.NotificationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return event, false
	}
	// json "null" unmarshals into the zero struct without error.
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return event, false
	}
	return event, true
}
