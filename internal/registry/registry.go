package registry

import (
	"log/slog"
	"sync"
)

// Conn is a live push connection owned by a registry slot.
type Conn interface {
	// Send enqueues a payload for delivery. Must not block.
	Send(payload []byte) error

	// Close terminates the connection. Must be idempotent.
	Close() error
}

// Registry maps client identities to live push connections. One slot per
// identity: a new registration for an occupied identity replaces the mapping
// and closes the superseded connection.
type Registry struct {
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[string]Conn
}

// New creates an empty Registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		conns:  make(map[string]Conn),
	}
}

// Register stores conn under id, unconditionally overwriting any prior entry.
// A superseded connection is closed so its streaming handle is not leaked.
func (r *Registry) Register(id string, conn Conn) {
	r.mu.Lock()
	prev, existed := r.conns[id]
	r.conns[id] = conn
	total := len(r.conns)
	r.mu.Unlock()

	if existed && prev != conn {
		r.logger.Info("superseding existing connection", "client", id)
		if err := prev.Close(); err != nil {
			r.logger.Warn("failed to close superseded connection", "client", id, "error", err)
		}
	}

	r.logger.Info("client registered", "client", id, "total", total)
}

// Unregister removes the entry for id if present; no-op otherwise.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	_, existed := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()

	if existed {
		r.logger.Info("client unregistered", "client", id)
	}
}

// Release removes the entry for id only if conn is still the registered
// connection. A superseded handler's cleanup must not evict its replacement.
func (r *Registry) Release(id string, conn Conn) {
	r.mu.Lock()
	current, ok := r.conns[id]
	if ok && current == conn {
		delete(r.conns, id)
	} else {
		ok = false
	}
	r.mu.Unlock()

	if ok {
		r.logger.Info("client unregistered", "client", id)
	}
}

// Lookup returns the connection registered under id.
func (r *Registry) Lookup(id string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// Broadcast writes payload to every registered connection. A send failure on
// one connection is logged and does not abort delivery to the rest. Returns
// the number of successful sends.
func (r *Registry) Broadcast(payload []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for id, conn := range r.conns {
		if err := conn.Send(payload); err != nil {
			r.logger.Warn("broadcast send failed", "client", id, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
