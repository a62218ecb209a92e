package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrQueueFull = errors.New("outbound queue full")
	ErrClosed    = errors.New("connection closed")
)

// Config holds per-connection push settings.
type Config struct {
	// QueueSize bounds the outbound queue. Default: 64
	QueueSize int

	// HeartbeatInterval is the gap between keepalive comment frames.
	// Zero disables heartbeats.
	HeartbeatInterval time.Duration
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		QueueSize:         64,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Conn is one client's push connection. The registry slot for the client
// identity owns it while registered; the serve loop owns the underlying
// response writer.
type Conn struct {
	id     string
	client string
	cfg    Config
	logger *slog.Logger

	out  chan []byte
	done chan struct{}

	closeOnce sync.Once
	dropped   atomic.Int64
}

// NewConn creates a connection for the given client identity.
func NewConn(client string, cfg Config, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}

	id := uuid.NewString()
	return &Conn{
		id:     id,
		client: client,
		cfg:    cfg,
		logger: logger.With("client", client, "conn_id", id),
		out:    make(chan []byte, cfg.QueueSize),
		done:   make(chan struct{}),
	}
}

// ID is the unique identifier of this connection instance. Two connections
// for the same client identity have distinct IDs.
func (c *Conn) ID() string {
	return c.id
}

// Client returns the client identity this connection pushes to.
func (c *Conn) Client() string {
	return c.client
}

// Send enqueues a payload for delivery. It never blocks: a full queue drops
// the payload and returns ErrQueueFull; a closed connection returns ErrClosed.
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.out <- payload:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		c.dropped.Add(1)
		c.logger.Warn("outbound queue full, dropping payload", "dropped", c.dropped.Load())
		return ErrQueueFull
	}
}

// Close terminates the connection. Idempotent; the serve loop returns once it
// observes the close.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// Done is closed when the connection has been closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Dropped returns the number of payloads dropped on a full queue.
func (c *Conn) Dropped() int64 {
	return c.dropped.Load()
}

// Serve drains the outbound queue into w as SSE frames until the transport
// context is cancelled or the connection is closed. Returns ErrClosed when
// terminated by Close (e.g. superseded by a newer connection), nil when the
// client went away, or the write error that ended the stream.
func (c *Conn) Serve(ctx context.Context, w io.Writer, flusher http.Flusher) error {
	var heartbeat <-chan time.Time
	if c.cfg.HeartbeatInterval > 0 {
		ticker := time.NewTicker(c.cfg.HeartbeatInterval)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			c.Close()
			return nil

		case <-c.done:
			// Flush anything already queued before giving up the stream.
			for {
				select {
				case payload := <-c.out:
					if err := writeFrame(w, payload); err != nil {
						return ErrClosed
					}
				default:
					flusher.Flush()
					return ErrClosed
				}
			}

		case payload := <-c.out:
			if err := writeFrame(w, payload); err != nil {
				c.logger.Warn("push write failed", "error", err)
				c.Close()
				return err
			}
			flusher.Flush()

		case <-heartbeat:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				c.logger.Debug("heartbeat write failed", "error", err)
				c.Close()
				return err
			}
			flusher.Flush()
		}
	}
}

// writeFrame writes one SSE data frame.
func writeFrame(w io.Writer, payload []byte) error {
	_, err := fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
