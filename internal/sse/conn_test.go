package sse

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a goroutine-safe writer capturing serve output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type nopFlusher struct{}

func (nopFlusher) Flush() {}

func TestConn_ServeWritesFrames(t *testing.T) {
	conn := NewConn("42", Config{QueueSize: 8}, slog.Default())
	buf := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := conn.Send([]byte(`{"msg":"a"}`)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := conn.Send([]byte(`{"msg":"b"}`)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Serve(ctx, buf, nopFlusher{})
	}()

	// Give the serve loop time to drain, then close.
	time.Sleep(20 * time.Millisecond)
	conn.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Serve returned %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after Close")
	}

	want := "data: {\"msg\":\"a\"}\n\ndata: {\"msg\":\"b\"}\n\n"
	if buf.String() != want {
		t.Errorf("frames = %q, want %q", buf.String(), want)
	}
}

func TestConn_SendQueueFull(t *testing.T) {
	conn := NewConn("42", Config{QueueSize: 2}, slog.Default())

	if err := conn.Send([]byte("a")); err != nil {
		t.Fatalf("Send 1 failed: %v", err)
	}
	if err := conn.Send([]byte("b")); err != nil {
		t.Fatalf("Send 2 failed: %v", err)
	}

	err := conn.Send([]byte("c"))
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("Send on full queue = %v, want ErrQueueFull", err)
	}
	if conn.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", conn.Dropped())
	}
}

func TestConn_SendAfterClose(t *testing.T) {
	conn := NewConn("42", Config{QueueSize: 2}, slog.Default())
	conn.Close()

	if err := conn.Send([]byte("a")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}

	// Close is idempotent.
	if err := conn.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestConn_ServeReturnsOnTransportClose(t *testing.T) {
	conn := NewConn("42", Config{QueueSize: 2}, slog.Default())
	buf := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- conn.Serve(ctx, buf, nopFlusher{})
	}()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v, want nil on transport close", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after context cancel")
	}

	// The transport is gone; the connection must look closed to senders.
	if err := conn.Send([]byte("a")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after transport close = %v, want ErrClosed", err)
	}
}

func TestConn_DistinctIDsPerInstance(t *testing.T) {
	a := NewConn("42", DefaultConfig(), slog.Default())
	b := NewConn("42", DefaultConfig(), slog.Default())

	if a.ID() == b.ID() {
		t.Error("two connections for the same client share an ID")
	}
	if a.Client() != "42" {
		t.Errorf("Client() = %q, want %q", a.Client(), "42")
	}
}

func TestConn_Heartbeat(t *testing.T) {
	conn := NewConn("42", Config{QueueSize: 2, HeartbeatInterval: 10 * time.Millisecond}, slog.Default())
	buf := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go conn.Serve(ctx, buf, nopFlusher{})

	time.Sleep(50 * time.Millisecond)
	conn.Close()
	time.Sleep(20 * time.Millisecond)

	if !strings.Contains(buf.String(), ": ping\n\n") {
		t.Errorf("output %q contains no heartbeat frame", buf.String())
	}
}
