package registry

import (
	"errors"
	"log/slog"
	"testing"
)

// fakeConn records sends and closes for assertions.
type fakeConn struct {
	sent    [][]byte
	sendErr error
	closed  bool
}

func (f *fakeConn) Send(payload []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestRegistry_RegisterLookup(t *testing.T) {
	r := New(slog.Default())
	conn := &fakeConn{}

	r.Register("42", conn)

	got, ok := r.Lookup("42")
	if !ok {
		t.Fatal("Lookup(42) not found after Register")
	}
	if got != conn {
		t.Error("Lookup(42) returned a different connection")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_RegisterOverwritesAndClosesPrior(t *testing.T) {
	r := New(slog.Default())
	first := &fakeConn{}
	second := &fakeConn{}

	r.Register("42", first)
	r.Register("42", second)

	got, ok := r.Lookup("42")
	if !ok || got != second {
		t.Error("Lookup(42) should return the replacement connection")
	}
	if !first.closed {
		t.Error("superseded connection was not closed")
	}
	if second.closed {
		t.Error("replacement connection must not be closed")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := New(slog.Default())
	r.Register("42", &fakeConn{})

	r.Unregister("42")
	if _, ok := r.Lookup("42"); ok {
		t.Error("Lookup(42) found after Unregister")
	}

	// Unregister of an absent id is a no-op.
	r.Unregister("missing")
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistry_ReleaseOnlyRemovesOwnConn(t *testing.T) {
	r := New(slog.Default())
	old := &fakeConn{}
	replacement := &fakeConn{}

	r.Register("42", old)
	r.Register("42", replacement)

	// The superseded handler's cleanup runs after the replacement registered.
	r.Release("42", old)

	got, ok := r.Lookup("42")
	if !ok || got != replacement {
		t.Error("Release by superseded connection evicted the replacement")
	}

	r.Release("42", replacement)
	if _, ok := r.Lookup("42"); ok {
		t.Error("Lookup(42) found after owner Release")
	}
}

func TestRegistry_BroadcastFailureIsolation(t *testing.T) {
	r := New(slog.Default())
	good1 := &fakeConn{}
	bad := &fakeConn{sendErr: errors.New("write: broken pipe")}
	good2 := &fakeConn{}

	r.Register("1", good1)
	r.Register("2", bad)
	r.Register("3", good2)

	payload := []byte(`{"msg":"hi"}`)
	delivered := r.Broadcast(payload)

	if delivered != 2 {
		t.Errorf("Broadcast delivered = %d, want 2", delivered)
	}
	for name, conn := range map[string]*fakeConn{"good1": good1, "good2": good2} {
		if len(conn.sent) != 1 {
			t.Errorf("%s received %d payloads, want 1", name, len(conn.sent))
			continue
		}
		if string(conn.sent[0]) != string(payload) {
			t.Errorf("%s received %s, want %s", name, conn.sent[0], payload)
		}
	}
}

func TestRegistry_BroadcastEmpty(t *testing.T) {
	r := New(slog.Default())
	if delivered := r.Broadcast([]byte("x")); delivered != 0 {
		t.Errorf("Broadcast on empty registry = %d, want 0", delivered)
	}
}
