package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

// fakeConn records writes and blocks reads until closed.
type fakeConn struct {
	mu     sync.Mutex
	writes []Message
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) SetReadLimit(int64)                   {}
func (f *fakeConn) SetReadDeadline(time.Time) error      { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error     { return nil }
func (f *fakeConn) SetPongHandler(func(string) error)    {}
func (f *fakeConn) Close() error                         { f.once.Do(func() { close(f.closed) }); return nil }
func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch messageType {
	case websocket.TextMessage:
		f.writes = append(f.writes, NewJSONMessage(data))
	case websocket.BinaryMessage:
		f.writes = append(f.writes, NewBinaryMessage(data))
	}
	return nil
}

func (f *fakeConn) Writes() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.writes...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	waitFor(t, "hub running", h.IsRunning)
	return h, cancel
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h, cancel := startHub(t)
	defer cancel()

	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	for _, conn := range conns {
		go NewClient(h, conn).Run()
	}
	waitFor(t, "two clients", func() bool { return h.ClientCount() == 2 })

	if err := h.BroadcastJSON(map[string]bool{"webcam_started": true}); err != nil {
		t.Fatalf("BroadcastJSON failed: %v", err)
	}
	h.BroadcastBinary([]byte{0xff, 0xd8})

	for i, conn := range conns {
		waitFor(t, "two writes", func() bool { return len(conn.Writes()) == 2 })
		w := conn.Writes()
		if w[0].Type != JSONMessage || string(w[0].Data) != `{"webcam_started":true}` {
			t.Errorf("client %d: unexpected first message %+v", i, w[0])
		}
		if w[1].Type != BinaryMessage {
			t.Errorf("client %d: expected binary second message", i)
		}
	}
}

func TestHub_InitialMessageFirst(t *testing.T) {
	h, cancel := startHub(t)
	defer cancel()

	conn := newFakeConn()
	go NewClient(h, conn, NewJSONMessage([]byte(`"hello"`))).Run()
	waitFor(t, "client", func() bool { return h.ClientCount() == 1 })

	h.BroadcastJSON("later")

	waitFor(t, "two writes", func() bool { return len(conn.Writes()) == 2 })
	if got := string(conn.Writes()[0].Data); got != `"hello"` {
		t.Errorf("Expected initial message first, got %s", got)
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	h, cancel := startHub(t)
	defer cancel()

	conn := newFakeConn()
	go NewClient(h, conn).Run()
	waitFor(t, "client", func() bool { return h.ClientCount() == 1 })

	conn.Close()
	waitFor(t, "unregister", func() bool { return h.ClientCount() == 0 })
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	h, cancel := startHub(t)

	conn := newFakeConn()
	go NewClient(h, conn).Run()
	waitFor(t, "client", func() bool { return h.ClientCount() == 1 })

	cancel()
	<-h.Done()

	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Client connection not closed on hub stop")
	}
	if h.IsRunning() {
		t.Error("Hub should report stopped")
	}

	// joining a stopped hub returns immediately
	late := newFakeConn()
	NewClient(h, late).Run()
	h.Broadcast(NewJSONMessage([]byte("{}")))
}
