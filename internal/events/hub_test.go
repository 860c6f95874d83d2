package events

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func waitClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.Clients(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_SnapshotOnConnect(t *testing.T) {
	h := NewHub(nil, testLogger())
	h.SetSnapshot(func() any { return map[string]string{"view_mode": "EDITOR"} })
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	msg := read(t, conn)
	if msg.Kind != KindSnapshot {
		t.Fatalf("first message kind = %q", msg.Kind)
	}
	payload, ok := msg.Payload.(map[string]any)
	if !ok || payload["view_mode"] != "EDITOR" {
		t.Fatalf("payload = %#v", msg.Payload)
	}
}

func TestHub_PublishReachesEveryClient(t *testing.T) {
	h := NewHub(nil, testLogger())
	srv := httptest.NewServer(h)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitClients(t, h, 2)

	h.Publish("job", map[string]string{"status": "running"})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := read(t, conn)
		if msg.Kind != "job" || msg.At.IsZero() {
			t.Fatalf("message = %+v", msg)
		}
	}
}

func TestHub_ClientLeaving(t *testing.T) {
	h := NewHub(nil, testLogger())
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, h, 1)
	conn.Close()
	waitClients(t, h, 0)

	// Publishing with nobody listening is a no-op.
	h.Publish("job", nil)
}

func TestHub_CloseDisconnects(t *testing.T) {
	h := NewHub(nil, testLogger())
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, h, 1)
	h.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to close")
	}
	if h.Clients() != 0 {
		t.Fatalf("clients = %d", h.Clients())
	}
}

func TestHub_UnencodablePayloadDropped(t *testing.T) {
	h := NewHub(nil, testLogger())
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, h, 1)

	h.Publish("bad", make(chan int))
	h.Publish("good", "ok")

	if msg := read(t, conn); msg.Kind != "good" {
		t.Fatalf("kind = %q", msg.Kind)
	}
}
