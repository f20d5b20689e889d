package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)
	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishReachesClient(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server)
	waitForClients(t, hub, 1)

	hub.Publish(EventDemandaCriada, map[string]interface{}{"id": 7})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var envelope Envelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Type != EventDemandaCriada {
		t.Errorf("type = %q", envelope.Type)
	}
	if envelope.Timestamp == 0 {
		t.Error("missing timestamp")
	}
	data := envelope.Data.(map[string]interface{})
	if data["id"] != float64(7) {
		t.Errorf("data = %v", data)
	}
}

func TestPublishFansOut(t *testing.T) {
	hub, server := startHub(t)
	first := dial(t, server)
	second := dial(t, server)
	waitForClients(t, hub, 2)

	hub.Publish(EventDemandaRemovida, nil)

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("read: %v", err)
		}
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestPublishWithoutClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	// Must not block or panic with nobody listening.
	hub.Publish(EventDemandaAtualizada, map[string]string{"x": "y"})
	if hub.ClientCount() != 0 {
		t.Errorf("count = %d", hub.ClientCount())
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)
	conn := dial(t, server)
	waitForClients(t, hub, 1)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("count = %d after shutdown", hub.ClientCount())
	}

	// The client connection is closed once its send channel drains.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read to fail after hub shutdown")
	}
}
