package scribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer upgrades the request and echoes every text frame back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWebSocketTransportRoundTrip(t *testing.T) {
	server := echoServer(t)
	defer server.Close()

	transport := NewWebSocketTransport()
	conn, err := transport.Open(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer conn.Close("test done")

	if err := conn.Send([]byte(`{"ping":true}`)); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	frame, err := conn.Receive()
	if err != nil {
		t.Fatalf("Receive() error: %v", err)
	}
	if string(frame) != `{"ping":true}` {
		t.Errorf("echoed frame: got %q", frame)
	}
}

func TestWebSocketTransportHeaderForwarded(t *testing.T) {
	upgrader := websocket.Upgrader{}
	gotAuth := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	header := http.Header{}
	header.Set("Authorization", "session-token")

	transport := NewWebSocketTransport()
	conn, err := transport.Open(context.Background(), wsURL(server), header)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer conn.Close("test done")

	select {
	case auth := <-gotAuth:
		if auth != "session-token" {
			t.Errorf("Authorization: got %q, want session-token", auth)
		}
	case <-time.After(time.Second):
		t.Fatal("server never saw the handshake")
	}
}

func TestWebSocketTransportDialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	transport := NewWebSocketTransport()
	_, err := transport.Open(context.Background(), wsURL(server), nil)

	var ce *ConnectError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConnectError, got %v", err)
	}
}

func TestWebSocketConnSendAfterClose(t *testing.T) {
	server := echoServer(t)
	defer server.Close()

	transport := NewWebSocketTransport()
	conn, err := transport.Open(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	if err := conn.Close("done"); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := conn.Close("again"); err != nil {
		t.Errorf("second Close() must be harmless, got %v", err)
	}

	err = conn.Send([]byte("late"))
	var te *TransportError
	if !errors.As(err, &te) {
		t.Errorf("send after close: want TransportError, got %v", err)
	}
}
