package scribe

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is a single persistent duplex connection to the transcription
// service.
type Conn interface {
	// Send writes one text frame. Safe for concurrent callers.
	Send(data []byte) error
	// Receive blocks until a frame arrives or the connection closes.
	Receive() ([]byte, error)
	// Close releases the underlying socket. Must be called on every exit
	// path; closing twice is harmless.
	Close(reason string) error
}

// Transport opens duplex connections. Injectable so session tests can run
// against an in-memory implementation.
type Transport interface {
	Open(ctx context.Context, url string, header http.Header) (Conn, error)
}

// wsTransport is the production Transport over gorilla/websocket.
type wsTransport struct {
	dialer *websocket.Dialer
}

func NewWebSocketTransport() Transport {
	return &wsTransport{dialer: websocket.DefaultDialer}
}

func (t *wsTransport) Open(ctx context.Context, url string, header http.Header) (Conn, error) {
	conn, resp, err := t.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			log.Printf("transport: dial failed with status %d", resp.StatusCode)
		}
		return nil, &ConnectError{Err: err}
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn

	mu     sync.Mutex // guards writes and the closed flag
	closed bool
}

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return &TransportError{Err: errConnClosed}
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

func (c *wsConn) Receive() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return data, nil
}

func (c *wsConn) Close(reason string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	// send close frame (best effort), then release the socket
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
	c.mu.Unlock()
	return c.conn.Close()
}

var errConnClosed = &closedError{}

type closedError struct{}

func (*closedError) Error() string { return "connection closed" }
