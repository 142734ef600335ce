package scribe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/scribeflow/scribeflow/internal/provider"
)

// in-memory transport stubs for session tests

type stubConn struct {
	mu       sync.Mutex
	incoming chan []byte
	sent     [][]byte
	closes   int
	closed   bool
}

func newStubConn() *stubConn {
	return &stubConn{incoming: make(chan []byte, 16)}
}

func (c *stubConn) push(frame string) {
	c.incoming <- []byte(frame)
}

// fail simulates a mid-session socket failure
func (c *stubConn) fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.incoming)
	}
}

func (c *stubConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return &TransportError{Err: errors.New("send on closed conn")}
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.sent = append(c.sent, cp)
	return nil
}

func (c *stubConn) Receive() ([]byte, error) {
	frame, ok := <-c.incoming
	if !ok {
		return nil, &TransportError{Err: errors.New("conn closed")}
	}
	return frame, nil
}

func (c *stubConn) Close(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	if !c.closed {
		c.closed = true
		close(c.incoming)
	}
	return nil
}

func (c *stubConn) sentFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *stubConn) closeCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

type stubTransport struct {
	mu        sync.Mutex
	conns     []*stubConn
	urls      []string
	headers   []http.Header
	failAfter int // opens fail once this many connections were handed out
}

func (t *stubTransport) Open(ctx context.Context, rawURL string, header http.Header) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failAfter > 0 && len(t.conns) >= t.failAfter {
		return nil, &ConnectError{Err: errors.New("dial refused")}
	}
	conn := newStubConn()
	t.conns = append(t.conns, conn)
	t.urls = append(t.urls, rawURL)
	t.headers = append(t.headers, header)
	return conn, nil
}

func (t *stubTransport) opened() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

func (t *stubTransport) conn(i int) *stubConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[i]
}

type stubTokens struct {
	mu    sync.Mutex
	token string
	err   error
	calls int
}

func (s *stubTokens) GetToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if s.token == "" {
		return "test-token", nil
	}
	return s.token, nil
}

func testEndpoint() *provider.EndpointConfig {
	return &provider.EndpointConfig{BaseURL: "wss://example.test", Path: "/v1/speech-to-text/realtime"}
}

func newTestSession(transport Transport, tokens TokenSource) (*Session, chan Event) {
	events := make(chan Event, 100)
	s := NewSession(transport, tokens, testEndpoint(), events)
	return s, events
}

func waitEvent(t *testing.T, events <-chan Event, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(timeout):
		t.Fatal("timeout waiting for event")
		return Event{}
	}
}

func waitState(t *testing.T, s *Session, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state: got %s, want %s", s.State(), want)
}

func TestSessionConnect(t *testing.T) {
	transport := &stubTransport{}
	s, events := newTestSession(transport, &stubTokens{})

	if err := s.Connect(context.Background(), "scribe_v2_realtime", "en"); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer s.Disconnect()

	if s.State() != StateActive {
		t.Errorf("state: got %s, want active", s.State())
	}

	// session started only once the server confirms it
	select {
	case ev := <-events:
		t.Fatalf("unexpected event before server confirmation: %v", ev)
	case <-time.After(20 * time.Millisecond):
	}

	transport.conn(0).push(`{"message_type":"session_started","session_id":"s1"}`)
	ev := waitEvent(t, events, time.Second)
	if ev.Kind != EventSessionStarted {
		t.Errorf("kind: got %v, want session started", ev.Kind)
	}
}

func TestSessionConnectURLAndAuth(t *testing.T) {
	transport := &stubTransport{}
	s, _ := newTestSession(transport, &stubTokens{token: "tok-123"})

	if err := s.Connect(context.Background(), "scribe_v2_realtime", "it"); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer s.Disconnect()

	u, err := url.Parse(transport.urls[0])
	if err != nil {
		t.Fatalf("parse dialed url: %v", err)
	}
	q := u.Query()
	if q.Get("model_id") != "scribe_v2_realtime" {
		t.Errorf("model_id: got %q", q.Get("model_id"))
	}
	if q.Get("language_code") != "it" {
		t.Errorf("language_code: got %q", q.Get("language_code"))
	}
	if q.Get("commit_strategy") != "vad" {
		t.Errorf("commit_strategy: got %q", q.Get("commit_strategy"))
	}
	if got := transport.headers[0].Get("Authorization"); got != "tok-123" {
		t.Errorf("Authorization header: got %q, want tok-123", got)
	}
}

func TestSessionConnectTokenFailure(t *testing.T) {
	transport := &stubTransport{}
	s, _ := newTestSession(transport, &stubTokens{err: errors.New("key rejected")})

	err := s.Connect(context.Background(), "scribe_v2_realtime", "")
	var ce *ConnectError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConnectError, got %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("state after failed connect: got %s, want idle", s.State())
	}
	if transport.opened() != 0 {
		t.Errorf("transport should not have been opened, got %d opens", transport.opened())
	}
}

func TestSessionConnectTransportFailure(t *testing.T) {
	s, _ := newTestSession(alwaysFailTransport{}, &stubTokens{})

	err := s.Connect(context.Background(), "scribe_v2_realtime", "")
	var ce *ConnectError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConnectError, got %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("state after failed connect: got %s, want idle", s.State())
	}
}

type alwaysFailTransport struct{}

func (alwaysFailTransport) Open(ctx context.Context, url string, header http.Header) (Conn, error) {
	return nil, &ConnectError{Err: errors.New("dial refused")}
}

func TestSessionSendAudioChunkWhenNotActive(t *testing.T) {
	s, _ := newTestSession(&stubTransport{}, &stubTokens{})

	// must not panic, raise or send anything
	s.SendAudioChunk([]byte{0x01, 0x02}, 16000)

	if s.State() != StateIdle {
		t.Errorf("state: got %s, want idle", s.State())
	}
}

func TestSessionSendAndCommit(t *testing.T) {
	transport := &stubTransport{}
	s, _ := newTestSession(transport, &stubTokens{})

	if err := s.Connect(context.Background(), "scribe_v2_realtime", ""); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer s.Disconnect()

	s.SendAudioChunk([]byte{0x01, 0x02}, 16000)
	if err := s.CommitAudio(); err != nil {
		t.Fatalf("CommitAudio() error: %v", err)
	}

	frames := transport.conn(0).sentFrames()
	if len(frames) != 2 {
		t.Fatalf("sent frames: got %d, want 2", len(frames))
	}

	var chunk struct {
		MessageType string `json:"message_type"`
		AudioBase64 string `json:"audio_base_64"`
		Commit      bool   `json:"commit"`
		SampleRate  int    `json:"sample_rate"`
	}
	if err := json.Unmarshal(frames[0], &chunk); err != nil {
		t.Fatalf("unmarshal audio frame: %v", err)
	}
	if chunk.Commit || chunk.AudioBase64 == "" || chunk.SampleRate != 16000 {
		t.Errorf("audio frame: %+v", chunk)
	}

	if err := json.Unmarshal(frames[1], &chunk); err != nil {
		t.Fatalf("unmarshal commit frame: %v", err)
	}
	if !chunk.Commit || chunk.AudioBase64 != "" {
		t.Errorf("commit frame: %+v", chunk)
	}
}

func TestSessionMalformedFrameDoesNotKillLoop(t *testing.T) {
	transport := &stubTransport{}
	s, events := newTestSession(transport, &stubTokens{})

	if err := s.Connect(context.Background(), "scribe_v2_realtime", ""); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer s.Disconnect()

	transport.conn(0).push("this is not json")
	transport.conn(0).push(`{"message_type":"partial_transcript","result":{"transcript":"still alive"}}`)

	ev := waitEvent(t, events, time.Second)
	if ev.Kind != EventPartial || ev.Text != "still alive" {
		t.Errorf("event after malformed frame: %+v", ev)
	}
	if s.State() != StateActive {
		t.Errorf("state: got %s, want active", s.State())
	}
}

func TestSessionReconnectExhaustion(t *testing.T) {
	transport := &stubTransport{failAfter: 1} // first dial succeeds, all redials fail
	tokens := &stubTokens{}
	s, events := newTestSession(transport, tokens)
	s.SetRetryPolicy(3, []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond})

	if err := s.Connect(context.Background(), "scribe_v2_realtime", ""); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	transport.conn(0).fail()

	ev := waitEvent(t, events, time.Second)
	if ev.Kind != EventError {
		t.Fatalf("want terminal error event, got %+v", ev)
	}
	var te *TransportError
	if !errors.As(ev.Err, &te) {
		t.Errorf("terminal error should be a TransportError, got %v", ev.Err)
	}

	waitState(t, s, StateClosed, time.Second)

	// initial connect + one token exchange per reconnect attempt
	tokens.mu.Lock()
	calls := tokens.calls
	tokens.mu.Unlock()
	if calls != 4 {
		t.Errorf("token calls: got %d, want 4 (connect + 3 reconnects)", calls)
	}

	// exactly one terminal error, nothing after close
	select {
	case extra := <-events:
		t.Errorf("unexpected event after terminal error: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionDisconnectDuringReconnectEmitsNoError(t *testing.T) {
	transport := &stubTransport{failAfter: 1} // redials never succeed
	s, events := newTestSession(transport, &stubTokens{})
	s.SetRetryPolicy(3, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond, 200 * time.Millisecond})

	if err := s.Connect(context.Background(), "scribe_v2_realtime", ""); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	transport.conn(0).fail()
	time.Sleep(20 * time.Millisecond) // land inside the first backoff sleep
	s.Disconnect()

	// a deliberate disconnect is not a connection loss: no terminal error
	select {
	case ev := <-events:
		t.Fatalf("unexpected event after Disconnect: kind=%v err=%v", ev.Kind, ev.Err)
	case <-time.After(300 * time.Millisecond):
	}
	if s.State() != StateClosed {
		t.Errorf("state: got %s, want closed", s.State())
	}
}

func TestSessionReconnectRecovers(t *testing.T) {
	transport := &stubTransport{}
	s, events := newTestSession(transport, &stubTokens{})
	s.SetRetryPolicy(3, []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond})

	if err := s.Connect(context.Background(), "scribe_v2_realtime", ""); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer s.Disconnect()

	transport.conn(0).fail()

	waitState(t, s, StateActive, time.Second)
	if transport.opened() != 2 {
		t.Fatalf("opened conns: got %d, want 2", transport.opened())
	}

	transport.conn(1).push(`{"message_type":"committed_transcript","result":{"transcript":"back"}}`)
	ev := waitEvent(t, events, time.Second)
	if ev.Kind != EventCommitted || ev.Text != "back" {
		t.Errorf("event after reconnect: %+v", ev)
	}
}

func TestSessionFatalServerErrorClosesSession(t *testing.T) {
	transport := &stubTransport{}
	s, events := newTestSession(transport, &stubTokens{})

	if err := s.Connect(context.Background(), "scribe_v2_realtime", ""); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	transport.conn(0).push(`{"message_type":"quota_exceeded_error"}`)

	ev := waitEvent(t, events, time.Second)
	if ev.Kind != EventError || !IsFatalServerError(ev.Err) {
		t.Fatalf("want fatal server error event, got %+v", ev)
	}
	waitState(t, s, StateClosed, time.Second)
}

func TestSessionDisconnectIdempotent(t *testing.T) {
	transport := &stubTransport{}
	s, _ := newTestSession(transport, &stubTokens{})

	if err := s.Connect(context.Background(), "scribe_v2_realtime", ""); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	s.Disconnect()
	s.Disconnect()

	if s.State() != StateClosed {
		t.Errorf("state: got %s, want closed", s.State())
	}
	if calls := transport.conn(0).closeCalls(); calls != 1 {
		t.Errorf("close calls: got %d, want 1", calls)
	}
}

func TestSessionDefaultRetryPolicy(t *testing.T) {
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	if len(defaultRetryDelays) != len(want) {
		t.Fatalf("delays: got %v, want %v", defaultRetryDelays, want)
	}
	for i := range want {
		if defaultRetryDelays[i] != want[i] {
			t.Errorf("delay %d: got %v, want %v", i, defaultRetryDelays[i], want[i])
		}
	}
	if defaultMaxReconnectAttempts != 3 {
		t.Errorf("max attempts: got %d, want 3", defaultMaxReconnectAttempts)
	}
}
