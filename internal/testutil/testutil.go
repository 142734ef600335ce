// Package testutil holds shared mocks and helpers for package tests.
package testutil

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/provider"
	"github.com/scribeflow/scribeflow/internal/recording"
	"github.com/scribeflow/scribeflow/internal/scribe"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	return &config.Config{
		Recording: config.RecordingConfig{
			SampleRate:        16000,
			Device:            "",
			BufferSize:        4096,
			ChannelBufferSize: 30,
			Timeout:           5 * time.Minute,
		},
		Transcription: config.TranscriptionConfig{
			Provider:    provider.ProviderElevenLabs,
			Model:       "scribe_v2_realtime",
			Language:    "",
			CommitGrace: 500 * time.Millisecond,
		},
		Providers: map[string]config.ProviderConfig{
			provider.ProviderElevenLabs: {APIKey: "test-api-key"},
		},
		Notifications: config.NotificationsConfig{
			Enabled: true,
			Type:    "log",
		},
	}
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// MockAudioFrame creates a test audio frame
func MockAudioFrame(data []byte) recording.AudioFrame {
	if data == nil {
		data = make([]byte, 1024)
		for i := range data {
			data[i] = byte(i % 256)
		}
	}

	return recording.AudioFrame{
		Data:      data,
		Timestamp: time.Now(),
	}
}

// MockRecorder implements recording.Source for testing
type MockRecorder struct {
	Frames     []recording.AudioFrame
	StartError error
	Rate       int

	mu        sync.Mutex
	recording atomic.Bool
	stopCh    chan struct{}
}

func NewMockRecorder() *MockRecorder {
	return &MockRecorder{
		Frames: []recording.AudioFrame{MockAudioFrame(nil)},
		Rate:   16000,
	}
}

func (m *MockRecorder) SampleRate() int {
	if m.Rate == 0 {
		return 16000
	}
	return m.Rate
}

func (m *MockRecorder) Start(ctx context.Context) (<-chan recording.AudioFrame, <-chan error, error) {
	if m.StartError != nil {
		return nil, nil, m.StartError
	}

	m.mu.Lock()
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	m.recording.Store(true)

	frameCh := make(chan recording.AudioFrame, len(m.Frames)+1)
	errCh := make(chan error, 1)

	go func() {
		defer close(frameCh)
		defer close(errCh)

		for _, frame := range m.Frames {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case frameCh <- frame:
			}
		}

		// keep channel open until stopped
		select {
		case <-ctx.Done():
		case <-stopCh:
		}
	}()

	return frameCh, errCh, nil
}

func (m *MockRecorder) Stop() {
	if !m.recording.Load() {
		return
	}
	m.recording.Store(false)

	m.mu.Lock()
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
	m.mu.Unlock()
}

func (m *MockRecorder) IsRecording() bool {
	return m.recording.Load()
}

// MockTokenSource implements scribe.TokenSource for testing
type MockTokenSource struct {
	Token string
	Err   error

	mu    sync.Mutex
	Calls int
}

func (m *MockTokenSource) GetToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if m.Token == "" {
		return "test-token", nil
	}
	return m.Token, nil
}

// MockConn implements scribe.Conn for testing. Incoming frames are fed via
// the Incoming channel; closing it makes Receive return an error.
type MockConn struct {
	Incoming chan []byte

	mu        sync.Mutex
	sent      [][]byte
	closed    bool
	CloseErr  error
	SendError error
}

func NewMockConn() *MockConn {
	return &MockConn{Incoming: make(chan []byte, 16)}
}

func (c *MockConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendError != nil {
		return c.SendError
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.sent = append(c.sent, cp)
	return nil
}

func (c *MockConn) Receive() ([]byte, error) {
	frame, ok := <-c.Incoming
	if !ok {
		return nil, &scribe.TransportError{Err: context.Canceled}
	}
	return frame, nil
}

func (c *MockConn) Close(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Incoming)
	}
	return c.CloseErr
}

func (c *MockConn) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *MockConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// MockTransport implements scribe.Transport, handing out one MockConn per
// Open call.
type MockTransport struct {
	OpenErr error

	mu    sync.Mutex
	conns []*MockConn
}

func (t *MockTransport) Open(ctx context.Context, url string, header http.Header) (scribe.Conn, error) {
	if t.OpenErr != nil {
		return nil, t.OpenErr
	}
	conn := NewMockConn()
	t.mu.Lock()
	t.conns = append(t.conns, conn)
	t.mu.Unlock()
	return conn, nil
}

func (t *MockTransport) Conns() []*MockConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*MockConn, len(t.conns))
	copy(out, t.conns)
	return out
}

func (t *MockTransport) LastConn() *MockConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.conns) == 0 {
		return nil
	}
	return t.conns[len(t.conns)-1]
}
