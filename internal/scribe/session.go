package scribe

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/scribeflow/scribeflow/internal/provider"
)

// State is the session lifecycle state. Transitions:
// Idle → Connecting → Active ⇄ Reconnecting → Closed.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateActive       State = "active"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// default retry delays for reconnection (exponential backoff: 1s, 2s, 4s)
var defaultRetryDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

const defaultMaxReconnectAttempts = 3

// Session owns one streaming transcription connection: transport lifecycle,
// the receive loop, and the reconnection policy. Events are delivered in
// arrival order to the sink channel injected at construction; the session
// holds no reference back to its consumer.
//
// Reconnection is automatic: the receive loop re-dials with the last-used
// parameters, backing off exponentially, and emits exactly one terminal
// error event when attempts are exhausted.
type Session struct {
	transport Transport
	tokens    TokenSource
	endpoint  *provider.EndpointConfig
	events    chan<- Event

	mu    sync.Mutex
	state State
	conn  Conn

	// last-used connect parameters, reused on reconnect
	modelID      string
	languageCode string
	sampleRate   int

	reconnectAttempts    int
	maxReconnectAttempts int
	retryDelays          []time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSession(transport Transport, tokens TokenSource, endpoint *provider.EndpointConfig, events chan<- Event) *Session {
	return &Session{
		transport:            transport,
		tokens:               tokens,
		endpoint:             endpoint,
		events:               events,
		state:                StateIdle,
		sampleRate:           16000,
		maxReconnectAttempts: defaultMaxReconnectAttempts,
		retryDelays:          defaultRetryDelays,
	}
}

// SetRetryPolicy overrides the reconnection policy. Intended for tests.
func (s *Session) SetRetryPolicy(maxAttempts int, delays []time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxReconnectAttempts = maxAttempts
	s.retryDelays = delays
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect acquires a session token, opens the transport and starts the
// receive loop. On failure the session stays Idle with no partial state
// retained. The server's session confirmation is emitted as an event, not
// synthesized here.
func (s *Session) Connect(ctx context.Context, modelID, languageCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return &ConnectError{Err: fmt.Errorf("connect from state %s", s.state)}
	}
	s.state = StateConnecting
	s.modelID = modelID
	s.languageCode = languageCode

	conn, err := s.dial(ctx)
	if err != nil {
		s.state = StateIdle
		return err
	}

	// loop context outlives the connect call
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.conn = conn
	s.state = StateActive
	s.reconnectAttempts = 0

	s.wg.Add(1)
	go s.receiveLoop()

	log.Printf("session: connected, model=%s, language=%s", modelID, languageCode)
	return nil
}

// dial performs one token exchange + transport open with the session's
// current parameters. Callers hold s.mu or run on the receive loop.
func (s *Session) dial(ctx context.Context) (Conn, error) {
	token, err := s.tokens.GetToken(ctx)
	if err != nil {
		return nil, &ConnectError{Err: err}
	}

	wsURL, err := s.buildURL()
	if err != nil {
		return nil, &ConnectError{Err: err}
	}

	header := http.Header{}
	header.Set("Authorization", token)

	conn, err := s.transport.Open(ctx, wsURL, header)
	if err != nil {
		var ce *ConnectError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &ConnectError{Err: err}
	}
	return conn, nil
}

func (s *Session) buildURL() (string, error) {
	u, err := url.Parse(s.endpoint.URL())
	if err != nil {
		return "", fmt.Errorf("parse endpoint url: %w", err)
	}

	q := u.Query()
	q.Set("model_id", s.modelID)
	if s.languageCode != "" {
		q.Set("language_code", s.languageCode)
	}
	// let server-side VAD decide utterance boundaries
	q.Set("commit_strategy", "vad")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SendAudioChunk encodes and sends one non-committing PCM16 chunk. Outside
// Active it is a logged no-op; send failures are logged, never raised, so a
// transient error cannot abort the capture path. Safe to call from the
// capture goroutine.
func (s *Session) SendAudioChunk(pcm []byte, sampleRate int) {
	s.mu.Lock()
	if s.state != StateActive {
		state := s.state
		s.mu.Unlock()
		log.Printf("session: dropping %d byte audio chunk, session is %s", len(pcm), state)
		return
	}
	conn := s.conn
	s.sampleRate = sampleRate
	s.mu.Unlock()

	frame, err := EncodeAudioChunk(pcm, sampleRate)
	if err != nil {
		log.Printf("session: encode audio chunk: %v", err)
		return
	}
	if err := conn.Send(frame); err != nil {
		log.Printf("session: send audio chunk: %v", err)
	}
}

// CommitAudio sends the end-of-utterance sentinel. Used both at utterance
// boundaries and as the final flush before teardown.
func (s *Session) CommitAudio() error {
	s.mu.Lock()
	if s.state != StateActive {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("commit: session is %s", state)
	}
	conn := s.conn
	rate := s.sampleRate
	s.mu.Unlock()

	frame, err := EncodeCommit(rate)
	if err != nil {
		return fmt.Errorf("encode commit: %w", err)
	}
	return conn.Send(frame)
}

// Disconnect cancels the receive loop, releases the transport and moves to
// Closed. Valid from any state; calling it twice is a no-op.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	cancel := s.cancel
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close("client disconnect")
	}
	s.wg.Wait()
	log.Printf("session: disconnected")
}

// receiveLoop runs for the lifetime of Active/Reconnecting: it decodes
// incoming frames, dispatches events in order, and applies the reconnection
// policy on receive failure. It exits without further dispatch once Closed.
func (s *Session) receiveLoop() {
	defer s.wg.Done()

	for {
		if s.ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		frame, err := conn.Receive()
		if err != nil {
			if s.ctx.Err() != nil {
				return // normal shutdown
			}
			switch s.reconnect(err) {
			case reconnected:
				continue
			case reconnectAborted:
				// deliberate Disconnect interrupted the backoff; not an error
				return
			case reconnectExhausted:
				s.mu.Lock()
				attempts := s.reconnectAttempts - 1
				closed := s.state == StateClosed
				s.mu.Unlock()
				if !closed {
					s.dispatch(Event{Kind: EventError, Err: &TransportError{
						Err: fmt.Errorf("connection lost after %d reconnect attempts: %w", attempts, err),
					}})
				}
				s.closeFromLoop()
				return
			}
		}

		ev, ok, err := DecodeFrame(frame)
		if err != nil {
			// malformed frame: logged and dropped, never fatal
			log.Printf("session: dropping malformed frame: %v", err)
			continue
		}
		if !ok {
			continue
		}

		// Reset on progress: any decoded frame proves the link works again,
		// so each new outage gets the full attempt budget. The budget bounds
		// consecutive failures, not failures per session.
		s.mu.Lock()
		s.reconnectAttempts = 0
		s.mu.Unlock()

		s.dispatch(ev)

		if ev.Kind == EventError && IsFatalServerError(ev.Err) {
			log.Printf("session: fatal server error, closing: %v", ev.Err)
			s.closeFromLoop()
			return
		}
	}
}

// reconnectResult distinguishes a deliberate shutdown from exhausted
// attempts; only the latter is an error the consumer hears about.
type reconnectResult int

const (
	reconnected reconnectResult = iota
	reconnectAborted
	reconnectExhausted
)

// reconnect applies the backoff policy after a receive failure.
func (s *Session) reconnect(cause error) reconnectResult {
	for {
		if s.ctx.Err() != nil {
			return reconnectAborted
		}

		s.mu.Lock()
		if s.state == StateClosed {
			s.mu.Unlock()
			return reconnectAborted
		}
		s.reconnectAttempts++
		attempt := s.reconnectAttempts
		if attempt > s.maxReconnectAttempts {
			s.mu.Unlock()
			return reconnectExhausted
		}
		s.state = StateReconnecting
		old := s.conn
		s.conn = nil
		s.mu.Unlock()

		if old != nil {
			_ = old.Close("reconnecting")
		}

		delay := s.retryDelays[len(s.retryDelays)-1]
		if attempt-1 < len(s.retryDelays) {
			delay = s.retryDelays[attempt-1]
		}
		log.Printf("session: receive failed (%v), reconnect attempt %d/%d after %v",
			cause, attempt, s.maxReconnectAttempts, delay)

		select {
		case <-s.ctx.Done():
			return reconnectAborted
		case <-time.After(delay):
		}

		conn, err := s.dial(s.ctx)
		if err != nil {
			log.Printf("session: reconnect attempt %d failed: %v", attempt, err)
			cause = err
			continue
		}

		s.mu.Lock()
		if s.state == StateClosed {
			s.mu.Unlock()
			_ = conn.Close("session closed")
			return reconnectAborted
		}
		s.conn = conn
		s.state = StateActive
		s.mu.Unlock()
		log.Printf("session: reconnected")
		return reconnected
	}
}

// closeFromLoop moves to Closed from inside the receive loop.
func (s *Session) closeFromLoop() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	cancel := s.cancel
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close("session closed")
	}
	if cancel != nil {
		cancel()
	}
}

func (s *Session) dispatch(ev Event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}
