// Package pipeline drives one dictation run: capture frames into the
// streaming session, fold the session's events into the transcript
// reconciler, and deliver the finalized text to the sink.
package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/scribeflow/scribeflow/internal/notify"
	"github.com/scribeflow/scribeflow/internal/polish"
	"github.com/scribeflow/scribeflow/internal/provider"
	"github.com/scribeflow/scribeflow/internal/recording"
	"github.com/scribeflow/scribeflow/internal/scribe"
	"github.com/scribeflow/scribeflow/internal/transcript"
)

type Status string
type Action string

const (
	Idle       Status = "idle"
	Listening  Status = "listening"
	Finalizing Status = "finalizing"
)

const (
	// Finish flushes pending audio and delivers the transcript.
	Finish Action = "finish"
	// Abort discards the run.
	Abort Action = "abort"
)

// Sink receives the finalized transcript.
type Sink func(ctx context.Context, text string)

type Pipeline interface {
	Run(ctx context.Context)
	Stop()
	Status() Status
	Actions() chan<- Action
	// Peek returns the live transcript snapshot: committed text plus the
	// current partial hypothesis.
	Peek() (committed, partial string)
}

// Deps holds everything a run needs; all collaborators are injected so
// tests can swap in mocks.
type Deps struct {
	Recorder  recording.Source
	Transport scribe.Transport
	Tokens    scribe.TokenSource
	Endpoint  *provider.EndpointConfig

	ModelID     string
	Language    string
	CommitGrace time.Duration
	Timeout     time.Duration

	Polisher polish.Polisher
	Notifier notify.Notifier
	Sink     Sink
}

type pipeline struct {
	deps Deps

	mu     sync.RWMutex
	status Status

	reconciler *transcript.Reconciler
	actionCh   chan Action
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func New(deps Deps) Pipeline {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 5 * time.Minute
	}
	return &pipeline{
		deps:       deps,
		status:     Idle,
		reconciler: transcript.NewReconciler(),
		actionCh:   make(chan Action, 1),
	}
}

func (p *pipeline) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *pipeline) setStatus(s Status) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

func (p *pipeline) Actions() chan<- Action {
	return p.actionCh
}

func (p *pipeline) Peek() (string, string) {
	return p.reconciler.Snapshot()
}

func (p *pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *pipeline) Run(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, p.deps.Timeout)
	p.cancel = cancel
	p.wg.Add(1)
	go p.run(runCtx)
}

func (p *pipeline) run(ctx context.Context) {
	defer p.wg.Done()
	defer p.setStatus(Idle)

	p.reconciler.SetCommitGrace(p.deps.CommitGrace)

	events := make(chan scribe.Event, 100)
	session := scribe.NewSession(p.deps.Transport, p.deps.Tokens, p.deps.Endpoint, events)
	defer session.Disconnect()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.reconciler.Consume(ctx, events)
	}()

	if err := session.Connect(ctx, p.deps.ModelID, p.deps.Language); err != nil {
		log.Printf("pipeline: connect failed: %v", err)
		p.deps.Notifier.Error("Transcription connection failed: " + err.Error())
		return
	}

	frameCh, recErrCh, err := p.deps.Recorder.Start(ctx)
	if err != nil {
		log.Printf("pipeline: recording start failed: %v", err)
		p.deps.Notifier.Error("Recording failed: " + err.Error())
		return
	}
	defer p.deps.Recorder.Stop()

	p.setStatus(Listening)
	p.deps.Notifier.ListeningChanged(true)

	for {
		select {
		case frame, ok := <-frameCh:
			if !ok {
				// capture ended on its own; deliver what we have
				p.finalize(ctx, session)
				return
			}
			session.SendAudioChunk(frame.Data, p.deps.Recorder.SampleRate())

		case err, ok := <-recErrCh:
			if ok && err != nil {
				log.Printf("pipeline: recording error: %v", err)
				p.deps.Notifier.Error("Recording error: " + err.Error())
				p.finalize(ctx, session)
				return
			}

		case err := <-p.reconciler.Errors():
			p.handleSessionError(ctx, session, err)
			if isTerminal(err) {
				return
			}

		case action := <-p.actionCh:
			switch action {
			case Finish:
				p.finalize(ctx, session)
				return
			case Abort:
				log.Printf("pipeline: aborted, discarding transcript")
				p.deps.Notifier.ListeningChanged(false)
				return
			}

		case <-ctx.Done():
			// run timeout or daemon shutdown: flush what we have
			p.finalize(context.Background(), session)
			return
		}
	}
}

// handleSessionError surfaces a session error; terminal errors also flush
// the committed transcript so nothing already confirmed is lost.
func (p *pipeline) handleSessionError(ctx context.Context, session *scribe.Session, err error) {
	log.Printf("pipeline: session error: %v", err)
	p.deps.Notifier.Error(err.Error())
	if isTerminal(err) {
		p.deliver(ctx, p.reconciler.Finalize(ctx, session))
		p.deps.Notifier.ListeningChanged(false)
	}
}

// isTerminal reports whether the session cannot continue: a fatal server
// error frame or exhausted reconnects.
func isTerminal(err error) bool {
	var te *scribe.TransportError
	return scribe.IsFatalServerError(err) || errors.As(err, &te)
}

func (p *pipeline) finalize(ctx context.Context, session *scribe.Session) {
	p.setStatus(Finalizing)
	p.deps.Notifier.ListeningChanged(false)
	p.deps.Recorder.Stop()

	text := p.reconciler.Finalize(ctx, session)
	session.Disconnect()

	text = polish.Apply(ctx, p.deps.Polisher, text)
	p.deliver(ctx, text)
}

func (p *pipeline) deliver(ctx context.Context, text string) {
	if text == "" {
		log.Printf("pipeline: nothing to deliver")
		return
	}
	if p.deps.Sink != nil {
		p.deps.Sink(ctx, text)
	}
}
