// Package transcript reconciles the session's partial and committed
// transcript events into a single growing text state.
package transcript

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/scribeflow/scribeflow/internal/scribe"
)

// DefaultCommitGrace is how long Finalize waits for a trailing committed
// segment after flushing audio.
const DefaultCommitGrace = 500 * time.Millisecond

// Committer flushes any pending audio on the active session. Satisfied by
// *scribe.Session.
type Committer interface {
	CommitAudio() error
}

// Reconciler maintains the authoritative transcript state: at most one live
// partial hypothesis plus an append-only sequence of committed segments.
// It is the single ordered consumer of the session's event stream; the
// snapshot getters are safe from any goroutine.
type Reconciler struct {
	mu            sync.Mutex
	latestPartial string
	committed     []string

	commitGrace time.Duration
	committedCh chan struct{}
	errCh       chan error
	startedCh   chan struct{}
	startedOnce sync.Once
}

func NewReconciler() *Reconciler {
	return &Reconciler{
		commitGrace: DefaultCommitGrace,
		committedCh: make(chan struct{}, 1),
		errCh:       make(chan error, 8),
		startedCh:   make(chan struct{}),
	}
}

// SetCommitGrace overrides how long Finalize waits for a trailing committed
// segment.
func (r *Reconciler) SetCommitGrace(d time.Duration) {
	if d > 0 {
		r.commitGrace = d
	}
}

// Consume applies events until the channel closes or ctx is cancelled.
// Run it as the single consumer goroutine of a session's event stream.
func (r *Reconciler) Consume(ctx context.Context, events <-chan scribe.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.Apply(ev)
		}
	}
}

// Apply folds one event into the transcript state.
func (r *Reconciler) Apply(ev scribe.Event) {
	switch ev.Kind {
	case scribe.EventSessionStarted:
		r.startedOnce.Do(func() { close(r.startedCh) })

	case scribe.EventPartial:
		// last-write-wins: the server sends the full current-utterance
		// hypothesis each time, not a delta
		r.mu.Lock()
		r.latestPartial = ev.Text
		r.mu.Unlock()

	case scribe.EventCommitted:
		r.mu.Lock()
		r.committed = append(r.committed, ev.Text)
		r.latestPartial = ""
		r.mu.Unlock()
		select {
		case r.committedCh <- struct{}{}:
		default:
		}

	case scribe.EventError:
		// surfaced to the consumer; transcript state is untouched
		select {
		case r.errCh <- ev.Err:
		default:
			log.Printf("transcript: dropping error, channel full: %v", ev.Err)
		}
	}
}

// Errors is the UI-facing error channel.
func (r *Reconciler) Errors() <-chan error {
	return r.errCh
}

// Started is closed once the server has confirmed the session.
func (r *Reconciler) Started() <-chan struct{} {
	return r.startedCh
}

// LatestPartial returns the current in-progress hypothesis, or empty.
func (r *Reconciler) LatestPartial() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latestPartial
}

// CommittedSegments returns a snapshot of the finalized segments in arrival
// order.
func (r *Reconciler) CommittedSegments() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.committed))
	copy(out, r.committed)
	return out
}

// Snapshot returns the committed text joined with spaces plus the live
// partial, for status-style peeking.
func (r *Reconciler) Snapshot() (committed string, partial string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.committed, " "), r.latestPartial
}

// Finalize flushes pending audio on the session, waits up to the commit
// grace period for a trailing committed segment, then returns the joined
// final text and resets the state.
func (r *Reconciler) Finalize(ctx context.Context, session Committer) string {
	// drain a stale commit signal so the wait below observes only
	// segments arriving after the flush
	select {
	case <-r.committedCh:
	default:
	}

	if err := session.CommitAudio(); err != nil {
		log.Printf("transcript: finalize commit: %v", err)
	} else {
		select {
		case <-r.committedCh:
		case <-time.After(r.commitGrace):
		case <-ctx.Done():
		}
	}

	r.mu.Lock()
	text := strings.Join(r.committed, " ")
	r.committed = nil
	r.latestPartial = ""
	r.mu.Unlock()
	return text
}
