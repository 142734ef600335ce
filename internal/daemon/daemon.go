// Package daemon owns the long-running process: the control socket, the
// config manager and the lifecycle of dictation pipelines.
package daemon

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/scribeflow/scribeflow/internal/bus"
	"github.com/scribeflow/scribeflow/internal/clipboard"
	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/notify"
	"github.com/scribeflow/scribeflow/internal/pipeline"
	"github.com/scribeflow/scribeflow/internal/polish"
	"github.com/scribeflow/scribeflow/internal/recording"
	"github.com/scribeflow/scribeflow/internal/scribe"
)

type Daemon struct {
	configMgr *config.Manager

	mu       sync.Mutex
	pipeline pipeline.Pipeline

	ctx    context.Context
	cancel context.CancelFunc
}

func New() (*Daemon, error) {
	mgr, err := config.NewManager()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		configMgr: mgr,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func (d *Daemon) notifier() notify.Notifier {
	cfg := d.configMgr.GetConfig()
	if !cfg.Notifications.Enabled {
		return notify.Nop{}
	}
	return notify.New(cfg.Notifications.Type)
}

func (d *Daemon) status() pipeline.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pipeline == nil {
		return pipeline.Idle
	}
	return d.pipeline.Status()
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	if err := d.configMgr.StartWatching(d.ctx); err != nil {
		log.Printf("Daemon: config watch unavailable: %v", err)
	}
	defer d.configMgr.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		log.Printf("Daemon: received signal %v, shutting down gracefully", sig)
		d.cancel()
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("Daemon: started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Daemon: shutdown requested")
				d.stopPipeline()
				return nil
			}
			log.Printf("Daemon: accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Daemon: client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}

	switch line[0] {
	case bus.CmdToggle:
		d.toggle()
		fmt.Fprint(c, "OK toggled\n")
	case bus.CmdAbort:
		d.abort()
		fmt.Fprint(c, "OK aborted\n")
	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS status=%s\n", d.status())
	case bus.CmdPeek:
		committed, partial := d.peek()
		fmt.Fprintf(c, "TRANSCRIPT committed=%q partial=%q\n", committed, partial)
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("Daemon: unknown command: %c", line[0])
		fmt.Fprintf(c, "ERR unknown=%q\n", line[0])
	}
}

// toggle starts a dictation run when idle, or finishes the active one.
func (d *Daemon) toggle() {
	switch d.status() {
	case pipeline.Idle:
		p := d.newPipeline()
		p.Run(d.ctx)
		d.mu.Lock()
		d.pipeline = p
		d.mu.Unlock()

	case pipeline.Listening:
		d.mu.Lock()
		p := d.pipeline
		d.mu.Unlock()
		if p != nil {
			p.Actions() <- pipeline.Finish
		}

	case pipeline.Finalizing:
		// delivery in flight, nothing to do
	}
}

func (d *Daemon) abort() {
	d.mu.Lock()
	p := d.pipeline
	d.pipeline = nil
	d.mu.Unlock()

	if p != nil && p.Status() != pipeline.Idle {
		select {
		case p.Actions() <- pipeline.Abort:
		default:
		}
		p.Stop()
	}
}

func (d *Daemon) peek() (string, string) {
	d.mu.Lock()
	p := d.pipeline
	d.mu.Unlock()
	if p == nil {
		return "", ""
	}
	return p.Peek()
}

func (d *Daemon) stopPipeline() {
	d.mu.Lock()
	p := d.pipeline
	d.pipeline = nil
	d.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// newPipeline assembles a run from the current config snapshot.
func (d *Daemon) newPipeline() pipeline.Pipeline {
	cfg := d.configMgr.GetConfig()
	notifier := d.notifier()

	prov := cfg.TranscriptionProvider()
	tokens := scribe.NewTokenProvider(prov.TokenEndpoint(), cfg.APIKeyFor(prov.Name()))

	var polisher polish.Polisher
	if cfg.Polish.Enabled {
		p, err := polish.NewOpenAIPolisher(cfg.ToPolishConfig())
		if err != nil {
			log.Printf("Daemon: polish disabled: %v", err)
		} else {
			polisher = p
		}
	}

	sink := func(ctx context.Context, text string) {
		if err := clipboard.Copy(ctx, text); err != nil {
			log.Printf("Daemon: clipboard delivery failed: %v", err)
			notifier.Error("Failed to copy transcript: " + err.Error())
			return
		}
		notifier.Delivered(text)
	}

	return pipeline.New(pipeline.Deps{
		Recorder:    recording.NewRecorder(cfg.ToRecordingConfig()),
		Transport:   scribe.NewWebSocketTransport(),
		Tokens:      tokens,
		Endpoint:    prov.RealtimeEndpoint(),
		ModelID:     cfg.Transcription.Model,
		Language:    cfg.Transcription.Language,
		CommitGrace: cfg.Transcription.CommitGrace,
		Timeout:     cfg.Recording.Timeout,
		Polisher:    polisher,
		Notifier:    notifier,
		Sink:        sink,
	})
}
