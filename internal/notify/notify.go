package notify

import (
	"fmt"
	"log"
	"os/exec"
)

type Notifier interface {
	ListeningChanged(on bool)
	Delivered(text string)
	Error(msg string)
}

// New returns the notifier for the configured type ("desktop", "log",
// "none").
func New(kind string) Notifier {
	switch kind {
	case "log":
		return Log{}
	case "none", "":
		return Nop{}
	default:
		return Desktop{}
	}
}

type Desktop struct{}

func (Desktop) ListeningChanged(on bool) {
	state := "Stopped"
	if on {
		state = "Started"
	}
	cmd := exec.Command("notify-send", "-a", "Scribeflow",
		fmt.Sprintf("Scribeflow: %s Listening", state))
	if err := cmd.Run(); err != nil {
		log.Printf("notify: failed to send notification: %v", err)
	}
}

func (Desktop) Delivered(text string) {
	preview := text
	if len(preview) > 80 {
		preview = preview[:77] + "..."
	}
	cmd := exec.Command("notify-send", "-a", "Scribeflow", "Transcript copied", preview)
	if err := cmd.Run(); err != nil {
		log.Printf("notify: failed to send notification: %v", err)
	}
}

func (Desktop) Error(msg string) {
	cmd := exec.Command("notify-send", "-a", "Scribeflow", "-u", "critical", msg)
	if err := cmd.Run(); err != nil {
		log.Printf("notify: failed to send error notification: %v", err)
	}
}

// Log is a Notifier that only writes to the daemon log.
type Log struct{}

func (Log) ListeningChanged(on bool) { log.Printf("notify: listening=%v", on) }
func (Log) Delivered(text string)    { log.Printf("notify: delivered %d chars", len(text)) }
func (Log) Error(msg string)         { log.Printf("notify: error: %s", msg) }

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) ListeningChanged(on bool) {}
func (Nop) Delivered(text string)    {}
func (Nop) Error(msg string)         {}
