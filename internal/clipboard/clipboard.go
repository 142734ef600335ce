// Package clipboard delivers the finalized transcript to the Wayland
// clipboard via wl-copy.
package clipboard

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const defaultTimeout = 3 * time.Second

// Copy places text on the clipboard.
func Copy(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "wl-copy")
	cmd.Stdin = strings.NewReader(text)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("wl-copy failed: %w", err)
	}
	return nil
}

// CheckAvailable reports whether the clipboard tooling is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath("wl-copy"); err != nil {
		return fmt.Errorf("wl-copy not found: %w (install wl-clipboard)", err)
	}
	return nil
}
