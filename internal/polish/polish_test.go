package polish

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubPolisher struct {
	out string
	err error
}

func (s *stubPolisher) Polish(ctx context.Context, text string) (string, error) {
	return s.out, s.err
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("nil polisher passes through", func(t *testing.T) {
		if got := Apply(ctx, nil, "raw text"); got != "raw text" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("empty text passes through", func(t *testing.T) {
		if got := Apply(ctx, &stubPolisher{out: "never"}, ""); got != "" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("polished text wins", func(t *testing.T) {
		p := &stubPolisher{out: "Hello, world."}
		if got := Apply(ctx, p, "um hello world"); got != "Hello, world." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("failure falls back to raw", func(t *testing.T) {
		p := &stubPolisher{err: errors.New("rate limited")}
		if got := Apply(ctx, p, "um hello world"); got != "um hello world" {
			t.Errorf("got %q", got)
		}
	})
}

func TestNewOpenAIPolisherRequiresKey(t *testing.T) {
	if _, err := NewOpenAIPolisher(Config{}); err == nil {
		t.Error("missing key must be rejected")
	}
	if _, err := NewOpenAIPolisher(Config{APIKey: "sk-test"}); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := buildSystemPrompt(nil)
	if !strings.Contains(prompt, "punctuation") {
		t.Error("prompt should cover punctuation cleanup")
	}
	if strings.Contains(prompt, "Context keywords") {
		t.Error("no keywords section expected without keywords")
	}

	prompt = buildSystemPrompt([]string{"kubernetes", "scribeflow"})
	if !strings.Contains(prompt, "kubernetes, scribeflow") {
		t.Errorf("keywords missing from prompt: %q", prompt)
	}
}
