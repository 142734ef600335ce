package config

import (
	"fmt"

	"github.com/scribeflow/scribeflow/internal/provider"
)

func (c *Config) Validate() error {
	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", c.Recording.BufferSize)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}
	if c.Recording.Timeout <= 0 {
		return fmt.Errorf("invalid recording.timeout: %v", c.Recording.Timeout)
	}

	if c.Transcription.Provider == "" {
		return fmt.Errorf("invalid transcription.provider: empty")
	}
	p := provider.GetProvider(c.Transcription.Provider)
	if p == nil {
		return fmt.Errorf("unknown transcription.provider: %s", c.Transcription.Provider)
	}
	if p.RequiresAPIKey() && !p.ValidateAPIKey(c.APIKeyFor(p.Name())) {
		return fmt.Errorf("%s API key required: set providers.%s.api_key", p.Name(), p.Name())
	}
	if c.Transcription.Model == "" {
		return fmt.Errorf("invalid transcription.model: empty")
	}
	model := findModel(p, c.Transcription.Model)
	if model == nil {
		return fmt.Errorf("unknown model for %s: %s", p.Name(), c.Transcription.Model)
	}
	if !model.SupportsLanguage(c.Transcription.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use empty string for auto-detect or an ISO-639-1 code like 'en')", c.Transcription.Language)
	}
	if c.Transcription.CommitGrace <= 0 {
		return fmt.Errorf("invalid transcription.commit_grace: %v", c.Transcription.CommitGrace)
	}

	if c.Polish.Enabled {
		if c.Polish.APIKey == "" && c.APIKeyFor("openai") == "" {
			return fmt.Errorf("polish enabled but no OpenAI API key: set polish.api_key or providers.openai.api_key")
		}
		if c.Polish.Model == "" {
			return fmt.Errorf("invalid polish.model: empty")
		}
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true, "": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}

func findModel(p provider.Provider, id string) *provider.Model {
	for _, m := range p.Models() {
		if m.ID == id {
			return &m
		}
	}
	return nil
}
