package config

import (
	"time"

	"github.com/scribeflow/scribeflow/internal/provider"
)

type Config struct {
	Recording     RecordingConfig           `toml:"recording"`
	Transcription TranscriptionConfig       `toml:"transcription"`
	Polish        PolishConfig              `toml:"polish"`
	Notifications NotificationsConfig       `toml:"notifications"`
	Providers     map[string]ProviderConfig `toml:"providers"`
	Keywords      []string                  `toml:"keywords"`
}

// ProviderConfig holds the API key for a provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}

type RecordingConfig struct {
	SampleRate        int           `toml:"sample_rate"`
	Device            string        `toml:"device"`
	BufferSize        int           `toml:"buffer_size"`
	ChannelBufferSize int           `toml:"channel_buffer_size"`
	Timeout           time.Duration `toml:"timeout"`
}

type TranscriptionConfig struct {
	Provider    string        `toml:"provider"`
	Model       string        `toml:"model"`
	Language    string        `toml:"language"`
	CommitGrace time.Duration `toml:"commit_grace"` // wait for a trailing committed segment on finalize
}

// PolishConfig configures the optional LLM cleanup of the final transcript
type PolishConfig struct {
	Enabled bool   `toml:"enabled"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

// APIKeyFor returns the configured key for a provider, or empty.
func (c *Config) APIKeyFor(name string) string {
	if c.Providers == nil {
		return ""
	}
	return c.Providers[name].APIKey
}

// TranscriptionProvider resolves the configured provider from the registry.
func (c *Config) TranscriptionProvider() provider.Provider {
	return provider.GetProvider(c.Transcription.Provider)
}
