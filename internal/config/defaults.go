package config

import (
	"time"

	"github.com/scribeflow/scribeflow/internal/provider"
)

// DefaultConfig returns the initial configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Recording: RecordingConfig{
			SampleRate:        16000,
			Device:            "",
			BufferSize:        4096,
			ChannelBufferSize: 30,
			Timeout:           5 * time.Minute,
		},
		Transcription: TranscriptionConfig{
			Provider:    provider.ProviderElevenLabs,
			Model:       "scribe_v2_realtime",
			Language:    "",
			CommitGrace: 500 * time.Millisecond,
		},
		Polish: PolishConfig{
			Enabled: false,
			Model:   "gpt-4o-mini",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		Providers: make(map[string]ProviderConfig),
		Keywords:  nil,
	}
}
