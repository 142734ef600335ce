package config

import (
	"github.com/scribeflow/scribeflow/internal/polish"
	"github.com/scribeflow/scribeflow/internal/recording"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Recording.SampleRate,
		Device:            c.Recording.Device,
		BufferSize:        c.Recording.BufferSize,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
	}
}

func (c *Config) ToPolishConfig() polish.Config {
	apiKey := c.Polish.APIKey
	if apiKey == "" {
		apiKey = c.APIKeyFor("openai")
	}
	return polish.Config{
		Enabled:  c.Polish.Enabled,
		APIKey:   apiKey,
		Model:    c.Polish.Model,
		Keywords: c.Keywords,
	}
}
