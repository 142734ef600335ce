package provider

// Provider name constants for config and registry
const (
	ProviderElevenLabs = "elevenlabs"
)

// elevenLabsLanguages is the subset of Scribe language codes the realtime
// endpoint accepts. Empty string (auto-detect) is always valid.
var elevenLabsLanguages = []string{
	"en", "es", "fr", "de", "it", "pt", "nl", "pl", "ru", "uk",
	"ja", "zh", "ko", "hi", "ar", "tr", "sv", "no", "da", "fi",
}

// ElevenLabsProvider implements Provider for the ElevenLabs Scribe
// realtime transcription service.
type ElevenLabsProvider struct{}

func (p *ElevenLabsProvider) Name() string {
	return ProviderElevenLabs
}

func (p *ElevenLabsProvider) RequiresAPIKey() bool {
	return true
}

func (p *ElevenLabsProvider) ValidateAPIKey(key string) bool {
	// ElevenLabs API keys don't have a consistent prefix, just check non-empty
	return len(key) > 0
}

func (p *ElevenLabsProvider) Models() []Model {
	// https://elevenlabs.io/speech-to-text
	return []Model{
		{
			ID:                 "scribe_v2_realtime",
			Name:               "Scribe v2 Realtime",
			Description:        "Real-time streaming, <150ms latency",
			SupportedLanguages: elevenLabsLanguages,
			DocsURL:            "https://elevenlabs.io/speech-to-text",
		},
	}
}

func (p *ElevenLabsProvider) DefaultModel() string {
	return "scribe_v2_realtime"
}

func (p *ElevenLabsProvider) RealtimeEndpoint() *EndpointConfig {
	return &EndpointConfig{BaseURL: "wss://api.elevenlabs.io", Path: "/v1/speech-to-text/realtime"}
}

func (p *ElevenLabsProvider) TokenEndpoint() *EndpointConfig {
	return &EndpointConfig{BaseURL: "https://api.elevenlabs.io", Path: "/v1/single-use-token/realtime_scribe"}
}
