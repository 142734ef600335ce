package provider

// Model represents a streaming transcription model with full metadata
type Model struct {
	ID                 string   // unique identifier (e.g., "scribe_v2_realtime")
	Name               string   // display name
	Description        string   // short description
	SupportedLanguages []string // explicit list of provider language codes
	DocsURL            string   // URL to provider documentation
}

// EndpointConfig holds HTTP/WebSocket endpoint configuration
type EndpointConfig struct {
	BaseURL string // e.g., "https://api.elevenlabs.io" or "wss://api.elevenlabs.io"
	Path    string // e.g., "/v1/speech-to-text/realtime"
}

// URL returns the full endpoint URL without query parameters.
func (e *EndpointConfig) URL() string {
	return e.BaseURL + e.Path
}

// SupportsLanguage returns true if the model supports the given language code.
// Auto-detect (empty string) is always supported.
func (m *Model) SupportsLanguage(code string) bool {
	if code == "" {
		return true // auto always supported
	}
	for _, supported := range m.SupportedLanguages {
		if supported == code {
			return true
		}
	}
	return false
}
