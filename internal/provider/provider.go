package provider

// Provider defines the interface for a realtime transcription service
// provider.
type Provider interface {
	Name() string
	RequiresAPIKey() bool
	ValidateAPIKey(key string) bool
	Models() []Model
	DefaultModel() string
	// RealtimeEndpoint is the persistent duplex endpoint audio is streamed
	// over.
	RealtimeEndpoint() *EndpointConfig
	// TokenEndpoint is the one-shot endpoint a long-lived key is exchanged
	// at for a short-lived session token.
	TokenEndpoint() *EndpointConfig
}

// ProviderConfig holds configuration for a single provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}

var registry = make(map[string]Provider)

func init() {
	Register(&ElevenLabsProvider{})
}

// Register adds a provider to the registry
func Register(p Provider) {
	registry[p.Name()] = p
}

// GetProvider returns a provider by name, or nil if not found
func GetProvider(name string) Provider {
	return registry[name]
}

// ListProviders returns all registered provider names
func ListProviders() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
