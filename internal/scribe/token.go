package scribe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scribeflow/scribeflow/internal/provider"
)

// TokenSource exchanges a long-lived credential for a short-lived session
// token.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// TokenProvider obtains single-use realtime session tokens from the
// provider's token endpoint. It performs no internal retries; the session
// controller decides whether connection setup is retried.
type TokenProvider struct {
	client   *http.Client
	endpoint *provider.EndpointConfig
	apiKey   string
}

type tokenResponse struct {
	Token string `json:"token"`
}

func NewTokenProvider(endpoint *provider.EndpointConfig, apiKey string) *TokenProvider {
	return &TokenProvider{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

// GetToken requests a fresh session token. Non-2xx responses map to
// AuthError, transport failures to NetworkError and a response without a
// token field to FormatError.
func (p *TokenProvider) GetToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint.URL(), nil)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &AuthError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", &FormatError{Reason: "decode token response: " + err.Error()}
	}
	if tr.Token == "" {
		return "", &FormatError{Reason: "response missing token field"}
	}
	return tr.Token, nil
}
