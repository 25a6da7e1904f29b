// Package azureproxy provides a speech provider for a relay that holds Azure
// credentials server-side. The relay accepts POST /v1/azure/speech with a JSON
// body {input, voice, speed} and answers with the audio file, so clients never
// see the subscription key.
package azureproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

// Compile-time interface assertion.
var _ speech.Provider = (*Provider)(nil)

// ---- constants ----

const (
	DefaultVoice = "zh-HK-HiuMaanNeural"

	// Path is the request path appended to the proxy base URL.
	Path = "/v1/azure/speech"

	defaultTimeout = 30 * time.Second
	defaultMIME    = "audio/mpeg"
)

// ---- options ----

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithVoice sets the voice forwarded to Azure. Defaults to [DefaultVoice].
func WithVoice(v string) Option {
	return func(p *Provider) {
		if v != "" {
			p.voice = v
		}
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// ---- Provider ----

// Provider implements speech.Provider against an Azure speech proxy.
type Provider struct {
	baseURL    string
	voice      string
	httpClient *http.Client
}

// New creates a Provider for the proxy at baseURL.
func New(baseURL string, opts ...Option) (*Provider, error) {
	if baseURL == "" {
		return nil, errors.New("azureproxy: baseURL must not be empty")
	}
	p := &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		voice:      DefaultVoice,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// SpeechRequest is the JSON body sent to the proxy. The relay server decodes
// the same type.
type SpeechRequest struct {
	Input string  `json:"input"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

// Synthesize implements speech.Provider.
func (p *Provider) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	if err := req.Validate(); err != nil {
		return speech.Audio{}, fmt.Errorf("azureproxy: %w", err)
	}
	body, err := json.Marshal(SpeechRequest{Input: req.Text, Voice: p.voice, Speed: req.Rate})
	if err != nil {
		return speech.Audio{}, fmt.Errorf("azureproxy: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+Path, bytes.NewReader(body))
	if err != nil {
		return speech.Audio{}, fmt.Errorf("azureproxy: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("azureproxy: POST %s: %w", Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return speech.Audio{}, fmt.Errorf("azureproxy: POST %s returned status %d", Path, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("azureproxy: read audio: %w", err)
	}
	if len(data) == 0 {
		return speech.Audio{}, errors.New("azureproxy: empty audio response")
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = defaultMIME
	}
	return speech.Audio{Data: data, MIME: mime}, nil
}
