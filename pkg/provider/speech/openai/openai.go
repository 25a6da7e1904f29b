// Package openai provides a speech provider for OpenAI-compatible
// /v1/audio/speech endpoints. Self-hosted Edge TTS bridges speak the same
// protocol, which makes this the usual way to reach the zh-HK neural voices
// without an Azure subscription.
//
// The request body is {input, voice, model, speed}; the response body is the
// audio file.
//
//	p, err := openai.New("http://localhost:5050",
//	    openai.WithVoice("zh-HK-HiuMaanNeural"),
//	)
//	audio, err := p.Synthesize(ctx, speech.Request{Text: "你好", Rate: 0.9})
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

// Compile-time interface assertion.
var _ speech.Provider = (*Provider)(nil)

// ---- constants ----

const (
	DefaultVoice  = "zh-HK-HiuMaanNeural"
	DefaultModel  = oai.SpeechModelTTS1
	DefaultAPIKey = "none"

	defaultTimeout = 30 * time.Second
	defaultMIME    = "audio/mpeg"
)

// ---- options ----

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithVoice sets the voice name. Defaults to [DefaultVoice].
func WithVoice(v string) Option {
	return func(p *Provider) {
		p.voice = v
	}
}

// WithModel sets the model name. Defaults to "tts-1".
func WithModel(m string) Option {
	return func(p *Provider) {
		p.model = m
	}
}

// WithAPIKey sets the bearer token. Edge TTS bridges usually ignore it.
func WithAPIKey(k string) Option {
	return func(p *Provider) {
		p.apiKey = k
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.timeout = d
	}
}

// ---- Provider ----

// Provider implements speech.Provider over the OpenAI speech API.
type Provider struct {
	client  oai.Client
	voice   string
	model   string
	apiKey  string
	timeout time.Duration
}

// New creates a Provider for the server at baseURL (without the /v1 suffix).
func New(baseURL string, opts ...Option) (*Provider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("openai: baseURL must not be empty")
	}
	p := &Provider{
		voice:   DefaultVoice,
		model:   DefaultModel,
		apiKey:  DefaultAPIKey,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}

	p.client = oai.NewClient(
		option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/v1/"),
		option.WithAPIKey(p.apiKey),
		option.WithHTTPClient(&http.Client{Timeout: p.timeout}),
		option.WithMaxRetries(0),
	)
	return p, nil
}

// Synthesize implements speech.Provider.
func (p *Provider) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	if err := req.Validate(); err != nil {
		return speech.Audio{}, fmt.Errorf("openai: %w", err)
	}

	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Input:          req.Text,
		Model:          p.model,
		Voice:          oai.AudioSpeechNewParamsVoice(p.voice),
		Speed:          param.NewOpt(req.Rate),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return speech.Audio{}, fmt.Errorf("openai: speech: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("openai: read audio: %w", err)
	}
	if len(data) == 0 {
		return speech.Audio{}, fmt.Errorf("openai: empty audio response")
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = defaultMIME
	}
	return speech.Audio{Data: data, MIME: mime}, nil
}
