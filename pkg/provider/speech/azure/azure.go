// Package azure provides a speech provider for Azure Cognitive Services
// text-to-speech. Requests are SSML documents in the zh-HK locale; the
// playback rate becomes a relative prosody rate ("+10%", "-20%").
//
//	p, err := azure.New("my-key", "eastasia",
//	    azure.WithVoice("zh-HK-WanLungNeural"),
//	)
//	audio, err := p.Synthesize(ctx, speech.Request{Text: "你好", Rate: 1.1})
package azure

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

// Compile-time interface assertion.
var _ speech.Provider = (*Provider)(nil)

// ---- constants ----

const (
	DefaultVoice        = "zh-HK-HiuMaanNeural"
	DefaultOutputFormat = "audio-16khz-128kbitrate-mono-mp3"

	locale         = "zh-HK"
	endpointFormat = "https://%s.tts.speech.microsoft.com/cognitiveservices/v1"
	defaultTimeout = 30 * time.Second
	defaultMIME    = "audio/mpeg"
)

// ---- options ----

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithVoice sets the neural voice name. Defaults to [DefaultVoice].
func WithVoice(v string) Option {
	return func(p *Provider) {
		p.voice = v
	}
}

// WithOutputFormat sets the X-Microsoft-OutputFormat header.
func WithOutputFormat(f string) Option {
	return func(p *Provider) {
		p.outputFormat = f
	}
}

// WithEndpoint overrides the regional endpoint URL. Used for sovereign clouds
// and tests.
func WithEndpoint(u string) Option {
	return func(p *Provider) {
		p.endpoint = u
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// ---- Provider ----

// Provider implements speech.Provider against the Azure TTS REST API.
type Provider struct {
	key          string
	voice        string
	outputFormat string
	endpoint     string
	httpClient   *http.Client
}

// New creates a Provider for the subscription key in region (e.g. "eastasia").
func New(key, region string, opts ...Option) (*Provider, error) {
	if key == "" {
		return nil, errors.New("azure: subscription key must not be empty")
	}
	p := &Provider{
		key:          key,
		voice:        DefaultVoice,
		outputFormat: DefaultOutputFormat,
		httpClient:   &http.Client{Timeout: defaultTimeout},
	}
	if region != "" {
		p.endpoint = fmt.Sprintf(endpointFormat, region)
	}
	for _, o := range opts {
		o(p)
	}
	if p.endpoint == "" {
		return nil, errors.New("azure: region must not be empty")
	}
	return p, nil
}

// Synthesize implements speech.Provider.
func (p *Provider) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	if err := req.Validate(); err != nil {
		return speech.Audio{}, fmt.Errorf("azure: %w", err)
	}
	doc, err := SSML(req.Text, p.voice, req.Rate)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("azure: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(doc))
	if err != nil {
		return speech.Audio{}, fmt.Errorf("azure: build request: %w", err)
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", p.key)
	httpReq.Header.Set("Content-Type", "application/ssml+xml")
	httpReq.Header.Set("X-Microsoft-OutputFormat", p.outputFormat)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("azure: POST: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return speech.Audio{}, fmt.Errorf("azure: POST returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("azure: read audio: %w", err)
	}
	if len(data) == 0 {
		return speech.Audio{}, errors.New("azure: empty audio response")
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = defaultMIME
	}
	return speech.Audio{Data: data, MIME: mime}, nil
}

// ---- SSML ----

// RatePercent converts a playback rate to a relative SSML prosody rate.
// 1.0 is "+0%", 1.25 is "+25%" and 0.9 is "-10%".
func RatePercent(rate float64) string {
	pct := int(math.Round((rate - 1) * 100))
	if pct >= 0 {
		return fmt.Sprintf("+%d%%", pct)
	}
	return fmt.Sprintf("%d%%", pct)
}

// SSML builds the request document. text and voice are XML-escaped.
func SSML(text, voice string, rate float64) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='" + locale + "'>")
	buf.WriteString("<voice name='")
	if err := xml.EscapeText(&buf, []byte(voice)); err != nil {
		return "", err
	}
	buf.WriteString("'><prosody rate='" + RatePercent(rate) + "'>")
	if err := xml.EscapeText(&buf, []byte(text)); err != nil {
		return "", err
	}
	buf.WriteString("</prosody></voice></speak>")
	return buf.String(), nil
}
