// Package gradio provides a speech provider for Gradio-hosted synthesis apps
// (Bert-VITS2 spaces and similar). A synthesis is a two-step job:
//
//  1. POST {space}/call/{fn} with {"data": [...]} answers {"event_id": "..."}.
//  2. GET {space}/call/{fn}/{event_id} streams server-sent events whose data:
//     lines carry JSON arrays. The first element exposing path, url or name
//     locates the audio file, which is then downloaded.
//
// A relative file location resolves to {space}/file={path}.
package gradio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

// Compile-time interface assertion.
var _ speech.Provider = (*Provider)(nil)

// ---- constants ----

const (
	DefaultFunction = "tts_fn"
	DefaultSpeaker  = "MK妹 (mkmui)"
	DefaultLanguage = "ZH"

	defaultTimeout = 60 * time.Second
	defaultMIME    = "audio/wav"

	// Bert-VITS2 inference knobs.
	sdpRatio    = 0.2
	noiseScale  = 0.5
	noiseScaleW = 0.9
	promptMode  = "Text prompt"
)

// ErrNoAudio is returned when the event stream finished without naming a file.
var ErrNoAudio = errors.New("gradio: no audio location in event stream")

// ---- options ----

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithFunction sets the Gradio API function name. Defaults to "tts_fn".
func WithFunction(fn string) Option {
	return func(p *Provider) {
		if fn != "" {
			p.fn = fn
		}
	}
}

// WithSpeaker sets the speaker name passed as the second argument.
func WithSpeaker(s string) Option {
	return func(p *Provider) {
		if s != "" {
			p.speaker = s
		}
	}
}

// WithTimeout sets the HTTP timeout applied to each of the three requests.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// ---- Provider ----

// Provider implements speech.Provider against a Gradio space.
type Provider struct {
	space      string
	fn         string
	speaker    string
	httpClient *http.Client
}

// New creates a Provider for the Gradio app at space (its origin URL).
func New(space string, opts ...Option) (*Provider, error) {
	if space == "" {
		return nil, errors.New("gradio: space URL must not be empty")
	}
	p := &Provider{
		space:      strings.TrimRight(space, "/"),
		fn:         DefaultFunction,
		speaker:    DefaultSpeaker,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Synthesize implements speech.Provider.
func (p *Provider) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	if err := req.Validate(); err != nil {
		return speech.Audio{}, fmt.Errorf("gradio: %w", err)
	}

	eventID, err := p.submit(ctx, req)
	if err != nil {
		return speech.Audio{}, err
	}
	loc, err := p.await(ctx, eventID)
	if err != nil {
		return speech.Audio{}, err
	}
	return p.download(ctx, p.ResolveFile(loc))
}

// ---- job steps ----

type callRequest struct {
	Data []any `json:"data"`
}

type callResponse struct {
	EventID string `json:"event_id"`
}

// Arguments returns the positional argument list for one synthesis. Length
// is the inverse of the playback rate.
func (p *Provider) Arguments(req speech.Request) []any {
	return []any{
		req.Text,
		p.speaker,
		sdpRatio,
		noiseScale,
		noiseScaleW,
		1.0 / req.Rate,
		DefaultLanguage,
		nil,
		req.Text,
		promptMode,
		"",
		0,
	}
}

func (p *Provider) submit(ctx context.Context, req speech.Request) (string, error) {
	body, err := json.Marshal(callRequest{Data: p.Arguments(req)})
	if err != nil {
		return "", fmt.Errorf("gradio: marshal call: %w", err)
	}
	endpoint := p.space + "/call/" + p.fn
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gradio: build call request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gradio: POST /call/%s: %w", p.fn, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gradio: POST /call/%s returned status %d", p.fn, resp.StatusCode)
	}

	var cr callResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("gradio: decode call response: %w", err)
	}
	if cr.EventID == "" {
		return "", errors.New("gradio: call response has no event_id")
	}
	return cr.EventID, nil
}

func (p *Provider) await(ctx context.Context, eventID string) (string, error) {
	endpoint := p.space + "/call/" + p.fn + "/" + eventID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("gradio: build stream request: %w", err)
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gradio: GET stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gradio: GET stream returned status %d", resp.StatusCode)
	}
	return ScanStream(resp.Body)
}

func (p *Provider) download(ctx context.Context, fileURL string) (speech.Audio, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("gradio: build file request: %w", err)
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("gradio: GET file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return speech.Audio{}, fmt.Errorf("gradio: GET file returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("gradio: read file: %w", err)
	}
	if len(data) == 0 {
		return speech.Audio{}, errors.New("gradio: empty audio file")
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = defaultMIME
	}
	return speech.Audio{Data: data, MIME: mime}, nil
}

// ResolveFile turns a location from the event stream into a download URL.
func (p *Provider) ResolveFile(loc string) string {
	if strings.HasPrefix(loc, "http") {
		return loc
	}
	return p.space + "/file=" + loc
}

// ---- stream parsing ----

// ScanStream reads server-sent events until a data: line yields an audio
// location. Lines that are not JSON arrays are skipped. Within an element,
// path wins over url, which wins over name.
func ScanStream(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var event string
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "event:"); ok {
			event = strings.TrimSpace(v)
			continue
		}
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if event == "error" {
			return "", fmt.Errorf("gradio: job failed: %s", payload)
		}
		if loc := findLocation(payload); loc != "" {
			return loc, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("gradio: read stream: %w", err)
	}
	return "", ErrNoAudio
}

func findLocation(payload string) string {
	if !gjson.Valid(payload) {
		return ""
	}
	data := gjson.Parse(payload)
	if !data.IsArray() {
		return ""
	}
	var loc string
	data.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		for _, field := range [...]string{"path", "url", "name"} {
			if v := item.Get(field); v.Type == gjson.String && v.Str != "" {
				loc = v.Str
				return false
			}
		}
		return true
	})
	return loc
}
