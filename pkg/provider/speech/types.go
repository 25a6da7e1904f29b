package speech

import "fmt"

// ---- Engine ----

// Engine identifies a speech back end.
type Engine string

const (
	// Local runs a speech synthesizer command on this machine.
	Local Engine = "local"

	// Platform uses an event-driven platform voice (start/end/error callbacks).
	Platform Engine = "platform"

	// OpenAI calls an OpenAI-compatible /v1/audio/speech endpoint, such as a
	// self-hosted Edge TTS bridge.
	OpenAI Engine = "openai"

	// Azure calls Azure Cognitive Services text-to-speech with SSML.
	Azure Engine = "azure"

	// AzureProxy calls a proxy that holds the Azure credentials server-side.
	AzureProxy Engine = "azure-proxy"

	// Gradio runs a two-step Gradio job (submit, then read the event stream).
	Gradio Engine = "gradio"
)

// Engines lists every engine in a stable order.
func Engines() []Engine {
	return []Engine{Local, Platform, OpenAI, Azure, AzureProxy, Gradio}
}

// Valid reports whether e is a known engine.
func (e Engine) Valid() bool {
	switch e {
	case Local, Platform, OpenAI, Azure, AzureProxy, Gradio:
		return true
	default:
		return false
	}
}

// Network reports whether the engine goes over the network and may
// therefore be executed through the relay.
func (e Engine) Network() bool {
	switch e {
	case OpenAI, Azure, AzureProxy, Gradio:
		return true
	default:
		return false
	}
}

// ---- Request / Audio ----

// Request is one synthesis request.
type Request struct {
	Text string

	// Rate is the playback speed, 1.0 being normal.
	Rate float64
}

// Validate reports malformed requests.
func (r Request) Validate() error {
	if r.Text == "" {
		return ErrEmptyText
	}
	if r.Rate <= 0 {
		return fmt.Errorf("speech: rate must be positive, got %v", r.Rate)
	}
	return nil
}

// Audio is a finished audio payload.
type Audio struct {
	Data []byte

	// MIME is the content type reported by the back end, e.g. "audio/mpeg".
	MIME string
}

// Empty reports whether the audio carries no payload.
func (a Audio) Empty() bool { return len(a.Data) == 0 }
