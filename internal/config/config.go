// Package config provides the settings schema, loader, watcher and speech
// back-end registry for yuetip.
//
// The engine only ever consumes a *Config snapshot; the [Watcher] swaps in a
// new snapshot when the file changes and [Diff] reports which hover-relevant
// fields moved.
package config

import (
	"time"

	"github.com/MrWong99/yuetip/internal/popup"
	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root settings structure, loaded from YAML with [Load] or
// [LoadFromReader]. Fields absent from the file keep their [Default] values.
type Config struct {
	// Enabled switches hover lookups on or off. Disabling hides any popup.
	Enabled bool `yaml:"enabled"`

	// DisplayMode selects the romanisation shown: "jyutping" or "yale".
	DisplayMode popup.DisplayMode `yaml:"display_mode"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	Lexicon LexiconConfig `yaml:"lexicon"`
	Hover   HoverConfig   `yaml:"hover"`
	Popup   PopupConfig   `yaml:"popup"`
	Speech  SpeechConfig  `yaml:"speech"`
	Relay   RelayConfig   `yaml:"relay"`
	Server  ServerConfig  `yaml:"server"`
}

// LexiconConfig says where the dictionary comes from. At most one of Path
// and URL is set; when both are empty the bundled sample lexicon is used.
type LexiconConfig struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

// HoverConfig holds pointer and popup timing.
type HoverConfig struct {
	// Throttle is the minimum interval between processed pointer samples.
	Throttle time.Duration `yaml:"throttle"`

	// MinDelta is the minimum movement in pixels on either axis.
	MinDelta float64 `yaml:"min_delta"`

	// SelectionGrace suppresses lookups this long after a button release.
	SelectionGrace time.Duration `yaml:"selection_grace"`

	// HideGrace delays hiding after the pointer leaves the word.
	HideGrace time.Duration `yaml:"hide_grace"`
}

// PopupConfig holds the popup size estimates used for placement.
type PopupConfig struct {
	Width         float64 `yaml:"width"`
	ExpandedWidth float64 `yaml:"expanded_width"`
	Height        float64 `yaml:"height"`
}

// Dimensions converts the block to popup dimensions.
func (p PopupConfig) Dimensions() popup.Dimensions {
	return popup.Dimensions{Width: p.Width, ExpandedWidth: p.ExpandedWidth, Height: p.Height}
}

// SpeechConfig selects and configures the speech back end.
type SpeechConfig struct {
	Enabled bool `yaml:"enabled"`

	// Engine selects the back end.
	Engine speech.Engine `yaml:"engine"`

	// Rate is the playback speed, 1.0 being normal.
	Rate float64 `yaml:"rate"`

	// FallbackLocal retries through the local synthesizer when a network
	// engine fails.
	FallbackLocal bool `yaml:"fallback_local"`

	// CacheSize is the number of finished audio payloads kept.
	CacheSize int `yaml:"cache_size"`

	// RequestsPerSecond and Burst limit back-end calls. Zero disables the
	// limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	// Timeout bounds one synthesis, including fallback.
	Timeout time.Duration `yaml:"timeout"`

	// ViaRelay sends network engines through the relay at Relay.URL.
	ViaRelay bool `yaml:"via_relay"`

	Player     PlayerConfig     `yaml:"player"`
	Local      LocalConfig      `yaml:"local"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Azure      AzureConfig      `yaml:"azure"`
	AzureProxy AzureProxyConfig `yaml:"azure_proxy"`
	Gradio     GradioConfig     `yaml:"gradio"`
}

// PlayerConfig says how finished audio is played. With Command set, the
// payload is piped to it on stdin; otherwise, with Dir set, it is written to
// a file there.
type PlayerConfig struct {
	Command []string `yaml:"command"`
	Dir     string   `yaml:"dir"`
}

// LocalConfig configures the local synthesizer command.
type LocalConfig struct {
	// Command may contain {text}, {rate} and {wpm} placeholders.
	Command []string `yaml:"command"`
}

// OpenAIConfig configures an OpenAI-compatible speech endpoint.
type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Voice   string `yaml:"voice"`
	Model   string `yaml:"model"`
}

// AzureConfig configures Azure Cognitive Services speech.
type AzureConfig struct {
	Key    string `yaml:"key"`
	Region string `yaml:"region"`
	Voice  string `yaml:"voice"`
}

// AzureProxyConfig configures a credential-holding Azure proxy.
type AzureProxyConfig struct {
	BaseURL string `yaml:"base_url"`
	Voice   string `yaml:"voice"`
}

// GradioConfig configures a Gradio synthesis space.
type GradioConfig struct {
	Space    string `yaml:"space"`
	Function string `yaml:"function"`
	Speaker  string `yaml:"speaker"`
}

// RelayConfig configures both sides of the relay.
type RelayConfig struct {
	// ListenAddr is where `yuetip relay` listens (e.g. ":8090").
	ListenAddr string `yaml:"listen_addr"`

	// URL is the websocket URL clients dial (e.g. "ws://localhost:8090/ws").
	URL string `yaml:"url"`

	// Engines lists the network engines the relay executes. Empty means all
	// configured network engines.
	Engines []speech.Engine `yaml:"engines"`
}

// ServerConfig holds the metrics listener.
type ServerConfig struct {
	// MetricsAddr, when set, serves /metrics, /healthz and /readyz.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the settings used when no file overrides them.
func Default() *Config {
	dims := popup.DefaultDimensions
	return &Config{
		Enabled:     true,
		DisplayMode: popup.Jyutping,
		LogLevel:    LogInfo,
		Hover: HoverConfig{
			Throttle:       50 * time.Millisecond,
			MinDelta:       5,
			SelectionGrace: 300 * time.Millisecond,
			HideGrace:      popup.DefaultHideGrace,
		},
		Popup: PopupConfig{
			Width:         dims.Width,
			ExpandedWidth: dims.ExpandedWidth,
			Height:        dims.Height,
		},
		Speech: SpeechConfig{
			Enabled:           true,
			Engine:            speech.Local,
			Rate:              0.9,
			CacheSize:         20,
			RequestsPerSecond: 2,
			Burst:             4,
			Timeout:           30 * time.Second,
		},
	}
}

// ApplyDefaults fills zero values that would make the settings unusable, for
// configs built in code rather than loaded.
func ApplyDefaults(cfg *Config) {
	d := Default()
	if cfg.DisplayMode == "" {
		cfg.DisplayMode = d.DisplayMode
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = d.LogLevel
	}
	if cfg.Hover.Throttle == 0 {
		cfg.Hover.Throttle = d.Hover.Throttle
	}
	if cfg.Hover.SelectionGrace == 0 {
		cfg.Hover.SelectionGrace = d.Hover.SelectionGrace
	}
	if cfg.Hover.HideGrace == 0 {
		cfg.Hover.HideGrace = d.Hover.HideGrace
	}
	if cfg.Popup.Width == 0 {
		cfg.Popup.Width = d.Popup.Width
	}
	if cfg.Popup.ExpandedWidth == 0 {
		cfg.Popup.ExpandedWidth = d.Popup.ExpandedWidth
	}
	if cfg.Popup.Height == 0 {
		cfg.Popup.Height = d.Popup.Height
	}
	if cfg.Speech.Engine == "" {
		cfg.Speech.Engine = d.Speech.Engine
	}
	if cfg.Speech.Rate == 0 {
		cfg.Speech.Rate = d.Speech.Rate
	}
	if cfg.Speech.CacheSize == 0 {
		cfg.Speech.CacheSize = d.Speech.CacheSize
	}
	if cfg.Speech.Timeout == 0 {
		cfg.Speech.Timeout = d.Speech.Timeout
	}
}
