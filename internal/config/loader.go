package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	"github.com/MrWong99/yuetip/internal/popup"
	"github.com/MrWong99/yuetip/pkg/provider/speech"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML settings file at path and returns a validated [Config].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over [Default] and validates the result.
// Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg is coherent and returns every problem joined.
// Soft problems that still leave a working setup are logged instead.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	switch cfg.DisplayMode {
	case "", popup.Jyutping, popup.Yale:
	default:
		errs = append(errs, fmt.Errorf("display_mode %q is invalid; valid values: jyutping, yale", cfg.DisplayMode))
	}
	if cfg.Lexicon.Path != "" && cfg.Lexicon.URL != "" {
		errs = append(errs, errors.New("lexicon: set either path or url, not both"))
	}

	// Hover timing.
	if cfg.Hover.Throttle < 0 || cfg.Hover.SelectionGrace < 0 || cfg.Hover.HideGrace < 0 {
		errs = append(errs, errors.New("hover: durations must not be negative"))
	}
	if cfg.Hover.MinDelta < 0 {
		errs = append(errs, fmt.Errorf("hover.min_delta %.1f must not be negative", cfg.Hover.MinDelta))
	}
	if cfg.Popup.Width < 0 || cfg.Popup.ExpandedWidth < 0 || cfg.Popup.Height < 0 {
		errs = append(errs, errors.New("popup: dimensions must not be negative"))
	}
	if cfg.Popup.ExpandedWidth != 0 && cfg.Popup.ExpandedWidth < cfg.Popup.Width {
		errs = append(errs, fmt.Errorf("popup.expanded_width %.0f is smaller than popup.width %.0f", cfg.Popup.ExpandedWidth, cfg.Popup.Width))
	}

	errs = append(errs, validateSpeech(&cfg.Speech, &cfg.Relay)...)
	return errors.Join(errs...)
}

func validateSpeech(s *SpeechConfig, relay *RelayConfig) []error {
	var errs []error
	if s.Engine != "" && !s.Engine.Valid() {
		errs = append(errs, fmt.Errorf("speech.engine %q is invalid; valid values: %v", s.Engine, speech.Engines()))
	}
	if s.Rate != 0 && (s.Rate < 0.5 || s.Rate > 2.0) {
		errs = append(errs, fmt.Errorf("speech.rate %.2f is out of range [0.5, 2.0]", s.Rate))
	}
	if s.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("speech.cache_size %d must not be negative", s.CacheSize))
	}
	if s.RequestsPerSecond < 0 || s.Burst < 0 {
		errs = append(errs, errors.New("speech: requests_per_second and burst must not be negative"))
	}

	// Only the selected engine's block must be complete.
	if s.Enabled {
		switch s.Engine {
		case speech.OpenAI:
			errs = append(errs, requireURL("speech.openai.base_url", s.OpenAI.BaseURL)...)
		case speech.Azure:
			if s.Azure.Key == "" || s.Azure.Region == "" {
				errs = append(errs, errors.New("speech.azure: key and region are required"))
			}
		case speech.AzureProxy:
			errs = append(errs, requireURL("speech.azure_proxy.base_url", s.AzureProxy.BaseURL)...)
		case speech.Gradio:
			errs = append(errs, requireURL("speech.gradio.space", s.Gradio.Space)...)
		case speech.Local:
			if len(s.Local.Command) == 0 {
				slog.Warn("speech.local.command is empty; local speech will fail until configured")
			}
		}
	}
	if s.FallbackLocal && len(s.Local.Command) == 0 {
		slog.Warn("speech.fallback_local is set but speech.local.command is empty; fallback disabled")
	}
	if s.ViaRelay {
		errs = append(errs, requireURL("relay.url", relay.URL)...)
	}
	for i, e := range relay.Engines {
		if !e.Network() {
			errs = append(errs, fmt.Errorf("relay.engines[%d] %q is not a network engine", i, e))
		}
	}
	if len(s.Player.Command) == 0 && s.Player.Dir == "" && s.Engine.Network() {
		slog.Warn("speech.player is not configured; synthesized audio will be discarded")
	}
	return errs
}

func requireURL(field, raw string) []error {
	if raw == "" {
		return []error{fmt.Errorf("%s is required", field)}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return []error{fmt.Errorf("%s %q is not an absolute URL", field, raw)}
	}
	return nil
}
