package config_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/yuetip/internal/config"
	"github.com/MrWong99/yuetip/internal/popup"
	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
enabled: true
display_mode: yale
log_level: debug

lexicon:
  path: /usr/share/yuetip/words.json

hover:
  throttle: 40ms
  min_delta: 3
  selection_grace: 250ms
  hide_grace: 150ms

popup:
  width: 320
  expanded_width: 480
  height: 220

speech:
  enabled: true
  engine: openai
  rate: 1.1
  fallback_local: true
  cache_size: 10
  local:
    command: ["say", "-v", "Sinji", "-r", "{wpm}", "{text}"]
  openai:
    base_url: http://localhost:5050
    api_key: secret
    voice: zh-HK-HiuMaanNeural

relay:
  listen_addr: ":8090"
  engines: [openai, gradio]

server:
  metrics_addr: ":9090"
`

func mustLoad(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return cfg
}

// ── loading ──────────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	cfg := mustLoad(t, sampleYAML)

	if cfg.DisplayMode != popup.Yale {
		t.Errorf("display_mode = %q, want yale", cfg.DisplayMode)
	}
	if cfg.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Hover.Throttle != 40*time.Millisecond || cfg.Hover.HideGrace != 150*time.Millisecond {
		t.Errorf("hover = %+v", cfg.Hover)
	}
	if cfg.Popup.Dimensions() != (popup.Dimensions{Width: 320, ExpandedWidth: 480, Height: 220}) {
		t.Errorf("popup = %+v", cfg.Popup)
	}
	if cfg.Speech.Engine != speech.OpenAI || cfg.Speech.Rate != 1.1 || !cfg.Speech.FallbackLocal {
		t.Errorf("speech = %+v", cfg.Speech)
	}
	if len(cfg.Speech.Local.Command) != 6 || cfg.Speech.Local.Command[4] != "{wpm}" {
		t.Errorf("local command = %v", cfg.Speech.Local.Command)
	}
	if !slices.Equal(cfg.Relay.Engines, []speech.Engine{speech.OpenAI, speech.Gradio}) {
		t.Errorf("relay engines = %v", cfg.Relay.Engines)
	}
	if cfg.Server.MetricsAddr != ":9090" {
		t.Errorf("metrics_addr = %q", cfg.Server.MetricsAddr)
	}
}

func TestLoadFromReader_EmptyIsValid(t *testing.T) {
	t.Parallel()
	cfg := mustLoad(t, "")
	def := config.Default()
	if cfg.Speech.Rate != def.Speech.Rate || cfg.Speech.CacheSize != 20 || !cfg.Enabled {
		t.Errorf("empty input should yield defaults, got %+v", cfg)
	}
}

func TestLoadFromReader_PartialKeepsDefaults(t *testing.T) {
	t.Parallel()
	cfg := mustLoad(t, "hover:\n  throttle: 10ms\n")
	if cfg.Hover.Throttle != 10*time.Millisecond {
		t.Errorf("throttle = %v", cfg.Hover.Throttle)
	}
	if cfg.Hover.HideGrace != popup.DefaultHideGrace {
		t.Errorf("hide_grace = %v, want default", cfg.Hover.HideGrace)
	}
	if cfg.Hover.MinDelta != 5 {
		t.Errorf("min_delta = %v, want 5", cfg.Hover.MinDelta)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("speach:\n  rate: 1\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Speech: config.SpeechConfig{Engine: speech.Gradio}}
	config.ApplyDefaults(cfg)

	if cfg.Speech.Engine != speech.Gradio {
		t.Errorf("engine overwritten: %q", cfg.Speech.Engine)
	}
	if cfg.Speech.Rate != 0.9 || cfg.Speech.CacheSize != 20 {
		t.Errorf("speech defaults not applied: %+v", cfg.Speech)
	}
	if cfg.Popup.Dimensions() != popup.DefaultDimensions {
		t.Errorf("popup = %+v", cfg.Popup)
	}
	if cfg.DisplayMode != popup.Jyutping || cfg.LogLevel != config.LogInfo {
		t.Errorf("display_mode/log_level = %q/%q", cfg.DisplayMode, cfg.LogLevel)
	}
}

// ── registry ─────────────────────────────────────────────────────────────────

func TestRegistry_Unknown(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	_, err := reg.CreateSpeech(speech.Azure, config.SpeechConfig{})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_Registered(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	var got config.SpeechConfig
	reg.RegisterSpeech(speech.Gradio, func(cfg config.SpeechConfig) (speech.Provider, error) {
		got = cfg
		return speech.ProviderFunc(func(context.Context, speech.Request) (speech.Audio, error) {
			return speech.Audio{}, nil
		}), nil
	})
	reg.RegisterSpeech(speech.Local, func(config.SpeechConfig) (speech.Provider, error) { return nil, nil })

	p, err := reg.CreateSpeech(speech.Gradio, config.SpeechConfig{Rate: 1.3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("provider is nil")
	}
	if got.Rate != 1.3 {
		t.Errorf("factory got rate %v", got.Rate)
	}
	if e := reg.Engines(); !slices.Equal(e, []speech.Engine{speech.Local, speech.Gradio}) {
		t.Errorf("Engines = %v", e)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	boom := errors.New("boom")
	reg.RegisterSpeech(speech.OpenAI, func(config.SpeechConfig) (speech.Provider, error) {
		return nil, boom
	})
	_, err := reg.CreateSpeech(speech.OpenAI, config.SpeechConfig{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
}
