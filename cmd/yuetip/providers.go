package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MrWong99/yuetip/internal/config"
	"github.com/MrWong99/yuetip/internal/observe"
	"github.com/MrWong99/yuetip/internal/relay"
	"github.com/MrWong99/yuetip/internal/speech"
	provider "github.com/MrWong99/yuetip/pkg/provider/speech"
	"github.com/MrWong99/yuetip/pkg/provider/speech/azure"
	"github.com/MrWong99/yuetip/pkg/provider/speech/azureproxy"
	"github.com/MrWong99/yuetip/pkg/provider/speech/gradio"
	"github.com/MrWong99/yuetip/pkg/provider/speech/local"
	"github.com/MrWong99/yuetip/pkg/provider/speech/openai"
	"github.com/MrWong99/yuetip/pkg/provider/speech/platform"
)

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires a factory for every speech engine into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterSpeech(provider.Local, func(s config.SpeechConfig) (provider.Provider, error) {
		return local.New(s.Local.Command)
	})

	reg.RegisterSpeech(provider.Platform, func(config.SpeechConfig) (provider.Provider, error) {
		return platform.New(consoleVoice{w: os.Stderr})
	})

	reg.RegisterSpeech(provider.OpenAI, func(s config.SpeechConfig) (provider.Provider, error) {
		var opts []openai.Option
		if s.OpenAI.Voice != "" {
			opts = append(opts, openai.WithVoice(s.OpenAI.Voice))
		}
		if s.OpenAI.Model != "" {
			opts = append(opts, openai.WithModel(s.OpenAI.Model))
		}
		if s.OpenAI.APIKey != "" {
			opts = append(opts, openai.WithAPIKey(s.OpenAI.APIKey))
		}
		if s.Timeout > 0 {
			opts = append(opts, openai.WithTimeout(s.Timeout))
		}
		return openai.New(s.OpenAI.BaseURL, opts...)
	})

	reg.RegisterSpeech(provider.Azure, func(s config.SpeechConfig) (provider.Provider, error) {
		var opts []azure.Option
		if s.Azure.Voice != "" {
			opts = append(opts, azure.WithVoice(s.Azure.Voice))
		}
		if s.Timeout > 0 {
			opts = append(opts, azure.WithTimeout(s.Timeout))
		}
		return azure.New(s.Azure.Key, s.Azure.Region, opts...)
	})

	reg.RegisterSpeech(provider.AzureProxy, func(s config.SpeechConfig) (provider.Provider, error) {
		opts := []azureproxy.Option{azureproxy.WithVoice(s.AzureProxy.Voice)}
		if s.Timeout > 0 {
			opts = append(opts, azureproxy.WithTimeout(s.Timeout))
		}
		return azureproxy.New(s.AzureProxy.BaseURL, opts...)
	})

	reg.RegisterSpeech(provider.Gradio, func(s config.SpeechConfig) (provider.Provider, error) {
		var opts []gradio.Option
		if s.Gradio.Function != "" {
			opts = append(opts, gradio.WithFunction(s.Gradio.Function))
		}
		if s.Gradio.Speaker != "" {
			opts = append(opts, gradio.WithSpeaker(s.Gradio.Speaker))
		}
		if s.Timeout > 0 {
			opts = append(opts, gradio.WithTimeout(s.Timeout))
		}
		return gradio.New(s.Gradio.Space, opts...)
	})

	for _, e := range reg.Engines() {
		slog.Debug("registered speech engine", "engine", e)
	}
}

// buildDispatcher creates the speech dispatcher for cfg. The returned closer
// releases the relay connection, if one was opened.
func buildDispatcher(cfg *config.Config, reg *config.Registry, extra ...speech.Option) (*speech.Dispatcher, func(), error) {
	s := cfg.Speech
	backends := make(map[provider.Engine]provider.Provider)
	closer := func() {}

	switch {
	case s.ViaRelay && s.Engine.Network():
		client := relay.NewClient(cfg.Relay.URL)
		backends[s.Engine] = client.Provider(s.Engine)
		closer = func() {
			if err := client.Close(); err != nil {
				slog.Debug("relay client close", "err", err)
			}
		}
	default:
		p, err := reg.CreateSpeech(s.Engine, s)
		if err != nil {
			return nil, nil, fmt.Errorf("create speech engine %q: %w", s.Engine, err)
		}
		backends[s.Engine] = p
	}

	opts := []speech.Option{
		speech.WithPlayer(speech.NewPlayer(s.Player.Command, s.Player.Dir)),
		speech.WithCacheSize(s.CacheSize),
		speech.WithRateLimit(s.RequestsPerSecond, s.Burst),
		speech.WithTimeout(s.Timeout),
		speech.WithMetrics(observe.DefaultMetrics()),
	}
	opts = append(opts, extra...)
	if s.FallbackLocal && len(s.Local.Command) > 0 && s.Engine != provider.Local {
		fallback, err := reg.CreateSpeech(provider.Local, s)
		if err != nil {
			slog.Warn("local fallback unavailable", "err", err)
		} else {
			opts = append(opts, speech.WithLocalFallback(fallback))
		}
	}

	d, err := speech.NewDispatcher(backends, opts...)
	if err != nil {
		closer()
		return nil, nil, err
	}
	slog.Info("speech ready", "engine", s.Engine, "via_relay", s.ViaRelay && s.Engine.Network(), "rate", s.Rate)
	return d, closer, nil
}

// relayBackends creates the network engines the relay executes: the listed
// relay.engines, or every network engine whose settings are complete.
func relayBackends(cfg *config.Config, reg *config.Registry) map[provider.Engine]provider.Provider {
	engines := cfg.Relay.Engines
	explicit := len(engines) > 0
	if !explicit {
		for _, e := range provider.Engines() {
			if e.Network() {
				engines = append(engines, e)
			}
		}
	}

	backends := make(map[provider.Engine]provider.Provider, len(engines))
	for _, e := range engines {
		p, err := reg.CreateSpeech(e, cfg.Speech)
		switch {
		case err == nil:
			backends[e] = p
		case explicit:
			slog.Warn("relay engine unavailable", "engine", e, "err", err)
		case errors.Is(err, config.ErrProviderNotRegistered):
			slog.Debug("relay engine not registered", "engine", e)
		default:
			slog.Debug("relay engine not configured", "engine", e, "err", err)
		}
	}
	return backends
}

func speechSettings(cfg *config.Config) speech.Settings {
	return speech.Settings{Engine: cfg.Speech.Engine, Rate: cfg.Speech.Rate}
}

// ── Console voice ─────────────────────────────────────────────────────────────

// consoleVoice is the platform voice of the command-line tool: it prints the
// utterance instead of sounding it.
type consoleVoice struct {
	w io.Writer
}

func (v consoleVoice) Speak(u platform.Utterance, onEvent func(platform.Event)) error {
	onEvent(platform.Event{Type: platform.EventStart})
	if _, err := fmt.Fprintf(v.w, "🔊 %s (%s, rate %.2f)\n", u.Text, u.Lang, u.Rate); err != nil {
		onEvent(platform.Event{Type: platform.EventError, Err: err})
		return nil
	}
	onEvent(platform.Event{Type: platform.EventEnd})
	return nil
}

func (consoleVoice) Stop() {}
