// Package local provides a speech provider that runs a synthesizer command on
// this machine, such as espeak-ng or say. The command speaks directly, so
// Synthesize blocks until it exits and returns empty audio.
//
// Arguments may contain the placeholders {text} and {rate}:
//
//	p, err := local.New([]string{"espeak-ng", "-v", "yue", "-s", "{wpm}", "{text}"})
//
// {wpm} is the rate scaled to words per minute (175 at 1.0).
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

// Compile-time interface assertion.
var _ speech.Provider = (*Provider)(nil)

const baseWPM = 175

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithCapture makes the provider return the command's stdout as audio of the
// given MIME type instead of expecting the command to play it.
func WithCapture(mime string) Option {
	return func(p *Provider) {
		p.captureMIME = mime
	}
}

// Provider implements speech.Provider by executing a command.
type Provider struct {
	command     []string
	captureMIME string
}

// New creates a Provider for the command line cmd.
func New(cmd []string, opts ...Option) (*Provider, error) {
	if len(cmd) == 0 || cmd[0] == "" {
		return nil, errors.New("local: command must not be empty")
	}
	p := &Provider{command: append([]string(nil), cmd...)}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Args returns the command line for req with placeholders expanded.
func (p *Provider) Args(req speech.Request) []string {
	r := strings.NewReplacer(
		"{text}", req.Text,
		"{rate}", strconv.FormatFloat(req.Rate, 'f', -1, 64),
		"{wpm}", strconv.Itoa(int(math.Round(req.Rate*baseWPM))),
	)
	out := make([]string, len(p.command))
	for i, a := range p.command {
		out[i] = r.Replace(a)
	}
	return out
}

// Synthesize implements speech.Provider.
func (p *Provider) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	if err := req.Validate(); err != nil {
		return speech.Audio{}, fmt.Errorf("local: %w", err)
	}
	args := p.Args(req)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return speech.Audio{}, fmt.Errorf("local: %s: %w: %s", args[0], err, msg)
		}
		return speech.Audio{}, fmt.Errorf("local: %s: %w", args[0], err)
	}
	if p.captureMIME == "" {
		return speech.Audio{}, nil
	}
	return speech.Audio{Data: stdout.Bytes(), MIME: p.captureMIME}, nil
}
