package speech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	provider "github.com/MrWong99/yuetip/pkg/provider/speech"
)

// Player plays a finished audio payload.
type Player interface {
	Play(ctx context.Context, a provider.Audio) error
}

// PlayerFunc adapts a function to [Player].
type PlayerFunc func(ctx context.Context, a provider.Audio) error

// Play implements [Player].
func (f PlayerFunc) Play(ctx context.Context, a provider.Audio) error { return f(ctx, a) }

// Discard is a [Player] that drops every payload.
var Discard Player = PlayerFunc(func(context.Context, provider.Audio) error { return nil })

// NewPlayer picks a player from its settings: a command fed on stdin, a
// directory the payload is written into, or [Discard].
func NewPlayer(command []string, dir string) Player {
	switch {
	case len(command) > 0:
		return &ExecPlayer{Command: command}
	case dir != "":
		return &FilePlayer{Dir: dir}
	default:
		return Discard
	}
}

// ---- ExecPlayer ----

// ExecPlayer pipes the payload to a command such as
// ["ffplay", "-nodisp", "-autoexit", "-"].
type ExecPlayer struct {
	Command []string
}

// Play runs the command with the payload on stdin and waits for it to exit.
func (p *ExecPlayer) Play(ctx context.Context, a provider.Audio) error {
	if len(p.Command) == 0 {
		return fmt.Errorf("speech: play: empty command")
	}
	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	cmd.Stdin = bytes.NewReader(a.Data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("speech: play %s: %w: %s", p.Command[0], err, msg)
		}
		return fmt.Errorf("speech: play %s: %w", p.Command[0], err)
	}
	return nil
}

// ---- FilePlayer ----

// FilePlayer writes each payload to a new file in Dir, named by time and
// content type.
type FilePlayer struct {
	Dir string

	// Now names files. Defaults to time.Now.
	Now func() time.Time
}

// Play writes the payload and returns once the file is closed.
func (p *FilePlayer) Play(_ context.Context, a provider.Audio) error {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("speech: play: %w", err)
	}
	name := filepath.Join(p.Dir, now().Format("20060102-150405.000000000")+Extension(a.MIME))
	if err := os.WriteFile(name, a.Data, 0o644); err != nil {
		return fmt.Errorf("speech: play: %w", err)
	}
	return nil
}

// Extension maps an audio content type to a file extension.
func Extension(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	switch strings.TrimSpace(strings.ToLower(mime)) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg", "audio/opus":
		return ".ogg"
	case "audio/flac":
		return ".flac"
	case "audio/aac":
		return ".aac"
	default:
		return ".bin"
	}
}
