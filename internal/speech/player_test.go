package speech

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	provider "github.com/MrWong99/yuetip/pkg/provider/speech"
)

func TestNewPlayer(t *testing.T) {
	t.Parallel()
	if _, ok := NewPlayer([]string{"ffplay", "-"}, "/tmp").(*ExecPlayer); !ok {
		t.Error("command should select ExecPlayer")
	}
	if _, ok := NewPlayer(nil, "/tmp").(*FilePlayer); !ok {
		t.Error("dir should select FilePlayer")
	}
	if NewPlayer(nil, "") == nil {
		t.Error("empty settings should select Discard")
	}
}

func TestExecPlayer_PipesPayload(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "out")
	p := &ExecPlayer{Command: []string{"sh", "-c", "cat > " + out}}
	if err := p.Play(context.Background(), provider.Audio{Data: []byte("mp3 bytes")}); err != nil {
		t.Fatalf("Play: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "mp3 bytes" {
		t.Errorf("stdin = %q", got)
	}
}

func TestExecPlayer_Failure(t *testing.T) {
	t.Parallel()
	p := &ExecPlayer{Command: []string{"sh", "-c", "echo broken >&2; exit 3"}}
	err := p.Play(context.Background(), provider.Audio{Data: []byte("x")})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestFilePlayer(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "audio")
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := &FilePlayer{Dir: dir, Now: func() time.Time { return at }}
	if err := p.Play(context.Background(), provider.Audio{Data: []byte("wav"), MIME: "audio/wav"}); err != nil {
		t.Fatalf("Play: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "20240501-120000.000000000.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "wav" {
		t.Errorf("file = %q", got)
	}
}

func TestExtension(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"audio/mpeg":               ".mp3",
		"audio/wav":                ".wav",
		"audio/ogg; codecs=opus":   ".ogg",
		"Audio/MPEG":               ".mp3",
		"application/octet-stream": ".bin",
	}
	for mime, want := range tests {
		if got := Extension(mime); got != want {
			t.Errorf("Extension(%q) = %q, want %q", mime, got, want)
		}
	}
}
