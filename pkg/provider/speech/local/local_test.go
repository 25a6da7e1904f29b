package local

import (
	"context"
	"os/exec"
	"slices"
	"testing"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

func TestArgs(t *testing.T) {
	t.Parallel()

	p, err := New([]string{"espeak-ng", "-v", "yue", "-s", "{wpm}", "--rate={rate}", "{text}"})
	if err != nil {
		t.Fatal(err)
	}
	got := p.Args(speech.Request{Text: "你好", Rate: 1.2})
	want := []string{"espeak-ng", "-v", "yue", "-s", "210", "--rate=1.2", "你好"}
	if !slices.Equal(got, want) {
		t.Errorf("Args = %v, want %v", got, want)
	}
}

func TestSynthesize(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	t.Run("speaks directly", func(t *testing.T) {
		t.Parallel()
		p, _ := New([]string{"sh", "-c", "true"})
		audio, err := p.Synthesize(context.Background(), speech.Request{Text: "你好", Rate: 1})
		if err != nil {
			t.Fatal(err)
		}
		if !audio.Empty() {
			t.Errorf("audio = %q, want empty", audio.Data)
		}
	})

	t.Run("capture", func(t *testing.T) {
		t.Parallel()
		p, _ := New([]string{"sh", "-c", "printf '%s' \"$0\"", "{text}"}, WithCapture("text/plain"))
		audio, err := p.Synthesize(context.Background(), speech.Request{Text: "食飯", Rate: 1})
		if err != nil {
			t.Fatal(err)
		}
		if string(audio.Data) != "食飯" || audio.MIME != "text/plain" {
			t.Errorf("audio = %q %q", audio.Data, audio.MIME)
		}
	})

	t.Run("failure", func(t *testing.T) {
		t.Parallel()
		p, _ := New([]string{"sh", "-c", "echo broken >&2; exit 3"})
		if _, err := p.Synthesize(context.Background(), speech.Request{Text: "你", Rate: 1}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestNew_Empty(t *testing.T) {
	t.Parallel()
	if _, err := New(nil); err == nil {
		t.Error("expected error")
	}
}
