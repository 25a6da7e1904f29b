package gradio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

func TestScanStream(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		stream  string
		want    string
		wantErr error
	}{
		{
			name:   "path",
			stream: "event: complete\ndata: [{\"path\": \"tmp/a.wav\", \"url\": \"http://x/a.wav\"}]\n\n",
			want:   "tmp/a.wav",
		},
		{
			name:   "url when no path",
			stream: "event: complete\ndata: [\"ok\", {\"url\": \"https://cdn/a.wav\"}]\n",
			want:   "https://cdn/a.wav",
		},
		{
			name:   "name last",
			stream: "data: [null, {\"name\": \"b.wav\"}]\n",
			want:   "b.wav",
		},
		{
			name:   "first element wins",
			stream: "data: [{\"name\": \"first.wav\"}, {\"path\": \"second.wav\"}]\n",
			want:   "first.wav",
		},
		{
			name:   "skips heartbeat and non json",
			stream: "event: heartbeat\ndata: null\ndata: not json\nevent: complete\ndata: [{\"path\": \"c.wav\"}]\n",
			want:   "c.wav",
		},
		{
			name:    "no location",
			stream:  "event: complete\ndata: [\"Success\", null]\n",
			wantErr: ErrNoAudio,
		},
		{
			name:   "error event",
			stream: "event: error\ndata: \"queue full\"\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ScanStream(strings.NewReader(tt.stream))
			if tt.want == "" {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ScanStream: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveFile(t *testing.T) {
	t.Parallel()

	p, _ := New("https://space.hf.space/")
	if got := p.ResolveFile("/tmp/gradio/a.wav"); got != "https://space.hf.space/file=/tmp/gradio/a.wav" {
		t.Errorf("relative = %q", got)
	}
	if got := p.ResolveFile("https://cdn.example/a.wav"); got != "https://cdn.example/a.wav" {
		t.Errorf("absolute = %q", got)
	}
}

func TestArguments(t *testing.T) {
	t.Parallel()

	p, _ := New("http://localhost", WithSpeaker("阿明"))
	args := p.Arguments(speech.Request{Text: "你好", Rate: 2})
	if len(args) != 12 {
		t.Fatalf("len = %d, want 12", len(args))
	}
	if args[0] != "你好" || args[8] != "你好" {
		t.Errorf("text args = %v, %v", args[0], args[8])
	}
	if args[1] != "阿明" {
		t.Errorf("speaker = %v", args[1])
	}
	if args[5] != 0.5 {
		t.Errorf("length = %v, want 0.5", args[5])
	}
	if args[7] != nil {
		t.Errorf("audio prompt = %v, want nil", args[7])
	}
}

func TestSynthesize(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		steps []string
		sent  callRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		steps = append(steps, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/call/synth":
			mu.Lock()
			_ = json.NewDecoder(r.Body).Decode(&sent)
			mu.Unlock()
			_, _ = w.Write([]byte(`{"event_id":"ev42"}`))
		case r.URL.Path == "/call/synth/ev42":
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "event: generating\ndata: null\n\nevent: complete\ndata: [\"Success\", {\"path\": \"tmp/out.wav\"}]\n\n")
		case r.URL.Path == "/file=tmp/out.wav":
			w.Header().Set("Content-Type", "audio/wav")
			_, _ = w.Write([]byte("RIFF"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p, err := New(srv.URL, WithFunction("synth"))
	if err != nil {
		t.Fatal(err)
	}
	audio, err := p.Synthesize(context.Background(), speech.Request{Text: "食飯", Rate: 0.8})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio.Data) != "RIFF" || audio.MIME != "audio/wav" {
		t.Errorf("audio = %q %q", audio.Data, audio.MIME)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"POST /call/synth", "GET /call/synth/ev42", "GET /file=tmp/out.wav"}
	if strings.Join(steps, "|") != strings.Join(want, "|") {
		t.Errorf("steps = %v, want %v", steps, want)
	}
	if len(sent.Data) != 12 || sent.Data[0] != "食飯" || sent.Data[1] != DefaultSpeaker {
		t.Errorf("sent = %v", sent.Data)
	}
	if length, _ := sent.Data[5].(float64); length != 1.25 {
		t.Errorf("length = %v, want 1.25", sent.Data[5])
	}
}

func TestSynthesize_NoEventID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p, _ := New(srv.URL)
	if _, err := p.Synthesize(context.Background(), speech.Request{Text: "你", Rate: 1}); err == nil {
		t.Error("expected error")
	}
}
