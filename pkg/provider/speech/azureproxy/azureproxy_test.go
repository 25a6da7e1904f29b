package azureproxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

func TestSynthesize(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		got  SpeechRequest
		path string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	p, err := New(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	audio, err := p.Synthesize(context.Background(), speech.Request{Text: "唔該", Rate: 1.2})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio.Data) != "mp3" {
		t.Errorf("data = %q", audio.Data)
	}

	mu.Lock()
	defer mu.Unlock()
	if path != Path {
		t.Errorf("path = %q, want %q", path, Path)
	}
	want := SpeechRequest{Input: "唔該", Voice: DefaultVoice, Speed: 1.2}
	if got != want {
		t.Errorf("body = %+v, want %+v", got, want)
	}
}

func TestSynthesize_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name:    "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p, _ := New(srv.URL, WithVoice("zh-HK-HiuGaaiNeural"))
			if _, err := p.Synthesize(context.Background(), speech.Request{Text: "你", Rate: 1}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_EmptyURL(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Error("expected error")
	}
}
