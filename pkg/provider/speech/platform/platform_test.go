package platform

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

// fakeVoice replays a scripted event sequence from a separate goroutine.
type fakeVoice struct {
	mu      sync.Mutex
	events  []Event
	spoken  []Utterance
	stopped int
	err     error
}

func (v *fakeVoice) Speak(u Utterance, onEvent func(Event)) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return v.err
	}
	v.spoken = append(v.spoken, u)
	events := append([]Event(nil), v.events...)
	go func() {
		for _, ev := range events {
			onEvent(ev)
		}
	}()
	return nil
}

func (v *fakeVoice) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopped++
}

func TestSynthesize(t *testing.T) {
	t.Parallel()

	boom := errors.New("audio device busy")
	tests := []struct {
		name    string
		voice   *fakeVoice
		wantErr error
	}{
		{
			name:  "start then end",
			voice: &fakeVoice{events: []Event{{Type: EventStart}, {Type: EventEnd}}},
		},
		{
			name:    "error event",
			voice:   &fakeVoice{events: []Event{{Type: EventStart}, {Type: EventError, Err: boom}}},
			wantErr: boom,
		},
		{
			name:    "speak refused",
			voice:   &fakeVoice{err: boom},
			wantErr: boom,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := New(tt.voice)
			if err != nil {
				t.Fatal(err)
			}
			audio, err := p.Synthesize(context.Background(), speech.Request{Text: "多謝", Rate: 0.9})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !audio.Empty() {
				t.Error("platform voice should return empty audio")
			}
			tt.voice.mu.Lock()
			defer tt.voice.mu.Unlock()
			want := Utterance{Text: "多謝", Lang: "zh-HK", Rate: 0.9}
			if len(tt.voice.spoken) != 1 || tt.voice.spoken[0] != want {
				t.Errorf("spoken = %+v", tt.voice.spoken)
			}
		})
	}
}

func TestSynthesize_Cancel(t *testing.T) {
	t.Parallel()

	v := &fakeVoice{events: []Event{{Type: EventStart}}}
	p, _ := New(v, WithLang("yue-HK"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Synthesize(ctx, speech.Request{Text: "你", Rate: 1}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped != 1 {
		t.Errorf("stopped = %d, want 1", v.stopped)
	}
	if v.spoken[0].Lang != "yue-HK" {
		t.Errorf("lang = %q", v.spoken[0].Lang)
	}
}

func TestNew_NilVoice(t *testing.T) {
	t.Parallel()
	if _, err := New(nil); err == nil {
		t.Error("expected error")
	}
}
