package main

import (
	"testing"
	"time"

	"github.com/MrWong99/yuetip/internal/engine"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line    string
		want    command
		wantErr bool
	}{
		{line: "move 10 20.5", want: command{event: engine.Event{Kind: engine.Move, X: 10, Y: 20.5}}},
		{line: "PRESS 1 2", want: command{event: engine.Event{Kind: engine.Press, X: 1, Y: 2}}},
		{line: "release", want: command{event: engine.Event{Kind: engine.Release}}},
		{line: "escape", want: command{event: engine.Event{Kind: engine.Escape}}},
		{line: "scroll", want: command{event: engine.Event{Kind: engine.Scroll}}},
		{line: "leave", want: command{event: engine.Event{Kind: engine.Leave}}},
		{line: "at 屈機", want: command{at: "屈機"}},
		{line: "follow 屈機王", want: command{event: action(engine.Action{Kind: engine.FollowLink, Word: "屈機王"})}},
		{line: "toggle 1", want: command{event: action(engine.Action{Kind: engine.ToggleGloss, Gloss: 1})}},
		{line: "speak", want: command{event: action(engine.Action{Kind: engine.SpeakHeadword})}},
		{line: "wait 300ms", want: command{wait: 300 * time.Millisecond}},

		{line: "move 10", wantErr: true},
		{line: "move x 1", wantErr: true},
		{line: "at", wantErr: true},
		{line: "toggle one", wantErr: true},
		{line: "wait soon", wantErr: true},
		{line: "wait -1s", wantErr: true},
		{line: "dance", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			got, err := parseCommand(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseCommand(%q) = %+v, want error", tt.line, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCommand(%q): %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("parseCommand(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}
