package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/yuetip/internal/config"
	"github.com/MrWong99/yuetip/internal/engine"
	"github.com/MrWong99/yuetip/internal/health"
	"github.com/MrWong99/yuetip/internal/popup"
	"github.com/MrWong99/yuetip/internal/speech"
	"github.com/MrWong99/yuetip/pkg/dict"
	"github.com/MrWong99/yuetip/pkg/dom/page"
)

// hover runs an interactive session over an HTML file. Each stdin line is one
// event:
//
//	move X Y | press X Y | release | escape | scroll | leave
//	at TEXT        move to the first character of TEXT on the page
//	follow WORD    click a relation link
//	toggle N       click gloss N
//	speak          click the headword
//	wait DURATION  let time pass (e.g. 300ms)
func (c *cli) hover(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	doc, err := page.Parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lex := dict.NewLexicon()
	lex.LoadAsync(ctx, lexiconSource(c.cfg.Lexicon))
	c.serveMetrics(ctx, health.Ready("lexicon", lex))

	var opts []engine.Option
	sp := &speakerSlot{}
	if c.cfg.Speech.Enabled {
		d, closer, err := buildDispatcher(c.cfg, c.reg)
		if err != nil {
			slog.Warn("speech unavailable", "err", err)
		} else {
			sp.set(d, closer)
			opts = append(opts, engine.WithSpeaker(d))
		}
	}
	defer sp.close()

	eng := engine.New(doc, lex, popup.NewTextSurface(c.out), c.cfg, opts...)

	if c.configPath != "" {
		w, err := config.NewWatcher(c.configPath, func(old, next *config.Config) {
			c.reload(ctx, eng, sp, old, next)
		})
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	loop := make(chan error, 1)
	go func() { loop <- eng.Run(ctx) }()

	if err := lex.Wait(ctx); err != nil {
		return err
	}
	if err := feed(ctx, eng, doc, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	cancel()
	return <-loop
}

// reload applies a changed settings file to a running session.
func (c *cli) reload(ctx context.Context, eng *engine.Engine, sp *speakerSlot, old, next *config.Config) {
	d := config.Diff(old, next)
	if d.LogLevelChanged {
		c.level.Set(slogLevel(d.NewLogLevel))
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("settings changed that need a restart", "fields", d.RestartRequired)
	}

	var speaker engine.Speaker
	rebuild := d.SpeechChanged && next.Speech.Enabled
	if rebuild {
		var shared []speech.Option
		if cur := sp.get(); cur != nil {
			shared = append(shared, speech.WithCache(cur.Cache()))
		}
		disp, closer, err := buildDispatcher(next, c.reg, shared...)
		if err != nil {
			slog.Warn("speech settings rejected; keeping the previous engine", "err", err)
			rebuild = false
		} else {
			sp.set(disp, closer)
			speaker = disp
		}
	}

	err := eng.Post(ctx, func() {
		eng.ApplySettings(next)
		if rebuild {
			eng.SetSpeaker(speaker)
		}
	})
	if err != nil {
		slog.Debug("settings not applied", "err", err)
		return
	}
	slog.Info("settings reloaded", "enabled", next.Enabled, "display_mode", next.DisplayMode, "speech_engine", next.Speech.Engine)
}

// feed reads events from r until EOF or ctx is done.
func feed(ctx context.Context, eng *engine.Engine, doc *page.Page, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, err := parseCommand(line)
		if err != nil {
			slog.Warn("skipping input line", "line", n, "err", err)
			continue
		}
		if cmd.wait > 0 {
			select {
			case <-time.After(cmd.wait):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		ev := cmd.event
		if cmd.at != "" {
			pt, ok := doc.Locate(cmd.at)
			if !ok {
				slog.Warn("text not on page", "line", n, "text", cmd.at)
				continue
			}
			ev = engine.Event{Kind: engine.Move, X: pt.X, Y: pt.Y}
		}
		if err := eng.Send(ctx, ev); err != nil {
			return err
		}
	}
	return sc.Err()
}

// command is one parsed input line. Exactly one of event, at and wait is
// meaningful.
type command struct {
	event engine.Event
	at    string
	wait  time.Duration
}

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	verb, rest := strings.ToLower(fields[0]), fields[1:]

	simple := map[string]engine.EventKind{
		"release": engine.Release,
		"escape":  engine.Escape,
		"scroll":  engine.Scroll,
		"leave":   engine.Leave,
	}
	if k, ok := simple[verb]; ok {
		return command{event: engine.Event{Kind: k}}, nil
	}

	switch verb {
	case "move", "press":
		if len(rest) != 2 {
			return command{}, fmt.Errorf("%s needs X and Y", verb)
		}
		x, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return command{}, fmt.Errorf("%s: x: %w", verb, err)
		}
		y, err := strconv.ParseFloat(rest[1], 64)
		if err != nil {
			return command{}, fmt.Errorf("%s: y: %w", verb, err)
		}
		kind := engine.Move
		if verb == "press" {
			kind = engine.Press
		}
		return command{event: engine.Event{Kind: kind, X: x, Y: y}}, nil
	case "at":
		if len(rest) == 0 {
			return command{}, errors.New("at needs text")
		}
		return command{at: strings.Join(rest, " ")}, nil
	case "follow":
		if len(rest) != 1 {
			return command{}, errors.New("follow needs one word")
		}
		return command{event: action(engine.Action{Kind: engine.FollowLink, Word: rest[0]})}, nil
	case "toggle":
		if len(rest) != 1 {
			return command{}, errors.New("toggle needs a gloss index")
		}
		i, err := strconv.Atoi(rest[0])
		if err != nil {
			return command{}, fmt.Errorf("toggle: %w", err)
		}
		return command{event: action(engine.Action{Kind: engine.ToggleGloss, Gloss: i})}, nil
	case "speak":
		return command{event: action(engine.Action{Kind: engine.SpeakHeadword})}, nil
	case "wait":
		if len(rest) != 1 {
			return command{}, errors.New("wait needs a duration")
		}
		d, err := time.ParseDuration(rest[0])
		if err != nil {
			return command{}, fmt.Errorf("wait: %w", err)
		}
		if d <= 0 {
			return command{}, errors.New("wait: duration must be positive")
		}
		return command{wait: d}, nil
	}
	return command{}, fmt.Errorf("unknown command %q", verb)
}

func action(a engine.Action) engine.Event {
	return engine.Event{Kind: engine.PopupAction, Action: a}
}

// speakerSlot holds the current dispatcher and the closer of its relay
// connection across settings reloads.
type speakerSlot struct {
	mu     sync.Mutex
	d      *speech.Dispatcher
	closer func()
}

func (s *speakerSlot) set(d *speech.Dispatcher, closer func()) {
	s.mu.Lock()
	prev := s.closer
	s.d, s.closer = d, closer
	s.mu.Unlock()
	if prev != nil {
		prev()
	}
}

func (s *speakerSlot) get() *speech.Dispatcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d
}

func (s *speakerSlot) close() {
	s.mu.Lock()
	closer := s.closer
	s.closer = nil
	s.mu.Unlock()
	if closer != nil {
		closer()
	}
}
