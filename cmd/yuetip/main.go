// Command yuetip is the command-line front end of the Cantonese hover
// dictionary: one-shot lookups, an interactive hover session over an HTML
// page, speech, the speech relay and an MCP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/yuetip/internal/config"
	"github.com/MrWong99/yuetip/internal/health"
	"github.com/MrWong99/yuetip/internal/mcpserver"
	"github.com/MrWong99/yuetip/internal/observe"
	"github.com/MrWong99/yuetip/internal/popup"
	"github.com/MrWong99/yuetip/internal/relay"
	"github.com/MrWong99/yuetip/pkg/dict"
	"github.com/MrWong99/yuetip/pkg/dict/sample"
	"github.com/MrWong99/yuetip/pkg/dom"
)

const usage = `usage: yuetip [-config file] <command> [args]

commands:
  lookup <text>      show the entry for the longest word at the start of text
  segment <text>     split text into dictionary words
  hover <page.html>  run a hover session; events are read from stdin
  speak <word>       speak a word with the configured engine
  relay              serve the speech relay
  mcp                serve lookup tools over MCP on stdio
`

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML settings file (defaults apply when empty)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	// ── Load configuration ────────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "yuetip: settings file %q not found; copy configs/yuetip.example.yaml to get started\n", *configPath)
			} else {
				fmt.Fprintf(os.Stderr, "yuetip: %v\n", err)
			}
			return 1
		}
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "yuetip"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	app := &cli{cfg: cfg, configPath: *configPath, level: level, reg: reg, out: os.Stdout}
	if err := app.dispatch(ctx, cmd, args); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			return 2
		}
		slog.Error("command failed", "command", cmd, "err", err)
		return 1
	}
	return 0
}

var errUsage = errors.New("usage")

// cli carries what every subcommand needs.
type cli struct {
	cfg        *config.Config
	configPath string
	level      *slog.LevelVar
	reg        *config.Registry
	out        io.Writer
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "lookup":
		return c.lookup(ctx, args)
	case "segment":
		return c.segment(ctx, args)
	case "hover":
		return c.hover(ctx, args)
	case "speak":
		return c.speak(ctx, args)
	case "relay":
		return c.relay(ctx)
	case "mcp":
		return c.mcp(ctx)
	default:
		return errUsage
	}
}

// ── One-shot commands ─────────────────────────────────────────────────────────

func (c *cli) lookup(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	lex, err := c.loadLexicon(ctx)
	if err != nil {
		return err
	}
	res, ok := dict.Match(lex, strings.Join(args, " "))
	if !ok {
		fmt.Fprintln(c.out, "no match")
		return nil
	}
	v := popup.NewView(res.Entry, c.cfg.DisplayMode, -1)
	_, err = io.WriteString(c.out, popup.Format(v, dom.Rect{}))
	return err
}

func (c *cli) segment(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	lex, err := c.loadLexicon(ctx)
	if err != nil {
		return err
	}
	for _, seg := range dict.Segmentize(lex, strings.Join(args, " ")) {
		if seg.Entry == nil {
			fmt.Fprintf(c.out, "%s\n", seg.Text)
			continue
		}
		fmt.Fprintf(c.out, "%s\t%s\n", seg.Text, seg.Entry.Pronunciation(c.cfg.DisplayMode == popup.Yale))
	}
	return nil
}

func (c *cli) speak(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if !c.cfg.Speech.Enabled {
		return errors.New("speech is disabled in the settings")
	}
	d, closer, err := buildDispatcher(c.cfg, c.reg)
	if err != nil {
		return err
	}
	defer closer()

	text := strings.Join(args, "")
	res, err := d.Speak(ctx, text, speechSettings(c.cfg))
	if err != nil {
		return err
	}
	slog.Info("spoke", "text", text, "engine", c.cfg.Speech.Engine, "result", res)
	return nil
}

// ── Servers ───────────────────────────────────────────────────────────────────

func (c *cli) relay(ctx context.Context) error {
	backends := relayBackends(c.cfg, c.reg)
	if len(backends) == 0 {
		return errors.New("relay: no network engine is configured")
	}
	srv := relay.NewServer(backends,
		relay.WithMetrics(observe.DefaultMetrics()),
		relay.WithRequestTimeout(c.cfg.Speech.Timeout),
	)
	addr := c.cfg.Relay.ListenAddr
	if addr == "" {
		addr = ":8090"
	}
	slog.Info("relay listening", "addr", addr, "engines", srv.Engines())
	return srv.ListenAndServe(ctx, addr)
}

func (c *cli) mcp(ctx context.Context) error {
	lex := dict.NewLexicon()
	lex.LoadAsync(ctx, lexiconSource(c.cfg.Lexicon))
	c.serveMetrics(ctx, health.Ready("lexicon", lex))

	err := mcpserver.Run(ctx, lex, &mcp.StdioTransport{})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serveMetrics exposes /metrics and the health endpoints when
// server.metrics_addr is set. It stops with ctx.
func (c *cli) serveMetrics(ctx context.Context, checkers ...health.Checker) {
	addr := c.cfg.Server.MetricsAddr
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", observe.MetricsHandler())
	health.New(checkers...).Register(mux)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	go func() {
		slog.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "err", err)
		}
	}()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (c *cli) loadLexicon(ctx context.Context) (*dict.Lexicon, error) {
	lex := dict.NewLexicon()
	if err := lex.Load(ctx, lexiconSource(c.cfg.Lexicon)); err != nil {
		return nil, err
	}
	return lex, nil
}

// lexiconSource picks the configured lexicon, falling back to the bundled
// sample.
func lexiconSource(l config.LexiconConfig) dict.Source {
	switch {
	case l.Path != "":
		return dict.FileSource(l.Path)
	case l.URL != "":
		return dict.HTTPSource{URL: l.URL}
	default:
		return sample.Source()
	}
}

func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
