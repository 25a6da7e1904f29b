package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/yuetip/internal/health"
	"github.com/MrWong99/yuetip/internal/observe"
	"github.com/MrWong99/yuetip/pkg/provider/speech"
	"github.com/MrWong99/yuetip/pkg/provider/speech/azureproxy"
)

const (
	defaultMaxInFlight = 8
	defaultTimeout     = 30 * time.Second
	shutdownTimeout    = 5 * time.Second
)

// ---- options ----

// Option configures a Server.
type Option func(*Server)

// WithMetrics records to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMaxInFlight bounds concurrent syntheses per connection. Default: 8.
func WithMaxInFlight(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxInFlight = n
		}
	}
}

// WithRequestTimeout bounds one synthesis. Default: 30s.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithCheckers adds readiness checks to /readyz.
func WithCheckers(c ...health.Checker) Option {
	return func(s *Server) {
		s.checkers = append(s.checkers, c...)
	}
}

// ---- Server ----

// Server executes network speech back ends for relay clients.
type Server struct {
	backends    map[speech.Engine]speech.Provider
	metrics     *observe.Metrics
	maxInFlight int
	timeout     time.Duration
	checkers    []health.Checker
}

// NewServer returns a server for backends. Entries for engines that do not
// use the network are ignored.
func NewServer(backends map[speech.Engine]speech.Provider, opts ...Option) *Server {
	s := &Server{
		backends:    make(map[speech.Engine]speech.Provider, len(backends)),
		maxInFlight: defaultMaxInFlight,
		timeout:     defaultTimeout,
	}
	for e, p := range backends {
		if p == nil {
			continue
		}
		if !e.Network() {
			slog.Warn("relay: ignoring non-network engine", "engine", e)
			continue
		}
		s.backends[e] = p
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Engines returns the engines this server executes, in [speech.Engines] order.
func (s *Server) Engines() []speech.Engine {
	var out []speech.Engine
	for _, e := range speech.Engines() {
		if _, ok := s.backends[e]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Handler returns the relay's HTTP routes wrapped in [observe.Middleware].
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+WSPath, s.ServeWS)
	mux.HandleFunc("POST "+azureproxy.Path, s.ServeAzureProxy)
	mux.Handle("GET /metrics", observe.MetricsHandler())

	checks := append([]health.Checker{{
		Name: "engines",
		Check: func(context.Context) error {
			if len(s.backends) == 0 {
				return errors.New("no network engines configured")
			}
			return nil
		},
	}}, s.checkers...)
	health.New(checks...).Register(mux)

	return observe.Middleware(s.metrics)(mux)
}

// ListenAndServe serves [Server.Handler] on addr until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("relay: listening", "addr", addr, "engines", s.Engines())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay: listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// ServeWS upgrades the request and serves relay requests until the client
// disconnects.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("relay: websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	s.metrics.RelayConnections.Add(ctx, 1)
	defer s.metrics.RelayConnections.Add(context.WithoutCancel(ctx), -1)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(connCtx)
	g.SetLimit(s.maxInFlight)

	var readErr error
	for {
		var req Request
		if readErr = wsjson.Read(gctx, conn, &req); readErr != nil {
			break
		}
		g.Go(func() error {
			resp := s.execute(gctx, req)
			if err := wsjson.Write(gctx, conn, resp); err != nil {
				return fmt.Errorf("relay: write response %d: %w", req.ID, err)
			}
			return nil
		})
	}
	// The client is gone; abandon its outstanding syntheses.
	cancel()
	if err := g.Wait(); err != nil {
		slog.Debug("relay: connection ended with write error", "err", err)
	}

	switch status := websocket.CloseStatus(readErr); {
	case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
		conn.Close(websocket.StatusNormalClosure, "")
	case ctx.Err() != nil:
		conn.Close(websocket.StatusGoingAway, "shutting down")
	default:
		slog.Debug("relay: read failed", "err", readErr)
		conn.Close(websocket.StatusProtocolError, "bad request")
	}
}

// execute runs one request and never fails; errors travel in the response.
func (s *Server) execute(ctx context.Context, req Request) Response {
	ctx, span := observe.StartSpan(ctx, "relay.execute")
	audio, err := s.synthesize(ctx, req.Engine, speech.Request{Text: req.Text, Rate: req.Rate})
	observe.EndSpan(span, err)
	s.metrics.RecordRelayRequest(ctx, string(req.Engine), err)
	if err != nil {
		observe.Logger(ctx).Warn("relay: synthesis failed", "engine", req.Engine, "id", req.ID, "err", err)
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Audio: audio.Data, MIME: audio.MIME}
}

func (s *Server) synthesize(ctx context.Context, engine speech.Engine, req speech.Request) (speech.Audio, error) {
	p, ok := s.backends[engine]
	if !ok {
		return speech.Audio{}, fmt.Errorf("relay: engine %q not served here", engine)
	}
	if err := req.Validate(); err != nil {
		return speech.Audio{}, fmt.Errorf("relay: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return p.Synthesize(ctx, req)
}

// ServeAzureProxy answers the Azure proxy protocol using the Azure back end,
// so [azureproxy.Provider] clients never hold the subscription key.
func (s *Server) ServeAzureProxy(w http.ResponseWriter, r *http.Request) {
	var body azureproxy.SpeechRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Speed == 0 {
		body.Speed = 1
	}

	ctx := r.Context()
	audio, err := s.synthesize(ctx, speech.Azure, speech.Request{Text: body.Input, Rate: body.Speed})
	s.metrics.RecordRelayRequest(ctx, string(speech.AzureProxy), err)
	switch {
	case errors.Is(err, speech.ErrEmptyText):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil && !slices.Contains(s.Engines(), speech.Azure):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		observe.Logger(ctx).Warn("relay: azure proxy synthesis failed", "err", err)
		http.Error(w, "synthesis failed", http.StatusBadGateway)
		return
	}

	mime := audio.MIME
	if mime == "" {
		mime = "audio/mpeg"
	}
	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio.Data)
}
