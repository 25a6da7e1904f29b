// Package observe provides observability primitives for yuetip: OpenTelemetry
// metrics, tracing, trace-aware structured logging and an HTTP middleware for
// the relay server.
//
// Metrics are recorded through the OpenTelemetry Metrics API and scraped from
// /metrics through the Prometheus exporter set up by [InitProvider]. Tests
// should use [NewMetrics] with their own [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all yuetip metrics.
const meterName = "github.com/MrWong99/yuetip"

// Metrics holds all OpenTelemetry metric instruments for the application.
type Metrics struct {
	// --- Hover pipeline ---

	// Lookups counts dictionary matches attempted on hover. Attribute:
	//   attribute.String("result", "hit"|"miss")
	Lookups metric.Int64Counter

	// AnchorResolutions counts pointer-to-caret resolutions by the strategy
	// that produced the caret ("" when none did). Attribute:
	//   attribute.String("strategy", ...)
	AnchorResolutions metric.Int64Counter

	// PopupTransitions counts popup state changes. Attributes:
	//   attribute.String("from", ...), attribute.String("to", ...)
	PopupTransitions metric.Int64Counter

	// --- Speech ---

	// SpeechRequests counts back-end synthesis calls. Attributes:
	//   attribute.String("engine", ...), attribute.String("status", "ok"|"error")
	SpeechRequests metric.Int64Counter

	// SpeechCache counts cache lookups. Attribute:
	//   attribute.String("result", "hit"|"miss"|"stale")
	SpeechCache metric.Int64Counter

	// SpeechDuration tracks back-end synthesis latency per engine.
	SpeechDuration metric.Float64Histogram

	// BreakerTransitions counts circuit breaker state changes. Attributes:
	//   attribute.String("engine", ...), attribute.String("to", ...)
	BreakerTransitions metric.Int64Counter

	// --- Relay ---

	// RelayRequests counts synthesis requests served by the relay.
	// Attributes: attribute.String("engine", ...), attribute.String("status", ...)
	RelayRequests metric.Int64Counter

	// RelayConnections tracks the number of open relay websocket connections.
	RelayConnections metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets covers speech back ends from a warm local cache hit to a
// slow Gradio job (seconds).
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Lookups, err = m.Int64Counter("yuetip.lookups",
		metric.WithDescription("Dictionary lookups on hover by result."),
	); err != nil {
		return nil, err
	}
	if met.AnchorResolutions, err = m.Int64Counter("yuetip.anchor.resolutions",
		metric.WithDescription("Pointer-to-caret resolutions by strategy."),
	); err != nil {
		return nil, err
	}
	if met.PopupTransitions, err = m.Int64Counter("yuetip.popup.transitions",
		metric.WithDescription("Popup state transitions."),
	); err != nil {
		return nil, err
	}
	if met.SpeechRequests, err = m.Int64Counter("yuetip.speech.requests",
		metric.WithDescription("Speech back-end requests by engine and status."),
	); err != nil {
		return nil, err
	}
	if met.SpeechCache, err = m.Int64Counter("yuetip.speech.cache",
		metric.WithDescription("Speech cache lookups by result."),
	); err != nil {
		return nil, err
	}
	if met.SpeechDuration, err = m.Float64Histogram("yuetip.speech.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("yuetip.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes by engine."),
	); err != nil {
		return nil, err
	}
	if met.RelayRequests, err = m.Int64Counter("yuetip.relay.requests",
		metric.WithDescription("Synthesis requests served by the relay."),
	); err != nil {
		return nil, err
	}
	if met.RelayConnections, err = m.Int64UpDownCounter("yuetip.relay.connections",
		metric.WithDescription("Open relay websocket connections."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("yuetip.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, created on
// first call from [otel.GetMeterProvider]. Call it after [InitProvider] so the
// instruments bind to the Prometheus exporter.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// Status maps an error to the "status" attribute value.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordLookup records one hover lookup.
func (m *Metrics) RecordLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.Lookups.Add(ctx, 1, metric.WithAttributes(Attr("result", result)))
}

// RecordResolution records which strategy resolved a caret.
func (m *Metrics) RecordResolution(ctx context.Context, strategy string) {
	if strategy == "" {
		strategy = "none"
	}
	m.AnchorResolutions.Add(ctx, 1, metric.WithAttributes(Attr("strategy", strategy)))
}

// RecordTransition records a popup state change.
func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	m.PopupTransitions.Add(ctx, 1, metric.WithAttributes(Attr("from", from), Attr("to", to)))
}

// RecordSpeechRequest records one back-end call and its latency.
func (m *Metrics) RecordSpeechRequest(ctx context.Context, engine string, seconds float64, err error) {
	m.SpeechRequests.Add(ctx, 1, metric.WithAttributes(Attr("engine", engine), Attr("status", Status(err))))
	m.SpeechDuration.Record(ctx, seconds, metric.WithAttributes(Attr("engine", engine)))
}

// RecordSpeechCache records a cache lookup result: "hit", "miss" or "stale".
func (m *Metrics) RecordSpeechCache(ctx context.Context, result string) {
	m.SpeechCache.Add(ctx, 1, metric.WithAttributes(Attr("result", result)))
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, engine, to string) {
	m.BreakerTransitions.Add(ctx, 1, metric.WithAttributes(Attr("engine", engine), Attr("to", to)))
}

// RecordRelayRequest records one request served by the relay.
func (m *Metrics) RecordRelayRequest(ctx context.Context, engine string, err error) {
	m.RelayRequests.Add(ctx, 1, metric.WithAttributes(Attr("engine", engine), Attr("status", Status(err))))
}
