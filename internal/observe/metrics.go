// Package observe provides the recognizer's OpenTelemetry metric
// instruments. Metrics are recorded through the OTel Metrics API only; no
// exporter is configured here, so without an SDK provider installed the
// global no-op provider makes every record free.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all recognizer metrics.
const meterName = "github.com/ieee0824/cuedspeech-go"

// Metrics holds the metric instruments of the streaming pipeline. All
// methods are nil-safe: a nil *Metrics records nothing, so library types can
// carry an optional handle without guarding every call site.
type Metrics struct {
	// FramesSeen counts every frame pushed into a window processor.
	FramesSeen metric.Int64Counter

	// FramesDropped counts frames rejected as invalid.
	FramesDropped metric.Int64Counter

	// WindowsProcessed counts committed overlap-save windows.
	WindowsProcessed metric.Int64Counter

	// InferDuration tracks acoustic model inference latency in seconds.
	InferDuration metric.Float64Histogram

	// DecodeDuration tracks CTC beam-search latency in seconds.
	DecodeDuration metric.Float64Histogram
}

// New creates the instruments on the given provider; pass nil for the
// global provider.
func New(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	var m Metrics
	var err error

	if m.FramesSeen, err = meter.Int64Counter("cuedspeech.frames.seen",
		metric.WithDescription("Frames pushed into the window processor")); err != nil {
		return nil, err
	}
	if m.FramesDropped, err = meter.Int64Counter("cuedspeech.frames.dropped",
		metric.WithDescription("Frames rejected as invalid")); err != nil {
		return nil, err
	}
	if m.WindowsProcessed, err = meter.Int64Counter("cuedspeech.windows.processed",
		metric.WithDescription("Overlap-save windows committed")); err != nil {
		return nil, err
	}
	if m.InferDuration, err = meter.Float64Histogram("cuedspeech.infer.duration",
		metric.WithDescription("Acoustic model inference latency"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.DecodeDuration, err = meter.Float64Histogram("cuedspeech.decode.duration",
		metric.WithDescription("CTC beam search latency"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordFrame counts a pushed frame and, when dropped is set, a rejection.
func (m *Metrics) RecordFrame(ctx context.Context, dropped bool) {
	if m == nil {
		return
	}
	m.FramesSeen.Add(ctx, 1)
	if dropped {
		m.FramesDropped.Add(ctx, 1)
	}
}

// RecordWindow counts one committed window with its inference latency.
func (m *Metrics) RecordWindow(ctx context.Context, inferTime time.Duration) {
	if m == nil {
		return
	}
	m.WindowsProcessed.Add(ctx, 1)
	m.InferDuration.Record(ctx, inferTime.Seconds())
}

// RecordDecode records one beam-search pass.
func (m *Metrics) RecordDecode(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.DecodeDuration.Record(ctx, d.Seconds())
}
