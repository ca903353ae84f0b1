// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics and tracing with a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter is wired up by [InitProvider] so that metrics can be scraped via
// the standard /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/riyaazhq/riyaaz"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ReviewDuration tracks the wall time a learner spends on a single item,
	// from presentation to rating.
	ReviewDuration metric.Float64Histogram

	// STTDuration tracks speech-to-text transcription latency during
	// shadowing practice.
	STTDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// --- Score distribution ---

	// PronunciationScore records the 0–100 similarity score of each shadowing
	// attempt.
	PronunciationScore metric.Float64Histogram

	// --- Counters ---

	// ItemsReviewed counts completed reviews. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("outcome", ...)
	ItemsReviewed metric.Int64Counter

	// ItemsAdded counts new vocabulary items by kind.
	ItemsAdded metric.Int64Counter

	// SessionErrors counts per-item failures inside a review session.
	// Use with attribute: attribute.String("stage", ...)
	SessionErrors metric.Int64Counter

	// ProviderErrors counts STT/TTS/translation backend errors. Use with
	// attributes: attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter
}

// reviewDurationBuckets defines histogram bucket boundaries (in seconds) for
// human-paced review interactions.
var reviewDurationBuckets = []float64{
	1, 2.5, 5, 10, 20, 30, 60, 120, 300,
}

// inferenceBuckets defines histogram bucket boundaries (in seconds) for
// STT/TTS backend calls.
var inferenceBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// scoreBuckets covers the 0–100 similarity score range.
var scoreBuckets = []float64{
	0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ReviewDuration, err = m.Float64Histogram("riyaaz.review.duration",
		metric.WithDescription("Wall time spent reviewing a single item."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(reviewDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("riyaaz.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(inferenceBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("riyaaz.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(inferenceBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PronunciationScore, err = m.Float64Histogram("riyaaz.pronunciation.score",
		metric.WithDescription("Similarity score of shadowing attempts, 0-100."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ItemsReviewed, err = m.Int64Counter("riyaaz.items.reviewed",
		metric.WithDescription("Total completed reviews by item kind and outcome."),
	); err != nil {
		return nil, err
	}
	if met.ItemsAdded, err = m.Int64Counter("riyaaz.items.added",
		metric.WithDescription("Total vocabulary items added by kind."),
	); err != nil {
		return nil, err
	}
	if met.SessionErrors, err = m.Int64Counter("riyaaz.session.errors",
		metric.WithDescription("Per-item failures inside a review session by stage."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("riyaaz.provider.errors",
		metric.WithDescription("Backend errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// RecordReview is a convenience method that records one completed review
// with its duration.
func (m *Metrics) RecordReview(ctx context.Context, kind, outcome string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	)
	m.ItemsReviewed.Add(ctx, 1, attrs)
	m.ReviewDuration.Record(ctx, seconds, attrs)
}

// RecordSessionError is a convenience method that records a per-item session
// failure at the given pipeline stage ("tts", "stt", "schedule", "persist").
func (m *Metrics) RecordSessionError(ctx context.Context, stage string) {
	m.SessionErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordProviderError is a convenience method that records a backend error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
