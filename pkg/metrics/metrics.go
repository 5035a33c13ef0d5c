// Package metrics records LiveView runtime and team wizard activity with
// OpenTelemetry instruments and serves the collected data in the
// Prometheus text format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const meterName = "github.com/vendapay/teamwizard/pkg/metrics"

// Submission outcomes.
const (
	SubmitSent        = "sent"
	SubmitRejected    = "rejected"
	SubmitUndelivered = "undelivered"
)

// Latency buckets in seconds.
var durationBounds = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Metrics holds all application instruments. A nil *Metrics is valid and
// records nothing, so callers never need to check.
type Metrics struct {
	namespace string
	reader    *sdkmetric.ManualReader

	connectionsActive  metric.Int64UpDownCounter
	connectionsTotal   metric.Int64Counter
	eventsTotal        metric.Int64Counter
	eventErrors        metric.Int64Counter
	eventsThrottled    metric.Int64Counter
	eventDuration      metric.Float64Histogram
	stepChanges        metric.Int64Counter
	validationFailures metric.Int64Counter
	submissions        metric.Int64Counter
}

// New creates a meter provider backed by a manual reader and registers
// every instrument on it. Exposed series are prefixed with namespace.
func New(namespace string) (*Metrics, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter(meterName)

	m := &Metrics{namespace: namespace, reader: reader}

	var err error
	if m.connectionsActive, err = meter.Int64UpDownCounter("connections_active",
		metric.WithDescription("Open LiveView connections"),
		metric.WithUnit("{connection}")); err != nil {
		return nil, fmt.Errorf("failed to create connections gauge: %w", err)
	}
	if m.connectionsTotal, err = meter.Int64Counter("connections_total",
		metric.WithDescription("LiveView connections accepted"),
		metric.WithUnit("{connection}")); err != nil {
		return nil, fmt.Errorf("failed to create connections counter: %w", err)
	}
	if m.eventsTotal, err = meter.Int64Counter("events_total",
		metric.WithDescription("Client events handled"),
		metric.WithUnit("{event}")); err != nil {
		return nil, fmt.Errorf("failed to create events counter: %w", err)
	}
	if m.eventErrors, err = meter.Int64Counter("event_errors_total",
		metric.WithDescription("Client events that returned an error"),
		metric.WithUnit("{event}")); err != nil {
		return nil, fmt.Errorf("failed to create event error counter: %w", err)
	}
	if m.eventsThrottled, err = meter.Int64Counter("events_throttled_total",
		metric.WithDescription("Client events dropped by the rate limit"),
		metric.WithUnit("{event}")); err != nil {
		return nil, fmt.Errorf("failed to create throttle counter: %w", err)
	}
	if m.eventDuration, err = meter.Float64Histogram("event_duration_seconds",
		metric.WithDescription("Time to handle and render one event"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBounds...)); err != nil {
		return nil, fmt.Errorf("failed to create event duration histogram: %w", err)
	}
	if m.stepChanges, err = meter.Int64Counter("step_changes_total",
		metric.WithDescription("Wizard step changes by target step"),
		metric.WithUnit("{change}")); err != nil {
		return nil, fmt.Errorf("failed to create step counter: %w", err)
	}
	if m.validationFailures, err = meter.Int64Counter("validation_failures_total",
		metric.WithDescription("Failed step validations"),
		metric.WithUnit("{failure}")); err != nil {
		return nil, fmt.Errorf("failed to create validation counter: %w", err)
	}
	if m.submissions, err = meter.Int64Counter("submissions_total",
		metric.WithDescription("Submit attempts by outcome"),
		metric.WithUnit("{submission}")); err != nil {
		return nil, fmt.Errorf("failed to create submission counter: %w", err)
	}

	// Unlabeled series are exposed from the start.
	ctx := context.Background()
	m.connectionsActive.Add(ctx, 0)
	m.connectionsTotal.Add(ctx, 0)
	m.eventsThrottled.Add(ctx, 0)
	return m, nil
}

// ConnectionOpened records an accepted connection.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.connectionsActive.Add(ctx, 1)
	m.connectionsTotal.Add(ctx, 1)
}

// ConnectionClosed records a finished connection.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Add(context.Background(), -1)
}

// EventHandled records one client event, its latency and whether it failed.
func (m *Metrics) EventHandled(event string, d time.Duration, err error) {
	if m == nil {
		return
	}
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("event", event))
	m.eventsTotal.Add(ctx, 1, attrs)
	m.eventDuration.Record(ctx, d.Seconds())
	if err != nil {
		m.eventErrors.Add(ctx, 1, attrs)
	}
}

// EventThrottled records an event dropped by the rate limit.
func (m *Metrics) EventThrottled() {
	if m == nil {
		return
	}
	m.eventsThrottled.Add(context.Background(), 1)
}

// StepChanged records a move to step.
func (m *Metrics) StepChanged(step int) {
	if m == nil {
		return
	}
	m.stepChanges.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("step", strconv.Itoa(step))))
}

// ValidationFailed records a failed validation of step.
func (m *Metrics) ValidationFailed(step int) {
	if m == nil {
		return
	}
	m.validationFailures.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("step", strconv.Itoa(step))))
}

// Submitted records a submit attempt; result is one of the Submit*
// constants.
func (m *Metrics) Submitted(result string) {
	if m == nil {
		return
	}
	m.submissions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("result", result)))
}

// Handler returns an HTTP handler serving the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		if err := m.Expose(r.Context(), w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

// Expose collects the current data and writes every series to w.
func (m *Metrics) Expose(ctx context.Context, w io.Writer) error {
	families, err := m.collect(ctx)
	if err != nil {
		return err
	}
	ew := &errWriter{w: w}
	for _, f := range families {
		fmt.Fprintf(ew, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, f.kind)
		for _, s := range f.samples {
			fmt.Fprintf(ew, "%s %s\n", s.series, formatValue(s.value))
		}
	}
	return ew.err
}

// Value returns the current value of one series as written by Expose,
// without the namespace prefix: "connections_active",
// `events_total{event="inc"}` or "event_duration_seconds_count". Series
// never recorded read as 0.
func (m *Metrics) Value(series string) float64 {
	families, err := m.collect(context.Background())
	if err != nil {
		return 0
	}
	want := m.fullName(series)
	for _, f := range families {
		for _, s := range f.samples {
			if s.series == want {
				return s.value
			}
		}
	}
	return 0
}

type family struct {
	name    string
	help    string
	kind    string
	samples []sample
}

type sample struct {
	series string
	value  float64
}

func (m *Metrics) collect(ctx context.Context) ([]family, error) {
	if m == nil {
		return nil, errors.New("metrics: nil set")
	}
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}

	var families []family
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			f := family{name: m.fullName(md.Name), help: md.Description}
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				f.kind = "gauge"
				if data.IsMonotonic {
					f.kind = "counter"
				}
				for _, dp := range data.DataPoints {
					f.samples = append(f.samples, sample{
						series: f.name + labels(dp.Attributes),
						value:  float64(dp.Value),
					})
				}
			case metricdata.Histogram[float64]:
				f.kind = "histogram"
				for _, dp := range data.DataPoints {
					f.samples = append(f.samples, histogramSamples(f.name, dp)...)
				}
			default:
				continue
			}
			sort.SliceStable(f.samples, func(i, j int) bool {
				return f.samples[i].series < f.samples[j].series
			})
			families = append(families, f)
		}
	}
	sort.Slice(families, func(i, j int) bool { return families[i].name < families[j].name })
	return families, nil
}

func histogramSamples(name string, dp metricdata.HistogramDataPoint[float64]) []sample {
	base := labels(dp.Attributes)
	out := make([]sample, 0, len(dp.Bounds)+3)
	var cumulative uint64
	for i, bound := range dp.Bounds {
		cumulative += dp.BucketCounts[i]
		out = append(out, sample{
			series: name + "_bucket" + withLabel(base, "le", formatValue(bound)),
			value:  float64(cumulative),
		})
	}
	out = append(out,
		sample{series: name + "_bucket" + withLabel(base, "le", "+Inf"), value: float64(dp.Count)},
		sample{series: name + "_sum" + base, value: dp.Sum},
		sample{series: name + "_count" + base, value: float64(dp.Count)},
	)
	return out
}

// labels renders an attribute set as {k="v",...}, keys in sorted order.
func labels(set attribute.Set) string {
	if set.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, set.Len())
	iter := set.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		parts = append(parts, fmt.Sprintf("%s=%q", kv.Key, kv.Value.Emit()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func withLabel(base, key, value string) string {
	pair := fmt.Sprintf("%s=%q", key, value)
	if base == "" {
		return "{" + pair + "}"
	}
	return base[:len(base)-1] + "," + pair + "}"
}

func (m *Metrics) fullName(name string) string {
	if m.namespace == "" {
		return name
	}
	return m.namespace + "_" + name
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
