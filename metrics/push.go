package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second
)

// PushRegistry implements Registry for push-based metrics collection.
// Metric values are kept in memory and sent to a VictoriaMetrics/Prometheus
// remote write endpoint by Flush, all series in one request.
type PushRegistry struct {
	url        string
	httpClient *http.Client
	prefix     string
	job        string
	instance   string
	logger     *slog.Logger

	mu     sync.Mutex
	series map[string]*series
}

// PushConfig configures a PushRegistry.
type PushConfig struct {
	// URL is the base URL of the remote write endpoint (e.g., "http://localhost:8428").
	URL string
	// Prefix is the metric name prefix. All metric names will be prefixed with this value
	// followed by an underscore.
	Prefix string
	// Job is the job label for all metrics.
	Job string
	// Instance is the instance label for all metrics.
	Instance string
	// Timeout is the HTTP client timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// series is one named, labelled value.
type series struct {
	name   string
	labels prometheus.Labels
	value  float64
}

// NewPushRegistry creates a new PushRegistry that pushes metrics to the given URL.
func NewPushRegistry(cfg PushConfig) *PushRegistry {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PushRegistry{
		url:        strings.TrimRight(cfg.URL, "/") + "/api/v1/write",
		httpClient: &http.Client{Timeout: timeout},
		prefix:     cfg.Prefix,
		job:        cfg.Job,
		instance:   cfg.Instance,
		logger:     logger,
		series:     make(map[string]*series),
	}
}

// NewGauge creates a new push-based Gauge.
func (r *PushRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	return &pushGauge{registry: r, name: opts.Name}, nil
}

// NewGaugeVec creates a new push-based GaugeVec.
func (r *PushRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	return &pushGaugeVec{registry: r, name: opts.Name, labels: labels}, nil
}

// NewCounter creates a new push-based Counter.
func (r *PushRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	return &pushCounter{registry: r, name: opts.Name}, nil
}

// NewCounterVec creates a new push-based CounterVec.
func (r *PushRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	return &pushCounterVec{registry: r, name: opts.Name, labels: labels}, nil
}

// update applies fn to the stored value of the named series.
func (r *PushRegistry) update(name string, labels prometheus.Labels, fn func(float64) float64) {
	key := name + "{" + labelsToKey(labels) + "}"

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.series[key]
	if !ok {
		s = &series{name: name, labels: labels}
		r.series[key] = s
	}
	s.value = fn(s.value)
}

// Flush sends the current value of every series. Nothing is sent when no
// metric has been touched.
func (r *PushRegistry) Flush(ctx context.Context) error {
	r.mu.Lock()
	keys := make([]string, 0, len(r.series))
	for k := range r.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	now := time.Now()
	timeseries := make([]prompb.TimeSeries, 0, len(keys))
	for _, k := range keys {
		s := r.series[k]
		timeseries = append(timeseries, r.toTimeSeries(s, now))
	}
	r.mu.Unlock()

	if len(timeseries) == 0 {
		return nil
	}

	data, err := proto.Marshal(&prompb.WriteRequest{Timeseries: timeseries})
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}

	compressed := snappy.Encode(nil, data)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	r.logger.Debug("metrics pushed", "series", len(timeseries), "url", r.url)
	return nil
}

// toTimeSeries converts a series to Prometheus TimeSeries format.
func (r *PushRegistry) toTimeSeries(s *series, now time.Time) prompb.TimeSeries {
	promLabels := make([]prompb.Label, 0, len(s.labels)+3)

	metricName := s.name
	if r.prefix != "" {
		metricName = r.prefix + "_" + s.name
	}
	promLabels = append(promLabels, prompb.Label{Name: "__name__", Value: metricName})

	if r.job != "" {
		promLabels = append(promLabels, prompb.Label{Name: "job", Value: r.job})
	}
	if r.instance != "" {
		promLabels = append(promLabels, prompb.Label{Name: "instance", Value: r.instance})
	}

	names := make([]string, 0, len(s.labels))
	for k := range s.labels {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		promLabels = append(promLabels, prompb.Label{Name: k, Value: s.labels[k]})
	}

	return prompb.TimeSeries{
		Labels: promLabels,
		Samples: []prompb.Sample{{
			Value:     s.value,
			Timestamp: now.UnixMilli(),
		}},
	}
}

// pushGauge implements Gauge for push mode.
type pushGauge struct {
	registry *PushRegistry
	name     string
	labels   prometheus.Labels
}

func (g *pushGauge) Set(v float64) {
	g.registry.update(g.name, g.labels, func(float64) float64 { return v })
}

// pushGaugeVec implements GaugeVec for push mode.
type pushGaugeVec struct {
	registry *PushRegistry
	name     string
	labels   []string
}

func (g *pushGaugeVec) With(labels prometheus.Labels) Gauge {
	return &pushGauge{registry: g.registry, name: g.name, labels: labels}
}

// pushCounter implements Counter for push mode.
type pushCounter struct {
	registry *PushRegistry
	name     string
	labels   prometheus.Labels
}

func (c *pushCounter) Inc() {
	c.Add(1)
}

func (c *pushCounter) Add(v float64) {
	if v < 0 {
		panic("counter cannot decrease in value")
	}
	c.registry.update(c.name, c.labels, func(cur float64) float64 { return cur + v })
}

// pushCounterVec implements CounterVec for push mode.
type pushCounterVec struct {
	registry *PushRegistry
	name     string
	labels   []string
}

func (c *pushCounterVec) With(labels prometheus.Labels) Counter {
	return &pushCounter{registry: c.registry, name: c.name, labels: labels}
}

// labelsToKey creates a stable string key from labels.
func labelsToKey(labels prometheus.Labels) string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, k := range names {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}
