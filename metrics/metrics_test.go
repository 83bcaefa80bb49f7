package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remoteWriteServer decodes every remote write request it receives.
func remoteWriteServer(t *testing.T, status int) (*httptest.Server, chan []prompb.TimeSeries) {
	t.Helper()
	received := make(chan []prompb.TimeSeries, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/write", r.URL.Path)
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "application/x-protobuf", r.Header.Get("Content-Type"))
		assert.Equal(t, "0.1.0", r.Header.Get("X-Prometheus-Remote-Write-Version"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)

		var writeReq prompb.WriteRequest
		require.NoError(t, proto.Unmarshal(decoded, &writeReq))

		received <- writeReq.Timeseries
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, received
}

func findLabel(labels []prompb.Label, name string) string {
	for _, l := range labels {
		if l.Name == name {
			return l.Value
		}
	}
	return ""
}

func receive(t *testing.T, ch chan []prompb.TimeSeries) []prompb.TimeSeries {
	t.Helper()
	select {
	case ts := <-ch:
		return ts
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for metrics to be received")
		return nil
	}
}

func TestNewPushRegistry(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PushConfig
		wantURL string
	}{
		{
			name:    "minimal config",
			cfg:     PushConfig{URL: "http://localhost:8428"},
			wantURL: "http://localhost:8428/api/v1/write",
		},
		{
			name: "full config",
			cfg: PushConfig{
				URL:      "http://localhost:8428/",
				Prefix:   "clubsignup",
				Job:      "clubsignup",
				Instance: "laptop",
				Timeout:  5 * time.Second,
			},
			wantURL: "http://localhost:8428/api/v1/write",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewPushRegistry(tt.cfg)
			require.NotNil(t, registry)
			assert.Equal(t, tt.wantURL, registry.url)
		})
	}
}

func TestPushRegistry_FlushNothing(t *testing.T) {
	server, received := remoteWriteServer(t, http.StatusNoContent)
	registry := NewPushRegistry(PushConfig{URL: server.URL})

	_, err := registry.NewCounter(prometheus.CounterOpts{Name: "untouched"})
	require.NoError(t, err)

	require.NoError(t, registry.Flush(context.Background()))
	assert.Empty(t, received)
}

func TestPushRegistry_Flush(t *testing.T) {
	server, received := remoteWriteServer(t, http.StatusNoContent)
	registry := NewPushRegistry(PushConfig{
		URL:      server.URL,
		Prefix:   "clubsignup",
		Job:      "cli",
		Instance: "laptop",
	})

	gauge, err := registry.NewGauge(prometheus.GaugeOpts{Name: "catalog_activities"})
	require.NoError(t, err)
	gauge.Set(3)
	gauge.Set(9)

	counter, err := registry.NewCounter(prometheus.CounterOpts{Name: "runs_total"})
	require.NoError(t, err)
	counter.Inc()
	counter.Add(2)

	signups, err := registry.NewCounterVec(prometheus.CounterOpts{Name: "signups_total"}, []string{"outcome"})
	require.NoError(t, err)
	signups.With(prometheus.Labels{"outcome": "success"}).Inc()
	signups.With(prometheus.Labels{"outcome": "success"}).Inc()
	signups.With(prometheus.Labels{"outcome": "rejected"}).Inc()

	require.NoError(t, registry.Flush(context.Background()))

	series := receive(t, received)
	require.Len(t, series, 4, "one request carries every series")

	values := make(map[string]float64)
	for _, ts := range series {
		assert.Equal(t, "cli", findLabel(ts.Labels, "job"))
		assert.Equal(t, "laptop", findLabel(ts.Labels, "instance"))
		require.Len(t, ts.Samples, 1)
		key := findLabel(ts.Labels, "__name__")
		if o := findLabel(ts.Labels, "outcome"); o != "" {
			key += "/" + o
		}
		values[key] = ts.Samples[0].Value
	}

	assert.Equal(t, map[string]float64{
		"clubsignup_catalog_activities":     9,
		"clubsignup_runs_total":             3,
		"clubsignup_signups_total/success":  2,
		"clubsignup_signups_total/rejected": 1,
	}, values)
}

func TestPushGaugeVec_WithLabels(t *testing.T) {
	server, received := remoteWriteServer(t, http.StatusOK)
	registry := NewPushRegistry(PushConfig{URL: server.URL})

	gaugeVec, err := registry.NewGaugeVec(prometheus.GaugeOpts{Name: "sessions"}, []string{"state", "node"})
	require.NoError(t, err)
	gaugeVec.With(prometheus.Labels{"state": "active", "node": "a"}).Set(123.0)

	require.NoError(t, registry.Flush(context.Background()))

	series := receive(t, received)
	require.Len(t, series, 1)
	ts := series[0]
	assert.Equal(t, "sessions", ts.Labels[0].Value)
	assert.Equal(t, "node", ts.Labels[1].Name, "labels are sorted after the name")
	assert.Equal(t, "state", ts.Labels[2].Name)
	assert.Equal(t, 123.0, ts.Samples[0].Value)
}

func TestPushRegistry_FlushError(t *testing.T) {
	server, _ := remoteWriteServer(t, http.StatusBadRequest)
	registry := NewPushRegistry(PushConfig{URL: server.URL})

	g, err := registry.NewGauge(prometheus.GaugeOpts{Name: "g"})
	require.NoError(t, err)
	g.Set(1)

	err = registry.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
}

func TestPushCounter_NegativeAddPanics(t *testing.T) {
	registry := NewPushRegistry(PushConfig{URL: "http://localhost:8428"})
	c, err := registry.NewCounter(prometheus.CounterOpts{Name: "c"})
	require.NoError(t, err)
	assert.Panics(t, func() { c.Add(-1) })
}

func TestLabelsToKey(t *testing.T) {
	a := labelsToKey(prometheus.Labels{"b": "2", "a": "1"})
	b := labelsToKey(prometheus.Labels{"a": "1", "b": "2"})
	assert.Equal(t, "a=1,b=2,", a)
	assert.Equal(t, a, b)
}

func TestScrapeRegistry(t *testing.T) {
	registry, err := NewScrapeRegistry("clubsignup")
	require.NoError(t, err)
	require.NotNil(t, registry)

	gauge, err := registry.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	})
	require.NoError(t, err)
	gauge.Set(42.0)

	counter, err := registry.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})
	require.NoError(t, err)
	counter.Inc()

	vec, err := registry.NewCounterVec(prometheus.CounterOpts{
		Namespace: "other",
		Name:      "test_vec",
		Help:      "A test counter vector",
	}, []string{"outcome"})
	require.NoError(t, err)
	vec.With(prometheus.Labels{"outcome": "success"}).Add(2)

	_, err = registry.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "duplicate"})
	assert.Error(t, err)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	registry.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "clubsignup_test_gauge 42")
	assert.Contains(t, body, "clubsignup_test_counter 1")
	assert.Contains(t, body, `other_test_vec{outcome="success"} 2`)
	assert.Contains(t, body, "go_goroutines")
}

func TestDiscard(t *testing.T) {
	g, err := Discard.NewGauge(prometheus.GaugeOpts{Name: "g"})
	require.NoError(t, err)
	g.Set(1)

	gv, err := Discard.NewGaugeVec(prometheus.GaugeOpts{Name: "gv"}, []string{"l"})
	require.NoError(t, err)
	gv.With(prometheus.Labels{"l": "x"}).Set(1)

	c, err := Discard.NewCounter(prometheus.CounterOpts{Name: "c"})
	require.NoError(t, err)
	c.Inc()

	cv, err := Discard.NewCounterVec(prometheus.CounterOpts{Name: "cv"}, []string{"l"})
	require.NoError(t, err)
	cv.With(prometheus.Labels{"l": "x"}).Add(2)
}
