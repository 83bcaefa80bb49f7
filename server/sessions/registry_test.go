package sessions

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/clubsignup/clients/activityclient"
	"github.com/nomis52/clubsignup/clients/activityclient/fakeapi"
	"github.com/nomis52/clubsignup/clock"
	"github.com/nomis52/clubsignup/metrics"
	"github.com/nomis52/clubsignup/page"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pageFactory(t *testing.T) (Factory, *int) {
	t.Helper()
	ts := httptest.NewServer(fakeapi.Default())
	t.Cleanup(ts.Close)
	client, err := activityclient.New(ts.URL, activityclient.WithLogger(testLogger()))
	require.NoError(t, err)

	created := 0
	return func(id string) (*page.Page, error) {
		created++
		return page.New(client, page.WithLogger(testLogger()))
	}, &created
}

func TestNew_RequiresFactory(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestRegistry_Get(t *testing.T) {
	factory, created := pageFactory(t)
	r, err := New(factory, WithLogger(testLogger()))
	require.NoError(t, err)

	p1, isNew, err := r.Get("a")
	require.NoError(t, err)
	assert.True(t, isNew)

	again, isNew, err := r.Get("a")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Same(t, p1, again)

	p2, _, err := r.Get("b")
	require.NoError(t, err)
	assert.NotSame(t, p1, p2, "sessions do not share pages")

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2, *created)

	got, ok := r.Lookup("b")
	assert.True(t, ok)
	assert.Same(t, p2, got)
	_, ok = r.Lookup("c")
	assert.False(t, ok)
}

func TestRegistry_FactoryError(t *testing.T) {
	r, err := New(func(string) (*page.Page, error) { return nil, errors.New("boom") }, WithLogger(testLogger()))
	require.NoError(t, err)

	_, _, err = r.Get("a")
	require.Error(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Sweep(t *testing.T) {
	factory, _ := pageFactory(t)
	fc := clock.NewFake(time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC))
	r, err := New(factory, WithClock(fc), WithIdleTimeout(10*time.Minute), WithLogger(testLogger()))
	require.NoError(t, err)

	_, _, err = r.Get("idle")
	require.NoError(t, err)
	fc.Advance(6 * time.Minute)
	_, _, err = r.Get("busy")
	require.NoError(t, err)

	fc.Advance(5 * time.Minute)
	_, _, err = r.Get("busy")
	require.NoError(t, err)

	assert.Equal(t, 1, r.Sweep())
	_, ok := r.Lookup("idle")
	assert.False(t, ok)
	_, ok = r.Lookup("busy")
	assert.True(t, ok)

	fc.Advance(11 * time.Minute)
	require.NoError(t, r.Run())
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Reset(t *testing.T) {
	factory, created := pageFactory(t)
	r, err := New(factory, WithLogger(testLogger()))
	require.NoError(t, err)

	old, _, err := r.Get("a")
	require.NoError(t, err)

	replaced := 0
	r.Reset(func(id string) (*page.Page, error) {
		replaced++
		return factory(id)
	})
	assert.Equal(t, 0, r.Len())

	p, isNew, err := r.Get("a")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotSame(t, old, p)
	assert.Equal(t, 1, replaced)
	assert.Equal(t, 2, *created)
}

func TestRegistry_ActiveSessionsGauge(t *testing.T) {
	reg, err := metrics.NewScrapeRegistry("clubsignup")
	require.NoError(t, err)
	factory, _ := pageFactory(t)
	r, err := New(factory, WithMetrics(reg), WithLogger(testLogger()))
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		_, _, err := r.Get(id)
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	reg.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "clubsignup_active_sessions 3")
}
