package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nomis52/clubsignup/clients/activityclient"
	"github.com/nomis52/clubsignup/clients/activityclient/fakeapi"
	"github.com/nomis52/clubsignup/page"
)

const activitiesPattern = "GET /activities"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// singlePage serves the same page to every request.
type singlePage struct {
	page *page.Page
	err  error
}

func (s *singlePage) Page(*http.Request) (*page.Page, error) {
	return s.page, s.err
}

type fixture struct {
	api      *fakeapi.API
	provider *singlePage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := fakeapi.Default()
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	client, err := activityclient.New(ts.URL, activityclient.WithLogger(testLogger()))
	require.NoError(t, err)
	p, err := page.New(client, page.WithLogger(testLogger()))
	require.NoError(t, err)
	t.Cleanup(p.Close)

	return &fixture{api: api, provider: &singlePage{page: p}}
}

func brokenProvider() *singlePage {
	return &singlePage{err: errors.New("no session")}
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func getPage(t *testing.T, f *fixture) string {
	t.Helper()
	w := serve(NewPageHandler(testLogger(), f.provider), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}
