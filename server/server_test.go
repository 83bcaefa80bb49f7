package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/clubsignup/catalog"
	"github.com/nomis52/clubsignup/clients/activityclient/fakeapi"
)

const csrfKey = "0123456789abcdef0123456789abcdef"

var csrfTokenPattern = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, path, apiURL, extra string) {
	t.Helper()
	content := fmt.Sprintf("api:\n  base_url: %s\n%s", apiURL, extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

type testServer struct {
	api        *fakeapi.API
	srv        *Server
	http       *httptest.Server
	configPath string
}

func newTestServer(t *testing.T, extra string) *testServer {
	t.Helper()
	api := fakeapi.Default()
	apiServer := httptest.NewServer(api)
	t.Cleanup(apiServer.Close)

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, apiServer.URL, extra)

	srv, err := New(path, WithLogger(testLogger()))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testServer{api: api, srv: srv, http: ts, configPath: path}
}

// browser returns a client with its own cookie jar.
func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func get(t *testing.T, c *http.Client, target string) (int, string) {
	t.Helper()
	resp, err := c.Get(target)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func post(t *testing.T, c *http.Client, target string, form url.Values) (int, string) {
	t.Helper()
	resp, err := c.PostForm(target, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestNew_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: not-a-url\n"), 0o600))

	_, err := New(path, WithLogger(testLogger()))
	require.Error(t, err)
}

func TestServer_PageAndSignup(t *testing.T) {
	ts := newTestServer(t, "")
	c := browser(t)

	status, body := get(t, c, ts.http.URL+"/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<h4>Chess Club</h4>")

	// The redirect after the post lands back on the page with the banner.
	status, body = post(t, c, ts.http.URL+"/signup", url.Values{
		"email":    {"new@mergington.edu"},
		"activity": {"Chess Club"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Signed up new@mergington.edu for Chess Club")
	assert.Contains(t, body, `<span class="participant-email">new@mergington.edu</span>`)
	assert.Contains(t, ts.api.Participants("Chess Club"), "new@mergington.edu")
}

func TestServer_SessionsAreSeparate(t *testing.T) {
	ts := newTestServer(t, "")
	alice, bob := browser(t), browser(t)

	_, body := post(t, alice, ts.http.URL+"/signup", url.Values{"email": {"alice@mergington.edu"}})
	assert.Contains(t, body, "Please fill in all fields.")

	_, body = get(t, bob, ts.http.URL+"/")
	assert.NotContains(t, body, "Please fill in all fields.")
	assert.Equal(t, 2, ts.srv.sessions.Len())
}

func TestServer_Unregister(t *testing.T) {
	ts := newTestServer(t, "")
	c := browser(t)

	status, body := get(t, c, ts.http.URL+"/unregister?"+url.Values{
		"activity": {"Chess Club"},
		"email":    {"michael@mergington.edu"},
	}.Encode())
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Are you sure you want to unregister michael@mergington.edu from Chess Club?")

	_, body = post(t, c, ts.http.URL+"/unregister", url.Values{
		"activity": {"Chess Club"},
		"email":    {"michael@mergington.edu"},
		"confirm":  {"yes"},
	})
	assert.Contains(t, body, "Unregistered michael@mergington.edu from Chess Club")
	assert.Equal(t, []string{"daniel@mergington.edu"}, ts.api.Participants("Chess Club"))
}

func TestServer_OperationalEndpoints(t *testing.T) {
	ts := newTestServer(t, "sessions:\n  key: session-secret\n")
	c := browser(t)

	status, body := get(t, c, ts.http.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)

	status, body = get(t, c, ts.http.URL+"/config")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, ts.srv.Config().API.BaseURL)
	assert.NotContains(t, body, "session-secret")

	status, body = get(t, c, ts.http.URL+"/static/style.css")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, ".activity-card")

	get(t, c, ts.http.URL+"/")
	status, body = get(t, c, ts.http.URL+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `clubsignup_catalog_loads_total{outcome="success"} 1`)
	assert.Contains(t, body, "clubsignup_active_sessions 1")
	assert.Contains(t, body, "clubsignup_build_info")
}

func TestServer_Reload(t *testing.T) {
	ts := newTestServer(t, "")
	c := browser(t)

	_, body := get(t, c, ts.http.URL+"/")
	assert.Contains(t, body, "Chess Club")

	other := fakeapi.New(catalog.Activity{Name: "Robotics", Description: "Build robots", Schedule: "Mondays", MaxParticipants: 8})
	otherServer := httptest.NewServer(other)
	t.Cleanup(otherServer.Close)
	writeConfig(t, ts.configPath, otherServer.URL, "")

	resp, err := c.Post(ts.http.URL+"/reload", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, otherServer.URL, ts.srv.Config().API.BaseURL)

	_, body = get(t, c, ts.http.URL+"/")
	assert.Contains(t, body, "<h4>Robotics</h4>")
	assert.NotContains(t, body, "Chess Club")
}

func TestServer_ReloadFailureKeepsConfig(t *testing.T) {
	ts := newTestServer(t, "")
	before := ts.srv.Config().API.BaseURL
	require.NoError(t, os.WriteFile(ts.configPath, []byte("api: ["), 0o600))

	resp, err := http.Post(ts.http.URL+"/reload", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, before, ts.srv.Config().API.BaseURL)
}

func TestServer_CSRF(t *testing.T) {
	ts := newTestServer(t, "csrf:\n  key: "+csrfKey+"\n")
	c := browser(t)

	status, body := get(t, c, ts.http.URL+"/")
	require.Equal(t, http.StatusOK, status)
	m := csrfTokenPattern.FindStringSubmatch(body)
	require.Len(t, m, 2, "page carries a CSRF field")

	form := url.Values{"email": {"new@mergington.edu"}, "activity": {"Chess Club"}}
	status, _ = post(t, c, ts.http.URL+"/signup", form)
	assert.Equal(t, http.StatusForbidden, status)
	assert.NotContains(t, ts.api.Participants("Chess Club"), "new@mergington.edu")

	form.Set("gorilla.csrf.Token", m[1])
	status, body = post(t, c, ts.http.URL+"/signup", form)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(body, "Signed up new@mergington.edu for Chess Club"))
}
