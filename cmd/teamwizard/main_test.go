package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendapay/teamwizard/internal/config"
	"github.com/vendapay/teamwizard/pkg/logging"
	"github.com/vendapay/teamwizard/pkg/wizard"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestStrengthCommand(t *testing.T) {
	out := execute(t, "strength", "Abcdef1!")
	assert.Equal(t, "score: 4/4\nclass: strong\n", out)
}

func TestStepsCommand(t *testing.T) {
	out := execute(t, "steps")

	steps, err := wizard.LoadSteps(bytes.NewBufferString(out))
	require.NoError(t, err)
	assert.Equal(t, wizard.TeamSteps(), steps)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	r, err := newHandler(cfg, logging.NopLogger{})
	require.NoError(t, err)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServe_Page(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="userFormModal"`)
	assert.Contains(t, body, `/_live/live.js`)
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
	assert.NotEmpty(t, resp.Header.Get(logging.RequestIDHeader))

	resp, body = get(t, srv.URL+"/?open=1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `class="modal show"`)

	resp, _ = get(t, srv.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServe_Assets(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/_live/live.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "phx_join")

	resp, _ = get(t, srv.URL+"/_live/teamwizard.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServe_Health(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, version, status.Version)

	resp, _ = get(t, srv.URL+"/livez")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServe_Metrics(t *testing.T) {
	srv := newTestServer(t)

	get(t, srv.URL+"/")
	resp, body := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "# TYPE teamwizard_connections_active gauge")
	assert.Contains(t, body, `teamwizard_step_changes_total{step="1"}`)
}
