package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileNames(t *testing.T) {
	assert.ElementsMatch(t, []string{"live.js", "teamwizard.css"}, FileNames())
}

func TestGetFile(t *testing.T) {
	data, err := GetFile("live.js")
	require.NoError(t, err)
	assert.Contains(t, string(data), "phx_join")

	_, err = GetFile("missing.js")
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	srv := http.StripPrefix("/_live", Handler())

	tests := []struct {
		path        string
		code        int
		contentType string
	}{
		{"/_live/live.js", http.StatusOK, "javascript"},
		{"/_live/teamwizard.css", http.StatusOK, "text/css"},
		{"/_live/", http.StatusNotFound, ""},
		{"/_live/nope.js", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.code, rec.Code)
			if tt.contentType != "" {
				assert.Contains(t, rec.Header().Get("Content-Type"), tt.contentType)
				assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
			}
		})
	}
}
