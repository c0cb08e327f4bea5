package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testID = strings.Repeat("d", 64) + "i0"

func newExplorer(t *testing.T) *httptest.Server {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/content/" + testID:
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write([]byte(`{"a":1}`))
		case "/preview.svg":
			w.Header().Set("Content-Type", "image/svg+xml")
			w.Write([]byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("FAILURE_BACKEND", "memory")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadPrintsSummary(t *testing.T) {
	ts := newExplorer(t)
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "content.bin")

	out, err := run(t, "load", testID, "--base-url", ts.URL, "--text", "-o", outputPath)
	require.NoError(t, err)

	var summary loadSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary), out)
	assert.Equal(t, testID, summary.ContentID)
	assert.Equal(t, "network", string(summary.Source))
	assert.Equal(t, 7, summary.Size)
	assert.Equal(t, "json", string(summary.Analysis.Info.DetectedType))
	assert.True(t, summary.Analysis.Info.Inlineable)
	assert.Empty(t, summary.Text, "octet-stream is not decoded as text")

	written, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(written))
}

func TestLoadRejectsInvalidID(t *testing.T) {
	_, err := run(t, "load", "nope")
	assert.Error(t, err)
}

func TestLoadReportsPermanentFailure(t *testing.T) {
	ts := newExplorer(t)
	missing := strings.Repeat("e", 64) + "i3"

	_, err := run(t, "load", missing, "--base-url", ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retryable=false")
}

func TestAnalyzePrintsClassification(t *testing.T) {
	ts := newExplorer(t)

	out, err := run(t, "analyze", ts.URL+"/preview.svg")
	require.NoError(t, err)

	var analysis map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &analysis), out)
	info := analysis["content_info"].(map[string]interface{})
	assert.Equal(t, "svg", info["detected_type"])
}

func TestAnalyzeRejectsNonHTTP(t *testing.T) {
	_, err := run(t, "analyze", "file:///etc/passwd")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ordctl dev\n", out)
}
