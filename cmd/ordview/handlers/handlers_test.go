package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordview/ordview/cmd/ordview/container"
	"github.com/ordview/ordview/cmd/ordview/handlers"
	"github.com/ordview/ordview/cmd/ordview/middleware"
	"github.com/ordview/ordview/cmd/ordview/routes"
	"github.com/ordview/ordview/common/bootstrap"
	"github.com/ordview/ordview/common/config"
	"github.com/ordview/ordview/common/logger"
)

var (
	htmlID    = strings.Repeat("a", 64) + "i0"
	missingID = strings.Repeat("b", 64) + "i0"
	flakyID   = strings.Repeat("c", 64) + "i1"
)

const htmlBody = "<!DOCTYPE html><html><body>inscribed</body></html>"

// upstream is a fake content explorer
type upstream struct {
	mu     sync.Mutex
	hits   map[string]int
	flaky  bool
	server *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{hits: make(map[string]int), flaky: true}
	u.server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.server.Close)
	return u
}

func (u *upstream) serve(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits[r.URL.Path]++
	flaky := u.flaky
	u.mu.Unlock()

	switch r.URL.Path {
	case "/content/" + htmlID:
		w.Header().Set("Content-Type", "text/html;charset=utf-8")
		w.Write([]byte(htmlBody))
	case "/content/" + flakyID:
		if flaky {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("back again"))
	case "/raw/hello.txt":
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (u *upstream) hitsFor(id string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits["/content/"+id]
}

func (u *upstream) heal() {
	u.mu.Lock()
	u.flaky = false
	u.mu.Unlock()
}

func testConfig(baseURL string, allowPrivate bool) *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{Name: "ordview", Port: 8080, HandleTTL: time.Minute},
		Content: config.ContentConfig{
			BaseURL:           baseURL,
			JSONEndpointExpr:  config.DefaultJSONEndpointExpr,
			FetchTimeout:      5 * time.Second,
			AllowPrivateHosts: allowPrivate,
		},
		Cache: config.CacheConfig{Backend: "memory", MaxEntries: 100, SizeMB: 8},
		Failure: config.FailureConfig{
			Backend:      "memory",
			PermanentTTL: 24 * time.Hour,
			TemporaryTTL: 30 * time.Minute,
			MaxEntries:   100,
		},
	}
}

func newTestService(t *testing.T, allowPrivate bool) (*echo.Echo, *container.Container, *upstream) {
	t.Helper()
	up := newUpstream(t)
	ctx := context.Background()

	components, err := bootstrap.Setup(ctx, "ordview",
		bootstrap.WithCustomConfig(testConfig(up.server.URL, allowPrivate)),
		bootstrap.WithCustomLogger(logger.Discard()),
		bootstrap.WithoutTelemetry(),
	)
	require.NoError(t, err)

	c, err := container.NewContainer(ctx, components)
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close()
		components.Shutdown(ctx)
	})

	e := echo.New()
	e.Use(middleware.RequestID())
	routes.RegisterAll(e, c)
	return e, c, up
}

func do(e *echo.Echo, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeContent(t *testing.T, rec *httptest.ResponseRecorder) handlers.ContentResponse {
	t.Helper()
	var resp handlers.ContentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestGetContentServesOneShotHandle(t *testing.T) {
	e, c, up := newTestService(t, true)

	rec := do(e, http.MethodGet, "/api/v1/content/"+htmlID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeContent(t, rec)
	assert.Equal(t, htmlID, resp.ContentID)
	assert.Equal(t, "network", string(resp.Source))
	assert.Equal(t, "html", string(resp.Analysis.Info.DetectedType))
	assert.Equal(t, "native", string(resp.Analysis.Info.RenderStrategy))
	assert.True(t, resp.IsText)
	assert.Equal(t, len(htmlBody), resp.Size)
	require.True(t, strings.HasPrefix(resp.HandleURL, "/blob/"))

	blob := do(e, http.MethodGet, resp.HandleURL, nil)
	require.Equal(t, http.StatusOK, blob.Code)
	assert.Equal(t, htmlBody, blob.Body.String())
	assert.Equal(t, "text/html;charset=utf-8", blob.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", blob.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "sandbox; default-src 'none'; img-src data: blob:; style-src 'unsafe-inline'", blob.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "same-origin", blob.Header().Get("Cross-Origin-Resource-Policy"))
	assert.NotEmpty(t, blob.Header().Get("ETag"))

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, resp.HandleURL, nil).Code, "one-shot handle is released after serving")
	assert.Zero(t, c.Handles.Len())

	again := decodeContent(t, do(e, http.MethodGet, "/api/v1/content/"+htmlID, nil))
	assert.Equal(t, "cache", string(again.Source))
	assert.Equal(t, 1, up.hitsFor(htmlID))
}

func TestBlobHonoursIfNoneMatch(t *testing.T) {
	e, _, _ := newTestService(t, true)

	resp := decodeContent(t, do(e, http.MethodGet, "/api/v1/content/"+htmlID, nil))

	first := do(e, http.MethodGet, resp.HandleURL, http.Header{"If-None-Match": {"\"stale\""}})
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")

	second := decodeContent(t, do(e, http.MethodGet, "/api/v1/content/"+htmlID, nil))
	notModified := do(e, http.MethodGet, second.HandleURL, http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, notModified.Code)
	assert.Empty(t, notModified.Body.String())
}

func TestInvalidContentIDIsRejected(t *testing.T) {
	e, _, _ := newTestService(t, true)

	for _, target := range []string{
		"/api/v1/content/not-an-id",
		"/api/v1/content/" + strings.Repeat("A", 64) + "i0",
		"/api/v1/content/" + strings.Repeat("a", 64) + "/analysis",
	} {
		assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, target, nil).Code, target)
	}
}

func TestPermanentFailureIsMemoized(t *testing.T) {
	e, _, up := newTestService(t, true)

	rec := do(e, http.MethodGet, "/api/v1/content/"+missingID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, false, body["retryable"])
	assert.Equal(t, false, body["memoized"])
	assert.Contains(t, body["error"], "404")

	rec = do(e, http.MethodGet, "/api/v1/content/"+missingID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, true, decodeMap(t, rec)["memoized"])

	// retry does not bypass a live permanent failure
	rec = do(e, http.MethodPost, "/api/v1/content/"+missingID+"/retry", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, up.hitsFor(missingID))
}

func TestTemporaryFailureRetries(t *testing.T) {
	e, _, up := newTestService(t, true)

	rec := do(e, http.MethodGet, "/api/v1/content/"+flakyID, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, true, decodeMap(t, rec)["retryable"])

	up.heal()

	rec = do(e, http.MethodPost, "/api/v1/content/"+flakyID+"/retry", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "network", string(decodeContent(t, rec).Source))
	assert.Equal(t, 2, up.hitsFor(flakyID))
}

func TestAnalysisCreatesNoHandle(t *testing.T) {
	e, c, _ := newTestService(t, true)

	rec := do(e, http.MethodGet, "/api/v1/content/"+htmlID+"/analysis", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeMap(t, rec)
	assert.Equal(t, "network", body["source"])
	analysis := body["analysis"].(map[string]interface{})
	info := analysis["content_info"].(map[string]interface{})
	assert.Equal(t, "html", info["detected_type"])
	assert.Zero(t, c.Handles.Len())
}

func TestInvalidateForcesRefetch(t *testing.T) {
	e, _, up := newTestService(t, true)

	require.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/v1/content/"+htmlID, nil).Code)
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/api/v1/content/"+htmlID, nil).Code)

	resp := decodeContent(t, do(e, http.MethodGet, "/api/v1/content/"+htmlID, nil))
	assert.Equal(t, "network", string(resp.Source))
	assert.Equal(t, 2, up.hitsFor(htmlID))
}

func TestViewSupersedesAndReleasesHandles(t *testing.T) {
	e, c, _ := newTestService(t, true)

	rec := do(e, http.MethodPost, "/api/v1/views", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	viewID := decodeMap(t, rec)["view_id"].(string)
	require.NotEmpty(t, viewID)

	loadPath := "/api/v1/views/" + viewID + "/content/" + htmlID
	first := decodeContent(t, do(e, http.MethodPut, loadPath, nil))
	assert.Equal(t, viewID, first.ViewID)
	second := decodeContent(t, do(e, http.MethodPut, loadPath, nil))
	require.NotEqual(t, first.HandleURL, second.HandleURL)

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, first.HandleURL, nil).Code, "superseded handle is released")
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, second.HandleURL, nil).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, second.HandleURL, nil).Code, "view handles survive serving")
	assert.Equal(t, 1, c.Handles.Len())

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/api/v1/views/"+viewID+"/content", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, second.HandleURL, nil).Code)

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/api/v1/views/"+viewID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodPut, loadPath, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/api/v1/views/"+viewID, nil).Code)
	assert.Zero(t, c.Handles.Len())
}

func TestViewLoadFailureKeepsPreviousHandle(t *testing.T) {
	e, _, _ := newTestService(t, true)

	viewID := decodeMap(t, do(e, http.MethodPost, "/api/v1/views", nil))["view_id"].(string)
	loaded := decodeContent(t, do(e, http.MethodPut, "/api/v1/views/"+viewID+"/content/"+htmlID, nil))

	rec := do(e, http.MethodPut, "/api/v1/views/"+viewID+"/content/"+missingID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, loaded.HandleURL, nil).Code)
}

func TestViewHandleOutlivesSweeperTTL(t *testing.T) {
	e, c, _ := newTestService(t, true)

	viewID := decodeMap(t, do(e, http.MethodPost, "/api/v1/views", nil))["view_id"].(string)
	viewed := decodeContent(t, do(e, http.MethodPut, "/api/v1/views/"+viewID+"/content/"+htmlID, nil))
	oneShot := decodeContent(t, do(e, http.MethodGet, "/api/v1/content/"+htmlID, nil))

	released := c.Sweeper.Sweep(time.Now().Add(2 * time.Minute))

	assert.Equal(t, 1, released, "only the unserved one-shot handle expires")
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, oneShot.HandleURL, nil).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, viewed.HandleURL, nil).Code, "view handle is owned by its view")

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/api/v1/views/"+viewID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, viewed.HandleURL, nil).Code)
}

func TestAnalyzeURL(t *testing.T) {
	e, _, up := newTestService(t, true)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/api/v1/analyze", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/api/v1/analyze?url=ftp://example.com/x", nil).Code)

	rec := do(e, http.MethodGet, "/api/v1/analyze?url="+up.server.URL+"/raw/hello.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decodeMap(t, rec)["analysis"].(map[string]interface{})["content_info"].(map[string]interface{})
	assert.Equal(t, "text", info["detected_type"])
	assert.Equal(t, true, info["inlineable"])
}

func TestAnalyzeURLBlocksPrivateHosts(t *testing.T) {
	e, _, up := newTestService(t, false)

	rec := do(e, http.MethodGet, "/api/v1/analyze?url="+up.server.URL+"/raw/hello.txt", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "SSRF")
}

func TestStatsReportsCounters(t *testing.T) {
	e, _, _ := newTestService(t, true)

	require.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/v1/content/"+htmlID, nil).Code)

	body := decodeMap(t, do(e, http.MethodGet, "/api/v1/stats", nil))
	loads := body["loads"].(map[string]interface{})
	assert.Equal(t, float64(1), loads["loads"])
	assert.Equal(t, float64(1), loads["network_fetches"])
	handles := body["handles"].(map[string]interface{})
	assert.Equal(t, float64(1), handles["live"])
}

func TestMetricsEndpointMatchesStats(t *testing.T) {
	e, _, _ := newTestService(t, true)

	require.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/v1/content/"+htmlID, nil).Code)

	rec := do(e, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ordview_loader_outcomes_total{outcome="network_fetch"} 1`)
	assert.Contains(t, rec.Body.String(), `ordview_loader_outcomes_total{outcome="load"} 1`)
	assert.Contains(t, rec.Body.String(), `ordview_loader_load_duration_seconds_count{source="network"} 1`)

	body := decodeMap(t, do(e, http.MethodGet, "/api/v1/stats", nil))
	loads := body["loads"].(map[string]interface{})
	assert.Equal(t, float64(1), loads["network_fetches"])
}
