package server

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-map/internal/provider"
	"github.com/joeblew999/plat-map/internal/service"
	"github.com/joeblew999/plat-map/internal/universal"
)

func newTestServer(t *testing.T) (*httptest.Server, *universal.Map) {
	t.Helper()
	f := provider.NewFactory(service.NewSourceFactory(service.NewHTTPFetcher(0)))
	m := universal.New(f, provider.MapConfig{Provider: provider.Leaflet, Center: orb.Point{13.4, 52.5}, Zoom: 11})
	require.NoError(t, m.Initialize(context.Background()))

	srv := New(Config{Host: "localhost", Port: "0", Map: m})
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
	})
	return ts, m
}

func TestServer_HealthAndLinks(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Values("Link"), `</api/v1/layers>; rel="layers"`)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/map")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "platmap_http_requests_total")
}

func TestServer_OpenAPI(t *testing.T) {
	t.Parallel()
	srv := New(Config{Host: "localhost", Port: "8086", Map: universal.New(provider.NewFactory(service.NewSourceFactory(nil)), provider.MapConfig{Provider: provider.Leaflet})})
	doc := srv.OpenAPI()
	require.NotNil(t, doc)
	assert.Contains(t, doc.Paths, "/api/v1/layers/{id}")
	assert.Contains(t, doc.Paths, "/api/v1/events")
	assert.NotContains(t, doc.Paths, "/api/v1/tables")
}

func TestServer_ViewSignals(t *testing.T) {
	t.Parallel()
	ts, m := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/map/view/signals", "application/json",
		strings.NewReader(`{"lon": 2.35, "lat": 48.85, "zoom": 14}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"zoom":14`)

	v, err := m.View()
	require.NoError(t, err)
	assert.Equal(t, orb.Point{2.35, 48.85}, v.Center)
	assert.Equal(t, 14.0, v.Zoom)

	resp, err = http.Post(ts.URL+"/api/v1/map/view/signals", "application/json", strings.NewReader(`{"pitch": 120}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pitch")
	assert.Contains(t, string(body), "error")

	v, err = m.View()
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Pitch)
}

func TestServer_EventStream(t *testing.T) {
	t.Parallel()
	ts, m := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events?types=layeradd", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	require.NoError(t, m.SetView(provider.View{Center: orb.Point{0, 0}, Zoom: 3}))
	_, err = m.AddLayer(service.LayerDescriptor{ID: "stations", Type: service.LayerPoints, Source: "mock://stations"})
	require.NoError(t, err)

	scanner := bufio.NewScanner(resp.Body)
	var sawSignals bool
	for scanner.Scan() {
		line := scanner.Text()
		assert.NotContains(t, line, `"moveend"`)
		if strings.Contains(line, "lastEvent") && strings.Contains(line, `"layeradd"`) {
			assert.Contains(t, line, `"stations"`)
			sawSignals = true
			break
		}
	}
	assert.True(t, sawSignals, "no layeradd signal received")
}
