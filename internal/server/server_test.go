package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joeblew999/plat-wxmap/internal/asset"
)

const county = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"JURISDICT_NM":"Spokane"},"geometry":{"type":"Polygon","coordinates":[[[-118,47],[-117,47],[-117,48],[-118,48],[-118,47]]]}}]}`

const stations = `[{"STATION_NAME":"Spokane","COUNTY_ID":"32","LAT":47.4,"LNG":-120.5,"LABEL_FLAG":1,"TEMP":72,"WIND":null}]`

const variables = `variables:
  - id: TEMP
    label: Temperature
  - id: WIND
`

func newServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		asset.OregonMask:               county,
		asset.IdahoMask:                county,
		asset.MontanaMask:              county,
		"WA_State_Boundary.geojson":    county,
		"WA_County_Boundaries.geojson": county,
		asset.StationData:              stations,
		"variables.yaml":               variables,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	srv, err := New(Config{
		Host:          "localhost",
		Port:          "8086",
		DataDir:       dir,
		VariablesFile: filepath.Join(dir, "variables.yaml"),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestPage(t *testing.T) {
	_, ts := newServer(t)

	resp, body := get(t, ts.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	for _, want := range []string{`id="variable-select"`, `<option value="TEMP" selected>Temperature</option>`, `<option value="WIND"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}

	resp, _ = get(t, ts.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status=%d", resp.StatusCode)
	}
}

func TestHealthAndInfo(t *testing.T) {
	_, ts := newServer(t)

	resp, body := get(t, ts.URL+"/health")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Errorf("health: %d %s", resp.StatusCode, body)
	}

	resp, body = get(t, ts.URL+"/api/v1/info")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("info status=%d", resp.StatusCode)
	}
	var info struct {
		Name string `json:"name"`
		DB   bool   `json:"db"`
	}
	if err := json.Unmarshal([]byte(body), &info); err != nil {
		t.Fatal(err)
	}
	if info.Name != "plat-wxmap" || !info.DB {
		t.Errorf("info=%+v", info)
	}
}

func TestSelectUnknownVariable(t *testing.T) {
	_, ts := newServer(t)

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/selection", strings.NewReader(`{"variable":"SNOW"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status=%d, want 422", resp.StatusCode)
	}
}

func TestStationsAfterStart(t *testing.T) {
	srv, ts := newServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b, err := srv.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		query string
		label string
	}{
		{"", `"label":"72"`},
		{"?variable=TEMP", `"label":"72"`},
		{"?variable=WIND", `"label":""`},
	}
	for _, tt := range tests {
		resp, body := get(t, ts.URL+"/api/v1/stations"+tt.query)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status=%d", tt.query, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
			t.Errorf("%s: content type %q", tt.query, ct)
		}
		if !strings.Contains(body, tt.label) {
			t.Errorf("%s: body %s missing %s", tt.query, body, tt.label)
		}
	}

	resp, _ := get(t, ts.URL+"/api/v1/stations?variable=SNOW")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("unknown variable status=%d", resp.StatusCode)
	}
}

func TestSnapshot(t *testing.T) {
	srv, _ := newServer(t)

	var buf bytes.Buffer
	if err := srv.Snapshot(context.Background(), "WIND", &buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 1024 || b.Dy() != 768 {
		t.Errorf("bounds=%v", b)
	}
	if got := srv.Controller().Selection(); got != "WIND" {
		t.Errorf("selection=%s", got)
	}
}

func TestAssetsAndMetrics(t *testing.T) {
	_, ts := newServer(t)

	resp, body := get(t, ts.URL+"/assets/"+asset.StationData)
	if resp.StatusCode != http.StatusOK || body != stations {
		t.Errorf("asset: %d %q", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header %q", got)
	}

	resp, body = get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "go_goroutines") {
		t.Errorf("metrics: %d", resp.StatusCode)
	}
}

func post(t *testing.T, url, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(data)
}

func TestViewerSSE(t *testing.T) {
	srv, ts := newServer(t)

	resp, body := post(t, ts.URL+"/api/v1/viewer/pointer", `{"x":5,"y":5}`)
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("pointer content type %q", ct)
	}
	for _, want := range []string{"datastar-patch-elements", "#tooltip", `"tooltipVisible":false`} {
		if !strings.Contains(body, want) {
			t.Errorf("pointer stream missing %q:\n%s", want, body)
		}
	}

	_, body = post(t, ts.URL+"/api/v1/viewer/select", `{"variable":"SNOW"}`)
	if !strings.Contains(body, "Unknown variable SNOW") {
		t.Errorf("select stream:\n%s", body)
	}

	_, body = post(t, ts.URL+"/api/v1/viewer/select", `{"variable":"WIND"}`)
	if !strings.Contains(body, "#layer-list") || !strings.Contains(body, `"variable":"WIND"`) {
		t.Errorf("select stream:\n%s", body)
	}
	if got := srv.Controller().Selection(); got != "WIND" {
		t.Errorf("selection=%s", got)
	}

	resp, _ = post(t, ts.URL+"/api/v1/viewer/pointer", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing x/y status=%d", resp.StatusCode)
	}
}
