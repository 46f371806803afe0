package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"netsentry/internal/anomaly"
	"netsentry/internal/corpus"
	"netsentry/internal/metrics"
	"netsentry/internal/model"
)

func fitTestDetector(t *testing.T, samples int) *anomaly.Detector {
	t.Helper()
	features := corpus.Generate(corpus.Options{Samples: samples, Contamination: 0.03, Seed: 42})
	det, err := anomaly.Fit(features, anomaly.FitOptions{Seed: 42})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	return det
}

func newTestServer(t *testing.T, artifactDir string) (*Server, *Hub) {
	t.Helper()
	m := metrics.New()
	h := New(NewRegistry(), m, 16)
	h.Start()
	return NewServer(h, m, fitTestDetector(t, 400), artifactDir, 16, 2*time.Second), h
}

func validEventJSON() string {
	return `{
		"host": "host-a",
		"timestamp": "2025-06-01T12:00:00Z",
		"process": "curl",
		"pid": 101,
		"local": "10.0.0.5:50432",
		"remote": "1.2.3.4:443",
		"status": "ESTABLISHED",
		"exe_path": "/usr/bin/curl",
		"label": "Normal",
		"score": null
	}`
}

func TestServer_IngestAndBroadcast(t *testing.T) {
	// 1. Attach a sink so the broadcast is observable
	srv, h := newTestServer(t, "")
	sink := &fakeSink{}
	h.Registry().Add(sink)
	router := srv.Router()

	// 2. Post a valid event
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/events", strings.NewReader(validEventJSON()))
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp["status"] != "ok" {
		t.Errorf("Expected {\"status\":\"ok\"}, got %s", rr.Body.String())
	}

	// 3. Stopping the hub drains the queue; the frame must have landed
	h.Stop()
	if len(sink.frames) != 1 {
		t.Fatalf("Expected 1 broadcast frame, got %d", len(sink.frames))
	}
	var env Envelope
	if err := json.Unmarshal(sink.frames[0], &env); err != nil {
		t.Fatalf("Broadcast frame is not a valid envelope: %v", err)
	}
	if env.Type != "event" || env.Payload.Host != "host-a" || env.Payload.Remote != "1.2.3.4:443" {
		t.Errorf("Unexpected broadcast envelope: %+v", env)
	}
}

func TestServer_IngestValidation(t *testing.T) {
	srv, h := newTestServer(t, "")
	defer h.Stop()
	router := srv.Router()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"host":`, http.StatusBadRequest},
		{"missing host", `{"timestamp":"2025-06-01T12:00:00Z","local":"a:1","remote":"b:2","status":"ESTABLISHED"}`, http.StatusBadRequest},
		{"missing timestamp", `{"host":"h","local":"a:1","remote":"b:2","status":"ESTABLISHED"}`, http.StatusBadRequest},
		{"bad status", `{"host":"h","timestamp":"2025-06-01T12:00:00Z","local":"a:1","remote":"b:2","status":"TIME_WAIT"}`, http.StatusBadRequest},
		{"bad label", `{"host":"h","timestamp":"2025-06-01T12:00:00Z","local":"a:1","remote":"b:2","status":"LISTEN","label":"weird"}`, http.StatusBadRequest},
		{"empty label defaults", `{"host":"h","timestamp":"2025-06-01T12:00:00Z","local":"a:1","remote":"N/A","status":"LISTEN"}`, http.StatusOK},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/events", strings.NewReader(c.body))
		router.ServeHTTP(rr, req)
		if rr.Code != c.want {
			t.Errorf("%s: expected %d, got %d (%s)", c.name, c.want, rr.Code, rr.Body.String())
		}
	}
}

func TestServer_Score(t *testing.T) {
	srv, h := newTestServer(t, "")
	defer h.Stop()
	router := srv.Router()

	cases := []struct {
		body string
		want model.Label
	}{
		{`{"connection_duration": 300, "packet_size": 9000, "port_number": 51000}`, model.LabelAnomaly},
		{`{"connection_duration": 12, "packet_size": 1400, "port_number": 443}`, model.LabelNormal},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/score", strings.NewReader(c.body))
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp scoreResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode score response: %v", err)
		}
		if resp.Label != c.want {
			t.Errorf("Expected label %s for %s, got %s (score %v)", c.want, c.body, resp.Label, resp.Score)
		}
		if (resp.Label == model.LabelAnomaly) != (resp.Score < 0) {
			t.Errorf("Label %s inconsistent with score %v", resp.Label, resp.Score)
		}
	}
}

func TestServer_ScoreValidation(t *testing.T) {
	srv, h := newTestServer(t, "")
	defer h.Stop()
	router := srv.Router()

	cases := []string{
		`{"connection_duration": 10, "packet_size": 1400}`,
		`{"packet_size": 1400, "port_number": 443}`,
		`{}`,
		`{"connection_duration": "ten", "packet_size": 1400, "port_number": 443}`,
		`not json`,
	}
	for _, body := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/score", strings.NewReader(body))
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %s, got %d", body, rr.Code)
		}
	}
}

func TestServer_Status(t *testing.T) {
	srv, h := newTestServer(t, "")
	defer h.Stop()
	router := srv.Router()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode status response: %v", err)
	}
	if resp.Status != "ok" || resp.Subscribers != 0 {
		t.Errorf("Unexpected status response: %+v", resp)
	}
	if resp.Model.Samples != 400 || resp.Model.Trees != 100 {
		t.Errorf("Expected the loaded model summary, got %+v", resp.Model)
	}
}

func TestServer_ModelReload(t *testing.T) {
	// 1. Persist a second model to reload from
	tmpDir, err := os.MkdirTemp("", "reload_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	next := fitTestDetector(t, 600)
	if err := next.Save(tmpDir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	srv, h := newTestServer(t, tmpDir)
	defer h.Stop()
	router := srv.Router()

	// 2. Reload swaps the detector
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/model/reload", nil)
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if srv.detector.Load().Summary.Samples != 600 {
		t.Errorf("Expected reloaded model with 600 samples, got %+v", srv.detector.Load().Summary)
	}

	// 3. A broken artifact directory fails the reload and keeps the old model
	if err := os.Remove(tmpDir + "/forest.gob"); err != nil {
		t.Fatalf("Failed to remove artifact: %v", err)
	}
	rr = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/v1/model/reload", nil)
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for broken artifacts, got %d", rr.Code)
	}
	if srv.detector.Load().Summary.Samples != 600 {
		t.Errorf("Expected the previous model to keep serving, got %+v", srv.detector.Load().Summary)
	}
}

func TestServer_WebSocketDelivery(t *testing.T) {
	// 1. Run the full HTTP surface
	srv, h := newTestServer(t, "")
	defer h.Stop()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	// 2. Attach a live subscriber
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()

	// 3. Ingest an event over HTTP
	resp, err := http.Post(ts.URL+"/api/v1/events", "application/json", strings.NewReader(validEventJSON()))
	if err != nil {
		t.Fatalf("Failed to post event: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	// 4. The frame arrives on the websocket
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read broadcast frame: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("Frame is not a valid envelope: %v", err)
	}
	if env.Type != "event" || env.Payload.Host != "host-a" {
		t.Errorf("Unexpected envelope: %+v", env)
	}

	// 5. Detaching empties the registry
	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for h.Registry().Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Subscriber still attached after close: %d", h.Registry().Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
