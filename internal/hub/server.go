package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"netsentry/internal/anomaly"
	"netsentry/internal/metrics"
	"netsentry/internal/model"
)

// Server is the hub's HTTP surface: event ingestion, on-demand scoring, the
// live websocket channel and the operational endpoints. The fitted detector
// sits behind an atomic pointer so a reload swaps it without a lock.
type Server struct {
	hub         *Hub
	metrics     *metrics.Metrics
	artifactDir string

	detector atomic.Pointer[anomaly.Detector]

	upgrader     websocket.Upgrader
	bufferSize   int
	writeTimeout time.Duration
}

// NewServer wires the handlers around an already started hub. The detector
// is mandatory; a hub without loadable artifacts must not get this far.
func NewServer(h *Hub, m *metrics.Metrics, det *anomaly.Detector, artifactDir string, bufferSize int, writeTimeout time.Duration) *Server {
	s := &Server{
		hub:          h,
		metrics:      m,
		artifactDir:  artifactDir,
		bufferSize:   bufferSize,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.detector.Store(det)
	return s
}

// Router builds the hub's route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/events", s.ingestHandler).Methods("POST")
	r.HandleFunc("/api/v1/score", s.scoreHandler).Methods("POST")
	r.HandleFunc("/api/v1/status", s.statusHandler).Methods("GET")
	r.HandleFunc("/api/v1/model/reload", s.reloadHandler).Methods("POST")
	r.HandleFunc("/ws", s.wsHandler)
	r.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	return r
}

// ingestHandler accepts one event and hands it to the broadcast loop. The
// event is taken as-is: scoring, if any, happened upstream. Ingestion
// succeeds regardless of subscriber state.
func (s *Server) ingestHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read request body: %v", err), http.StatusBadRequest)
		return
	}
	var ev model.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode event: %v", err), http.StatusBadRequest)
		return
	}
	if err := validateEvent(&ev); err != nil {
		http.Error(w, fmt.Sprintf("invalid event: %v", err), http.StatusBadRequest)
		return
	}

	s.hub.Ingest(ev)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validateEvent rejects events missing required fields. The label is an
// enum; an empty one defaults to Normal rather than failing.
func validateEvent(ev *model.Event) error {
	switch {
	case ev.Host == "":
		return errors.New("missing host")
	case ev.Timestamp.IsZero():
		return errors.New("missing timestamp")
	case ev.Local == "":
		return errors.New("missing local endpoint")
	case ev.Remote == "":
		return errors.New("missing remote endpoint")
	}
	switch ev.Status {
	case model.StateEstablished, model.StateListen:
	default:
		return fmt.Errorf("unsupported connection state %q", ev.Status)
	}
	switch ev.Label {
	case "":
		ev.Label = model.LabelNormal
	case model.LabelNormal, model.LabelAnomaly:
	default:
		return fmt.Errorf("unknown label %q", ev.Label)
	}
	return nil
}

// scoreRequest uses pointer fields so an absent feature is distinguishable
// from a zero one; absent features are rejected, not defaulted.
type scoreRequest struct {
	Duration *float64 `json:"connection_duration"`
	Size     *float64 `json:"packet_size"`
	Port     *float64 `json:"port_number"`
}

type scoreResponse struct {
	Score float64     `json:"score"`
	Label model.Label `json:"label"`
}

// scoreHandler evaluates one feature vector against the loaded model.
func (s *Server) scoreHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read request body: %v", err), http.StatusBadRequest)
		return
	}
	var req scoreRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Duration == nil || req.Size == nil || req.Port == nil {
		http.Error(w, fmt.Sprintf("%v: connection_duration, packet_size and port_number are required", anomaly.ErrInvalidFeatureVector), http.StatusBadRequest)
		return
	}

	v := model.FeatureVector{Duration: *req.Duration, Size: *req.Size, Port: *req.Port}
	score, label, err := s.detector.Load().Score(v)
	if err != nil {
		if errors.Is(err, anomaly.ErrInvalidFeatureVector) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			http.Error(w, fmt.Sprintf("failed to score: %v", err), http.StatusInternalServerError)
		}
		return
	}
	s.metrics.ScoreRequests.WithLabelValues(string(label)).Inc()

	writeJSON(w, http.StatusOK, scoreResponse{Score: score, Label: label})
}

type statusResponse struct {
	Status      string          `json:"status"`
	Subscribers int             `json:"subscribers"`
	Model       anomaly.Summary `json:"model"`
}

// statusHandler reports liveness, subscriber count and the loaded model.
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:      "ok",
		Subscribers: s.hub.Registry().Len(),
		Model:       s.detector.Load().Summary,
	})
}

// reloadHandler re-reads the artifacts from disk and swaps them in
// atomically. On failure the previous model keeps serving.
func (s *Server) reloadHandler(w http.ResponseWriter, r *http.Request) {
	det, err := anomaly.Load(s.artifactDir)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to reload model: %v", err), http.StatusInternalServerError)
		return
	}
	s.detector.Store(det)
	log.Printf("Model reloaded from %s (fitted %s)", s.artifactDir, det.Summary.FittedAt)

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "model": det.Summary})
}

// wsHandler upgrades the connection and attaches it as a live subscriber.
// The subscriber stays attached until it detaches, errors out or falls too
// far behind the broadcast stream.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}
	sub := NewSubscriber(conn, s.bufferSize, s.writeTimeout)
	s.hub.Registry().Add(sub)
	s.metrics.Subscribers.Set(float64(s.hub.Registry().Len()))
	log.Printf("Subscriber attached from %s (%d total)", r.RemoteAddr, s.hub.Registry().Len())

	go sub.WritePump()
	sub.ReadPump()

	s.hub.Registry().Remove(sub)
	s.metrics.Subscribers.Set(float64(s.hub.Registry().Len()))
	log.Printf("Subscriber detached from %s (%d total)", r.RemoteAddr, s.hub.Registry().Len())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonBytes)
}
