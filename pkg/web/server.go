package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/depscope/pkg/logging"
	"github.com/ritzau/depscope/pkg/model"
	"github.com/ritzau/depscope/pkg/output"
	"github.com/ritzau/depscope/pkg/pubsub"
	"github.com/ritzau/depscope/pkg/sbom"
	"github.com/ritzau/depscope/pkg/scan"
)

// Status is the payload of /api/status
type Status struct {
	State      string    `json:"state"` // "pending", "ready" or "error"
	Project    string    `json:"project,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
	Targets    int       `json:"targets"`
	Cycles     int       `json:"cycles"`
	Error      string    `json:"error,omitempty"`
	Generation int       `json:"generation"` // Incremented on every new result
}

// TargetDetail is the payload of /api/targets/{id}
type TargetDetail struct {
	Target                 *model.Target `json:"target"`
	BOMRef                 string        `json:"bomRef"`
	Classification         string        `json:"classification"`
	Dependencies           []string      `json:"dependencies"`
	Dependents             []string      `json:"dependents"`
	TransitiveDependencies []string      `json:"transitiveDependencies"`
}

// Server serves the most recent scan result over HTTP
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher

	mu         sync.RWMutex
	result     *scan.Result
	lastErr    error
	generation int
}

// NewServer creates a new web server
func NewServer() *Server {
	publisher := pubsub.NewSSEPublisher()
	// Late subscribers only need the latest status
	publisher.ConfigureTopic(pubsub.TopicScanStatus, pubsub.TopicConfig{BufferSize: 1})

	s := &Server{
		router:    mux.NewRouter(),
		publisher: publisher,
	}
	s.setupRoutes()
	return s
}

// SetResult replaces the served result. Implements scan.Publisher.
func (s *Server) SetResult(result *scan.Result) {
	s.mu.Lock()
	s.result = result
	s.lastErr = nil
	s.generation++
	status := s.statusLocked()
	s.mu.Unlock()

	s.publish(status)
}

// SetError records a failed rescan. The previous result stays available.
func (s *Server) SetError(err error) {
	s.mu.Lock()
	s.lastErr = err
	status := s.statusLocked()
	s.mu.Unlock()

	s.publish(status)
}

func (s *Server) publish(status Status) {
	event := pubsub.ScanStatus{
		State:      status.State,
		Project:    status.Project,
		Reason:     status.Reason,
		Targets:    status.Targets,
		Cycles:     status.Cycles,
		Error:      status.Error,
		Generation: status.Generation,
	}
	if err := s.publisher.Publish(pubsub.TopicScanStatus, status.State, event); err != nil {
		logging.Debug("scan status not published", "error", err)
	}
}

// statusLocked must be called with s.mu held
func (s *Server) statusLocked() Status {
	status := Status{State: "pending", Generation: s.generation}
	if s.result != nil {
		status.State = "ready"
		status.Project = s.result.Project
		status.Reason = s.result.Reason
		status.FinishedAt = s.result.FinishedAt
		status.Targets = len(s.result.Graph.Targets)
		status.Cycles = len(s.result.Cycles)
	}
	if s.lastErr != nil {
		status.State = "error"
		status.Error = s.lastErr.Error()
	}
	return status
}

func (s *Server) current() *scan.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	// API routes - more specific routes must come first
	s.router.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/sbom", s.handleSBOM).Methods("GET")
	s.router.HandleFunc("/api/targets", s.handleTargets).Methods("GET")
	s.router.HandleFunc("/api/targets/{id}", s.handleTarget).Methods("GET")
	s.router.HandleFunc("/api/cycles", s.handleCycles).Methods("GET")
	s.router.HandleFunc("/api/subscribe/status", s.handleSubscribeStatus).Methods("GET")
	s.router.HandleFunc("/", s.handleReport).Methods("GET")
}

// Handler returns the HTTP handler with all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

func writeJSON(w http.ResponseWriter, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := s.statusLocked()
	s.mu.RUnlock()

	writeJSON(w, "application/json", status)
}

// handleSubscribeStatus streams a scan_status event after every scan
func (s *Server) handleSubscribeStatus(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := s.publisher.Subscribe(r.Context(), pubsub.TopicScanStatus)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Initial comment so browsers consider the stream open
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.DebugContext(r.Context(), "status stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	result := s.current()
	if result == nil {
		writeJSON(w, "application/json", model.NewGraph())
		return
	}
	writeJSON(w, "application/json", result.Graph.View())
}

func (s *Server) handleSBOM(w http.ResponseWriter, r *http.Request) {
	result := s.current()
	if result == nil {
		http.Error(w, "No scan result available", http.StatusServiceUnavailable)
		return
	}

	data, err := sbom.Marshal(result.Document)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", sbom.MediaType)
	w.Write(data)
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	result := s.current()
	if result == nil {
		writeJSON(w, "application/json", []output.TargetRow{})
		return
	}
	writeJSON(w, "application/json", result.Summary.Targets)
}

func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	result := s.current()
	if result == nil {
		http.Error(w, "No scan result available", http.StatusServiceUnavailable)
		return
	}

	id := mux.Vars(r)["id"]
	target, ok := result.Graph.Lookup(id)
	if !ok {
		http.Error(w, fmt.Sprintf("Target not found: %s", id), http.StatusNotFound)
		return
	}

	writeJSON(w, "application/json", TargetDetail{
		Target:                 target,
		BOMRef:                 sbom.TargetRef(target),
		Classification:         string(sbom.ClassifyKind(target.Kind)),
		Dependencies:           nonNil(result.TargetGraph.Dependencies(id)),
		Dependents:             nonNil(result.TargetGraph.Dependents(id)),
		TransitiveDependencies: nonNil(result.TargetGraph.TransitiveDependencies(id)),
	})
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	result := s.current()
	if result == nil {
		writeJSON(w, "application/json", []any{})
		return
	}
	writeJSON(w, "application/json", result.Summary.Cycles)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	result := s.current()
	if result == nil {
		http.Error(w, "Scan in progress, reload in a moment", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := output.RenderHTML(&buf, result.Summary); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// Start serves on port until ctx is cancelled
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		// Ends open status streams so Shutdown does not wait on them
		s.publisher.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}
