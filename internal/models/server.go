package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/priority-living/pl/internal/telemetry"
)

// HealthResponse is returned by the serve health endpoint.
type HealthResponse struct {
	Time    time.Time `json:"time"`
	Model   string    `json:"model"`
	Version string    `json:"version"`
}

// Server exposes one local model directory over HTTP: static files at the
// root plus a health endpoint for probes.
type Server struct {
	Version string
	Model   string
	Dir     string
	srv     *http.Server
}

// Routes for the server
func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/v0/health", func(w http.ResponseWriter, r *http.Request) {
		_ = r.Body.Close()
		telemetry.Add("models_health_requests", 1)
		h := HealthResponse{Time: time.Now(), Model: s.Model, Version: s.Version}
		_ = json.NewEncoder(w).Encode(h)
	})
	files := http.FileServer(http.Dir(s.Dir))
	mux.Handle("/", http.StripPrefix("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		telemetry.Add("models_file_requests", 1)
		files.ServeHTTP(w, r)
	})))
}

// ListenAndServe starts the server
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.routes(mux)
	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s.srv.ListenAndServe()
}

// Shutdown the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return fmt.Errorf("server not running")
	}
	return s.srv.Shutdown(ctx)
}
