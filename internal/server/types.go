package server

import (
	"net/http"
	"time"

	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	detector    orientation.Detector
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Strategy string `json:"strategy,omitempty"`
	Time     string `json:"time"`
}

// DetectResponse is returned by POST /detect.
type DetectResponse struct {
	Success   bool                `json:"success"`
	RequestID string              `json:"request_id,omitempty"`
	Result    *orientation.Result `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// NewServer creates a server that answers detection requests with det.
// The server takes ownership of det.
func NewServer(config Config, det orientation.Detector) *Server {
	maxUpload := config.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 50
	}
	timeout := time.Duration(config.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Server{
		detector:    det,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: maxUpload,
		timeout:     timeout,
	}
}

// Close releases the detector.
func (s *Server) Close() error {
	if s.detector != nil {
		return s.detector.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.withMiddleware(s.healthHandler))
	mux.HandleFunc("/detect", s.withMiddleware(s.detectHandler))
	mux.HandleFunc("/ws/detect", requestIDMiddleware(s.detectWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return requestIDMiddleware(s.corsMiddleware(next))
}
