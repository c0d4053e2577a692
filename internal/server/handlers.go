package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/MeKo-Tech/orient/internal/utils"
	"github.com/MeKo-Tech/orient/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	if s.detector != nil {
		response.Strategy = s.detector.Name()
	}

	writeJSON(w, http.StatusOK, response)
}

// detectHandler answers a multipart upload with the detected orientation.
func (s *Server) detectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, err := s.parseImageRequest(w, r)
	if err != nil {
		detectRequestsTotal.WithLabelValues("http", "error").Inc()
		return // error already written
	}

	if s.detector == nil {
		detectRequestsTotal.WithLabelValues("http", "error").Inc()
		s.writeErrorResponse(w, r, "Detector not available", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.detector.DetectImage(ctx, img)
	if err != nil {
		detectRequestsTotal.WithLabelValues("http", "error").Inc()
		s.writeErrorResponse(w, r, fmt.Sprintf("Orientation detection failed: %v", err), statusForError(err))
		return
	}

	detectRequestsTotal.WithLabelValues("http", "success").Inc()
	writeJSON(w, http.StatusOK, DetectResponse{
		Success:   true,
		RequestID: RequestIDFromContext(r.Context()),
		Result:    &res,
	})
}

func (s *Server) parseImageRequest(w http.ResponseWriter, r *http.Request) (image.Image, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, r, "File too large", http.StatusRequestEntityTooLarge)
			return nil, err
		}
		s.writeErrorResponse(w, r, "Failed to parse form data", http.StatusBadRequest)
		return nil, err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, r, "No image file provided", http.StatusBadRequest)
		return nil, err
	}
	defer func() { _ = file.Close() }()

	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, r, "Failed to read image data", http.StatusInternalServerError)
		return nil, err
	}

	img, _, err := utils.DecodeImage(bytes.NewReader(data))
	if err != nil {
		s.writeErrorResponse(w, r, "Invalid image format", http.StatusBadRequest)
		return nil, err
	}
	return img, nil
}

func statusForError(err error) int {
	switch {
	case orientation.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	slog.Warn("request failed",
		"path", r.URL.Path,
		"status", statusCode,
		"request_id", RequestIDFromContext(r.Context()),
		"error", message)
	writeJSON(w, statusCode, DetectResponse{
		Success:   false,
		RequestID: RequestIDFromContext(r.Context()),
		Error:     message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
