// Package support holds the godog step definitions for the orientation
// feature suite.
package support

import (
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/MeKo-Tech/orient/internal/batch"
	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/MeKo-Tech/orient/internal/testutil"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	TempDir string

	Stubs    *testutil.StubRecognizers
	Detector orientation.Detector
	Observer *recordingObserver

	Image     image.Image
	InputPath string

	LastResult orientation.Result
	LastError  error

	BatchDir    string
	BatchResult *batch.Result

	HTTPServer         *httptest.Server
	LastHTTPStatusCode int
	LastHTTPBody       []byte
	LastHTTPHeaders    http.Header
}

// NewTestContext creates a new test context with its own temp directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "orient-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{
		TempDir:         tempDir,
		Stubs:           testutil.NewStubRecognizers(),
		Observer:        &recordingObserver{},
		LastHTTPHeaders: http.Header{},
	}, nil
}

// Cleanup stops the server, closes the detector and removes the temp directory.
func (tc *TestContext) Cleanup() error {
	if tc.HTTPServer != nil {
		tc.HTTPServer.Close()
		tc.HTTPServer = nil
	}
	var firstErr error
	if tc.Detector != nil {
		if err := tc.Detector.Close(); err != nil {
			firstErr = err
		}
		tc.Detector = nil
	}
	if err := os.RemoveAll(tc.TempDir); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to remove temp directory: %w", err)
	}
	return firstErr
}

// detector lazily builds the engine so Given steps can still adjust the
// scripted recognizer.
func (tc *TestContext) detector(extra ...orientation.Observer) (orientation.Detector, error) {
	if tc.Detector != nil {
		return tc.Detector, nil
	}
	obs := orientation.MultiObserver{tc.Observer}
	obs = append(obs, extra...)
	det, err := orientation.New(orientation.DefaultConfig(), tc.Stubs.Factory(), orientation.WithObserver(obs))
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}
	tc.Detector = det
	return det, nil
}
