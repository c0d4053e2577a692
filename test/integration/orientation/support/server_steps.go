package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/MeKo-Tech/orient/internal/server"
	"github.com/cucumber/godog"
)

// RegisterServerSteps registers the HTTP API steps.
func (tc *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the detection server is running$`, tc.theDetectionServerIsRunning)
	sc.Step(`^I request GET (\S+)$`, tc.iRequestGET)
	sc.Step(`^I upload the page to /detect$`, tc.iUploadThePage)
	sc.Step(`^I post an empty form to /detect$`, tc.iPostAnEmptyForm)
	sc.Step(`^the response status is (\d+)$`, tc.theResponseStatusIs)
	sc.Step(`^the response JSON field "([^"]*)" is "([^"]*)"$`, tc.theResponseJSONFieldIs)
	sc.Step(`^the response reports current orientation (\d+)$`, tc.theResponseReportsCurrentOrientation)
	sc.Step(`^the response carries a request ID$`, tc.theResponseCarriesARequestID)
	sc.Step(`^the response body contains "([^"]*)"$`, tc.theResponseBodyContains)
}

// theDetectionServerIsRunning serves the API from an in-process httptest
// server. The scenario context keeps ownership of the detector.
func (tc *TestContext) theDetectionServerIsRunning() error {
	det, err := tc.detector(server.MetricsObserver{})
	if err != nil {
		return err
	}
	s := server.NewServer(server.Config{CORSOrigin: "*", MaxUploadMB: 5, TimeoutSec: 30}, det)
	tc.HTTPServer = httptest.NewServer(s.Handler())
	return nil
}

func (tc *TestContext) record(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	tc.LastHTTPStatusCode = resp.StatusCode
	tc.LastHTTPBody = body
	tc.LastHTTPHeaders = resp.Header.Clone()
	return nil
}

func (tc *TestContext) serverURL(path string) (string, error) {
	if tc.HTTPServer == nil {
		return "", fmt.Errorf("server is not running")
	}
	return tc.HTTPServer.URL + path, nil
}

func (tc *TestContext) iRequestGET(path string) error {
	url, err := tc.serverURL(path)
	if err != nil {
		return err
	}
	resp, err := http.Get(url) //nolint:gosec,noctx // test server URL
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", path, err)
	}
	return tc.record(resp)
}

func (tc *TestContext) postMultipart(write func(*multipart.Writer) error) error {
	url, err := tc.serverURL("/detect")
	if err != nil {
		return err
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := write(mw); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	resp, err := http.Post(url, mw.FormDataContentType(), &body) //nolint:gosec,noctx // test server URL
	if err != nil {
		return fmt.Errorf("POST /detect failed: %w", err)
	}
	return tc.record(resp)
}

func (tc *TestContext) iUploadThePage() error {
	if tc.Image == nil {
		return fmt.Errorf("no image prepared")
	}
	return tc.postMultipart(func(mw *multipart.Writer) error {
		fw, err := mw.CreateFormFile("image", "page.png")
		if err != nil {
			return err
		}
		return png.Encode(fw, tc.Image)
	})
}

func (tc *TestContext) iPostAnEmptyForm() error {
	return tc.postMultipart(func(mw *multipart.Writer) error {
		return mw.WriteField("note", "no image here")
	})
}

func (tc *TestContext) theResponseStatusIs(code int) error {
	if tc.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d: %s", code, tc.LastHTTPStatusCode, tc.LastHTTPBody)
	}
	return nil
}

func (tc *TestContext) responseJSON() (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(tc.LastHTTPBody, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	return doc, nil
}

func (tc *TestContext) theResponseJSONFieldIs(field, want string) error {
	doc, err := tc.responseJSON()
	if err != nil {
		return err
	}
	got, ok := doc[field]
	if !ok {
		return fmt.Errorf("field %q missing from %s", field, tc.LastHTTPBody)
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("field %q: expected %s, got %v", field, want, got)
	}
	return nil
}

func (tc *TestContext) theResponseReportsCurrentOrientation(want int) error {
	var resp server.DetectResponse
	if err := json.Unmarshal(tc.LastHTTPBody, &resp); err != nil {
		return fmt.Errorf("response is not a detect response: %w", err)
	}
	if resp.Result == nil {
		return fmt.Errorf("response has no result: %s", tc.LastHTTPBody)
	}
	if resp.Result.CurrentOrientation != want {
		return fmt.Errorf("expected current orientation %d, got %d", want, resp.Result.CurrentOrientation)
	}
	return nil
}

func (tc *TestContext) theResponseCarriesARequestID() error {
	if tc.LastHTTPHeaders.Get(server.RequestIDHeader) == "" {
		return fmt.Errorf("missing %s header", server.RequestIDHeader)
	}
	return nil
}

func (tc *TestContext) theResponseBodyContains(s string) error {
	if !strings.Contains(string(tc.LastHTTPBody), s) {
		return fmt.Errorf("expected body to contain %q", s)
	}
	return nil
}
