package server

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/MeKo-Tech/orient/internal/testutil"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, stubs *testutil.StubRecognizers) *Server {
	t.Helper()
	det, err := orientation.New(orientation.DefaultConfig(), stubs.Factory(),
		orientation.WithObserver(MetricsObserver{}))
	require.NoError(t, err)

	s := NewServer(Config{CORSOrigin: "*", MaxUploadMB: 1, TimeoutSec: 10}, det)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func pagePNG(t *testing.T, rotation int) []byte {
	t.Helper()
	var img image.Image = testutil.GeneratePage(testutil.DefaultPageConfig())
	if rotation != 0 {
		img = testutil.RotateClockwise(img, rotation)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/detect", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
