package server

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/MeKo-Tech/orient/internal/testutil"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialDetect(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/detect"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil collects events up to and including the first terminal one.
func readUntil(t *testing.T, conn *websocket.Conn) []WebSocketEvent {
	t.Helper()
	var events []WebSocketEvent
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev WebSocketEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		events = append(events, ev)
		if ev.Type == EventResult || ev.Type == EventError {
			return events
		}
	}
}

func TestWebSocket_BinaryFrameStreamsTrials(t *testing.T) {
	conn := dialDetect(t, newTestServer(t, testutil.NewStubRecognizers()))

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, pagePNG(t, 270)))
	events := readUntil(t, conn)

	require.Len(t, events, 6)
	assert.Equal(t, EventAccepted, events[0].Type)
	angles := map[int]bool{}
	for _, ev := range events[1:5] {
		assert.Equal(t, EventTrial, ev.Type)
		require.NotNil(t, ev.Hypothesis)
		angles[ev.Hypothesis.Angle] = true
		assert.Equal(t, events[0].RequestID, ev.RequestID)
	}
	assert.Len(t, angles, 4)

	last := events[5]
	assert.Equal(t, EventResult, last.Type)
	require.NotNil(t, last.Result)
	assert.Equal(t, 270, last.Result.CurrentOrientation)
	assert.Equal(t, 90, last.Result.BestAngle)
}

func TestWebSocket_JSONRequest(t *testing.T) {
	conn := dialDetect(t, newTestServer(t, testutil.NewStubRecognizers()))

	req, err := json.Marshal(WebSocketRequest{Image: pagePNG(t, 0), RequestID: "client-1"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, req))

	events := readUntil(t, conn)
	last := events[len(events)-1]
	assert.Equal(t, EventResult, last.Type)
	assert.Equal(t, "client-1", last.RequestID)
	assert.Equal(t, 0, last.Result.BestAngle)
}

func TestWebSocket_Errors(t *testing.T) {
	conn := dialDetect(t, newTestServer(t, testutil.NewStubRecognizers()))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	events := readUntil(t, conn)
	require.Len(t, events, 1)
	assert.Equal(t, "invalid_request", events[0].ErrorType)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("garbage")))
	events = readUntil(t, conn)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Error, "Failed to decode image")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{}`)))
	events = readUntil(t, conn)
	assert.Equal(t, "No image data provided", events[0].Error)
}

type memConn struct {
	mu        sync.Mutex
	msgs      [][]byte
	deadlines []time.Time
}

func (m *memConn) SetWriteDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadlines = append(m.deadlines, t)
	return nil
}

func (m *memConn) WriteMessage(_ int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, data)
	return nil
}

// stalledConn never drains: writes block until the write deadline passes.
type stalledConn struct {
	deadline time.Time
}

func (c *stalledConn) SetWriteDeadline(t time.Time) error {
	c.deadline = t
	return nil
}

func (c *stalledConn) WriteMessage(int, []byte) error {
	if c.deadline.IsZero() {
		select {} // a write without a deadline hangs forever
	}
	time.Sleep(time.Until(c.deadline))
	return errors.New("i/o timeout")
}

func TestTrialStream_ConcurrentWrites(t *testing.T) {
	conn := &memConn{}
	stream := trialStream{w: &eventWriter{conn: conn}, requestID: "r"}

	var wg sync.WaitGroup
	for _, a := range orientation.Angles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stream.OnTrial(orientation.Hypothesis{Angle: a})
		}()
	}
	wg.Wait()
	stream.OnResult(orientation.Result{})

	assert.Len(t, conn.msgs, 4)
	require.Len(t, conn.deadlines, 4)
	for _, d := range conn.deadlines {
		assert.False(t, d.IsZero())
	}
}

func TestEventWriter_StalledClientDoesNotBlockTrials(t *testing.T) {
	ew := &eventWriter{conn: &stalledConn{}, timeout: 50 * time.Millisecond}
	stream := trialStream{w: ew, requestID: "r"}

	done := make(chan struct{})
	go func() {
		defer close(done)
		stream.OnTrial(orientation.Hypothesis{Angle: 90})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("OnTrial blocked on a client that stopped reading")
	}
}
