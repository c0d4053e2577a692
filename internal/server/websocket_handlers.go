package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/MeKo-Tech/orient/internal/utils"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// WebSocket event types.
const (
	EventAccepted = "accepted"
	EventTrial    = "trial"
	EventResult   = "result"
	EventError    = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketRequest is the JSON form of a detection request. Clients may also
// send the raw image bytes as a binary frame.
type WebSocketRequest struct {
	Image     []byte `json:"image"`
	RequestID string `json:"request_id,omitempty"`
}

// WebSocketEvent is one message streamed back to the client.
type WebSocketEvent struct {
	Type       string                  `json:"type"`
	RequestID  string                  `json:"request_id,omitempty"`
	Hypothesis *orientation.Hypothesis `json:"hypothesis,omitempty"`
	Result     *orientation.Result     `json:"result,omitempty"`
	Error      string                  `json:"error,omitempty"`
	ErrorType  string                  `json:"error_type,omitempty"`
}

// WebSocketConnWriter is the subset of *websocket.Conn used to send events.
type WebSocketConnWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
}

// eventWriter serializes writes; trial events arrive from concurrent trials.
type eventWriter struct {
	mu      sync.Mutex
	conn    WebSocketConnWriter
	timeout time.Duration // per-write deadline; wsWriteTimeout when zero
}

func (ew *eventWriter) send(ev WebSocketEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal WebSocket event", "error", err)
		return
	}

	ew.mu.Lock()
	defer ew.mu.Unlock()
	// Trial events are sent from the trial goroutines; a stalled client must
	// not hold up the join.
	timeout := ew.timeout
	if timeout <= 0 {
		timeout = wsWriteTimeout
	}
	if err := ew.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		slog.Debug("Failed to set WebSocket write deadline", "error", err)
		return
	}
	if err := ew.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

func (ew *eventWriter) sendError(requestID, errorType, message string) {
	ew.send(WebSocketEvent{Type: EventError, RequestID: requestID, Error: message, ErrorType: errorType})
}

// trialStream forwards engine diagnostics for one request to the client.
type trialStream struct {
	w         *eventWriter
	requestID string
}

func (t trialStream) OnTrial(h orientation.Hypothesis) {
	t.w.send(WebSocketEvent{Type: EventTrial, RequestID: t.requestID, Hypothesis: &h})
}

// OnResult is a no-op; the handler sends the result after Detect returns.
func (t trialStream) OnResult(orientation.Result) {}

// detectWebSocketHandler streams trial and result events for each image the
// client sends.
func (s *Server) detectWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established",
		"remote_addr", r.RemoteAddr,
		"request_id", RequestIDFromContext(r.Context()))

	s.handleWebSocketConnection(r.Context(), conn)
}

func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	ew := &eventWriter{conn: conn}

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ew.mu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
				ew.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		websocketMessagesTotal.WithLabelValues("received").Inc()

		s.handleWebSocketMessage(ctx, ew, messageType, data)
	}
}

func (s *Server) handleWebSocketMessage(ctx context.Context, ew *eventWriter, messageType int, data []byte) {
	req := WebSocketRequest{}
	switch messageType {
	case websocket.BinaryMessage:
		req.Image = data
	case websocket.TextMessage:
		if err := json.Unmarshal(data, &req); err != nil {
			ew.sendError("", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
			return
		}
	default:
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	s.processWebSocketImage(ctx, ew, req)
}

func (s *Server) processWebSocketImage(ctx context.Context, ew *eventWriter, req WebSocketRequest) {
	if len(req.Image) == 0 {
		detectRequestsTotal.WithLabelValues("websocket", "error").Inc()
		ew.sendError(req.RequestID, "invalid_request", "No image data provided")
		return
	}

	img, _, err := utils.DecodeImage(bytes.NewReader(req.Image))
	if err != nil {
		detectRequestsTotal.WithLabelValues("websocket", "error").Inc()
		ew.sendError(req.RequestID, "invalid_request", fmt.Sprintf("Failed to decode image: %v", err))
		return
	}

	if s.detector == nil {
		ew.sendError(req.RequestID, "unavailable", "Detector not available")
		return
	}

	ew.send(WebSocketEvent{Type: EventAccepted, RequestID: req.RequestID})

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx = orientation.ContextWithObserver(ctx, trialStream{w: ew, requestID: req.RequestID})

	res, err := s.detector.DetectImage(ctx, img)
	if err != nil {
		detectRequestsTotal.WithLabelValues("websocket", "error").Inc()
		ew.sendError(req.RequestID, "processing_error", fmt.Sprintf("Orientation detection failed: %v", err))
		return
	}

	detectRequestsTotal.WithLabelValues("websocket", "success").Inc()
	ew.send(WebSocketEvent{Type: EventResult, RequestID: req.RequestID, Result: &res})
}
