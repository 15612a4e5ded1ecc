package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/korjavin/cookalong/pkg/control"
	"github.com/korjavin/cookalong/pkg/logger"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// same policy as CORS: any origin may watch a session
	CheckOrigin: func(*http.Request) bool { return true },
}

// Stream handles GET /sessions/{id}/stream as server-sent events. Each tick
// carries the snapshot; the final "end" event carries the reason.
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	events, err := h.sessions.Subscribe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		// nothing is streamed yet, so a JSON error still works
		writeServiceError(w, err)
		return
	}

	rc := http.NewResponseController(w)
	// the stream outlives the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for ev := range events {
		var data []byte
		if ev.Type == control.EventTick {
			data, err = json.Marshal(ev.State)
		} else {
			data, err = json.Marshal(ev)
		}
		if err != nil {
			logger.Global.Error("Failed to encode %s event: %v", ev.Type, err)
			return
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// WebSocket handles GET /sessions/{id}/ws. Every event is sent as one JSON
// text message; the connection is closed after the end event.
func (h *SessionHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.sessions.State(id); err != nil {
		writeServiceError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		logger.Global.Warn("WebSocket upgrade failed for session %s: %v", id, err)
		return
	}
	defer conn.Close()
	// drop the deadline the server's ReadTimeout left on the hijacked conn
	_ = conn.SetReadDeadline(time.Time{})

	// r.Context() is cancelled when the server shuts down
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// reads only watch for the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Global.Warn("WebSocket for session %s closed: %v", id, err)
				}
				return
			}
		}
	}()

	events, err := h.sessions.Subscribe(ctx, id)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Session not found"))
		return
	}

	for ev := range events {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
}
