package mapsurface

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"gigwork_maps/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	pongTimeout  = 60 * time.Second
)

// ServeSSE streams surface messages as server-sent events until the client
// disconnects.
func ServeSSE(c *gin.Context, hub *Hub, surfaceID string, log *logger.Logger) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	messages, unsubscribe := hub.Subscribe(surfaceID)
	defer unsubscribe()

	c.SSEvent("connected", gin.H{"surfaceId": surfaceID})
	c.Writer.Flush()
	log.Debug("map host connected over sse", "surface", surfaceID)

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Error("encode surface message", "error", err)
				return true
			}
			c.SSEvent(msg.Type, string(data))
			return true
		}
	})
}

// WebSocketTransport pushes surface messages over a websocket. The channel
// is one way; anything the host sends is discarded.
type WebSocketTransport struct {
	upgrader websocket.Upgrader
	hub      *Hub
	log      *logger.Logger
}

// NewWebSocketTransport creates a transport for hub.
func NewWebSocketTransport(hub *Hub, log *logger.Logger) *WebSocketTransport {
	return &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The host page is served by this API; origin checks are left to CORS.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub: hub,
		log: log,
	}
}

// Serve upgrades the request and streams messages for surfaceID.
func (t *WebSocketTransport) Serve(c *gin.Context, surfaceID string) {
	conn, err := t.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		t.log.Warn("websocket upgrade failed", "surface", surfaceID, "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	messages, unsubscribe := t.hub.Subscribe(surfaceID)
	defer unsubscribe()

	closed := make(chan struct{})
	go t.drain(conn, closed)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	t.log.Debug("map host connected over websocket", "surface", surfaceID)
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg, ok := <-messages:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "surface closed"),
					time.Now().Add(writeTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				t.log.Debug("websocket write failed", "surface", surfaceID, "error", err)
				return
			}
		}
	}
}

// drain reads until the peer goes away so pongs and close frames are handled.
func (t *WebSocketTransport) drain(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
