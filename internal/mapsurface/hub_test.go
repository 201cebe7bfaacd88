package mapsurface

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gigwork_maps/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestOlderRevisionIsIgnored(t *testing.T) {
	hub := NewHub(logger.Nop())
	messages, unsubscribe := hub.Subscribe("s1")
	defer unsubscribe()

	hub.Publish("s1", Message{Type: MessageTypeUpdateMarkers, Revision: 3})
	hub.Publish("s1", Message{Type: MessageTypeUpdateMarkers, Revision: 2})

	if msg := <-messages; msg.Revision != 3 {
		t.Fatalf("expected revision 3, got %d", msg.Revision)
	}
	select {
	case msg := <-messages:
		t.Fatalf("older revision %d was delivered", msg.Revision)
	default:
	}

	late, unsubscribeLate := hub.Subscribe("s1")
	defer unsubscribeLate()
	if msg := <-late; msg.Revision != 3 {
		t.Fatalf("expected snapshot revision 3, got %d", msg.Revision)
	}
}

func TestLateSubscriberReceivesLatest(t *testing.T) {
	hub := NewHub(logger.Nop())
	hub.Publish("s1", Message{Type: MessageTypeUpdateMarkers, Revision: 1})
	hub.Publish("s1", Message{Type: MessageTypeUpdateMarkers, Revision: 2})

	messages, unsubscribe := hub.Subscribe("s1")
	defer unsubscribe()

	select {
	case msg := <-messages:
		if msg.Revision != 2 {
			t.Fatalf("expected latest revision, got %d", msg.Revision)
		}
	default:
		t.Fatalf("expected snapshot on subscribe")
	}
}

func TestFullBufferKeepsNewest(t *testing.T) {
	hub := NewHub(logger.Nop())
	messages, unsubscribe := hub.Subscribe("s1")
	defer unsubscribe()

	total := subscriberBuffer + 5
	for i := 1; i <= total; i++ {
		hub.Publish("s1", Message{Revision: int64(i)})
	}

	var last int64
	for i := 0; i < subscriberBuffer; i++ {
		last = (<-messages).Revision
	}
	if last != int64(total) {
		t.Fatalf("expected newest revision %d at the end of the buffer, got %d", total, last)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(logger.Nop())
	messages, unsubscribe := hub.Subscribe("s1")
	unsubscribe()
	unsubscribe()

	if _, ok := <-messages; ok {
		t.Fatalf("expected closed channel")
	}
	if hub.Subscribers("s1") != 0 {
		t.Fatalf("expected no subscribers")
	}
	hub.Publish("s1", Message{Revision: 1})
}

func newTransportServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	ws := NewWebSocketTransport(hub, logger.Nop())
	engine.GET("/surfaces/:id/ws", func(c *gin.Context) { ws.Serve(c, c.Param("id")) })
	engine.GET("/surfaces/:id/events", func(c *gin.Context) { ServeSSE(c, hub, c.Param("id"), logger.Nop()) })
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

func waitForSubscriber(t *testing.T, hub *Hub, surfaceID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers(surfaceID) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("host never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketTransportPushesUpdates(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := newTransportServer(t, hub)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/surfaces/s1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	waitForSubscriber(t, hub, "s1")
	hub.Publish("s1", Message{Type: MessageTypeUpdateMarkers, Revision: 7})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msg.Type != MessageTypeUpdateMarkers || msg.Revision != 7 {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestSSETransportStreamsUpdates(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := newTransportServer(t, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/surfaces/s1/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	waitForSubscriber(t, hub, "s1")
	hub.Publish("s1", Message{Type: MessageTypeUpdateMarkers, Revision: 3})

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data:") && strings.Contains(line, `"revision":3`) {
			return
		}
	}
	t.Fatalf("no updateMarkers event received: %v", scanner.Err())
}
