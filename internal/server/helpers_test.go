package server_test

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/overflowchat/internal/server"
	"github.com/gorilla/websocket"
)

// testOriginURL is allowed by the default configuration.
const testOriginURL = "http://localhost:8080"

// frame is an outbound envelope as seen by a client.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Ack   *int64          `json:"ack"`
}

// startTestServer applies a test configuration, starts a hub and serves its
// routes. Everything is torn down when the test ends.
func startTestServer(t *testing.T, customize func(cfg *server.Config)) (*server.Hub, string) {
	t.Helper()

	cfg := server.NewConfig()
	if customize != nil {
		customize(cfg)
	}
	server.SetConfig(cfg)
	t.Cleanup(func() { server.SetConfig(nil) })

	hub := server.NewHub()
	go hub.Run()

	testServer := httptest.NewServer(server.SetupRoutes(hub, ""))
	t.Cleanup(testServer.Close)
	t.Cleanup(func() {
		if err := hub.Shutdown(2 * time.Second); err != nil {
			t.Logf("hub shutdown: %v", err)
		}
	})

	u, err := url.Parse(testServer.URL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/ws"
	return hub, u.String()
}

func newOriginHeader(origin string) http.Header {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return header
}

// dialClient connects with the given connection id and waits until the hub
// has registered it.
func dialClient(t *testing.T, wsURL, id string) *websocket.Conn {
	t.Helper()
	conn := dialRaw(t, wsURL, id)
	sendEvent(t, conn, "getCurrentRoomInfo", nil, 1)
	readUntil(t, conn, "getCurrentRoomInfo")
	return conn
}

// dialRaw connects without waiting for registration.
func dialRaw(t *testing.T, wsURL, id string) *websocket.Conn {
	t.Helper()
	target := wsURL
	if id != "" {
		target += "?id=" + url.QueryEscape(id)
	}
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(target, newOriginHeader(testOriginURL))
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to connect %q: %v", id, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any, ack int64) {
	t.Helper()
	msg := map[string]any{"event": event}
	if data != nil {
		msg["data"] = data
	}
	if ack != 0 {
		msg["ack"] = ack
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("Failed to send %s: %v", event, err)
	}
}

// readUntil reads frames until one carries event, failing after two seconds.
func readUntil(t *testing.T, conn *websocket.Conn, event string) frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			t.Fatalf("Failed to set read deadline: %v", err)
		}
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("Failed waiting for %s: %v", event, err)
		}
		if f.Event == event {
			return f
		}
	}
}

// readUntilMatch reads frames until match accepts one.
func readUntilMatch(t *testing.T, conn *websocket.Conn, event string, match func(frame) bool) frame {
	t.Helper()
	for {
		f := readUntil(t, conn, event)
		if match(f) {
			return f
		}
	}
}

// expectNoEvent fails if event arrives within timeout.
func expectNoEvent(t *testing.T, conn *websocket.Conn, event string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			t.Fatalf("Failed to set read deadline: %v", err)
		}
		var f frame
		err := conn.ReadJSON(&f)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return
			}
			t.Fatalf("Unexpected error while waiting for absence of %s: %v", event, err)
		}
		if f.Event == event {
			t.Fatalf("Expected no %s, received %s", event, string(f.Data))
		}
	}
}

// expectClosed fails unless the server closes conn within timeout.
func expectClosed(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatal("Expected the server to close the connection")
		}
		return
	}
}

func decodeData(t *testing.T, f frame, v any) {
	t.Helper()
	if err := json.Unmarshal(f.Data, v); err != nil {
		t.Fatalf("Failed to decode %s data %s: %v", f.Event, string(f.Data), err)
	}
}

func roomIs(room string) func(frame) bool {
	return func(f frame) bool {
		return strings.Contains(string(f.Data), `"room":"`+room+`"`)
	}
}
