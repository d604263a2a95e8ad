// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/Tyrowin/overflowchat/internal/transport"
	"github.com/google/uuid"
)

// WebSocketHandler upgrades GET requests to WebSocket connections and
// registers them with the hub. The optional "id" query parameter selects the
// connection id; otherwise a random UUID is assigned.
func (h *Hub) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r)
	if err != nil {
		if !errors.Is(err, transport.ErrOriginNotAllowed) {
			log.Printf("WebSocket upgrade failed: %v", err)
		}
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		id = uuid.NewString()
	}
	client := NewClient(id, conn, h, r.RemoteAddr)

	// The hub launches the pump goroutines once the id is accepted.
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		_ = conn.Close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat server is running!")
}

// TestPageHandler serves a minimal HTML client for trying rooms by hand.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPage); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>Room Chat Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #log { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; background-color: #f9f9f9; font-family: monospace; }
        input[type="text"] { width: 200px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; margin-right: 5px; }
    </style>
</head>
<body>
    <h1>Room Chat Test</h1>
    <div>
        <input type="text" id="nick" placeholder="Nickname">
        <button onclick="send('setUserNick', val('nick'))">Set nickname</button>
    </div>
    <div>
        <input type="text" id="room" value="room-1">
        <button onclick="send('join', val('room'))">Join</button>
        <button onclick="send('exit', val('room'))">Exit</button>
        <button onclick="send('getCurrentRoomInfo', null, 1)">Room info</button>
    </div>
    <div>
        <input type="text" id="message" placeholder="Type a message...">
        <button onclick="send('chatMessage', {message: val('message'), room: val('room')})">Send</button>
    </div>
    <div id="log"></div>
    <script>
        const logDiv = document.getElementById('log');
        const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(scheme + location.host + '/ws');

        function val(id) { return document.getElementById(id).value; }

        function line(text) {
            const el = document.createElement('div');
            el.textContent = text;
            logDiv.appendChild(el);
            logDiv.scrollTop = logDiv.scrollHeight;
        }

        function send(event, data, ack) {
            const frame = {event: event, data: data};
            if (ack) { frame.ack = ack; }
            ws.send(JSON.stringify(frame));
        }

        ws.onopen = () => line('connected');
        ws.onclose = () => line('disconnected');
        ws.onmessage = (e) => line(e.data);
    </script>
</body>
</html>`
