package server_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/overflowchat/internal/chat"
	"github.com/Tyrowin/overflowchat/internal/server"
	"github.com/Tyrowin/overflowchat/internal/transport"
	"github.com/gorilla/websocket"
)

var transports = []string{transport.Gorilla, transport.Gobwas}

// forEachTransport runs fn once per WebSocket implementation.
func forEachTransport(t *testing.T, fn func(t *testing.T, name string)) {
	for _, name := range transports {
		t.Run(name, func(t *testing.T) { fn(t, name) })
	}
}

func withTransport(name string, extra ...func(cfg *server.Config)) func(cfg *server.Config) {
	return func(cfg *server.Config) {
		cfg.Transport = name
		for _, fn := range extra {
			fn(cfg)
		}
	}
}

// TestOverflowJoinOverWebSocket fills room-1 and checks that the third
// client lands in a freshly created room-2.
func TestOverflowJoinOverWebSocket(t *testing.T) {
	forEachTransport(t, func(t *testing.T, name string) {
		_, wsURL := startTestServer(t, withTransport(name))

		alice := dialClient(t, wsURL, "a")
		bob := dialClient(t, wsURL, "b")
		carol := dialClient(t, wsURL, "c")

		sendEvent(t, alice, chat.EventSetUserNick, "alice", 0)
		sendEvent(t, alice, chat.EventJoin, "room-1", 0)
		readUntilMatch(t, alice, chat.EventUserJoined, roomIs("room-1"))

		sendEvent(t, bob, chat.EventSetUserNick, "bob", 0)
		sendEvent(t, bob, chat.EventJoin, "room-1", 0)
		joined := readUntilMatch(t, alice, chat.EventUserJoined, roomIs("room-1"))
		var membership chat.MembershipEvent
		decodeData(t, joined, &membership)
		if membership.UserID != "bob" {
			t.Errorf("Expected bob to join room-1, got %+v", membership)
		}

		sendEvent(t, carol, chat.EventJoin, "room-1", 0)
		created := readUntil(t, carol, chat.EventNewRoomCreated)
		var room string
		decodeData(t, created, &room)
		if room != "room-2" {
			t.Fatalf("Expected newRoomCreated room-2, got %q", room)
		}
		readUntil(t, alice, chat.EventNewRoomCreated)

		joined = readUntil(t, carol, chat.EventUserJoined)
		decodeData(t, joined, &membership)
		if membership.Room != "room-2" || membership.UserID != chat.UnknownNick {
			t.Errorf("Expected carol to join room-2 as %s, got %+v", chat.UnknownNick, membership)
		}

		sendEvent(t, carol, chat.EventGetCurrentRoomInfo, nil, 7)
		reply := readUntil(t, carol, chat.EventGetCurrentRoomInfo)
		if reply.Ack == nil || *reply.Ack != 7 {
			t.Errorf("Expected ack 7 to be echoed, got %v", reply.Ack)
		}
		var info chat.RoomInfo
		decodeData(t, reply, &info)
		if info.Room != "room-2" || len(info.Users) != 1 || info.Users[0].ID != "c" {
			t.Errorf("Unexpected room info: %+v", info)
		}
	})
}

func TestChatMessageStaysInRoom(t *testing.T) {
	forEachTransport(t, func(t *testing.T, name string) {
		_, wsURL := startTestServer(t, withTransport(name))

		alice := dialClient(t, wsURL, "a")
		bob := dialClient(t, wsURL, "b")
		carol := dialClient(t, wsURL, "c")

		sendEvent(t, alice, chat.EventSetUserNick, "alice", 0)
		sendEvent(t, alice, chat.EventJoin, "lobby", 0)
		sendEvent(t, bob, chat.EventJoin, "lobby", 0)
		readUntilMatch(t, bob, chat.EventUserJoined, roomIs("lobby"))
		sendEvent(t, carol, chat.EventJoin, "garden", 0)
		readUntilMatch(t, carol, chat.EventUserJoined, roomIs("garden"))

		sendEvent(t, alice, chat.EventChatMessage, chat.ChatMessageRequest{Message: "hello", Room: "lobby"}, 0)
		msg := readUntil(t, bob, chat.EventChatMessage)
		var got chat.ChatMessageEvent
		decodeData(t, msg, &got)
		if got.UserID != "alice" || got.Message != "hello" || got.Room != "lobby" {
			t.Errorf("Unexpected chat message: %+v", got)
		}

		expectNoEvent(t, carol, chat.EventChatMessage, 200*time.Millisecond)
	})
}

func TestCurrentRoomInfoWithoutRoom(t *testing.T) {
	_, wsURL := startTestServer(t, nil)

	conn := dialClient(t, wsURL, "lonely")
	sendEvent(t, conn, chat.EventGetCurrentRoomInfo, nil, 42)
	reply := readUntil(t, conn, chat.EventGetCurrentRoomInfo)

	if reply.Ack == nil || *reply.Ack != 42 {
		t.Errorf("Expected ack 42, got %v", reply.Ack)
	}
	if string(reply.Data) != "null" {
		t.Errorf("Expected null data, got %s", string(reply.Data))
	}
}

func TestDisconnectAnnouncesLeave(t *testing.T) {
	forEachTransport(t, func(t *testing.T, name string) {
		hub, wsURL := startTestServer(t, withTransport(name))

		alice := dialClient(t, wsURL, "a")
		bob := dialClient(t, wsURL, "b")

		sendEvent(t, alice, chat.EventJoin, "room-1", 0)
		readUntil(t, alice, chat.EventUserJoined)
		sendEvent(t, bob, chat.EventSetUserNick, "bob", 0)
		sendEvent(t, bob, chat.EventJoin, "room-1", 0)
		readUntilMatch(t, alice, chat.EventUserJoined, func(f frame) bool {
			return strings.Contains(string(f.Data), `"userId":"bob"`)
		})

		if got := hub.ClientCount(); got != 2 {
			t.Fatalf("Expected 2 clients, got %d", got)
		}

		_ = bob.Close()

		left := readUntil(t, alice, chat.EventUserLeft)
		var membership chat.MembershipEvent
		decodeData(t, left, &membership)
		if membership.UserID != "bob" || membership.Room != "room-1" {
			t.Errorf("Unexpected userLeft payload: %+v", membership)
		}

		list := readUntilMatch(t, alice, chat.EventUserList, func(f frame) bool {
			return strings.Contains(string(f.Data), `"room":null`)
		})
		var users chat.UserListEvent
		decodeData(t, list, &users)
		if len(users.UserList) != 1 || users.UserList[0].ID != "a" {
			t.Errorf("Expected global user list with only a, got %+v", users.UserList)
		}

		deadline := time.Now().Add(2 * time.Second)
		for hub.ClientCount() != 1 {
			if time.Now().After(deadline) {
				t.Fatalf("Expected 1 client after disconnect, got %d", hub.ClientCount())
			}
			time.Sleep(10 * time.Millisecond)
		}
	})
}

func TestDuplicateConnectionIDRejected(t *testing.T) {
	forEachTransport(t, func(t *testing.T, name string) {
		hub, wsURL := startTestServer(t, withTransport(name))

		first := dialClient(t, wsURL, "same")
		second := dialRaw(t, wsURL, "same")

		expectClosed(t, second, 2*time.Second)

		sendEvent(t, first, chat.EventGetCurrentRoomInfo, nil, 3)
		readUntil(t, first, chat.EventGetCurrentRoomInfo)
		if got := hub.ClientCount(); got != 1 {
			t.Errorf("Expected the first connection to stay registered, got %d clients", got)
		}
	})
}

func TestRateLimitDiscardsExcessMessages(t *testing.T) {
	_, wsURL := startTestServer(t, func(cfg *server.Config) {
		cfg.RateLimit = server.RateLimitConfig{Burst: 3, RefillInterval: time.Minute}
	})

	// dialClient spends one token.
	conn := dialClient(t, wsURL, "chatty")
	for ack := int64(10); ack < 14; ack++ {
		sendEvent(t, conn, chat.EventGetCurrentRoomInfo, nil, ack)
	}

	for want := int64(10); want < 12; want++ {
		reply := readUntil(t, conn, chat.EventGetCurrentRoomInfo)
		if reply.Ack == nil || *reply.Ack != want {
			t.Fatalf("Expected ack %d, got %v", want, reply.Ack)
		}
	}
	expectNoEvent(t, conn, chat.EventGetCurrentRoomInfo, 300*time.Millisecond)
}

func TestOversizedMessageClosesConnection(t *testing.T) {
	forEachTransport(t, func(t *testing.T, name string) {
		_, wsURL := startTestServer(t, withTransport(name, func(cfg *server.Config) {
			cfg.MaxMessageSize = 128
		}))

		conn := dialClient(t, wsURL, "big")
		sendEvent(t, conn, chat.EventSetUserNick, strings.Repeat("x", 512), 0)

		expectClosed(t, conn, 2*time.Second)
	})
}

func TestUnknownEventIsIgnored(t *testing.T) {
	_, wsURL := startTestServer(t, nil)

	conn := dialClient(t, wsURL, "curious")
	sendEvent(t, conn, "selfDestruct", "now", 1)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("Failed to send garbage: %v", err)
	}

	sendEvent(t, conn, chat.EventGetCurrentRoomInfo, nil, 2)
	reply := readUntil(t, conn, chat.EventGetCurrentRoomInfo)
	if reply.Ack == nil || *reply.Ack != 2 {
		t.Errorf("Expected the connection to keep working, got ack %v", reply.Ack)
	}
}

func TestOriginRejected(t *testing.T) {
	forEachTransport(t, func(t *testing.T, name string) {
		_, wsURL := startTestServer(t, withTransport(name))

		for _, origin := range []string{"http://evil.example", "", "javascript:alert(1)"} {
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, newOriginHeader(origin))
			if err == nil {
				_ = conn.Close()
				t.Errorf("Expected origin %q to be rejected", origin)
			}
			if resp == nil {
				t.Errorf("Expected an HTTP response for origin %q", origin)
				continue
			}
			if resp.StatusCode != http.StatusForbidden {
				t.Errorf("Origin %q: expected status %d, got %d", origin, http.StatusForbidden, resp.StatusCode)
			}
			_ = resp.Body.Close()
		}
	})
}

func TestWildcardOriginAccepted(t *testing.T) {
	_, wsURL := startTestServer(t, func(cfg *server.Config) {
		cfg.AllowedOrigins = []string{"*"}
	})

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, newOriginHeader("https://anywhere.example"))
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Expected wildcard origin to be accepted: %v", err)
	}
	_ = conn.Close()
}
