package chat_test

import (
	"github.com/Tyrowin/overflowchat/internal/chat"
)

// sent is one recorded broadcast. Room is empty for global broadcasts.
type sent struct {
	Room    string
	Event   string
	Payload any
}

// recordingTransport implements chat.Transport in memory and records every
// broadcast in order.
type recordingTransport struct {
	presence map[string]map[string]bool
	sent     []sent
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{presence: make(map[string]map[string]bool)}
}

func (t *recordingTransport) Broadcast(event string, payload any) {
	t.sent = append(t.sent, sent{Event: event, Payload: payload})
}

func (t *recordingTransport) BroadcastToRoom(room, event string, payload any) {
	t.sent = append(t.sent, sent{Room: room, Event: event, Payload: payload})
}

func (t *recordingTransport) InRoom(id, room string) bool {
	return t.presence[room][id]
}

func (t *recordingTransport) JoinRoom(id, room string) {
	if t.presence[room] == nil {
		t.presence[room] = make(map[string]bool)
	}
	t.presence[room][id] = true
}

func (t *recordingTransport) LeaveRoom(id, room string) {
	delete(t.presence[room], id)
}

func (t *recordingTransport) reset() {
	t.sent = nil
}

// events returns the recorded broadcasts matching event.
func (t *recordingTransport) events(event string) []sent {
	var out []sent
	for _, s := range t.sent {
		if s.Event == event {
			out = append(out, s)
		}
	}
	return out
}

// globalUserLists returns the payloads of userList broadcasts sent to all
// clients.
func (t *recordingTransport) globalUserLists() []chat.UserListEvent {
	var out []chat.UserListEvent
	for _, s := range t.events(chat.EventUserList) {
		if s.Room == "" {
			out = append(out, s.Payload.(chat.UserListEvent))
		}
	}
	return out
}

// lastRoomUserList returns the most recent userList payload sent to room.
func (t *recordingTransport) lastRoomUserList(room string) (chat.UserListEvent, bool) {
	var last chat.UserListEvent
	found := false
	for _, s := range t.events(chat.EventUserList) {
		if s.Room == room {
			last = s.Payload.(chat.UserListEvent)
			found = true
		}
	}
	return last, found
}

func userIDs(users []chat.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
