package chat

import (
	"encoding/json"
	"fmt"
	"log"
)

// Broadcaster pushes named events to connected clients.
type Broadcaster interface {
	// Broadcast sends event to every connected client.
	Broadcast(event string, payload any)
	// BroadcastToRoom sends event to every client present in room.
	BroadcastToRoom(room, event string, payload any)
}

// Presence is transport-level room presence. It decides who receives room
// broadcasts and is tracked separately from room membership.
type Presence interface {
	InRoom(id, room string) bool
	JoinRoom(id, room string)
	LeaveRoom(id, room string)
}

// Transport is everything the Coordinator needs from the connection layer.
type Transport interface {
	Broadcaster
	Presence
}

// Options configures a Coordinator.
type Options struct {
	Rooms RoomOptions

	// AtomicJoin keeps transport presence and membership in step when an
	// overflow room turns out to be full. When false, the client is placed in
	// the full overflow room at the transport level without becoming a
	// member.
	AtomicJoin bool
}

// Coordinator applies connection and chat events to the registries and
// broadcasts the resulting changes.
type Coordinator struct {
	conns      *ConnectionRegistry
	rooms      *RoomRegistry
	out        Transport
	atomicJoin bool
}

// NewCoordinator returns a Coordinator broadcasting through out.
func NewCoordinator(out Transport, opts Options) *Coordinator {
	return &Coordinator{
		conns:      NewConnectionRegistry(),
		rooms:      NewRoomRegistry(opts.Rooms),
		out:        out,
		atomicJoin: opts.AtomicJoin,
	}
}

// Connections exposes the connection registry for inspection.
func (c *Coordinator) Connections() *ConnectionRegistry {
	return c.conns
}

// Rooms exposes the room registry for inspection.
func (c *Coordinator) Rooms() *RoomRegistry {
	return c.rooms
}

// Connect registers a new connection. ErrDuplicateConnection means the
// caller must terminate the connection.
func (c *Coordinator) Connect(id string) error {
	return c.conns.Connect(id)
}

// Disconnect removes id from every room, announcing the departure in each,
// then sends one global user list.
func (c *Coordinator) Disconnect(id string) {
	if !c.conns.IsConnected(id) {
		return
	}
	nick := c.conns.NicknameOf(id)
	c.conns.connected.remove(id)

	for _, room := range c.rooms.LeaveAll(id) {
		c.out.LeaveRoom(id, room)
		c.announceLeave(room, nick)
	}
	c.broadcastGlobalUserList()
	c.conns.forget(id)
}

// SetNickname changes the nickname of id without broadcasting.
func (c *Coordinator) SetNickname(id, nick string) {
	c.conns.SetNickname(id, nick)
}

// Join moves id into room, or into an overflow room when room is full.
func (c *Coordinator) Join(id, room string) {
	if c.out.InRoom(id, room) {
		return
	}

	res := c.rooms.TryJoin(room, id)
	if res.CreatedRoom != "" {
		log.Printf("Overflow room %q created for %q (%d/%d)", res.CreatedRoom, room,
			c.rooms.OverflowCount(), c.rooms.maxOverflow)
		c.out.Broadcast(EventNewRoomCreated, res.CreatedRoom)
	}

	switch res.Outcome {
	case Joined:
		c.out.JoinRoom(id, res.Room)
		nick := c.conns.NicknameOf(id)
		for _, prev := range res.Previous {
			c.out.LeaveRoom(id, prev)
			c.announceLeave(prev, nick)
		}
		c.out.BroadcastToRoom(res.Room, EventUserJoined, MembershipEvent{UserID: nick, Room: res.Room})
		c.broadcastRoomUserList(res.Room)
		c.broadcastGlobalUserList()
	case AlreadyMember:
		c.out.JoinRoom(id, res.Room)
	case Rejected:
		if res.CreatedRoom != "" && !c.atomicJoin {
			c.out.JoinRoom(id, res.CreatedRoom)
		}
		log.Printf("Join of %q by %s rejected", room, id)
	}
}

// Exit removes id from room.
func (c *Coordinator) Exit(id, room string) {
	if !c.out.InRoom(id, room) {
		return
	}
	c.out.LeaveRoom(id, room)

	if c.rooms.Leave(room, id) {
		c.announceLeave(room, c.conns.NicknameOf(id))
	}
	c.broadcastGlobalUserList()
}

// ChatMessage relays a message to the room of id. The room field of the
// request is passed through as received.
func (c *Coordinator) ChatMessage(id string, req ChatMessageRequest) {
	room, ok := c.rooms.RoomOf(id)
	if !ok {
		return
	}
	c.out.BroadcastToRoom(room, EventChatMessage, ChatMessageEvent{
		UserID:  c.conns.NicknameOf(id),
		Message: req.Message,
		Room:    req.Room,
	})
}

// Typing announces that id is typing in its current room. The supplied user
// name wins over the nickname of id.
func (c *Coordinator) Typing(id string, req TypingRequest) {
	room, ok := c.rooms.RoomOf(id)
	if !ok {
		return
	}
	user := req.User
	if user == "" {
		user = c.conns.NicknameOf(id)
	}
	c.out.BroadcastToRoom(room, EventTyping, TypingEvent{User: user})
}

// StopTyping announces in room that id stopped typing. Unlike Typing, room
// is taken as given rather than resolved from membership.
func (c *Coordinator) StopTyping(id, room string) {
	c.out.BroadcastToRoom(room, EventStopTyping, TypingEvent{User: c.conns.NicknameOf(id)})
}

// RequestUserList sends the user list of room to everyone in it, provided
// the room has members.
func (c *Coordinator) RequestUserList(room string) {
	if c.rooms.members[room].len() == 0 {
		return
	}
	c.broadcastRoomUserList(room)
}

// CurrentRoomInfo returns the room of id and its users, or nil.
func (c *Coordinator) CurrentRoomInfo(id string) *RoomInfo {
	room, ok := c.rooms.RoomOf(id)
	if !ok {
		return nil
	}
	return &RoomInfo{Room: room, Users: c.roomUsers(room)}
}

func (c *Coordinator) announceLeave(room, nick string) {
	c.out.BroadcastToRoom(room, EventUserLeft, MembershipEvent{UserID: nick, Room: room})
	c.broadcastRoomUserList(room)
}

func (c *Coordinator) broadcastRoomUserList(room string) {
	name := room
	c.out.BroadcastToRoom(room, EventUserList, UserListEvent{Room: &name, UserList: c.roomUsers(room)})
}

func (c *Coordinator) broadcastGlobalUserList() {
	c.out.Broadcast(EventUserList, UserListEvent{UserList: c.conns.ListAll()})
}

func (c *Coordinator) roomUsers(room string) []User {
	return c.conns.usersOf(c.rooms.MembersOf(room))
}

// decodePayload unmarshals data into v, wrapping failures in
// ErrInvalidPayload.
func decodePayload(event string, data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("%w: %s without data", ErrInvalidPayload, event)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, event, err)
	}
	return nil
}
