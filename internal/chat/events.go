package chat

// Inbound event names.
const (
	EventSetUserNick        = "setUserNick"
	EventJoin               = "join"
	EventExit               = "exit"
	EventGetUserList        = "getUserList"
	EventGetCurrentRoomInfo = "getCurrentRoomInfo"
	EventChatMessage        = "chatMessage"
	EventTyping             = "typing"
	EventStopTyping         = "stopTyping"
)

// Outbound event names. chatMessage, typing and stopTyping are reused from
// the inbound set.
const (
	EventUserJoined     = "userJoined"
	EventUserLeft       = "userLeft"
	EventUserList       = "userList"
	EventNewRoomCreated = "newRoomCreated"
)

// User is one entry of a user list.
type User struct {
	ID   string `json:"id"`
	Nick string `json:"nick"`
}

// MembershipEvent is the payload of userJoined and userLeft. UserID carries
// the nickname of the client.
type MembershipEvent struct {
	UserID string `json:"userId"`
	Room   string `json:"room"`
}

// UserListEvent is the payload of userList. Room is nil for the global list
// of connected clients.
type UserListEvent struct {
	Room     *string `json:"room"`
	UserList []User  `json:"userList"`
}

// ChatMessageEvent is the payload of an outbound chatMessage.
type ChatMessageEvent struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
	Room    string `json:"room"`
}

// TypingEvent is the payload of typing and stopTyping.
type TypingEvent struct {
	User string `json:"user"`
}

// ChatMessageRequest is the payload of an inbound chatMessage.
type ChatMessageRequest struct {
	Message string `json:"message"`
	Room    string `json:"room"`
}

// TypingRequest is the payload of an inbound typing event.
type TypingRequest struct {
	Room string `json:"room"`
	User string `json:"user"`
}

// RoomInfo answers getCurrentRoomInfo.
type RoomInfo struct {
	Room  string `json:"room"`
	Users []User `json:"users"`
}
