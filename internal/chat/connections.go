package chat

// UnknownNick is reported for clients that never set a nickname.
const UnknownNick = "Unknown"

// ConnectionRegistry tracks connected client ids and their nicknames.
type ConnectionRegistry struct {
	connected *idSet
	nicknames map[string]string
}

// NewConnectionRegistry returns an empty registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		connected: newIDSet(),
		nicknames: make(map[string]string),
	}
}

// Connect registers id. It returns ErrDuplicateConnection when id is
// already connected, in which case the registry is left untouched.
func (r *ConnectionRegistry) Connect(id string) error {
	if !r.connected.add(id) {
		return ErrDuplicateConnection
	}
	return nil
}

// Disconnect removes id and its nickname. Unknown ids are ignored.
func (r *ConnectionRegistry) Disconnect(id string) {
	r.connected.remove(id)
	delete(r.nicknames, id)
}

// IsConnected reports whether id is registered.
func (r *ConnectionRegistry) IsConnected(id string) bool {
	return r.connected.has(id)
}

// SetNickname sets or overwrites the nickname of id. Empty and duplicate
// nicknames are accepted as is.
func (r *ConnectionRegistry) SetNickname(id, nick string) {
	r.nicknames[id] = nick
}

// NicknameOf returns the nickname of id, or UnknownNick if none was set.
func (r *ConnectionRegistry) NicknameOf(id string) string {
	if nick, ok := r.nicknames[id]; ok && nick != "" {
		return nick
	}
	return UnknownNick
}

// ListAll returns every connected client in connection order.
func (r *ConnectionRegistry) ListAll() []User {
	return r.usersOf(r.connected.list())
}

// Count returns the number of connected clients.
func (r *ConnectionRegistry) Count() int {
	return r.connected.len()
}

func (r *ConnectionRegistry) usersOf(ids []string) []User {
	users := make([]User, 0, len(ids))
	for _, id := range ids {
		users = append(users, User{ID: id, Nick: r.NicknameOf(id)})
	}
	return users
}

// forget drops only the nickname of id. Disconnect handling uses it after
// the departure broadcasts have resolved the nickname.
func (r *ConnectionRegistry) forget(id string) {
	delete(r.nicknames, id)
}
