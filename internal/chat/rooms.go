package chat

const (
	// DefaultRoomCapacity applies to rooms without a configured capacity.
	DefaultRoomCapacity = 2

	// DefaultMaxOverflowRooms caps how many overflow rooms the service
	// creates over its lifetime.
	DefaultMaxOverflowRooms = 2
)

// JoinOutcome classifies the result of RoomRegistry.TryJoin.
type JoinOutcome int

const (
	// AlreadyMember means the client was already in the requested room.
	AlreadyMember JoinOutcome = iota
	// Joined means the client is now a member of JoinResult.Room.
	Joined
	// Rejected means no membership changed.
	Rejected
)

func (o JoinOutcome) String() string {
	switch o {
	case AlreadyMember:
		return "already-member"
	case Joined:
		return "joined"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// JoinResult describes what TryJoin did.
type JoinResult struct {
	Outcome JoinOutcome

	// Room is the room the client ended up in, or the overflow room that
	// refused it. Empty when the join was rejected before any overflow room
	// was derived.
	Room string

	// CreatedRoom is set when the join consumed an overflow slot, whatever
	// the outcome.
	CreatedRoom string

	// Previous lists rooms the client was removed from because it joined
	// another room.
	Previous []string
}

// RoomOptions configures a RoomRegistry. A zero DefaultCapacity or a nil
// Naming selects the default.
type RoomOptions struct {
	DefaultCapacity int
	Capacities      map[string]int

	// MaxOverflowRooms caps overflow room creation across all rooms. Zero
	// disables overflow; a negative value selects DefaultMaxOverflowRooms.
	MaxOverflowRooms int

	Naming NamingStrategy
}

// RoomRegistry maps rooms to members and capacities and applies the
// overflow policy.
type RoomRegistry struct {
	members         map[string]*idSet
	order           []string
	capacities      map[string]int
	defaultCapacity int
	maxOverflow     int
	overflowCount   int
	naming          NamingStrategy
}

// NewRoomRegistry returns an empty registry configured by opts.
func NewRoomRegistry(opts RoomOptions) *RoomRegistry {
	r := &RoomRegistry{
		members:         make(map[string]*idSet),
		capacities:      make(map[string]int),
		defaultCapacity: opts.DefaultCapacity,
		maxOverflow:     opts.MaxOverflowRooms,
		naming:          opts.Naming,
	}
	if r.defaultCapacity <= 0 {
		r.defaultCapacity = DefaultRoomCapacity
	}
	if r.maxOverflow < 0 {
		r.maxOverflow = DefaultMaxOverflowRooms
	}
	if r.naming == nil {
		r.naming = NextNumberedRoom
	}
	for room, capacity := range opts.Capacities {
		r.SetCapacity(room, capacity)
	}
	return r
}

// SetCapacity configures the capacity of room. Values below 1 are ignored.
func (r *RoomRegistry) SetCapacity(room string, capacity int) {
	if capacity < 1 {
		return
	}
	r.capacities[room] = capacity
}

// CapacityOf returns the configured capacity of room.
func (r *RoomRegistry) CapacityOf(room string) int {
	if capacity, ok := r.capacities[room]; ok {
		return capacity
	}
	return r.defaultCapacity
}

// MembersOf returns the member ids of room in join order. Unknown rooms
// have no members.
func (r *RoomRegistry) MembersOf(room string) []string {
	return r.members[room].list()
}

// RoomOf returns the room containing id.
func (r *RoomRegistry) RoomOf(id string) (string, bool) {
	for _, room := range r.order {
		if r.members[room].has(id) {
			return room, true
		}
	}
	return "", false
}

// Rooms returns every room that has ever had a member, in creation order.
func (r *RoomRegistry) Rooms() []string {
	return append([]string{}, r.order...)
}

// OverflowCount returns how many overflow rooms have been created.
func (r *RoomRegistry) OverflowCount() int {
	return r.overflowCount
}

// TryJoin adds id to room, or to an overflow room when room is full.
//
// When room is at capacity and the overflow limit has not been reached, the
// naming strategy derives the overflow room and the overflow counter is
// incremented whether or not the client fits in it. The overflow room is
// checked against the capacity of the requested room. A successful join
// removes id from any other room so that a client is a member of at most one
// room.
func (r *RoomRegistry) TryJoin(room, id string) JoinResult {
	if r.members[room].has(id) {
		return JoinResult{Outcome: AlreadyMember, Room: room}
	}

	capacity := r.CapacityOf(room)
	if r.members[room].len() < capacity {
		return r.join(room, id)
	}

	if r.overflowCount >= r.maxOverflow {
		return JoinResult{Outcome: Rejected}
	}
	next, ok := r.naming(room)
	if !ok {
		return JoinResult{Outcome: Rejected}
	}
	r.overflowCount++

	if r.members[next].len() >= capacity {
		return JoinResult{Outcome: Rejected, Room: next, CreatedRoom: next}
	}
	// A requester already in next is reported as joined so the join is
	// announced like any other.
	res := r.join(next, id)
	res.CreatedRoom = next
	return res
}

// Leave removes id from room and reports whether it was a member.
func (r *RoomRegistry) Leave(room, id string) bool {
	set, ok := r.members[room]
	if !ok {
		return false
	}
	return set.remove(id)
}

// LeaveAll removes id from every room and returns those rooms.
func (r *RoomRegistry) LeaveAll(id string) []string {
	var left []string
	for _, room := range r.order {
		if r.members[room].remove(id) {
			left = append(left, room)
		}
	}
	return left
}

func (r *RoomRegistry) join(room, id string) JoinResult {
	var previous []string
	for _, other := range r.order {
		if other != room && r.members[other].remove(id) {
			previous = append(previous, other)
		}
	}

	set, ok := r.members[room]
	if !ok {
		set = newIDSet()
		r.members[room] = set
		r.order = append(r.order, room)
	}
	set.add(id)

	return JoinResult{Outcome: Joined, Room: room, Previous: previous}
}
