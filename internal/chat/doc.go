// Package chat implements room membership and broadcast coordination for the
// chat service.
//
// The package is transport agnostic. A Coordinator owns a ConnectionRegistry
// and a RoomRegistry and reacts to connection lifecycle and inbound chat
// events by mutating both registries and issuing broadcasts through a
// Transport. Rooms have a capacity (2 unless configured otherwise); joining a
// full room routes the client into an overflow room named after the full one,
// up to a service-wide limit of overflow rooms.
//
// A Coordinator is not safe for concurrent use. The caller must deliver events
// one at a time, which the server package does from its hub goroutine.
package chat
