package chat

import (
	"encoding/json"
	"fmt"
)

// handler processes one inbound event. Handlers that answer the sender
// return the reply value and true.
type handler func(c *Coordinator, id string, data json.RawMessage) (any, bool, error)

var handlers = map[string]handler{
	EventSetUserNick: func(c *Coordinator, id string, data json.RawMessage) (any, bool, error) {
		var nick string
		if err := decodePayload(EventSetUserNick, data, &nick); err != nil {
			return nil, false, err
		}
		c.SetNickname(id, nick)
		return nil, false, nil
	},
	EventJoin: func(c *Coordinator, id string, data json.RawMessage) (any, bool, error) {
		var room string
		if err := decodePayload(EventJoin, data, &room); err != nil {
			return nil, false, err
		}
		c.Join(id, room)
		return nil, false, nil
	},
	EventExit: func(c *Coordinator, id string, data json.RawMessage) (any, bool, error) {
		var room string
		if err := decodePayload(EventExit, data, &room); err != nil {
			return nil, false, err
		}
		c.Exit(id, room)
		return nil, false, nil
	},
	EventGetUserList: func(c *Coordinator, _ string, data json.RawMessage) (any, bool, error) {
		var room string
		if err := decodePayload(EventGetUserList, data, &room); err != nil {
			return nil, false, err
		}
		c.RequestUserList(room)
		return nil, false, nil
	},
	EventGetCurrentRoomInfo: func(c *Coordinator, id string, _ json.RawMessage) (any, bool, error) {
		return c.CurrentRoomInfo(id), true, nil
	},
	EventChatMessage: func(c *Coordinator, id string, data json.RawMessage) (any, bool, error) {
		var req ChatMessageRequest
		if err := decodePayload(EventChatMessage, data, &req); err != nil {
			return nil, false, err
		}
		c.ChatMessage(id, req)
		return nil, false, nil
	},
	EventTyping: func(c *Coordinator, id string, data json.RawMessage) (any, bool, error) {
		var req TypingRequest
		if err := decodePayload(EventTyping, data, &req); err != nil {
			return nil, false, err
		}
		c.Typing(id, req)
		return nil, false, nil
	},
	EventStopTyping: func(c *Coordinator, id string, data json.RawMessage) (any, bool, error) {
		var room string
		if err := decodePayload(EventStopTyping, data, &room); err != nil {
			return nil, false, err
		}
		c.StopTyping(id, room)
		return nil, false, nil
	},
}

// Dispatch routes an inbound event from id to its handler. When the event
// answers the sender, the reply is returned with replied set; a nil reply is
// meaningful and encodes as null.
func (c *Coordinator) Dispatch(id, event string, data json.RawMessage) (reply any, replied bool, err error) {
	h, ok := handlers[event]
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	if !c.conns.IsConnected(id) {
		return nil, false, ErrNotConnected
	}
	return h(c, id, data)
}
