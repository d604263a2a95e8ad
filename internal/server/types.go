// Package server defines the wire envelopes exchanged with clients and the
// messages passed from client pumps to the hub.
package server

import "encoding/json"

// Envelope is the JSON frame format in both directions. Ack is echoed on
// replies so clients can match them to requests.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   *int64          `json:"ack,omitempty"`
}

// outboundEnvelope carries an already typed payload, so Data is always
// present and encodes nil as null.
type outboundEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
	Ack   *int64 `json:"ack,omitempty"`
}

// InboundMessage is an envelope decoded by a client's read pump, queued for
// the hub.
type InboundMessage struct {
	Sender   *Client
	Envelope Envelope
}

func encodeEnvelope(event string, payload any, ack *int64) ([]byte, error) {
	return json.Marshal(outboundEnvelope{Event: event, Data: payload, Ack: ack})
}
