// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/Tyrowin/overflowchat/internal/transport"
)

const (
	sendBufferSize = 256
	pingPeriod     = 54 * time.Second
)

// Client is one WebSocket connection attached to the hub. Its id is the
// connection identifier known to the chat coordinator.
type Client struct {
	id          string
	conn        transport.Conn
	send        chan []byte
	hub         *Hub
	addr        string
	closed      bool
	rateLimiter *rateLimiter
	rateLimit   RateLimitConfig
}

// NewClient creates a Client for conn with the given connection id. The
// client's send channel is buffered to absorb bursts of broadcasts.
func NewClient(id string, conn transport.Conn, hub *Hub, addr string) *Client {
	cfg := currentConfig()

	return &Client{
		id:          id,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		hub:         hub,
		addr:        addr,
		rateLimiter: newRateLimiter(cfg.RateLimit),
		rateLimit:   cfg.RateLimit,
	}
}

// ID returns the connection id of the client.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's send channel for reading outgoing messages.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// handleReadError logs the read failure at a level matching its cause.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, transport.ErrMessageTooLarge):
		log.Printf("Message from %s (%s) rejected: %v", c.addr, c.id, err)
	case transport.IsExpectedClose(err):
		log.Printf("Client %s (%s) disconnected: %v", c.addr, c.id, err)
	default:
		log.Printf("WebSocket read error from %s (%s): %v", c.addr, c.id, err)
	}
}

// checkRateLimit verifies if the client has exceeded rate limits
// and returns true if the message should be processed
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		log.Printf("Rate limit exceeded for %s (%d messages per %s); discarding message", c.addr, c.rateLimit.Burst, c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// processMessage decodes a raw frame and hands it to the hub. It returns
// false when the hub is shutting down.
func (c *Client) processMessage(rawMessage []byte) bool {
	var env Envelope
	if err := json.Unmarshal(rawMessage, &env); err != nil {
		log.Printf("Invalid message from %s: %v", c.addr, err)
		return true
	}
	if env.Event == "" {
		log.Printf("Message without event from %s; discarding", c.addr)
		return true
	}

	select {
	case c.hub.inbound <- InboundMessage{Sender: c, Envelope: env}:
		return true
	case <-c.hub.ctx.Done():
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		if err := c.conn.Close(); err != nil && !transport.IsExpectedClose(err) {
			log.Printf("Error closing connection in readPump: %v", err)
		}
	}()

	for {
		rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if !c.checkRateLimit() {
			continue
		}

		if !c.processMessage(rawMessage) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !transport.IsExpectedClose(err) {
		log.Printf("Error closing connection in writePump: %v", err)
	}
}

// handleMessage writes one outgoing message, then drains whatever else is
// queued. It returns false if the connection should be closed.
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if !ok {
		if err := c.conn.WriteClose(); err != nil && !transport.IsExpectedClose(err) {
			log.Printf("Error writing close message to %s: %v", c.addr, err)
		}
		return false
	}

	if !c.writeMessage(message) {
		return false
	}
	for n := len(c.send); n > 0; n-- {
		queued, ok := <-c.send
		if !ok {
			return c.handleMessage(nil, false)
		}
		if !c.writeMessage(queued) {
			return false
		}
	}
	return true
}

func (c *Client) writeMessage(message []byte) bool {
	if err := c.conn.WriteMessage(message); err != nil {
		if !transport.IsExpectedClose(err) {
			log.Printf("Error writing message to %s: %v", c.addr, err)
		}
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.WritePing(); err != nil {
		log.Printf("Error writing ping message to %s: %v", c.addr, err)
		return false
	}
	return true
}
