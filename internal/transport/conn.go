// Package transport adapts WebSocket libraries to a single Conn interface
// so the chat server can run on either gorilla/websocket or gobwas/ws.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Names accepted by NewUpgrader.
const (
	Gorilla = "gorilla"
	Gobwas  = "gobwas"
)

var (
	// ErrMessageTooLarge is returned by ReadMessage when an inbound message
	// exceeds the configured limit.
	ErrMessageTooLarge = errors.New("transport: message exceeds maximum size")

	// ErrOriginNotAllowed is returned by Upgrade when CheckOrigin refuses
	// the request.
	ErrOriginNotAllowed = errors.New("transport: origin not allowed")

	// ErrUnknownTransport is returned by NewUpgrader for unknown names.
	ErrUnknownTransport = errors.New("transport: unknown transport")
)

// Conn is one upgraded WebSocket connection. ReadMessage must be called from
// a single goroutine; the write methods may be called from another.
type Conn interface {
	io.Closer

	// ReadMessage blocks until the next text or binary message arrives.
	// Control frames are handled internally.
	ReadMessage() ([]byte, error)

	// WriteMessage sends data as one text message.
	WriteMessage(data []byte) error

	// WritePing sends a ping to keep the connection alive.
	WritePing() error

	// WriteClose sends a normal closure frame.
	WriteClose() error

	// RemoteAddr returns the address of the peer.
	RemoteAddr() string
}

// Upgrader turns HTTP requests into Conns.
type Upgrader interface {
	Upgrade(w http.ResponseWriter, r *http.Request) (Conn, error)
}

// Options configures connections produced by an Upgrader.
type Options struct {
	// MaxMessageSize bounds inbound messages in bytes.
	MaxMessageSize int64

	// PongWait is how long a connection may stay silent before reads fail.
	PongWait time.Duration

	// WriteWait bounds every write.
	WriteWait time.Duration

	// CheckOrigin validates the Origin header. Nil accepts every request.
	CheckOrigin func(r *http.Request) bool
}

func (o Options) withDefaults() Options {
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 4096
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	return o
}

// NewUpgrader returns the Upgrader registered under name.
func NewUpgrader(name string, opts Options) (Upgrader, error) {
	opts = opts.withDefaults()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Gorilla:
		return newGorillaUpgrader(opts), nil
	case Gobwas:
		return newGobwasUpgrader(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, name)
	}
}

// checkOrigin writes a 403 response and returns ErrOriginNotAllowed when
// opts.CheckOrigin refuses r.
func checkOrigin(w http.ResponseWriter, r *http.Request, opts Options) error {
	if opts.CheckOrigin == nil || opts.CheckOrigin(r) {
		return nil
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	return ErrOriginNotAllowed
}

// IsExpectedClose reports whether err is part of a normal connection
// teardown rather than a fault worth logging.
func IsExpectedClose(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if isGorillaClose(err) || isGobwasClose(err) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset by peer")
}
