package transport

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type gorillaUpgrader struct {
	upgrader websocket.Upgrader
	opts     Options
}

func newGorillaUpgrader(opts Options) *gorillaUpgrader {
	return &gorillaUpgrader{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are checked by checkOrigin before upgrading.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		opts: opts,
	}
}

// Upgrade upgrades the request. On failure the upgrader has already written
// an HTTP error response.
func (u *gorillaUpgrader) Upgrade(w http.ResponseWriter, r *http.Request) (Conn, error) {
	if err := checkOrigin(w, r, u.opts); err != nil {
		return nil, err
	}
	ws, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("gorilla upgrade: %w", err)
	}

	c := &gorillaConn{conn: ws, opts: u.opts}
	c.setupReadConnection()
	return c, nil
}

type gorillaConn struct {
	conn *websocket.Conn
	opts Options
}

// setupReadConnection applies the read limit and keeps the read deadline
// moving forward on every pong.
func (c *gorillaConn) setupReadConnection() {
	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", c.RemoteAddr(), err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})
}

func (c *gorillaConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if errors.Is(err, websocket.ErrReadLimit) {
			return nil, fmt.Errorf("%w: limit %d bytes", ErrMessageTooLarge, c.opts.MaxMessageSize)
		}
		return nil, err
	}
	return data, nil
}

func (c *gorillaConn) WriteMessage(data []byte) error {
	return c.write(websocket.TextMessage, data)
}

func (c *gorillaConn) WritePing() error {
	return c.write(websocket.PingMessage, nil)
}

func (c *gorillaConn) WriteClose() error {
	return c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *gorillaConn) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *gorillaConn) Close() error {
	return c.conn.Close()
}

func (c *gorillaConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func isGorillaClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived)
}
