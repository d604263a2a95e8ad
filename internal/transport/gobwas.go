package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

type gobwasUpgrader struct {
	opts Options
}

func newGobwasUpgrader(opts Options) *gobwasUpgrader {
	return &gobwasUpgrader{opts: opts}
}

func (u *gobwasUpgrader) Upgrade(w http.ResponseWriter, r *http.Request) (Conn, error) {
	if err := checkOrigin(w, r, u.opts); err != nil {
		return nil, err
	}
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return nil, fmt.Errorf("gobwas upgrade: %w", err)
	}

	c := &gobwasConn{conn: conn, opts: u.opts}
	c.reader = &wsutil.Reader{
		Source:         conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: c.handleControl,
	}
	return c, nil
}

// gobwasConn writes every frame with a single locked Write because pongs and
// close replies are produced by the reading goroutine.
type gobwasConn struct {
	conn    net.Conn
	opts    Options
	reader  *wsutil.Reader
	writeMu sync.Mutex
}

// handleControl answers pings and close frames. The reply is buffered so it
// reaches the wire in one write.
func (c *gobwasConn) handleControl(hdr ws.Header, r io.Reader) error {
	var reply bytes.Buffer
	err := wsutil.ControlFrameHandler(&reply, ws.StateServerSide)(hdr, r)
	if reply.Len() > 0 {
		if werr := c.writeRaw(reply.Bytes()); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

func (c *gobwasConn) writeFrame(op ws.OpCode, payload []byte) error {
	frame, err := ws.CompileFrame(ws.NewFrame(op, true, payload))
	if err != nil {
		return fmt.Errorf("compile frame: %w", err)
	}
	return c.writeRaw(frame)
}

func (c *gobwasConn) writeRaw(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	_, err := c.conn.Write(p)
	return err
}

func (c *gobwasConn) ReadMessage() ([]byte, error) {
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait)); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}

		hdr, err := c.reader.NextFrame()
		if err != nil {
			return nil, err
		}

		if hdr.OpCode.IsControl() {
			if err := c.handleControl(hdr, c.reader); err != nil {
				return nil, err
			}
			continue
		}

		if hdr.OpCode != ws.OpText && hdr.OpCode != ws.OpBinary {
			if err := c.reader.Discard(); err != nil {
				return nil, err
			}
			continue
		}

		data, err := io.ReadAll(io.LimitReader(c.reader, c.opts.MaxMessageSize+1))
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > c.opts.MaxMessageSize {
			return nil, fmt.Errorf("%w: limit %d bytes", ErrMessageTooLarge, c.opts.MaxMessageSize)
		}
		return data, nil
	}
}

func (c *gobwasConn) WriteMessage(data []byte) error {
	return c.writeFrame(ws.OpText, data)
}

func (c *gobwasConn) WritePing() error {
	return c.writeFrame(ws.OpPing, nil)
}

func (c *gobwasConn) WriteClose() error {
	return c.writeFrame(ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
}

func (c *gobwasConn) Close() error {
	return c.conn.Close()
}

func (c *gobwasConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func isGobwasClose(err error) bool {
	var closed wsutil.ClosedError
	return errors.As(err, &closed)
}
