package server

import (
	"context"
	"io"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xaionaro-go/datacounter"

	"github.com/farcloser/acoustica/internal/stream"
)

// wsConn carries a streaming session over a websocket: binary frames in, JSON text frames out.
type wsConn struct {
	conn *websocket.Conn
	// received counts payload bytes of every frame read, skipped text frames included.
	received uint64
}

func newWSConn(conn *websocket.Conn, readLimit int64) *wsConn {
	conn.SetReadLimit(readLimit)

	return &wsConn{conn: conn}
}

// ReadChunk blocks until the next binary frame. Cancelling ctx unblocks it: the read deadline is
// moved to now, which fails the pending read.
func (c *wsConn) ReadChunk(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
		defer c.conn.SetReadDeadline(time.Time{}) //nolint:errcheck
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		data, kind, err := c.next()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil, stream.ErrClosed
			}

			return nil, err
		}

		// Text frames carry no audio.
		if kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsConn) next() ([]byte, int, error) {
	kind, reader, err := c.conn.NextReader()
	if err != nil {
		return nil, 0, err
	}

	counter := datacounter.NewReaderCounter(reader)
	data, err := io.ReadAll(counter)
	c.received += counter.Count()

	return data, kind, err
}

// Received returns the payload bytes read so far.
func (c *wsConn) Received() uint64 {
	return c.received
}

func (c *wsConn) WriteResult(ctx context.Context, msg any) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(wsWriteTimeout)
	}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))

	return c.conn.Close()
}
