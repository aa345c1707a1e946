package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

const writeWait = 10 * time.Second

// StatusNotFound closes connections whose participant or event does not exist.
const StatusNotFound websocket.StatusCode = 4404

var (
	ErrSendQueueFull = errors.New("send queue full")
	ErrConnClosed    = errors.New("connection closed")
)

// Conn is a websocket handle that is upgraded lazily by Accept, so a request
// can still be rejected with a close status after validation.
type Conn struct {
	w         http.ResponseWriter
	r         *http.Request
	opts      *websocket.AcceptOptions
	readLimit int64
	log       *slog.Logger

	mu        sync.Mutex // guards ws and acceptErr
	ws        *websocket.Conn
	acceptErr error

	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewConn wraps an incoming upgrade request. Nothing is written to w until Accept.
func NewConn(w http.ResponseWriter, r *http.Request, opts *websocket.AcceptOptions, readLimit int64, queue int, log *slog.Logger) *Conn {
	return &Conn{
		w: w, r: r, opts: opts, readLimit: readLimit,
		log:  log.With("remote", r.RemoteAddr),
		out:  make(chan []byte, queue),
		done: make(chan struct{}),
	}
}

// Accept upgrades HTTP to websocket. Only the first call touches the
// request; later calls return its result.
func (c *Conn) Accept(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws != nil || c.acceptErr != nil {
		return c.acceptErr
	}
	ws, err := websocket.Accept(c.w, c.r, c.opts)
	if err != nil {
		c.acceptErr = err
		return err
	}
	ws.SetReadLimit(c.readLimit)
	c.ws = ws
	return nil
}

func (c *Conn) socket() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws
}

// Send queues b for the write loop without blocking.
func (c *Conn) Send(b []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.out <- b:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Read blocks until it receives a text/binary message
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	ws := c.socket()
	if ws == nil {
		return nil, ErrConnClosed
	}
	_, data, err := ws.Read(ctx)
	return data, err
}

// WriteLoop drains the send queue in order until the connection is closed,
// ctx is cancelled or a write fails.
func (c *Conn) WriteLoop(ctx context.Context) {
	ws := c.socket()
	if ws == nil {
		return
	}
	for {
		select {
		case b := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := ws.Write(wctx, websocket.MessageText, b)
			cancel()
			if err != nil {
				c.log.Debug("ws.write", "err", err)
				_ = c.Close(websocket.StatusInternalError, "write failed")
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Close terminates the connection with code. A connection that was never
// accepted is upgraded first so the client still observes the status.
func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	err := ErrConnClosed
	c.closeOnce.Do(func() {
		close(c.done)
		if aerr := c.Accept(c.r.Context()); aerr != nil {
			err = aerr
			return
		}
		err = c.socket().Close(code, reason)
	})
	return err
}
