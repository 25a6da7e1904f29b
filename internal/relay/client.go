package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDialTimeout bounds connecting to the relay. Default: 10s.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// Client sends speech requests to a relay over one shared websocket. The
// connection is dialled on first use and redialled after it drops. It is safe
// for concurrent use.
type Client struct {
	url         string
	dialTimeout time.Duration

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[uint64]chan Response
	nextID  uint64
	closed  bool
}

// NewClient returns a client for the relay websocket at url, for example
// "ws://localhost:8090/ws". No connection is made until the first request.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:         url,
		dialTimeout: 10 * time.Second,
		pending:     make(map[uint64]chan Response),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Provider returns a [speech.Provider] that runs engine through the relay.
func (c *Client) Provider(engine speech.Engine) speech.Provider {
	return speech.ProviderFunc(func(ctx context.Context, req speech.Request) (speech.Audio, error) {
		return c.Synthesize(ctx, engine, req)
	})
}

// Synthesize asks the relay to run engine for req and waits for the answer.
func (c *Client) Synthesize(ctx context.Context, engine speech.Engine, req speech.Request) (speech.Audio, error) {
	if err := req.Validate(); err != nil {
		return speech.Audio{}, fmt.Errorf("relay: %w", err)
	}
	conn, id, ch, err := c.register(ctx)
	if err != nil {
		return speech.Audio{}, err
	}
	defer c.unregister(id)

	msg := Request{ID: id, Engine: engine, Text: req.Text, Rate: req.Rate}
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		c.drop(conn, err)
		return speech.Audio{}, fmt.Errorf("relay: send: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return speech.Audio{}, c.closedErr()
		}
		if resp.Error != "" {
			return speech.Audio{}, fmt.Errorf("relay: %s: %s", engine, resp.Error)
		}
		return speech.Audio{Data: resp.Audio, MIME: resp.MIME}, nil
	case <-ctx.Done():
		return speech.Audio{}, ctx.Err()
	}
}

// Close closes the connection and fails all waiting requests with [ErrClosed].
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.failPendingLocked()
	c.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "")
	}
	return nil
}

// register allocates a request ID and returns the live connection, dialling
// when needed.
func (c *Client) register(ctx context.Context) (*websocket.Conn, uint64, chan Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, 0, nil, ErrClosed
	}
	if c.conn == nil {
		dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
		conn, _, err := websocket.Dial(dialCtx, c.url, nil)
		cancel()
		if err != nil {
			return nil, 0, nil, fmt.Errorf("relay: dial %s: %w", c.url, err)
		}
		conn.SetReadLimit(maxMessageBytes)
		c.conn = conn
		go c.readLoop(conn)
	}
	c.nextID++
	ch := make(chan Response, 1)
	c.pending[c.nextID] = ch
	return c.conn, c.nextID, ch, nil
}

func (c *Client) unregister(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var resp Response
		if err := wsjson.Read(context.Background(), conn, &resp); err != nil {
			c.drop(conn, err)
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

// drop forgets conn after a transport error so the next request redials.
// Requests waiting on conn fail.
func (c *Client) drop(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	for id, ch := range c.pending {
		ch <- Response{ID: id, Error: "connection lost: " + err.Error()}
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !errors.Is(err, context.Canceled) {
		slog.Debug("relay: connection dropped", "url", c.url, "err", err)
	}
	conn.CloseNow()
}

func (c *Client) failPendingLocked() {
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return errors.New("relay: request abandoned")
}
