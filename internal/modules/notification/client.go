package notification

import (
	"fmt"
	"sync"
	"time"

	"propertyhub/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn is a single live transport session as seen by the registry and the dispatcher.
type Conn interface {
	ID() string
	// Channel is "" for the role notification channel or ChatChannel(orderID) for a chat room.
	Channel() string
	// Send enqueues one frame without blocking.
	Send(frame []byte) error
	Close() error
}

// Transport is the subset of *websocket.Conn used by Client and Session.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type ClientOptions struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	SendBuffer     int
	MaxMessageSize int64
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		SendBuffer:     256,
		MaxMessageSize: 64 * 1024,
	}
}

func (o ClientOptions) withDefaults() ClientOptions {
	d := DefaultClientOptions()
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = d.MaxMessageSize
	}
	return o
}

// Client is a websocket-backed Conn. Frames are queued on a bounded channel and
// written by a single pump goroutine, so per-connection order is FIFO.
type Client struct {
	id        string
	channel   string
	transport Transport
	opts      ClientOptions
	logger    *zap.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool

	startOnce sync.Once
	done      chan struct{}
}

func NewClient(t Transport, channel string, opts ClientOptions, logger *zap.Logger) *Client {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Client{
		id:        id,
		channel:   channel,
		transport: t,
		opts:      opts,
		logger:    logger.With(zap.String("conn_id", id), zap.String("channel", channel)),
		send:      make(chan []byte, opts.SendBuffer),
		done:      make(chan struct{}),
	}
}

func (c *Client) ID() string      { return c.id }
func (c *Client) Channel() string { return c.channel }

func (c *Client) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("connection %s closed: %w", c.id, domain.ErrTransportFailure)
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return fmt.Errorf("connection %s send buffer full: %w", c.id, domain.ErrTransportFailure)
	}
}

// Close stops accepting frames. The pump flushes what is queued, sends a close
// frame and releases the transport. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return nil
}

// Start launches the write pump. onFailure runs once if a write fails or times out.
func (c *Client) Start(onFailure func(Conn)) {
	c.startOnce.Do(func() {
		go c.writePump(onFailure)
	})
}

// Done is closed after the pump has released the transport.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) writePump(onFailure func(Conn)) {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.transport.Close()
		close(c.done)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.transport.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				_ = c.transport.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.transport.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.fail(err, onFailure)
				return
			}
		case <-ticker.C:
			_ = c.transport.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.transport.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.fail(err, onFailure)
				return
			}
		}
	}
}

func (c *Client) fail(err error, onFailure func(Conn)) {
	c.logger.Warn("websocket write failed", zap.Error(err))
	_ = c.Close()
	if onFailure != nil {
		onFailure(c)
	}
}
