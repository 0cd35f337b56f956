package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Collections every subscriber receives. Order matters only for the
// initial priming push.
var Collections = []string{"events", "users", "presence", "activity", "comments", "messages"}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendQueueDepth = 16
)

// Client is one websocket subscriber bound to a group.
type Client struct {
	userID  string
	groupID string
	conn    *websocket.Conn
	send    chan Message
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an upgraded websocket connection.
func NewClient(userID, groupID string, conn *websocket.Conn, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		userID:  userID,
		groupID: groupID,
		conn:    conn,
		send:    make(chan Message, sendQueueDepth),
		logger:  logger,
	}
}

// enqueue queues a frame without blocking. Returns false when the
// client's queue is full. The mutex orders enqueues against close, so
// a broadcast racing a disconnect lands on a still-open channel or on
// the closed flag, never on a closed channel.
func (c *Client) enqueue(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		// Already disconnecting; the frame is moot, not a slow client.
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// WritePump drains the send queue onto the wire and keeps the
// connection alive with pings. Runs until the queue closes or a write
// fails; always closes the connection on exit.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("websocket write failed", zap.String("user_id", c.userID), zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump discards inbound frames (the stream is one-way) and detects
// disconnects. Calls unregister exactly once on exit.
func (c *Client) ReadPump(unregister func(*Client)) {
	defer unregister(c)
	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
