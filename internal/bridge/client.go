package bridge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	// sendBuffer bounds the per-connection outbound queue. A full buffer
	// means the client is lagging; further frames to it are dropped.
	sendBuffer = 256

	writeTimeout = 10 * time.Second
)

// Session is a live connection's binding of connection id, authenticated
// user and presented token. It is established at handshake and torn down on
// disconnect; the persisted token list on the user stays authoritative.
type Session struct {
	ConnectionID string
	UserID       string
	Token        string
}

// Client represents one connected WebSocket client.
type Client struct {
	// ID is the unique connection id. Distinct from the user id: a user may
	// hold several connections.
	ID     string
	UserID string
	Token  string

	conn       *websocket.Conn
	send       chan []byte
	bridge     *Bridge
	dispatcher *Dispatcher
}

// NewClient wraps an accepted connection for the given authenticated user.
func NewClient(conn *websocket.Conn, userID, token string, b *Bridge, d *Dispatcher) *Client {
	return &Client{
		ID:         uuid.NewString(),
		UserID:     userID,
		Token:      token,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		bridge:     b,
		dispatcher: d,
	}
}

// Session returns the connection's session binding.
func (c *Client) Session() Session {
	return Session{ConnectionID: c.ID, UserID: c.UserID, Token: c.Token}
}

// enqueue queues a payload without blocking. Callers hold bridge locks, so a
// stuck client must not stall the whole registry.
func (c *Client) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
		slog.Warn("client send buffer full, dropping frame", "connectionID", c.ID, "userID", c.UserID)
	}
}

// readPump reads frames from the connection and dispatches them one at a
// time: no handler for this connection starts before the previous one
// finished, which is the per-connection ordering the protocol relies on.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.bridge.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "client disconnected")
		slog.Info("client disconnected", "connectionID", c.ID, "userID", c.UserID)
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				slog.Info("websocket closed by client", "connectionID", c.ID)
			} else if err != io.EOF && ctx.Err() == nil {
				slog.Error("websocket read error", "connectionID", c.ID, "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Warn("dropping malformed frame", "connectionID", c.ID, "error", err)
			continue
		}

		ack := c.dispatcher.HandleFrame(ctx, c.Session(), frame)
		payload, err := json.Marshal(ack)
		if err != nil {
			slog.Error("failed to marshal ack", "connectionID", c.ID, "error", err)
			continue
		}
		c.enqueue(payload)
	}
}

// writePump pumps queued payloads onto the wire until the send channel is
// closed by Unregister.
func (c *Client) writePump() {
	defer c.conn.Close(websocket.StatusNormalClosure, "server-side cleanup")

	for payload := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			slog.Error("websocket write error", "connectionID", c.ID, "error", err)
			return
		}
	}
}
