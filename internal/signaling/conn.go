package signaling

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP offers fit comfortably.
	maxMessageSize = 64 * 1024
)

// Conn wraps a single websocket connection. The hub remembers which room and
// username the connection is bound to so a dropped socket can be treated as
// an explicit leave.
type Conn struct {
	// ID is the connection identifier peers use to address WebRTC signals.
	ID string

	hub *Hub
	ws  *websocket.Conn

	// send is the buffered outbound queue drained by WritePump.
	send chan *Event

	// roomID and username are only touched from the hub goroutine.
	roomID   string
	username string
}

// ReadPump pumps events from the websocket into the hub. It runs in a
// per-connection goroutine; all reads happen here.
func (c *Conn) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var evt Event
		if err := c.ws.ReadJSON(&evt); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket read error", "conn", c.ID, "err", err)
			}
			break
		}
		evt.conn = c
		c.hub.Inbound <- &evt
	}
}

// WritePump pumps events from the send queue to the websocket and keeps the
// connection alive with pings. It runs in a per-connection goroutine; all
// writes happen here.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(evt); err != nil {
				slog.Debug("websocket write error", "conn", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deliver queues an event without blocking the caller; a connection that
// cannot keep up loses the event rather than stalling the room.
func (c *Conn) deliver(evt *Event) {
	select {
	case c.send <- evt:
	default:
		slog.Warn("dropping event for slow connection", "conn", c.ID, "type", evt.Type)
	}
}
