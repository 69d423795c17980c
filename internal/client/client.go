// Package client is the CLI side of the realtime protocol: the websocket
// connection to the game server and the routing of server events into
// channels the command loop consumes.
package client

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Rajput-xv/room-T-D/internal/game"
	"github.com/Rajput-xv/room-T-D/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client manages the websocket connection to the game server.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *signaling.Event
	outgoing  chan *signaling.Event
	done      chan struct{}

	closeOnce sync.Once
}

func New(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan *signaling.Event, 32),
		outgoing:  make(chan *signaling.Event, 32),
		done:      make(chan struct{}),
	}
}

// Connect dials the server and starts the read and write pumps.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	for {
		var evt signaling.Event
		if err := c.conn.ReadJSON(&evt); err != nil {
			return
		}
		c.incoming <- &evt
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Send queues an event for the server, dropping it if the client is closed.
func (c *Client) Send(evt *signaling.Event) {
	select {
	case c.outgoing <- evt:
	case <-c.done:
	}
}

// Incoming returns the channel server events arrive on.
func (c *Client) Incoming() <-chan *signaling.Event {
	return c.incoming
}

// Close shuts the connection down.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Protocol helpers, one per client-to-server event.

func (c *Client) CreateRoom(roomName, username string) {
	c.Send(signaling.NewEvent(signaling.EvtCreateRoom, signaling.CreateRoomPayload{
		RoomName: roomName,
		Username: username,
	}))
}

func (c *Client) JoinRoom(roomID, username string) {
	c.Send(signaling.NewEvent(signaling.EvtJoinRoom, signaling.JoinRoomPayload{
		RoomID:   roomID,
		Username: username,
	}))
}

func (c *Client) LeaveRoom() {
	c.Send(signaling.NewEvent(signaling.EvtLeaveRoom, nil))
}

func (c *Client) RequestAvailableRooms() {
	c.Send(signaling.NewEvent(signaling.EvtGetAvailableRooms, nil))
}

func (c *Client) StartGame(roomID string) {
	c.Send(signaling.NewEvent(signaling.EvtStartGame, signaling.RoomPayload{RoomID: roomID}))
}

func (c *Client) Choose(roomID string, choice game.Choice) {
	c.Send(signaling.NewEvent(signaling.EvtChooseTruthOrDare, signaling.ChoosePayload{
		RoomID: roomID,
		Choice: choice,
	}))
}

func (c *Client) SpinWheel(roomID string) {
	c.Send(signaling.NewEvent(signaling.EvtSpinWheel, signaling.RoomPayload{RoomID: roomID}))
}

func (c *Client) NextTurn(roomID string) {
	c.Send(signaling.NewEvent(signaling.EvtNextTurn, signaling.RoomPayload{RoomID: roomID}))
}

func (c *Client) EndRoom(roomID string) {
	c.Send(signaling.NewEvent(signaling.EvtEndRoom, signaling.RoomPayload{RoomID: roomID}))
}

func (c *Client) SendChat(roomID, username, message string) {
	c.Send(signaling.NewEvent(signaling.EvtSendMessage, signaling.ChatPayload{
		RoomID:   roomID,
		Username: username,
		Message:  message,
	}))
}

func (c *Client) UpdateActivity(roomID string) {
	c.Send(signaling.NewEvent(signaling.EvtUpdateActivity, signaling.RoomPayload{RoomID: roomID}))
}

func (c *Client) SelectTruth(roomID string) {
	c.Send(signaling.NewEvent(signaling.EvtSelectTruth, signaling.RoomPayload{RoomID: roomID}))
}

func (c *Client) SelectDare(roomID string) {
	c.Send(signaling.NewEvent(signaling.EvtSelectDare, signaling.RoomPayload{RoomID: roomID}))
}

func (c *Client) ToggleMedia(roomID string, channel game.MediaChannel, enabled bool) {
	c.Send(signaling.NewEvent(signaling.EvtToggleMedia, signaling.TogglePayload{
		RoomID:  roomID,
		Channel: channel,
		Enabled: enabled,
	}))
}

// SendSignal forwards a WebRTC description or candidate to one peer through
// the relay. kind is one of the webrtc-* event names.
func (c *Client) SendSignal(kind, roomID, to string, payload []byte) {
	c.Send(signaling.NewEvent(kind, signaling.SignalPayload{
		RoomID:  roomID,
		To:      to,
		Payload: payload,
	}))
}
