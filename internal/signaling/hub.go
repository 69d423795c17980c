package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Rajput-xv/room-T-D/internal/game"
)

// Hub routes every realtime event. A single goroutine runs dispatch, so
// events touching one room are handled strictly in arrival order; deliveries
// go through per-connection buffered queues and never block dispatch.
type Hub struct {
	Register   chan *Conn
	Unregister chan *Conn
	Inbound    chan *Event

	// Evictions receives members removed by the inactivity sweep so their
	// connection state is cleaned up on the hub goroutine.
	Evictions chan game.Eviction

	registry *game.Registry
	limiter  *RateLimiter

	mu    sync.RWMutex
	conns map[string]*Conn

	ctx context.Context
}

func NewHub(registry *game.Registry) *Hub {
	return &Hub{
		Register:   make(chan *Conn),
		Unregister: make(chan *Conn),
		Inbound:    make(chan *Event, 256),
		Evictions:  make(chan game.Eviction, 64),
		registry:   registry,
		limiter:    NewRateLimiter(),
		conns:      make(map[string]*Conn),
	}
}

// NewConn wraps an upgraded websocket in a Conn registered with this hub.
func (h *Hub) NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ID:   uuid.NewString(),
		hub:  h,
		ws:   ws,
		send: make(chan *Event, 256),
	}
}

// Run processes registrations, disconnects and inbound events until ctx is
// cancelled. It also runs the rate-limiter janitor.
func (h *Hub) Run(ctx context.Context) {
	h.ctx = ctx
	go h.limiter.Run(ctx)

	for {
		select {
		case c := <-h.Register:
			h.mu.Lock()
			h.conns[c.ID] = c
			h.mu.Unlock()
			slog.Debug("connection registered", "conn", c.ID)

		case c := <-h.Unregister:
			h.disconnect(c)

		case evt := <-h.Inbound:
			h.handleEvent(evt)

		case ev := <-h.Evictions:
			h.handleEviction(ev)

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent rate-limits, dispatches and, on any failure, replies with an
// error event to the sender only. A panicking handler must not take down
// the hub.
func (h *Hub) handleEvent(evt *Event) {
	c := evt.conn

	if !h.limiter.Allow(c.ID) {
		h.sendError(c, "Too many requests. Please slow down.")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panic", "type", evt.Type, "conn", c.ID, "panic", r)
			h.sendError(c, "An error occurred")
		}
	}()

	if err := h.dispatch(evt); err != nil {
		slog.Debug("event failed", "type", evt.Type, "conn", c.ID, "err", err)
		h.sendError(c, err.Error())
	}
}

func (h *Hub) dispatch(evt *Event) error {
	c := evt.conn

	switch evt.Type {
	case EvtCreateRoom:
		return h.handleCreateRoom(c, evt.Payload)
	case EvtJoinRoom:
		return h.handleJoinRoom(c, evt.Payload)
	case EvtLeaveRoom:
		return h.handleLeaveRoom(c)
	case EvtGetAvailableRooms:
		return h.handleAvailableRooms(c)
	case EvtStartGame:
		return h.handleStartGame(c, evt.Payload)
	case EvtChooseTruthOrDare:
		return h.handleChoose(c, evt.Payload)
	case EvtSpinWheel:
		return h.handleSpinWheel(c, evt.Payload)
	case EvtNextTurn:
		return h.handleNextTurn(c, evt.Payload)
	case EvtEndRoom:
		return h.handleEndRoom(c, evt.Payload)
	case EvtSendMessage:
		return h.handleChat(c, evt.Payload)
	case EvtUpdateActivity:
		return h.handleUpdateActivity(c, evt.Payload)
	case EvtSelectTruth:
		return h.handleSelectPrompt(c, evt.Payload, game.ChoiceTruth)
	case EvtSelectDare:
		return h.handleSelectPrompt(c, evt.Payload, game.ChoiceDare)
	case EvtToggleMedia:
		return h.handleToggle(c, evt.Payload, "")
	case EvtToggleAudio:
		return h.handleToggle(c, evt.Payload, game.ChannelAudio)
	case EvtToggleMic:
		return h.handleToggle(c, evt.Payload, game.ChannelMic)
	case EvtToggleVideo:
		return h.handleToggle(c, evt.Payload, game.ChannelVideo)
	case EvtOffer, EvtAnswer, EvtICECandidate:
		return h.handleForwardSignal(c, evt)
	default:
		return fmt.Errorf("unknown event type: %s", evt.Type)
	}
}

func (h *Hub) handleCreateRoom(c *Conn, raw json.RawMessage) error {
	var p CreateRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.New("malformed payload")
	}
	if p.RoomName == "" || p.Username == "" {
		return errors.New("room name and username are required")
	}

	room, err := h.registry.CreateRoom(h.ctx, p.RoomName, p.Username, c.ID)
	if err != nil {
		return err
	}
	c.roomID = room.ID
	c.username = room.Host

	c.deliver(NewEvent(EvtRoomCreated, RoomCreatedPayload{
		RoomID:   room.ID,
		RoomName: room.Name,
		Room:     room,
	}))
	slog.Info("room created", "room", room.ID, "host", room.Host)
	return nil
}

func (h *Hub) handleJoinRoom(c *Conn, raw json.RawMessage) error {
	var p JoinRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.New("malformed payload")
	}
	if p.RoomID == "" || p.Username == "" {
		return errors.New("room id and username are required")
	}

	room, err := h.registry.JoinRoom(h.ctx, p.RoomID, p.Username, c.ID)
	if err != nil {
		return err
	}
	c.roomID = room.ID
	c.username = game.Sanitize(p.Username)

	c.deliver(NewEvent(EvtRoomJoined, RoomJoinedPayload{Room: room}))
	h.broadcast(room, c.ID, NewEvent(EvtMemberJoined, MemberChangePayload{
		Username: c.username,
		Members:  room.Members,
	}))
	slog.Info("member joined", "room", room.ID, "username", c.username)
	return nil
}

func (h *Hub) handleLeaveRoom(c *Conn) error {
	if c.roomID == "" || c.username == "" {
		return nil
	}
	roomID, username := c.roomID, c.username

	room, err := h.registry.LeaveRoom(h.ctx, roomID, username)
	if err != nil && !errors.Is(err, game.ErrRoomNotFound) {
		// Keep the binding so the disconnect path can retry the removal
		// instead of leaving a ghost member behind.
		return err
	}
	c.roomID = ""
	c.username = ""
	if err != nil {
		return nil
	}
	if room != nil {
		h.broadcast(room, c.ID, NewEvent(EvtMemberLeft, MemberChangePayload{
			Username: username,
			Members:  room.Members,
		}))
	}
	slog.Info("member left", "room", roomID, "username", username)
	return nil
}

func (h *Hub) handleAvailableRooms(c *Conn) error {
	rooms, err := h.registry.AvailableRooms(h.ctx)
	if err != nil {
		return err
	}
	c.deliver(NewEvent(EvtAvailableRooms, AvailableRoomsPayload{Rooms: rooms}))
	return nil
}

func (h *Hub) handleStartGame(c *Conn, raw json.RawMessage) error {
	var p RoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.New("malformed payload")
	}
	room, err := h.registry.StartGame(h.ctx, p.RoomID)
	if err != nil {
		return err
	}
	h.broadcast(room, "", NewEvent(EvtGameStarted, GameStartedPayload{
		Room:      room,
		GameState: room.State(),
	}))
	return nil
}

func (h *Hub) handleChoose(c *Conn, raw json.RawMessage) error {
	var p ChoosePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.New("malformed payload")
	}
	room, err := h.registry.Choose(h.ctx, p.RoomID, c.username, p.Choice)
	if err != nil {
		return err
	}
	h.broadcast(room, "", NewEvent(EvtChoiceMade, ChoiceMadePayload{
		Username:  c.username,
		Choice:    p.Choice,
		GamePhase: room.GamePhase,
	}))
	return nil
}

// handleSpinWheel validates the spin, announces it immediately, and commits
// the result after the wheel delay. Resolution re-reads room state: the
// room may be gone by then, in which case the result is dropped silently.
func (h *Hub) handleSpinWheel(c *Conn, raw json.RawMessage) error {
	var p RoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.New("malformed payload")
	}
	if err := h.registry.BeginSpin(h.ctx, p.RoomID, c.username); err != nil {
		if errors.Is(err, game.ErrWrongPhase) {
			return errors.New("choose truth or dare first")
		}
		return err
	}

	room, err := h.registry.Room(h.ctx, p.RoomID)
	if err != nil {
		return err
	}
	h.broadcast(room, "", NewEvent(EvtWheelSpinning, WheelSpinningPayload{Spinning: true}))

	time.AfterFunc(game.SpinDelay, func() {
		outcome, err := h.registry.ResolveSpin(h.ctx, p.RoomID)
		if err != nil {
			// The room was ended or emptied while the wheel was spinning.
			slog.Debug("spin resolution dropped", "room", p.RoomID, "err", err)
			return
		}
		h.broadcast(outcome.Room, "", NewEvent(EvtWheelStopped, WheelStoppedPayload{
			Result:  outcome.Result,
			Content: outcome.Content,
			Type:    outcome.Choice,
		}))
	})
	return nil
}

func (h *Hub) handleNextTurn(c *Conn, raw json.RawMessage) error {
	var p RoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.New("malformed payload")
	}
	room, err := h.registry.NextTurn(h.ctx, p.RoomID)
	if err != nil {
		return err
	}
	h.broadcast(room, "", NewEvent(EvtTurnChanged, TurnChangedPayload{
		CurrentPlayer:    room.CurrentPlayer,
		GamePhase:        room.GamePhase,
		CurrentTurnIndex: room.CurrentTurnIndex,
		TurnOrder:        room.TurnOrder,
	}))
	return nil
}

func (h *Hub) handleEndRoom(c *Conn, raw json.RawMessage) error {
	var p RoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.New("malformed payload")
	}
	room, err := h.registry.EndRoom(h.ctx, p.RoomID, c.username)
	if err != nil {
		return err
	}
	h.broadcast(room, "", NewEvent(EvtRoomEnded, RoomEndedPayload{
		Message: "Host has ended the room",
	}))

	// Unbind every connection that was seated in the room.
	h.mu.RLock()
	for _, conn := range h.conns {
		if conn.roomID == room.ID {
			conn.roomID = ""
			conn.username = ""
		}
	}
	h.mu.RUnlock()
	slog.Info("room ended", "room", room.ID, "host", c.username)
	return nil
}

func (h *Hub) handleChat(c *Conn, raw json.RawMessage) error {
	var p ChatPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.New("malformed payload")
	}
	room, err := h.registry.Room(h.ctx, p.RoomID)
	if err != nil {
		return err
	}
	h.broadcast(room, "", NewEvent(EvtChatMessage, ChatMessagePayload{
		Username:  p.Username,
		Message:   p.Message,
		Timestamp: time.Now(),
	}))
	return nil
}

func (h *Hub) handleUpdateActivity(c *Conn, raw json.RawMessage) error {
	var p RoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.New("malformed payload")
	}
	if err := h.registry.UpdateActivity(h.ctx, p.RoomID, c.username); err != nil {
		// Activity pings are best-effort; a missing room is not worth an
		// error reply.
		slog.Debug("activity update failed", "room", p.RoomID, "err", err)
	}
	return nil
}

func (h *Hub) handleSelectPrompt(c *Conn, raw json.RawMessage, choice game.Choice) error {
	var p RoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.New("malformed payload")
	}
	room, err := h.registry.Room(h.ctx, p.RoomID)
	if err != nil {
		return err
	}
	prompt := h.registry.FreePick(choice, p.RoomID)
	if choice == game.ChoiceTruth {
		h.broadcast(room, "", NewEvent(EvtTruthQuestion, PromptPayload{Question: prompt}))
	} else {
		h.broadcast(room, "", NewEvent(EvtDareTask, PromptPayload{Task: prompt}))
	}
	return nil
}

func (h *Hub) handleToggle(c *Conn, raw json.RawMessage, channel game.MediaChannel) error {
	var p TogglePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.New("malformed payload")
	}
	if channel == "" {
		channel = p.Channel
	}

	var evtName string
	switch channel {
	case game.ChannelAudio:
		evtName = EvtMemberAudioToggled
	case game.ChannelMic:
		evtName = EvtMemberMicToggled
	case game.ChannelVideo:
		evtName = EvtMemberVideoToggled
	default:
		return errors.New("unknown media channel")
	}

	if err := h.registry.ToggleMedia(h.ctx, p.RoomID, c.username, channel, p.Enabled); err != nil {
		return err
	}
	room, err := h.registry.Room(h.ctx, p.RoomID)
	if err != nil {
		return err
	}
	h.broadcast(room, "", NewEvent(evtName, MemberToggledPayload{
		Username: c.username,
		Enabled:  p.Enabled,
	}))
	return nil
}

// handleForwardSignal relays an opaque WebRTC payload to one target
// connection, stamping the sender's connection id so the receiver knows
// which peer to answer.
func (h *Hub) handleForwardSignal(c *Conn, evt *Event) error {
	var p SignalPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return errors.New("malformed payload")
	}
	if p.To == "" {
		return errors.New("signal target is required")
	}
	h.sendTo(p.To, NewEvent(evt.Type, ForwardedSignalPayload{
		From:    c.ID,
		Payload: p.Payload,
	}))
	return nil
}

// disconnect treats a dropped socket exactly like an explicit leave using
// the connection's remembered room and username, then reclaims its state.
func (h *Hub) disconnect(c *Conn) {
	h.mu.Lock()
	if _, ok := h.conns[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c.ID)
	h.mu.Unlock()

	if err := h.handleLeaveRoom(c); err != nil {
		slog.Error("disconnect cleanup failed", "conn", c.ID, "err", err)
	}
	h.limiter.Forget(c.ID)
	close(c.send)
	slog.Debug("connection unregistered", "conn", c.ID)
}

// NotifyEviction hands an inactivity eviction to the hub goroutine. Called
// by the presence monitor.
func (h *Hub) NotifyEviction(ev game.Eviction) {
	select {
	case h.Evictions <- ev:
	default:
		slog.Warn("eviction notification dropped", "room", ev.RoomID, "username", ev.Username)
	}
}

// handleEviction notifies the room and the kicked member after the
// inactivity sweep removed them. ev.Room holds membership from before the
// sweep, so the notice also reaches members evicted in the same pass and
// rooms the sweep emptied.
func (h *Hub) handleEviction(ev game.Eviction) {
	h.broadcast(ev.Room, "", NewEvent(EvtMemberKicked, MemberKickedPayload{
		Username: ev.Username,
		Reason:   "Inactivity (2 minutes)",
	}))
	h.sendTo(ev.ConnID, NewEvent(EvtKicked, KickedPayload{
		Reason: "Inactivity (2 minutes)",
	}))

	h.mu.RLock()
	conn, ok := h.conns[ev.ConnID]
	h.mu.RUnlock()
	if ok {
		conn.roomID = ""
		conn.username = ""
	}
}

// sendError addresses an error event to one connection only; no failure is
// ever broadcast.
func (h *Hub) sendError(c *Conn, message string) {
	c.deliver(NewEvent(EvtError, ErrorPayload{Message: message}))
}

// sendTo delivers to a specific connection id, dropping silently if the
// connection is gone.
func (h *Hub) sendTo(connID string, evt *Event) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if ok {
		c.deliver(evt)
	}
}

// broadcast delivers to every member of the room, optionally excluding one
// connection id (typically the sender).
func (h *Hub) broadcast(room *game.Room, exceptConnID string, evt *Event) {
	if room == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, m := range room.Members {
		if m.ConnID == exceptConnID {
			continue
		}
		if c, ok := h.conns[m.ConnID]; ok {
			c.deliver(evt)
		}
	}
}
