package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajput-xv/room-T-D/internal/content"
	"github.com/Rajput-xv/room-T-D/internal/game"
	"github.com/Rajput-xv/room-T-D/internal/store"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	registry := game.NewRegistry(store.NewMemory(), content.Load("", ""))
	h := NewHub(registry)
	h.ctx = context.Background()
	return h
}

func testConn(h *Hub, id string) *Conn {
	c := &Conn{ID: id, hub: h, send: make(chan *Event, 32)}
	h.conns[id] = c
	return c
}

func mustPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func recvEvent(t *testing.T, c *Conn) *Event {
	t.Helper()
	select {
	case evt := <-c.send:
		return evt
	case <-time.After(time.Second):
		t.Fatalf("no event delivered to %s", c.ID)
		return nil
	}
}

func decodePayload[T any](t *testing.T, evt *Event) T {
	t.Helper()
	var p T
	require.NoError(t, json.Unmarshal(evt.Payload, &p))
	return p
}

func assertNoEvent(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case evt := <-c.send:
		t.Fatalf("unexpected event %s delivered to %s", evt.Type, c.ID)
	default:
	}
}

// createTestRoom drives a create-room event through the hub and returns the
// created room.
func createTestRoom(t *testing.T, h *Hub, c *Conn, roomName, username string) *game.Room {
	t.Helper()
	h.handleEvent(&Event{
		Type:    EvtCreateRoom,
		Payload: mustPayload(t, CreateRoomPayload{RoomName: roomName, Username: username}),
		conn:    c,
	})
	evt := recvEvent(t, c)
	require.Equal(t, EvtRoomCreated, evt.Type)
	return decodePayload[RoomCreatedPayload](t, evt).Room
}

func joinTestRoom(t *testing.T, h *Hub, c *Conn, roomID, username string) *game.Room {
	t.Helper()
	h.handleEvent(&Event{
		Type:    EvtJoinRoom,
		Payload: mustPayload(t, JoinRoomPayload{RoomID: roomID, Username: username}),
		conn:    c,
	})
	evt := recvEvent(t, c)
	require.Equal(t, EvtRoomJoined, evt.Type)
	return decodePayload[RoomJoinedPayload](t, evt).Room
}

func TestCreateRoomEvent(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	c := testConn(h, "conn-a")

	room := createTestRoom(t, h, c, "friday night", "alice")
	assert.Equal(t, "alice", room.Host)
	assert.Equal(t, room.ID, c.roomID)
	assert.Equal(t, "alice", c.username)
}

func TestInvalidCreateGetsErrorToSenderOnly(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	h.handleEvent(&Event{
		Type:    EvtCreateRoom,
		Payload: mustPayload(t, CreateRoomPayload{RoomName: "friday night", Username: "a"}),
		conn:    a,
	})

	evt := recvEvent(t, a)
	assert.Equal(t, EvtError, evt.Type)
	assertNoEvent(t, b)
}

func TestJoinBroadcastsMemberJoined(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	room := createTestRoom(t, h, a, "friday night", "alice")
	joined := joinTestRoom(t, h, b, room.ID, "bob")
	assert.Len(t, joined.Members, 2)

	evt := recvEvent(t, a)
	require.Equal(t, EvtMemberJoined, evt.Type)
	p := decodePayload[MemberChangePayload](t, evt)
	assert.Equal(t, "bob", p.Username)
	assert.Len(t, p.Members, 2)

	// The joiner does not get the member-joined echo.
	assertNoEvent(t, b)
}

func TestUnknownEventType(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	c := testConn(h, "conn-a")

	h.handleEvent(&Event{Type: "no-such-event", conn: c})
	evt := recvEvent(t, c)
	assert.Equal(t, EvtError, evt.Type)
}

func TestRateLimitRepliesWithError(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	h.limiter = &RateLimiter{
		window:  time.Second,
		max:     1,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
	c := testConn(h, "conn-a")

	h.handleEvent(&Event{Type: EvtGetAvailableRooms, conn: c})
	recvEvent(t, c)

	h.handleEvent(&Event{Type: EvtGetAvailableRooms, conn: c})
	evt := recvEvent(t, c)
	require.Equal(t, EvtError, evt.Type)
	p := decodePayload[ErrorPayload](t, evt)
	assert.Contains(t, p.Message, "Too many requests")
}

// flakyStore simulates a transient backend outage on writes.
type flakyStore struct {
	game.RoomStore
	failUpdates bool
}

func (s *flakyStore) Update(ctx context.Context, room *game.Room) error {
	if s.failUpdates {
		return errors.New("store unavailable")
	}
	return s.RoomStore.Update(ctx, room)
}

func TestLeaveKeepsBindingOnStoreError(t *testing.T) {
	t.Parallel()
	flaky := &flakyStore{RoomStore: store.NewMemory()}
	h := NewHub(game.NewRegistry(flaky, content.Load("", "")))
	h.ctx = context.Background()
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	room := createTestRoom(t, h, a, "friday night", "alice")
	joinTestRoom(t, h, b, room.ID, "bob")
	recvEvent(t, a) // member-joined

	flaky.failUpdates = true
	h.handleEvent(&Event{Type: EvtLeaveRoom, conn: b})

	evt := recvEvent(t, b)
	assert.Equal(t, EvtError, evt.Type)

	// The connection still knows its room, so the member is not orphaned.
	assert.Equal(t, room.ID, b.roomID)
	assert.Equal(t, "bob", b.username)

	// Once the store recovers, the disconnect path finishes the removal.
	flaky.failUpdates = false
	h.disconnect(b)

	evt = recvEvent(t, a)
	require.Equal(t, EvtMemberLeft, evt.Type)

	got, err := h.registry.Room(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)
}

func TestDisconnectTreatedAsLeave(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	room := createTestRoom(t, h, a, "friday night", "alice")
	joinTestRoom(t, h, b, room.ID, "bob")
	recvEvent(t, a) // member-joined

	h.disconnect(b)

	evt := recvEvent(t, a)
	require.Equal(t, EvtMemberLeft, evt.Type)
	p := decodePayload[MemberChangePayload](t, evt)
	assert.Equal(t, "bob", p.Username)

	got, err := h.registry.Room(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)
}

func TestSignalForwarding(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	room := createTestRoom(t, h, a, "friday night", "alice")
	joinTestRoom(t, h, b, room.ID, "bob")
	recvEvent(t, a) // member-joined

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	h.handleEvent(&Event{
		Type:    EvtOffer,
		Payload: mustPayload(t, SignalPayload{RoomID: room.ID, To: "conn-b", Payload: offer}),
		conn:    a,
	})

	evt := recvEvent(t, b)
	require.Equal(t, EvtOffer, evt.Type)
	p := decodePayload[ForwardedSignalPayload](t, evt)
	assert.Equal(t, "conn-a", p.From)
	assert.JSONEq(t, string(offer), string(p.Payload))
	assertNoEvent(t, a)
}

func TestLegacyToggleEvents(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	room := createTestRoom(t, h, a, "friday night", "alice")
	joinTestRoom(t, h, b, room.ID, "bob")
	recvEvent(t, a) // member-joined

	h.handleEvent(&Event{
		Type:    EvtToggleMic,
		Payload: mustPayload(t, TogglePayload{RoomID: room.ID, Enabled: false}),
		conn:    b,
	})

	evt := recvEvent(t, a)
	require.Equal(t, EvtMemberMicToggled, evt.Type)
	p := decodePayload[MemberToggledPayload](t, evt)
	assert.Equal(t, "bob", p.Username)
	assert.False(t, p.Enabled)
}

func TestUnifiedToggleEvent(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	a := testConn(h, "conn-a")

	room := createTestRoom(t, h, a, "friday night", "alice")

	h.handleEvent(&Event{
		Type:    EvtToggleMedia,
		Payload: mustPayload(t, TogglePayload{RoomID: room.ID, Channel: game.ChannelVideo, Enabled: false}),
		conn:    a,
	})

	evt := recvEvent(t, a)
	require.Equal(t, EvtMemberVideoToggled, evt.Type)
}

func TestEndRoomKicksEveryone(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	room := createTestRoom(t, h, a, "friday night", "alice")
	joinTestRoom(t, h, b, room.ID, "bob")
	recvEvent(t, a) // member-joined

	h.handleEvent(&Event{
		Type:    EvtEndRoom,
		Payload: mustPayload(t, RoomPayload{RoomID: room.ID}),
		conn:    a,
	})

	for _, c := range []*Conn{a, b} {
		evt := recvEvent(t, c)
		assert.Equal(t, EvtRoomEnded, evt.Type)
		assert.Empty(t, c.roomID)
	}

	_, err := h.registry.Room(context.Background(), room.ID)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
}

func TestEndRoomRequiresHost(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	room := createTestRoom(t, h, a, "friday night", "alice")
	joinTestRoom(t, h, b, room.ID, "bob")
	recvEvent(t, a) // member-joined

	h.handleEvent(&Event{
		Type:    EvtEndRoom,
		Payload: mustPayload(t, RoomPayload{RoomID: room.ID}),
		conn:    b,
	})

	evt := recvEvent(t, b)
	assert.Equal(t, EvtError, evt.Type)
	assertNoEvent(t, a)
}

func TestEvictionNotifiesRoomAndMember(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	room := createTestRoom(t, h, a, "friday night", "alice")
	joinTestRoom(t, h, b, room.ID, "bob")
	recvEvent(t, a) // member-joined

	// Simulate the sweep: snapshot membership, then remove bob.
	seated, err := h.registry.Room(context.Background(), room.ID)
	require.NoError(t, err)
	_, err = h.registry.LeaveRoom(context.Background(), room.ID, "bob")
	require.NoError(t, err)

	h.handleEviction(game.Eviction{
		RoomID:   room.ID,
		Username: "bob",
		ConnID:   "conn-b",
		Room:     seated,
	})

	evt := recvEvent(t, a)
	require.Equal(t, EvtMemberKicked, evt.Type)
	kick := decodePayload[MemberKickedPayload](t, evt)
	assert.Equal(t, "bob", kick.Username)
	assert.Contains(t, kick.Reason, "Inactivity")

	evt = recvEvent(t, b)
	require.Equal(t, EvtMemberKicked, evt.Type)
	evt = recvEvent(t, b)
	require.Equal(t, EvtKicked, evt.Type)
	assert.Empty(t, b.roomID)
}

// TestEvictionNoticesReachCoEvictedMembers empties the room in one sweep;
// each evicted member still hears who else was removed.
func TestEvictionNoticesReachCoEvictedMembers(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	room := createTestRoom(t, h, a, "friday night", "alice")
	joinTestRoom(t, h, b, room.ID, "bob")
	recvEvent(t, a) // member-joined

	seated, err := h.registry.Room(context.Background(), room.ID)
	require.NoError(t, err)
	_, err = h.registry.LeaveRoom(context.Background(), room.ID, "alice")
	require.NoError(t, err)
	_, err = h.registry.LeaveRoom(context.Background(), room.ID, "bob")
	require.NoError(t, err)

	for _, ev := range []game.Eviction{
		{RoomID: room.ID, Username: "alice", ConnID: "conn-a", RoomDeleted: true, Room: seated},
		{RoomID: room.ID, Username: "bob", ConnID: "conn-b", RoomDeleted: true, Room: seated},
	} {
		h.handleEviction(ev)
	}

	// Bob hears about alice before his own kick lands.
	evt := recvEvent(t, b)
	require.Equal(t, EvtMemberKicked, evt.Type)
	assert.Equal(t, "alice", decodePayload[MemberKickedPayload](t, evt).Username)

	evt = recvEvent(t, b)
	require.Equal(t, EvtMemberKicked, evt.Type)
	assert.Equal(t, "bob", decodePayload[MemberKickedPayload](t, evt).Username)

	evt = recvEvent(t, b)
	require.Equal(t, EvtKicked, evt.Type)
	assert.Empty(t, b.roomID)
	assert.Empty(t, a.roomID)
}

func TestChatBroadcastsWithTimestamp(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	a := testConn(h, "conn-a")

	room := createTestRoom(t, h, a, "friday night", "alice")

	h.handleEvent(&Event{
		Type:    EvtSendMessage,
		Payload: mustPayload(t, ChatPayload{RoomID: room.ID, Username: "alice", Message: "hi"}),
		conn:    a,
	})

	evt := recvEvent(t, a)
	require.Equal(t, EvtChatMessage, evt.Type)
	p := decodePayload[ChatMessagePayload](t, evt)
	assert.Equal(t, "hi", p.Message)
	assert.False(t, p.Timestamp.IsZero())
}

func TestFreePickBroadcastsPrompt(t *testing.T) {
	t.Parallel()
	h := testHub(t)
	a := testConn(h, "conn-a")

	room := createTestRoom(t, h, a, "friday night", "alice")

	h.handleEvent(&Event{
		Type:    EvtSelectTruth,
		Payload: mustPayload(t, RoomPayload{RoomID: room.ID}),
		conn:    a,
	})

	evt := recvEvent(t, a)
	require.Equal(t, EvtTruthQuestion, evt.Type)
	p := decodePayload[PromptPayload](t, evt)
	assert.NotEmpty(t, p.Question)
}
