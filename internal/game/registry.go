package game

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RoomStore is the document store rooms live in. Implementations return
// ErrRoomNotFound when the room id is absent.
type RoomStore interface {
	Find(ctx context.Context, roomID string) (*Room, error)
	Insert(ctx context.Context, room *Room) error
	Update(ctx context.Context, room *Room) error
	Delete(ctx context.Context, roomID string) error

	// ListAvailable returns rooms with open seats; ListActive returns rooms
	// with a running game (for the inactivity sweep).
	ListAvailable(ctx context.Context) ([]*Room, error)
	ListActive(ctx context.Context) ([]*Room, error)

	// DeleteAll wipes every room document. Room state is ephemeral, so the
	// server clears leftovers from a previous run at startup.
	DeleteAll(ctx context.Context) (int, error)

	// TouchUser bumps the rooms-joined counter for a username.
	TouchUser(ctx context.Context, username string) error
}

// Picker resolves prompt content for a room without repeating entries the
// room has already seen.
type Picker interface {
	Pick(choice Choice, roomID string) string
	PickBySlot(choice Choice, slot int, roomID string) string
	Release(roomID string)
}

// Registry is the single authority over room and member state. Every
// mutation fetches the room document, changes it and saves it back while
// holding that room's lock, so events on one room apply strictly in order.
type Registry struct {
	store  RoomStore
	picker Picker

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// randInt is swapped out in tests for a deterministic wheel.
	randInt func(n int) int
}

func NewRegistry(store RoomStore, picker Picker) *Registry {
	return &Registry{
		store:   store,
		picker:  picker,
		locks:   make(map[string]*sync.Mutex),
		randInt: rand.IntN,
	}
}

// roomLock returns the serialization lock for a room id, creating it on
// first use.
func (g *Registry) roomLock(roomID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[roomID] = l
	}
	return l
}

func (g *Registry) dropLock(roomID string) {
	g.mu.Lock()
	delete(g.locks, roomID)
	g.mu.Unlock()
}

// newRoomID returns a short URL-safe room identifier.
func newRoomID() string {
	return uuid.NewString()[:8]
}

// CreateRoom validates inputs, creates the room document and seats the host
// as the first member and first turn.
func (g *Registry) CreateRoom(ctx context.Context, roomName, username, connID string) (*Room, error) {
	roomName = Sanitize(roomName)
	username = Sanitize(username)

	if !ValidRoomName(roomName) {
		return nil, ErrInvalidRoomName
	}
	if !ValidUsername(username) {
		return nil, ErrInvalidUsername
	}

	now := time.Now()
	room := &Room{
		ID:         newRoomID(),
		Name:       roomName,
		Host:       username,
		MaxMembers: DefaultMaxMembers,
		Status:     StatusWaiting,
		GamePhase:  PhaseWaiting,
		TurnOrder:  []string{username},
		Members: []Member{{
			Username:     username,
			ConnID:       connID,
			JoinedAt:     now,
			LastActivity: now,
			AudioEnabled: true,
			MicEnabled:   true,
			VideoEnabled: true,
		}},
		CreatedAt: now,
	}

	if err := g.store.Insert(ctx, room); err != nil {
		return nil, err
	}
	if err := g.store.TouchUser(ctx, username); err != nil {
		return nil, err
	}
	return room, nil
}

// JoinRoom appends the member to the room and to the end of the turn order.
func (g *Registry) JoinRoom(ctx context.Context, roomID, username, connID string) (*Room, error) {
	username = Sanitize(username)
	if !ValidUsername(username) {
		return nil, ErrInvalidUsername
	}

	lock := g.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := g.store.Find(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Full() {
		return nil, ErrRoomFull
	}
	if room.Member(username) != nil {
		return nil, ErrUsernameTaken
	}

	now := time.Now()
	room.Members = append(room.Members, Member{
		Username:     username,
		ConnID:       connID,
		JoinedAt:     now,
		LastActivity: now,
		AudioEnabled: true,
		MicEnabled:   true,
		VideoEnabled: true,
	})
	room.TurnOrder = append(room.TurnOrder, username)

	if err := g.store.Update(ctx, room); err != nil {
		return nil, err
	}
	if err := g.store.TouchUser(ctx, username); err != nil {
		return nil, err
	}
	return room, nil
}

// LeaveRoom removes the member, repairs turn state and destroys the room if
// it emptied. The returned room is nil when the room was destroyed or never
// existed.
func (g *Registry) LeaveRoom(ctx context.Context, roomID, username string) (*Room, error) {
	lock := g.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := g.store.Find(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if room.RemoveMember(username) {
		return nil, g.destroy(ctx, roomID)
	}
	if err := g.store.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// destroy removes the room document, its content tracker and its lock entry.
// Callers hold the room lock.
func (g *Registry) destroy(ctx context.Context, roomID string) error {
	if err := g.store.Delete(ctx, roomID); err != nil {
		return err
	}
	g.picker.Release(roomID)
	g.dropLock(roomID)
	return nil
}

// Room returns the room document by id.
func (g *Registry) Room(ctx context.Context, roomID string) (*Room, error) {
	return g.store.Find(ctx, roomID)
}

// AvailableRooms lists rooms that still have open seats.
func (g *Registry) AvailableRooms(ctx context.Context) ([]*Room, error) {
	return g.store.ListAvailable(ctx)
}

// UpdateActivity refreshes the member's last-activity timestamp.
func (g *Registry) UpdateActivity(ctx context.Context, roomID, username string) error {
	lock := g.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := g.store.Find(ctx, roomID)
	if err != nil {
		return err
	}
	m := room.Member(username)
	if m == nil {
		return ErrMemberNotFound
	}
	m.LastActivity = time.Now()
	return g.store.Update(ctx, room)
}

// ToggleMedia flips one of the member's media-channel flags.
func (g *Registry) ToggleMedia(ctx context.Context, roomID, username string, channel MediaChannel, enabled bool) error {
	lock := g.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := g.store.Find(ctx, roomID)
	if err != nil {
		return err
	}
	m := room.Member(username)
	if m == nil {
		return ErrMemberNotFound
	}
	switch channel {
	case ChannelAudio:
		m.AudioEnabled = enabled
	case ChannelMic:
		m.MicEnabled = enabled
	case ChannelVideo:
		m.VideoEnabled = enabled
	}
	return g.store.Update(ctx, room)
}

// StartGame begins the game with the host's join order as the turn order.
func (g *Registry) StartGame(ctx context.Context, roomID string) (*Room, error) {
	lock := g.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := g.store.Find(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := room.Start(); err != nil {
		return nil, err
	}
	if err := g.store.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Choose records the current player's truth-or-dare pick.
func (g *Registry) Choose(ctx context.Context, roomID, username string, choice Choice) (*Room, error) {
	lock := g.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := g.store.Find(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := room.Choose(username, choice); err != nil {
		return nil, err
	}
	if err := g.store.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// BeginSpin validates that username may spin right now. The actual result is
// committed later by ResolveSpin, after the wheel animation delay.
func (g *Registry) BeginSpin(ctx context.Context, roomID, username string) error {
	lock := g.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := g.store.Find(ctx, roomID)
	if err != nil {
		return err
	}
	return room.CheckSpin(username)
}

// SpinOutcome is the committed result of a wheel spin.
type SpinOutcome struct {
	Result  int
	Content string
	Choice  Choice
	Room    *Room
}

// ResolveSpin draws the wheel slot and commits result plus content. It runs
// after the spin delay, so it re-reads the room: the game may have moved on
// or the room may be gone, in which case the caller gets ErrRoomNotFound and
// must drop the result silently. The choice used is whatever the room holds
// at resolution time.
func (g *Registry) ResolveSpin(ctx context.Context, roomID string) (*SpinOutcome, error) {
	lock := g.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := g.store.Find(ctx, roomID)
	if err != nil {
		return nil, err
	}

	choice := room.CurrentChoice
	if choice == ChoiceNone {
		return nil, ErrNoChoice
	}

	slot := g.randInt(WheelSlots) + 1
	content := g.picker.PickBySlot(choice, slot, roomID)

	room.CommitSpin(slot, content)
	if err := g.store.Update(ctx, room); err != nil {
		return nil, err
	}
	return &SpinOutcome{Result: slot, Content: content, Choice: choice, Room: room}, nil
}

// NextTurn advances to the next player in join order.
func (g *Registry) NextTurn(ctx context.Context, roomID string) (*Room, error) {
	lock := g.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := g.store.Find(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := room.AdvanceTurn(); err != nil {
		return nil, err
	}
	if err := g.store.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// EndRoom lets the host tear the room down, kicking everyone.
func (g *Registry) EndRoom(ctx context.Context, roomID, username string) (*Room, error) {
	lock := g.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := g.store.Find(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Host != username {
		return nil, ErrNotHost
	}
	if err := g.destroy(ctx, roomID); err != nil {
		return nil, err
	}
	return room, nil
}

// FreePick returns a prompt outside the wheel flow, still tracked against
// the room's used set.
func (g *Registry) FreePick(choice Choice, roomID string) string {
	return g.picker.Pick(choice, roomID)
}

// Eviction describes one member removed by the inactivity sweep.
type Eviction struct {
	RoomID      string
	Username    string
	ConnID      string
	RoomDeleted bool

	// Room captures membership as it stood when the sweep ran, before any
	// removal, so notices can reach co-evicted members too.
	Room *Room
}

// EvictIdle removes members of active rooms whose last activity is older
// than threshold. Removal reuses the same leave path as a voluntary exit so
// turn-state invariants cannot diverge. Errors on one room do not stop the
// sweep.
func (g *Registry) EvictIdle(ctx context.Context, threshold time.Duration) ([]Eviction, error) {
	rooms, err := g.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var evicted []Eviction

	for _, stale := range rooms {
		lock := g.roomLock(stale.ID)
		lock.Lock()

		room, err := g.store.Find(ctx, stale.ID)
		if err != nil {
			lock.Unlock()
			continue
		}

		var idle []Member
		for _, m := range room.Members {
			if now.Sub(m.LastActivity) > threshold {
				idle = append(idle, m)
			}
		}
		if len(idle) == 0 {
			lock.Unlock()
			continue
		}

		seated := *room
		seated.Members = append([]Member(nil), room.Members...)
		seated.TurnOrder = append([]string(nil), room.TurnOrder...)

		deleted := false
		first := len(evicted)
		for _, m := range idle {
			if room.RemoveMember(m.Username) {
				deleted = true
			}
			evicted = append(evicted, Eviction{
				RoomID:   room.ID,
				Username: m.Username,
				ConnID:   m.ConnID,
				Room:     &seated,
			})
		}
		for i := first; deleted && i < len(evicted); i++ {
			evicted[i].RoomDeleted = true
		}

		if deleted {
			_ = g.destroy(ctx, room.ID)
		} else {
			_ = g.store.Update(ctx, room)
		}
		lock.Unlock()
	}

	return evicted, nil
}
