// Package store provides the document stores the room registry persists
// rooms in: an in-memory store for tests and single-node runs, and a
// postgres-backed store keeping each room as one JSONB document.
package store

import (
	"context"
	"sync"

	"github.com/Rajput-xv/room-T-D/internal/game"
)

// Memory is an in-memory RoomStore. Documents are copied on the way in and
// out so callers get fetch-mutate-save semantics identical to a real store.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]*game.Room
	users map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		rooms: make(map[string]*game.Room),
		users: make(map[string]int),
	}
}

func cloneRoom(r *game.Room) *game.Room {
	c := *r
	c.Members = append([]game.Member(nil), r.Members...)
	c.TurnOrder = append([]string(nil), r.TurnOrder...)
	return &c
}

func (s *Memory) Find(_ context.Context, roomID string) (*game.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, game.ErrRoomNotFound
	}
	return cloneRoom(r), nil
}

func (s *Memory) Insert(_ context.Context, room *game.Room) error {
	s.mu.Lock()
	s.rooms[room.ID] = cloneRoom(room)
	s.mu.Unlock()
	return nil
}

func (s *Memory) Update(_ context.Context, room *game.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; !ok {
		return game.ErrRoomNotFound
	}
	s.rooms[room.ID] = cloneRoom(room)
	return nil
}

func (s *Memory) Delete(_ context.Context, roomID string) error {
	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()
	return nil
}

func (s *Memory) ListAvailable(_ context.Context) ([]*game.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*game.Room
	for _, r := range s.rooms {
		if !r.Full() {
			out = append(out, cloneRoom(r))
		}
	}
	return out, nil
}

func (s *Memory) ListActive(_ context.Context) ([]*game.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*game.Room
	for _, r := range s.rooms {
		if r.Status == game.StatusActive {
			out = append(out, cloneRoom(r))
		}
	}
	return out, nil
}

func (s *Memory) DeleteAll(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.rooms)
	s.rooms = make(map[string]*game.Room)
	return n, nil
}

func (s *Memory) TouchUser(_ context.Context, username string) error {
	s.mu.Lock()
	s.users[username]++
	s.mu.Unlock()
	return nil
}

// RoomsJoined returns the per-user join counter, for stats.
func (s *Memory) RoomsJoined(username string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[username]
}
