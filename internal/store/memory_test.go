package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajput-xv/room-T-D/internal/game"
)

func memRoom(id string, members int) *game.Room {
	r := &game.Room{
		ID:         id,
		Name:       "room " + id,
		Host:       "alice",
		MaxMembers: game.DefaultMaxMembers,
		Status:     game.StatusWaiting,
		GamePhase:  game.PhaseWaiting,
	}
	names := []string{"alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi", "ivan", "judy"}
	for i := 0; i < members; i++ {
		r.Members = append(r.Members, game.Member{Username: names[i], ConnID: names[i]})
		r.TurnOrder = append(r.TurnOrder, names[i])
	}
	return r
}

func TestMemoryFindMissing(t *testing.T) {
	t.Parallel()
	s := NewMemory()
	_, err := s.Find(context.Background(), "nope")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
}

func TestMemoryInsertAndFind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Insert(ctx, memRoom("r1", 2)))

	got, err := s.Find(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
	assert.Len(t, got.Members, 2)
}

func TestMemoryFindReturnsCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Insert(ctx, memRoom("r1", 2)))

	got, err := s.Find(ctx, "r1")
	require.NoError(t, err)
	got.Members[0].Username = "mallory"
	got.TurnOrder[0] = "mallory"

	// Mutating the fetched copy must not touch the stored document.
	again, err := s.Find(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Members[0].Username)
	assert.Equal(t, "alice", again.TurnOrder[0])
}

func TestMemoryUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Insert(ctx, memRoom("r1", 1)))

	r := memRoom("r1", 3)
	r.Status = game.StatusActive
	require.NoError(t, s.Update(ctx, r))

	got, err := s.Find(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, game.StatusActive, got.Status)
	assert.Len(t, got.Members, 3)

	assert.ErrorIs(t, s.Update(ctx, memRoom("ghost", 1)), game.ErrRoomNotFound)
}

func TestMemoryDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Insert(ctx, memRoom("r1", 1)))
	require.NoError(t, s.Delete(ctx, "r1"))

	_, err := s.Find(ctx, "r1")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)

	// Deleting a missing room is not an error.
	assert.NoError(t, s.Delete(ctx, "r1"))
}

func TestMemoryListAvailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	open := memRoom("open", 2)
	full := memRoom("full", 3)
	full.MaxMembers = 3
	require.NoError(t, s.Insert(ctx, open))
	require.NoError(t, s.Insert(ctx, full))

	rooms, err := s.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "open", rooms[0].ID)
}

func TestMemoryListActive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	active := memRoom("active", 2)
	active.Status = game.StatusActive
	require.NoError(t, s.Insert(ctx, active))
	require.NoError(t, s.Insert(ctx, memRoom("lobby", 2)))

	rooms, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "active", rooms[0].ID)
}

func TestMemoryDeleteAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Insert(ctx, memRoom("r1", 1)))
	require.NoError(t, s.Insert(ctx, memRoom("r2", 1)))

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rooms, err := s.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestMemoryTouchUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.TouchUser(ctx, "alice"))
	require.NoError(t, s.TouchUser(ctx, "alice"))
	assert.Equal(t, 2, s.RoomsJoined("alice"))
	assert.Zero(t, s.RoomsJoined("bob"))
}
