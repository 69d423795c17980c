package content

import (
	"sync"

	"github.com/Rajput-xv/room-T-D/internal/game"
)

// pair addresses one prompt as (group, item) within a catalog type.
type pair struct {
	group int
	item  int
}

type trackerKey struct {
	roomID string
	choice game.Choice
}

// tracker remembers which (group, item) pairs each room has been shown,
// independently per prompt type.
type tracker struct {
	mu   sync.Mutex
	used map[trackerKey]map[pair]struct{}
}

func newTracker() *tracker {
	return &tracker{used: make(map[trackerKey]map[pair]struct{})}
}

func (t *tracker) seen(roomID string, choice game.Choice, p pair) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.used[trackerKey{roomID, choice}]
	if !ok {
		return false
	}
	_, ok = set[p]
	return ok
}

func (t *tracker) mark(roomID string, choice game.Choice, p pair) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := trackerKey{roomID, choice}
	set, ok := t.used[key]
	if !ok {
		set = make(map[pair]struct{})
		t.used[key] = set
	}
	set[p] = struct{}{}
}

func (t *tracker) reset(roomID string, choice game.Choice) {
	t.mu.Lock()
	delete(t.used, trackerKey{roomID, choice})
	t.mu.Unlock()
}

func (t *tracker) release(roomID string) {
	t.mu.Lock()
	delete(t.used, trackerKey{roomID, game.ChoiceTruth})
	delete(t.used, trackerKey{roomID, game.ChoiceDare})
	t.mu.Unlock()
}
