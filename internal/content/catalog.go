// Package content owns the truth and dare prompt catalogs and the per-room
// memory of which prompts a room has already seen.
package content

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync/atomic"

	"github.com/Rajput-xv/room-T-D/internal/game"
)

// groupSize matches the number of slots on the wheel. Catalogs larger than
// one group are partitioned so the wheel can stay 1-10 while the pool grows.
const groupSize = 10

var defaultTruths = []string{
	"What is your biggest fear?",
	"What is your biggest secret?",
}

var defaultDares = []string{
	"Do 10 push-ups",
	"Sing a song",
}

// catalogData is the immutable parsed catalog; Reload swaps the whole value.
type catalogData struct {
	truths [][]string
	dares  [][]string
}

func (d *catalogData) groups(choice game.Choice) [][]string {
	if choice == game.ChoiceTruth {
		return d.truths
	}
	return d.dares
}

// Catalog loads grouped prompts from two JSON files and hands them out with
// per-room anti-repeat selection. A missing or malformed file falls back to
// a small built-in set.
type Catalog struct {
	truthsPath string
	daresPath  string

	data    atomic.Pointer[catalogData]
	used    *tracker
	randInt func(n int) int
}

func Load(truthsPath, daresPath string) *Catalog {
	c := &Catalog{
		truthsPath: truthsPath,
		daresPath:  daresPath,
		used:       newTracker(),
		randInt:    rand.IntN,
	}
	c.Reload()
	return c
}

// Reload re-parses the backing files and atomically replaces the catalog.
// Picks racing with a reload may see either version; that is acceptable.
func (c *Catalog) Reload() {
	data := &catalogData{
		truths: chunk(loadFile(c.truthsPath, defaultTruths)),
		dares:  chunk(loadFile(c.daresPath, defaultDares)),
	}
	c.data.Store(data)
}

func loadFile(path string, fallback []string) []string {
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("content file missing, using defaults", "path", path, "err", err)
		return fallback
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		slog.Warn("content file malformed, using defaults", "path", path, "err", err)
		return fallback
	}
	return items
}

func chunk(items []string) [][]string {
	var groups [][]string
	for len(items) > groupSize {
		groups = append(groups, items[:groupSize])
		items = items[groupSize:]
	}
	if len(items) > 0 {
		groups = append(groups, items)
	}
	return groups
}

// Counts returns the number of loaded truth and dare prompts.
func (c *Catalog) Counts() (truths, dares int) {
	d := c.data.Load()
	for _, g := range d.truths {
		truths += len(g)
	}
	for _, g := range d.dares {
		dares += len(g)
	}
	return truths, dares
}

// Pick returns a prompt the room has not seen for this type, drawn uniformly
// from the unseen pool. Once every prompt has been shown the used set resets
// and repeats become possible again.
func (c *Catalog) Pick(choice game.Choice, roomID string) string {
	groups := c.data.Load().groups(choice)
	if len(groups) == 0 {
		return ""
	}

	var fresh []pair
	for g := range groups {
		for i := range groups[g] {
			if !c.used.seen(roomID, choice, pair{g, i}) {
				fresh = append(fresh, pair{g, i})
			}
		}
	}

	if len(fresh) == 0 {
		c.used.reset(roomID, choice)
		g := c.randInt(len(groups))
		i := c.randInt(len(groups[g]))
		c.used.mark(roomID, choice, pair{g, i})
		return groups[g][i]
	}

	p := fresh[c.randInt(len(fresh))]
	c.used.mark(roomID, choice, p)
	return groups[p.group][p.item]
}

// PickBySlot resolves a wheel slot (1-10) to a prompt. The slot fixes the
// item index within a group; the group is what varies, so repeats are
// deferred for as long as some group still has this slot unseen:
//
//  1. Prefer a random group whose item at the slot index is unseen.
//  2. Otherwise take a random group and scan it for any unseen item.
//  3. If that group is exhausted too, reset the used set for this type and
//     return the slot from a random group with no anti-repeat guarantee.
func (c *Catalog) PickBySlot(choice game.Choice, slot int, roomID string) string {
	groups := c.data.Load().groups(choice)
	if len(groups) == 0 {
		return ""
	}

	var candidates []int
	for g := range groups {
		idx := clampSlot(slot, len(groups[g]))
		if !c.used.seen(roomID, choice, pair{g, idx}) {
			candidates = append(candidates, g)
		}
	}
	if len(candidates) > 0 {
		g := candidates[c.randInt(len(candidates))]
		idx := clampSlot(slot, len(groups[g]))
		c.used.mark(roomID, choice, pair{g, idx})
		return groups[g][idx]
	}

	g := c.randInt(len(groups))
	for i := range groups[g] {
		if !c.used.seen(roomID, choice, pair{g, i}) {
			c.used.mark(roomID, choice, pair{g, i})
			return groups[g][i]
		}
	}

	c.used.reset(roomID, choice)
	g = c.randInt(len(groups))
	idx := clampSlot(slot, len(groups[g]))
	c.used.mark(roomID, choice, pair{g, idx})
	return groups[g][idx]
}

// Random returns a uniformly random prompt with no usage tracking. Serves
// the read-only HTTP endpoints.
func (c *Catalog) Random(choice game.Choice) string {
	groups := c.data.Load().groups(choice)
	if len(groups) == 0 {
		return ""
	}
	g := c.randInt(len(groups))
	return groups[g][c.randInt(len(groups[g]))]
}

// clampSlot maps a 1-based wheel slot onto a group that may be shorter than
// a full wheel.
func clampSlot(slot, groupLen int) int {
	idx := slot - 1
	if idx >= groupLen {
		idx = groupLen - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// Release forgets the room's usage history. Called when a room is destroyed
// or ended.
func (c *Catalog) Release(roomID string) {
	c.used.release(roomID)
}
