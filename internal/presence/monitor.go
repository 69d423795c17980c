// Package presence runs the periodic inactivity sweep that removes members
// who have gone quiet from active rooms.
package presence

import (
	"context"
	"log/slog"
	"time"

	"github.com/Rajput-xv/room-T-D/internal/game"
)

const (
	// SweepEvery is how often the monitor scans active rooms.
	SweepEvery = 30 * time.Second

	// IdleThreshold is how long a member may go without activity before
	// being removed.
	IdleThreshold = 2 * time.Minute
)

// Evictor removes idle members and reports what it removed.
type Evictor interface {
	EvictIdle(ctx context.Context, threshold time.Duration) ([]game.Eviction, error)
}

// Notifier is told about each eviction so the kicked member and their room
// can be informed.
type Notifier interface {
	NotifyEviction(ev game.Eviction)
}

// Monitor periodically evicts idle members from active rooms.
type Monitor struct {
	evictor   Evictor
	notifier  Notifier
	every     time.Duration
	threshold time.Duration
}

func NewMonitor(evictor Evictor, notifier Notifier) *Monitor {
	return &Monitor{
		evictor:   evictor,
		notifier:  notifier,
		every:     SweepEvery,
		threshold: IdleThreshold,
	}
}

// Run sweeps until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one eviction pass and notifies for each removed member.
func (m *Monitor) Sweep(ctx context.Context) {
	evicted, err := m.evictor.EvictIdle(ctx, m.threshold)
	if err != nil {
		slog.Error("inactivity sweep failed", "err", err)
		return
	}
	for _, ev := range evicted {
		slog.Info("member evicted for inactivity",
			"room", ev.RoomID, "username", ev.Username, "roomDeleted", ev.RoomDeleted)
		m.notifier.NotifyEviction(ev)
	}
}
