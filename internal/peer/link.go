package peer

import (
	"encoding/json"
	"log/slog"
	"sync"

	pion "github.com/pion/webrtc/v4"
)

// Link is one leg of the mesh: a single peer connection to one remote
// member, addressed by their connection id.
type Link struct {
	remoteID  string
	initiator bool
	pc        *pion.PeerConnection

	mu        sync.Mutex
	remoteSet bool
	pending   []pion.ICECandidateInit
	closed    bool
}

func newLink(pc *pion.PeerConnection, remoteID string, initiator bool) *Link {
	return &Link{
		remoteID:  remoteID,
		initiator: initiator,
		pc:        pc,
	}
}

// Offer creates and applies the local offer, returning it serialized for the
// relay. Trickle ICE: candidates follow separately.
func (l *Link) Offer() ([]byte, error) {
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return nil, NewPeerError("create offer", l.remoteID, err)
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return nil, NewPeerError("set local description", l.remoteID, err)
	}
	return json.Marshal(offer)
}

// HandleOffer applies the remote offer and returns the serialized answer.
func (l *Link) HandleOffer(raw []byte) ([]byte, error) {
	var offer pion.SessionDescription
	if err := json.Unmarshal(raw, &offer); err != nil {
		return nil, NewPeerError("parse offer", l.remoteID, ErrBadDescription)
	}
	if err := l.pc.SetRemoteDescription(offer); err != nil {
		return nil, NewPeerError("set remote description", l.remoteID, err)
	}
	l.remoteReady()

	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return nil, NewPeerError("create answer", l.remoteID, err)
	}
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return nil, NewPeerError("set local description", l.remoteID, err)
	}
	return json.Marshal(answer)
}

// HandleAnswer applies the remote answer to our outstanding offer.
func (l *Link) HandleAnswer(raw []byte) error {
	var answer pion.SessionDescription
	if err := json.Unmarshal(raw, &answer); err != nil {
		return NewPeerError("parse answer", l.remoteID, ErrBadDescription)
	}
	if err := l.pc.SetRemoteDescription(answer); err != nil {
		return NewPeerError("set remote description", l.remoteID, err)
	}
	l.remoteReady()
	return nil
}

// AddCandidate applies a trickled candidate, buffering it while the remote
// description is not set yet. A candidate that fails to apply goes back into
// the buffer for the next flush.
func (l *Link) AddCandidate(raw []byte) error {
	var cand pion.ICECandidateInit
	if err := json.Unmarshal(raw, &cand); err != nil {
		return NewPeerError("parse candidate", l.remoteID, ErrBadCandidate)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrPeerClosed
	}
	if !l.remoteSet {
		l.pending = append(l.pending, cand)
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	if err := l.pc.AddICECandidate(cand); err != nil {
		l.mu.Lock()
		l.pending = append(l.pending, cand)
		l.mu.Unlock()
		return NewPeerError("add candidate", l.remoteID, err)
	}
	return nil
}

// remoteReady marks the remote description as set and flushes the buffered
// candidates.
func (l *Link) remoteReady() {
	l.mu.Lock()
	l.remoteSet = true
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	var rebuffer []pion.ICECandidateInit
	for _, cand := range pending {
		if err := l.pc.AddICECandidate(cand); err != nil {
			slog.Debug("buffered candidate failed, keeping it", "peer", l.remoteID, "err", err)
			rebuffer = append(rebuffer, cand)
		}
	}
	if len(rebuffer) > 0 {
		l.mu.Lock()
		l.pending = append(rebuffer, l.pending...)
		l.mu.Unlock()
	}
}

// PendingCandidates reports how many candidates are buffered.
func (l *Link) PendingCandidates() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Initiator reports whether this side created the offer.
func (l *Link) Initiator() bool {
	return l.initiator
}

func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	return l.pc.Close()
}
