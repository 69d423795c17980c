// Package peer maintains the WebRTC mesh for a room: one peer connection per
// remote member, negotiated through the server relay.
package peer

import (
	"encoding/json"
	"log/slog"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/Rajput-xv/room-T-D/internal/clientcfg"
	"github.com/Rajput-xv/room-T-D/internal/game"
	"github.com/Rajput-xv/room-T-D/internal/signaling"
)

// SignalSender forwards a description or candidate to one peer through the
// relay. Implemented by the signaling client.
type SignalSender interface {
	SendSignal(kind, roomID, to string, payload []byte)
}

// Orchestrator owns every mesh link for the current room. Membership events
// drive link setup and teardown; forwarded signals drive negotiation.
type Orchestrator struct {
	cfg    *clientcfg.Config
	media  *Media
	sender SignalSender

	selfID string
	roomID string

	mu    sync.Mutex
	links map[string]*Link
}

func NewOrchestrator(cfg *clientcfg.Config, media *Media, sender SignalSender) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		media:  media,
		sender: sender,
		links:  make(map[string]*Link),
	}
}

// Bind fixes our own connection id and room once the server has seated us.
// The self id comes from our member entry in the room document.
func (o *Orchestrator) Bind(selfID, roomID string) {
	o.selfID = selfID
	o.roomID = roomID
}

// initiates decides which side of a pair creates the offer. Both sides
// evaluate the same rule, so at most one initiates; the comparison also
// settles glare when both have offers in flight.
func (o *Orchestrator) initiates(remoteID string) bool {
	return o.selfID < remoteID
}

// SyncMembers reconciles the mesh with the room's member list: opens links
// to members we have none for and tears down links to members who left.
func (o *Orchestrator) SyncMembers(members []game.Member) error {
	present := make(map[string]bool, len(members))
	for _, m := range members {
		if m.ConnID == "" || m.ConnID == o.selfID {
			continue
		}
		present[m.ConnID] = true

		o.mu.Lock()
		_, ok := o.links[m.ConnID]
		o.mu.Unlock()
		if ok {
			continue
		}
		if !o.initiates(m.ConnID) {
			// The other side offers; our link is created when it arrives.
			continue
		}
		if err := o.connect(m.ConnID); err != nil {
			return err
		}
	}

	o.mu.Lock()
	var gone []*Link
	for id, l := range o.links {
		if !present[id] {
			gone = append(gone, l)
			delete(o.links, id)
		}
	}
	o.mu.Unlock()
	for _, l := range gone {
		_ = l.Close()
	}
	return nil
}

// connect opens an initiator link and sends the offer.
func (o *Orchestrator) connect(remoteID string) error {
	link, err := o.openLink(remoteID, true)
	if err != nil {
		return err
	}
	offer, err := link.Offer()
	if err != nil {
		o.dropLink(remoteID)
		return err
	}
	o.sender.SendSignal(signaling.EvtOffer, o.roomID, remoteID, offer)
	return nil
}

// HandleSignal processes one forwarded description or candidate. kind is the
// webrtc-* event name it arrived under.
func (o *Orchestrator) HandleSignal(kind, from string, payload []byte) error {
	switch kind {
	case signaling.EvtOffer:
		return o.handleOffer(from, payload)
	case signaling.EvtAnswer:
		return o.handleAnswer(from, payload)
	case signaling.EvtICECandidate:
		return o.handleCandidate(from, payload)
	default:
		return NewPeerError("handle signal", from, ErrBadDescription)
	}
}

// handleOffer answers an incoming offer. When both sides offered at once the
// side with the smaller connection id stays initiator: it ignores the
// incoming offer and waits for its own to be answered; the other side
// abandons its offer and answers instead.
func (o *Orchestrator) handleOffer(from string, payload []byte) error {
	o.mu.Lock()
	existing := o.links[from]
	o.mu.Unlock()

	if existing != nil && existing.Initiator() {
		if o.initiates(from) {
			slog.Debug("glare: ignoring offer, our offer wins", "peer", from)
			return nil
		}
		slog.Debug("glare: yielding to remote offer", "peer", from)
		o.dropLink(from)
	}

	link, err := o.ensureLink(from)
	if err != nil {
		return err
	}
	answer, err := link.HandleOffer(payload)
	if err != nil {
		return err
	}
	o.sender.SendSignal(signaling.EvtAnswer, o.roomID, from, answer)
	return nil
}

func (o *Orchestrator) handleAnswer(from string, payload []byte) error {
	o.mu.Lock()
	link := o.links[from]
	o.mu.Unlock()
	if link == nil {
		return NewPeerError("handle answer", from, ErrUnknownPeer)
	}
	return link.HandleAnswer(payload)
}

// handleCandidate buffers candidates arriving before the peer's offer by
// creating the responder link early.
func (o *Orchestrator) handleCandidate(from string, payload []byte) error {
	link, err := o.ensureLink(from)
	if err != nil {
		return err
	}
	return link.AddCandidate(payload)
}

// ensureLink returns the existing link for the remote or creates a responder
// one.
func (o *Orchestrator) ensureLink(remoteID string) (*Link, error) {
	o.mu.Lock()
	if link, ok := o.links[remoteID]; ok {
		o.mu.Unlock()
		return link, nil
	}
	o.mu.Unlock()
	return o.openLink(remoteID, false)
}

// openLink builds the peer connection, attaches local media and registers it
// in the mesh.
func (o *Orchestrator) openLink(remoteID string, initiator bool) (*Link, error) {
	pc, err := o.newPeerConnection()
	if err != nil {
		return nil, NewPeerError("create peer connection", remoteID, err)
	}

	for _, track := range o.media.Tracks() {
		if _, err := pc.AddTrack(track); err != nil {
			pc.Close()
			return nil, NewPeerError("add track", remoteID, err)
		}
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		o.sender.SendSignal(signaling.EvtICECandidate, o.roomID, remoteID, raw)
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		slog.Debug("peer connection state", "peer", remoteID, "state", state.String())
		if state == pion.PeerConnectionStateFailed || state == pion.PeerConnectionStateClosed {
			o.dropLink(remoteID)
		}
	})

	pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		slog.Debug("remote track", "peer", remoteID, "kind", track.Kind().String())
	})

	link := newLink(pc, remoteID, initiator)
	o.mu.Lock()
	o.links[remoteID] = link
	o.mu.Unlock()
	return link, nil
}

func (o *Orchestrator) newPeerConnection() (*pion.PeerConnection, error) {
	iceServers := []pion.ICEServer{{URLs: o.cfg.STUNServers()}}

	turnServers := o.cfg.TURNServers()
	if turnServers != nil {
		username, password := o.cfg.TURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && o.cfg.ForceRelay {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
}

// RemovePeer tears down the link to a member who left.
func (o *Orchestrator) RemovePeer(remoteID string) {
	o.dropLink(remoteID)
}

func (o *Orchestrator) dropLink(remoteID string) {
	o.mu.Lock()
	link := o.links[remoteID]
	delete(o.links, remoteID)
	o.mu.Unlock()
	if link != nil {
		_ = link.Close()
	}
}

// Peers returns the remote ids with an open link.
func (o *Orchestrator) Peers() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	peers := make([]string, 0, len(o.links))
	for id := range o.links {
		peers = append(peers, id)
	}
	return peers
}

// Close tears the whole mesh down.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	links := o.links
	o.links = make(map[string]*Link)
	o.mu.Unlock()
	for _, l := range links {
		_ = l.Close()
	}
}
