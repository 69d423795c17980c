package peer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajput-xv/room-T-D/internal/clientcfg"
	"github.com/Rajput-xv/room-T-D/internal/game"
	"github.com/Rajput-xv/room-T-D/internal/signaling"
)

type sentSignal struct {
	Kind    string
	To      string
	Payload []byte
}

// fakeSender records signals; ICE gathering delivers candidates from pion's
// goroutines, so access is locked.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentSignal
}

func (f *fakeSender) SendSignal(kind, _, to string, payload []byte) {
	f.mu.Lock()
	f.sent = append(f.sent, sentSignal{Kind: kind, To: to, Payload: payload})
	f.mu.Unlock()
}

// lastOf returns the most recent signal of the given kind.
func (f *fakeSender) lastOf(kind string) *sentSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].Kind == kind {
			s := f.sent[i]
			return &s
		}
	}
	return nil
}

func (f *fakeSender) countOf(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sent {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

func testOrchestrator(t *testing.T, selfID string) (*Orchestrator, *fakeSender) {
	t.Helper()
	media, err := Acquire()
	require.NoError(t, err)

	sender := &fakeSender{}
	cfg := &clientcfg.Config{STUNServer: clientcfg.DefaultSTUN}
	o := NewOrchestrator(cfg, media, sender)
	o.Bind(selfID, "room1")
	t.Cleanup(o.Close)
	return o, sender
}

func TestInitiatorRuleIsAsymmetric(t *testing.T) {
	t.Parallel()
	a, _ := testOrchestrator(t, "conn-a")
	b, _ := testOrchestrator(t, "conn-b")

	// Exactly one side of every pair initiates.
	assert.True(t, a.initiates("conn-b"))
	assert.False(t, b.initiates("conn-a"))
}

func TestSyncMembersOffersToNewPeers(t *testing.T) {
	t.Parallel()
	a, sender := testOrchestrator(t, "conn-a")

	members := []game.Member{
		{Username: "alice", ConnID: "conn-a"},
		{Username: "bob", ConnID: "conn-b"},
	}
	require.NoError(t, a.SyncMembers(members))

	require.Equal(t, 1, sender.countOf(signaling.EvtOffer))
	assert.Equal(t, "conn-b", sender.lastOf(signaling.EvtOffer).To)
	assert.Equal(t, []string{"conn-b"}, a.Peers())
}

func TestSyncMembersDoesNotOfferUpward(t *testing.T) {
	t.Parallel()
	b, sender := testOrchestrator(t, "conn-b")

	members := []game.Member{
		{Username: "alice", ConnID: "conn-a"},
		{Username: "bob", ConnID: "conn-b"},
	}
	require.NoError(t, b.SyncMembers(members))

	// conn-a initiates toward us; we wait for its offer.
	assert.Zero(t, sender.countOf(signaling.EvtOffer))
	assert.Empty(t, b.Peers())
}

func TestOfferGetsAnswered(t *testing.T) {
	t.Parallel()
	a, senderA := testOrchestrator(t, "conn-a")
	b, senderB := testOrchestrator(t, "conn-b")

	require.NoError(t, a.connect("conn-b"))
	offer := senderA.lastOf(signaling.EvtOffer)
	require.NotNil(t, offer)

	require.NoError(t, b.HandleSignal(signaling.EvtOffer, "conn-a", offer.Payload))

	answer := senderB.lastOf(signaling.EvtAnswer)
	require.NotNil(t, answer)
	assert.Equal(t, "conn-a", answer.To)

	require.NoError(t, a.HandleSignal(signaling.EvtAnswer, "conn-b", answer.Payload))
}

// TestGlare has both sides offer at once. The smaller connection id keeps
// its offer; the larger one abandons its own and answers.
func TestGlare(t *testing.T) {
	t.Parallel()
	a, senderA := testOrchestrator(t, "conn-a")
	b, senderB := testOrchestrator(t, "conn-b")

	require.NoError(t, a.connect("conn-b"))
	offerFromA := senderA.lastOf(signaling.EvtOffer)
	require.NotNil(t, offerFromA)

	// Forced crossing offer from the side that would normally wait.
	require.NoError(t, b.connect("conn-a"))
	offerFromB := senderB.lastOf(signaling.EvtOffer)
	require.NotNil(t, offerFromB)

	// conn-a wins: it ignores the crossing offer and answers nothing.
	require.NoError(t, a.HandleSignal(signaling.EvtOffer, "conn-b", offerFromB.Payload))
	assert.Zero(t, senderA.countOf(signaling.EvtAnswer))
	assert.Equal(t, 1, senderA.countOf(signaling.EvtOffer))

	// conn-b yields: it drops its own offer and answers conn-a's.
	require.NoError(t, b.HandleSignal(signaling.EvtOffer, "conn-a", offerFromA.Payload))
	answer := senderB.lastOf(signaling.EvtAnswer)
	require.NotNil(t, answer)

	require.NoError(t, a.HandleSignal(signaling.EvtAnswer, "conn-b", answer.Payload))
	assert.Equal(t, []string{"conn-b"}, a.Peers())
	assert.Equal(t, []string{"conn-a"}, b.Peers())
}

func TestGlareIsDeterministic(t *testing.T) {
	t.Parallel()
	pairs := [][2]string{
		{"conn-a", "conn-b"},
		{"zzz", "aaa"},
		{"1111", "2222"},
	}
	for _, pair := range pairs {
		x, _ := testOrchestrator(t, pair[0])
		y, _ := testOrchestrator(t, pair[1])
		assert.NotEqual(t, x.initiates(pair[1]), y.initiates(pair[0]),
			"exactly one of %q and %q must initiate", pair[0], pair[1])
	}
}

func TestAnswerFromUnknownPeer(t *testing.T) {
	t.Parallel()
	a, _ := testOrchestrator(t, "conn-a")

	err := a.HandleSignal(signaling.EvtAnswer, "conn-x", []byte(`{"type":"answer","sdp":""}`))
	assert.ErrorIs(t, err, ErrUnknownPeer)
}

func TestSyncMembersTearsDownDepartedPeers(t *testing.T) {
	t.Parallel()
	a, _ := testOrchestrator(t, "conn-a")

	require.NoError(t, a.connect("conn-b"))
	require.Equal(t, []string{"conn-b"}, a.Peers())

	members := []game.Member{{Username: "alice", ConnID: "conn-a"}}
	require.NoError(t, a.SyncMembers(members))
	assert.Empty(t, a.Peers())
}

func TestRemovePeer(t *testing.T) {
	t.Parallel()
	a, _ := testOrchestrator(t, "conn-a")

	require.NoError(t, a.connect("conn-b"))
	a.RemovePeer("conn-b")
	assert.Empty(t, a.Peers())

	// Removing twice is harmless.
	a.RemovePeer("conn-b")
}
